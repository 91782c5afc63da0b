package types

import (
	"context"
	"net/url"
	"time"

	"jobscout-engine/internal/domain"
)

// Response is what the Transport hands back for any completed HTTP exchange,
// whatever the status.
type Response struct {
	Status int
	Body   []byte
}

// Transport performs one GET. It returns an error only for transport level
// failures (timeouts, refused connections, bad proxies); HTTP error statuses
// come back as a Response.
type Transport interface {
	Get(ctx context.Context, rawURL string, params url.Values) (Response, error)
}

// Sink receives records in discovery order.
type Sink interface {
	Put(ctx context.Context, rec domain.JobRecord) error
}

type SinkFunc func(ctx context.Context, rec domain.JobRecord) error

func (f SinkFunc) Put(ctx context.Context, rec domain.JobRecord) error { return f(ctx, rec) }

// MultiSink fans each record out to every sink in order and stops at the
// first failure.
type MultiSink []Sink

func (m MultiSink) Put(ctx context.Context, rec domain.JobRecord) error {
	for _, s := range m {
		if err := s.Put(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// DetailCache stores parsed detail pages by job id. Implementations treat
// misses and backend errors alike as ok=false.
type DetailCache interface {
	Get(ctx context.Context, jobID string) (domain.Enrichment, bool)
	Set(ctx context.Context, jobID string, e domain.Enrichment)
}

type StopReason string

const (
	ReasonCapReached     StopReason = "cap_reached"
	ReasonExhausted      StopReason = "exhausted"
	ReasonPartialResults StopReason = "partial_results"
	ReasonCancelled      StopReason = "cancelled"
	ReasonFailed         StopReason = "failed"
)

// Partial reports whether a run with this outcome may have missed results it
// would otherwise have returned.
func (r StopReason) Partial() bool {
	switch r {
	case ReasonPartialResults, ReasonCancelled, ReasonFailed:
		return true
	}
	return false
}

type LimitSource string

const (
	LimitMaxResults LimitSource = "maxResults"
	LimitPlatform   LimitSource = "platform"
	LimitTier       LimitSource = "tier"
)

// Summary closes every run.
type Summary struct {
	RunID          string      `json:"runId"`
	Records        int         `json:"records"`
	Reason         StopReason  `json:"reason"`
	Partial        bool        `json:"partial"`
	Limit          int         `json:"limit"`
	LimitSource    LimitSource `json:"limitSource"`
	Pages          int         `json:"pages"`
	Duplicates     int         `json:"duplicates"`
	Dropped        int         `json:"dropped"`
	DetailFailures int         `json:"detailFailures"`
	TotalAvailable int         `json:"totalAvailable"`
	StartedAt      time.Time   `json:"startedAt"`
	FinishedAt     time.Time   `json:"finishedAt"`
	LastError      string      `json:"lastError,omitempty"`
}
