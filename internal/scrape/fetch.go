package scrape

import (
	"context"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	apperrors "jobscout-engine/internal/errors"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
)

// RetryPolicy bounds the attempts made for a single request.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   15 * time.Second,
		MaxDelay:    2 * time.Minute,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.MaxInterval = p.MaxDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0.1
	eb.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
}

// Fetcher issues gated GETs. Every attempt, retries included, acquires the
// Governor first and releases it once the response has been read.
type Fetcher struct {
	tr     types.Transport
	gov    *util.Governor
	policy RetryPolicy
	log    *zap.Logger
}

func NewFetcher(tr types.Transport, gov *util.Governor, policy RetryPolicy, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{tr: tr, gov: gov, policy: policy, log: logger.Named("fetch")}
}

// Get returns the body of a 2xx response. Throttling, blocking, server errors
// and transport failures are retried; any other status fails at once with an
// HTTP_STATUS error.
func (f *Fetcher) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	attempt := 0
	op := func() ([]byte, error) {
		attempt++
		release, err := f.gov.Acquire(ctx)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := f.tr.Get(ctx, rawURL, params)
		release()

		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			if !apperrors.IsType(err, apperrors.ErrTypeTransport) {
				err = apperrors.Transport("get "+rawURL, err)
			}
			return nil, err
		}
		if resp.Status >= 200 && resp.Status < 300 {
			return resp.Body, nil
		}

		herr := apperrors.HTTPStatus(resp.Status, rawURL)
		if !apperrors.Retryable(herr) {
			return nil, backoff.Permanent(herr)
		}
		return nil, herr
	}

	notify := func(err error, wait time.Duration) {
		f.log.Warn("request failed, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.policy.MaxAttempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	return backoff.RetryNotifyWithData(op, f.policy.backOff(ctx), notify)
}
