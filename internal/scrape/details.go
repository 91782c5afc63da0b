package scrape

import (
	"bytes"
	"context"
	"time"

	"go.uber.org/zap"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/linkedin"
	"jobscout-engine/internal/scrape/types"
)

type DetailFetcher struct {
	fetch   *Fetcher
	cache   types.DetailCache // optional
	baseURL string
	log     *zap.Logger
}

func NewDetailFetcher(fetch *Fetcher, cache types.DetailCache, baseURL string, logger *zap.Logger) *DetailFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DetailFetcher{fetch: fetch, cache: cache, baseURL: baseURL, log: logger.Named("detail")}
}

// FetchDetail loads the job's own page. Failures never propagate: the result
// is then an empty Enrichment and ok is false.
func (d *DetailFetcher) FetchDetail(ctx context.Context, ls domain.ListingSummary) (e domain.Enrichment, ok bool) {
	if d.cache != nil {
		if e, hit := d.cache.Get(ctx, ls.JobID); hit {
			return e, true
		}
	}

	start := time.Now()
	body, err := d.fetch.Get(ctx, linkedin.JobViewURL(d.baseURL, ls.JobID), nil)
	if err != nil {
		if ctx.Err() == nil {
			d.log.Warn("detail fetch failed", zap.String("job_id", ls.JobID), zap.Error(err))
		}
		return domain.Enrichment{}, false
	}

	e, err = linkedin.ParseDetailPage(bytes.NewReader(body))
	if err != nil {
		d.log.Warn("detail page unreadable", zap.String("job_id", ls.JobID), zap.Error(err))
		return domain.Enrichment{}, false
	}

	if d.cache != nil {
		d.cache.Set(ctx, ls.JobID, e)
	}
	d.log.Debug("detail fetched", zap.String("job_id", ls.JobID), zap.Duration("took", time.Since(start)))
	return e, true
}
