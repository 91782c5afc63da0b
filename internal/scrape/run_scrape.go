package scrape

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobscout-engine/internal/domain"
	apperrors "jobscout-engine/internal/errors"
	"jobscout-engine/internal/scrape/linkedin"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
)

const DefaultMaxResults = 100

type Options struct {
	MaxResults    int  // <= 0 means DefaultMaxResults
	FetchDetails  bool // one extra gated request per record
	TierCap       int  // 0 = none
	DetailWorkers int  // detail requests queued behind the gate at once
}

type Runner struct {
	tr      types.Transport
	gov     *util.Governor
	log     *zap.Logger
	cache   types.DetailCache
	baseURL string
	retry   RetryPolicy
	now     func() time.Time
}

type RunnerOption func(*Runner)

func WithBaseURL(u string) RunnerOption {
	return func(r *Runner) { r.baseURL = u }
}

func WithDetailCache(c types.DetailCache) RunnerOption {
	return func(r *Runner) { r.cache = c }
}

func WithRetryPolicy(p RetryPolicy) RunnerOption {
	return func(r *Runner) { r.retry = p }
}

func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner wires a scraper around one transport and one gate. The same gate
// must be shared by anything else that talks to the site.
func NewRunner(tr types.Transport, gov *util.Governor, logger *zap.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		tr:      tr,
		gov:     gov,
		log:     logger.Named("scrape"),
		baseURL: linkedin.BaseURL,
		retry:   DefaultRetryPolicy(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// EffectiveLimit is the smallest of maxResults, the platform cap and the tier
// cap, with the ceiling that won.
func EffectiveLimit(o Options) (int, types.LimitSource) {
	limit, src := o.MaxResults, types.LimitMaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	if limit > linkedin.PlatformCap {
		limit, src = linkedin.PlatformCap, types.LimitPlatform
	}
	if o.TierCap > 0 && o.TierCap < limit {
		limit, src = o.TierCap, types.LimitTier
	}
	return limit, src
}

// Run scrapes one query and pushes every record to sink in discovery order.
// The error is non-nil only for an invalid FilterSet, reported before any
// request, or a sink failure. Everything else ends up in the Summary, and
// records already pushed stay pushed.
func (r *Runner) Run(ctx context.Context, fs domain.FilterSet, opt Options, sink types.Sink) (types.Summary, error) {
	sum := types.Summary{RunID: uuid.NewString(), StartedAt: r.now().UTC()}
	sum.Limit, sum.LimitSource = EffectiveLimit(opt)
	log := r.log.With(zap.String("run_id", sum.RunID))

	finish := func(reason types.StopReason) types.Summary {
		sum.Reason = reason
		sum.Partial = reason.Partial()
		sum.FinishedAt = r.now().UTC()
		log.Info("run finished",
			zap.String("reason", string(reason)),
			zap.Int("records", sum.Records),
			zap.Int("pages", sum.Pages),
			zap.Int("duplicates", sum.Duplicates),
			zap.Int("dropped", sum.Dropped),
			zap.Int("detail_failures", sum.DetailFailures),
		)
		return sum
	}

	q, err := linkedin.Encode(fs)
	if err != nil {
		sum.LastError = err.Error()
		return finish(types.ReasonFailed), err
	}
	if !fs.HasTarget() {
		log.Warn("no keywords, location or geoId; running an unfiltered search")
	}
	log.Info("run started",
		zap.String("query", q.String()),
		zap.Int("limit", sum.Limit),
		zap.String("limit_source", string(sum.LimitSource)),
		zap.Bool("details", opt.FetchDetails),
		zap.Duration("interval", r.gov.Interval()),
	)

	fetch := NewFetcher(r.tr, r.gov, r.retry, log)
	pager := NewPager(fetch, r.baseURL, r.now, log)
	var details *DetailFetcher
	if opt.FetchDetails {
		details = NewDetailFetcher(fetch, r.cache, r.baseURL, log)
	}
	asm := NewAssembler(sum.Limit)

	offset := 0
	for asm.State() == Collecting {
		if ctx.Err() != nil {
			asm.Abort(types.ReasonCancelled)
			break
		}

		page, err := pager.NextPage(ctx, q, offset)
		if err != nil {
			if ctx.Err() != nil {
				asm.Abort(types.ReasonCancelled)
				break
			}
			log.Warn("pagination stopped early", zap.Int("offset", offset), zap.Error(err))
			sum.LastError = err.Error()
			asm.Abort(types.ReasonPartialResults)
			break
		}
		sum.Pages++
		sum.Dropped += page.Cards - len(page.Listings)
		if page.Total > 0 {
			sum.TotalAvailable = page.Total
		}

		var admitted []domain.ListingSummary
		for _, ls := range page.Listings {
			if asm.Admit(ls) {
				admitted = append(admitted, ls)
			}
		}
		sum.Duplicates = asm.Duplicates()

		if err := r.emit(ctx, admitted, details, opt.DetailWorkers, sink, &sum); err != nil {
			if ctx.Err() != nil {
				asm.Abort(types.ReasonCancelled)
				break
			}
			sum.LastError = err.Error()
			return finish(types.ReasonFailed), err
		}

		if sig := asm.EndPage(page); sig.Stop {
			break
		}
		offset = page.NextOffset
	}

	return finish(asm.Reason()), nil
}

type detailResult struct {
	e  domain.Enrichment
	ok bool
}

// emit pushes one page's admitted listings to sink in order. With details on,
// up to workers detail requests wait on the gate while earlier records are
// emitted; the gate still lets only one through at a time.
func (r *Runner) emit(ctx context.Context, items []domain.ListingSummary, details *DetailFetcher, workers int, sink types.Sink, sum *types.Summary) error {
	if details == nil {
		for _, ls := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := put(ctx, sink, Merge(ls, domain.Enrichment{})); err != nil {
				return err
			}
			sum.Records++
		}
		return nil
	}

	if workers < 1 {
		workers = 1
	}
	wctx, cancel := context.WithCancel(ctx)
	results := make([]chan detailResult, len(items))
	for i := range results {
		results[i] = make(chan detailResult, 1)
	}

	var g errgroup.Group
	g.SetLimit(workers)
	queued := make(chan struct{})
	go func() {
		defer close(queued)
		for i, ls := range items {
			if wctx.Err() != nil {
				return
			}
			g.Go(func() error {
				e, ok := details.FetchDetail(wctx, ls)
				results[i] <- detailResult{e: e, ok: ok}
				return nil
			})
		}
	}()
	defer func() {
		cancel()
		<-queued
		_ = g.Wait()
	}()

	for i, ls := range items {
		var res detailResult
		select {
		case res = <-results[i]:
		case <-ctx.Done():
			return ctx.Err()
		}
		// a fetch cut short by cancellation is not a detail failure
		if err := ctx.Err(); err != nil {
			return err
		}
		if !res.ok {
			sum.DetailFailures++
		}
		if err := put(ctx, sink, Merge(ls, res.e)); err != nil {
			return err
		}
		sum.Records++
	}
	return nil
}

func put(ctx context.Context, sink types.Sink, rec domain.JobRecord) error {
	err := sink.Put(ctx, rec)
	if err == nil || apperrors.IsType(err, apperrors.ErrTypeSink) || errors.Is(err, context.Canceled) {
		return err
	}
	return apperrors.Sink("put "+rec.JobID, err)
}
