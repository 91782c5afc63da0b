package scrape

import (
	"context"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/types"
)

// Result is the JSON document a run produces.
type Result struct {
	Records []domain.JobRecord `json:"records"`
	Summary types.Summary      `json:"summary"`
}

// Collect runs the scraper into memory, teeing every record to extra sinks
// (dataset stores, publishers) in the same order.
func (r *Runner) Collect(ctx context.Context, fs domain.FilterSet, opt Options, extra ...types.Sink) (Result, error) {
	res := Result{Records: make([]domain.JobRecord, 0)}
	mem := types.SinkFunc(func(_ context.Context, rec domain.JobRecord) error {
		res.Records = append(res.Records, rec)
		return nil
	})

	sink := types.Sink(mem)
	if len(extra) > 0 {
		sink = append(types.MultiSink{mem}, extra...)
	}

	sum, err := r.Run(ctx, fs, opt, sink)
	res.Summary = sum
	return res, err
}
