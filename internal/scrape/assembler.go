package scrape

import (
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/types"
)

type State int

const (
	Collecting State = iota
	Done
)

// Signal is the Assembler's verdict after a page: continue, or stop and why.
type Signal struct {
	Stop   bool
	Reason types.StopReason
}

// Assembler owns the de-duplication set and the running count of one run.
// It is driven by a single goroutine.
type Assembler struct {
	limit      int
	seen       map[string]struct{}
	admitted   int
	duplicates int
	state      State
	reason     types.StopReason
}

func NewAssembler(limit int) *Assembler {
	return &Assembler{limit: limit, seen: make(map[string]struct{})}
}

// Admit reports whether ls is to be emitted. The first occurrence of a job id
// wins; nothing is admitted once the limit is reached.
func (a *Assembler) Admit(ls domain.ListingSummary) bool {
	if a.state == Done || a.admitted >= a.limit {
		return false
	}
	if _, dup := a.seen[ls.JobID]; dup {
		a.duplicates++
		return false
	}
	a.seen[ls.JobID] = struct{}{}
	a.admitted++
	return true
}

// EndPage closes a page and tells the pager whether to go on.
func (a *Assembler) EndPage(page domain.SearchPage) Signal {
	switch {
	case a.state == Done:
	case a.admitted >= a.limit:
		a.finish(types.ReasonCapReached)
	case !page.HasMore:
		a.finish(types.ReasonExhausted)
	default:
		return Signal{}
	}
	return Signal{Stop: true, Reason: a.reason}
}

// Abort ends collection early, e.g. on failure or cancellation.
func (a *Assembler) Abort(reason types.StopReason) {
	if a.state != Done {
		a.finish(reason)
	}
}

func (a *Assembler) finish(reason types.StopReason) {
	a.state = Done
	a.reason = reason
}

func (a *Assembler) State() State             { return a.state }
func (a *Assembler) Reason() types.StopReason { return a.reason }
func (a *Assembler) Duplicates() int          { return a.duplicates }

// Merge joins a summary with its enrichment. The detail page salary only fills
// a salary the card did not show.
func Merge(ls domain.ListingSummary, e domain.Enrichment) domain.JobRecord {
	rec := domain.JobRecord{ListingSummary: ls, ListingDetail: e.Detail}
	if rec.Salary == "" && e.Salary != "" {
		rec.Salary = e.Salary
	}
	return rec
}
