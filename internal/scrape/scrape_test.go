package scrape_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"jobscout-engine/internal/domain"
	apperrors "jobscout-engine/internal/errors"
	"jobscout-engine/internal/scrape"
	"jobscout-engine/internal/scrape/linkedin"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
)

// fakeSite serves canned search and detail pages keyed by offset and job id.
type fakeSite struct {
	mu       sync.Mutex
	calls    []string
	inFlight int
	maxSeen  int

	// search pages by offset; missing offsets answer with an empty fragment
	pages map[int]types.Response
	// detail pages by job id; missing ids get a default detail page
	details map[string]types.Response
}

func newFakeSite() *fakeSite {
	return &fakeSite{pages: map[int]types.Response{}, details: map[string]types.Response{}}
}

func (f *fakeSite) Get(ctx context.Context, rawURL string, params url.Values) (types.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return types.Response{}, err
	}

	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	call := u.Path
	if s := params.Get("start"); s != "" {
		call += "?start=" + s
	}
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	time.Sleep(time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--

	switch {
	case u.Path == linkedin.SearchPath:
		return f.page(0), nil
	case u.Path == linkedin.GuestSearchPath:
		start, _ := strconv.Atoi(params.Get("start"))
		return f.page(start), nil
	case strings.HasPrefix(u.Path, linkedin.ViewPath):
		id := strings.TrimPrefix(u.Path, linkedin.ViewPath)
		if r, ok := f.details[id]; ok {
			return r, nil
		}
		return okResp(detailHTML(id)), nil
	}
	return types.Response{Status: http.StatusNotFound}, nil
}

func (f *fakeSite) page(offset int) types.Response {
	if r, ok := f.pages[offset]; ok {
		return r
	}
	return okResp("")
}

func (f *fakeSite) callsMatching(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func okResp(body string) types.Response { return types.Response{Status: http.StatusOK, Body: []byte(body)} }

func card(id string) string {
	return fmt.Sprintf(`<li><div class="base-card job-search-card" data-entity-urn="urn:li:jobPosting:%s">
<a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/role-%s?trk=x"></a>
<h3 class="base-search-card__title">Role %s</h3>
<h4 class="base-search-card__subtitle"><a href="https://www.linkedin.com/company/co-%s?trk=y">Co %s</a></h4>
<span class="job-search-card__location">Remote</span>
<time datetime="2026-10-10">6 days ago</time>
</div></li>`, id, id, id, id, id)
}

func ids(from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, strconv.Itoa(i))
	}
	return out
}

func cardsPage(total int, jobIDs ...string) types.Response {
	var b strings.Builder
	if total > 0 {
		fmt.Fprintf(&b, `<code id="totalResults"><!--%d--></code>`, total)
	}
	b.WriteString("<ul>")
	for _, id := range jobIDs {
		b.WriteString(card(id))
	}
	b.WriteString("</ul>")
	return okResp(b.String())
}

func detailHTML(id string) string {
	return fmt.Sprintf(`<div class="show-more-less-html__markup">Description %s</div>
<div class="salary compensation__salary">$%s</div>
<ul class="description__job-criteria-list">
<li><h3>Seniority level</h3><span class="description__job-criteria-text">Senior %s</span></li>
<li><h3>Employment type</h3><span class="description__job-criteria-text">Full-time</span></li>
</ul>
<figcaption class="num-applicants__caption"> 25 applicants </figcaption>`, id, id, id)
}

func newRunner(t *testing.T, site types.Transport, opts ...scrape.RunnerOption) *scrape.Runner {
	t.Helper()
	base := []scrape.RunnerOption{
		scrape.WithRetryPolicy(scrape.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}),
		scrape.WithClock(func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }),
	}
	return scrape.NewRunner(site, util.NewGovernor(0), zaptest.NewLogger(t), append(base, opts...)...)
}

func jobIDs(recs []domain.JobRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.JobID
	}
	return out
}

func TestRun_CapReached(t *testing.T) {
	site := newFakeSite()
	site.pages[0] = cardsPage(500, ids(1, 25)...)
	site.pages[25] = cardsPage(0, ids(26, 35)...)
	site.pages[35] = cardsPage(0, ids(36, 45)...)

	res, err := newRunner(t, site).Collect(context.Background(),
		domain.FilterSet{Keywords: "go"}, scrape.Options{MaxResults: 30})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 30 {
		t.Fatalf("records = %d, want 30", len(res.Records))
	}
	seen := map[string]bool{}
	for _, r := range res.Records {
		if seen[r.JobID] {
			t.Fatalf("duplicate job id %s", r.JobID)
		}
		seen[r.JobID] = true
	}
	s := res.Summary
	if s.Reason != types.ReasonCapReached || s.Partial {
		t.Errorf("reason = %s partial = %v", s.Reason, s.Partial)
	}
	if s.Records != 30 || s.Pages != 2 || s.TotalAvailable != 500 {
		t.Errorf("summary = %+v", s)
	}
	if n := site.callsMatching(linkedin.GuestSearchPath + "?start=35"); n != 0 {
		t.Errorf("requested a page after the cap was reached")
	}
}

func TestRun_DedupFirstOccurrenceWins(t *testing.T) {
	site := newFakeSite()
	site.pages[0] = cardsPage(0, "1", "2", "3")
	site.pages[25] = cardsPage(0, "3", "4", "1")

	res, err := newRunner(t, site).Collect(context.Background(), domain.FilterSet{Keywords: "go"}, scrape.Options{MaxResults: 100})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(jobIDs(res.Records), ","); got != "1,2,3,4" {
		t.Errorf("records = %s, want 1,2,3,4", got)
	}
	if res.Summary.Duplicates != 2 {
		t.Errorf("duplicates = %d, want 2", res.Summary.Duplicates)
	}
	if res.Summary.Reason != types.ReasonExhausted {
		t.Errorf("reason = %s, want exhausted", res.Summary.Reason)
	}
}

func TestRun_DetailsDisabled(t *testing.T) {
	site := newFakeSite()
	site.pages[0] = cardsPage(3, "1", "2", "3")

	res, err := newRunner(t, site).Collect(context.Background(), domain.FilterSet{Keywords: "go"},
		scrape.Options{MaxResults: 10, FetchDetails: false})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 3 {
		t.Fatalf("records = %d", len(res.Records))
	}
	for _, r := range res.Records {
		if r.ListingDetail != (domain.ListingDetail{}) {
			t.Errorf("job %s has detail fields %+v", r.JobID, r.ListingDetail)
		}
	}
	if n := site.callsMatching(linkedin.ViewPath); n != 0 {
		t.Errorf("made %d detail requests with details disabled", n)
	}
	// total of 3 is reached on the first page
	if n := site.callsMatching(linkedin.GuestSearchPath); n != 0 {
		t.Errorf("paged past the reported total")
	}
}

func TestRun_DetailsMergedAndFailureIsolated(t *testing.T) {
	site := newFakeSite()
	site.pages[0] = cardsPage(3, "1", "2", "3")
	site.details["2"] = types.Response{Status: http.StatusNotFound}

	res, err := newRunner(t, site).Collect(context.Background(), domain.FilterSet{Keywords: "go"},
		scrape.Options{MaxResults: 10, FetchDetails: true, DetailWorkers: 3})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(jobIDs(res.Records), ","); got != "1,2,3" {
		t.Fatalf("records = %s", got)
	}
	r1, r2, r3 := res.Records[0], res.Records[1], res.Records[2]
	if r1.SeniorityLevel != "Senior 1" || r1.Description != "Description 1" || r1.ApplicantCount != "25 applicants" {
		t.Errorf("record 1 detail = %+v", r1.ListingDetail)
	}
	if r1.Salary != "$1" {
		t.Errorf("salary not backfilled from the detail page: %q", r1.Salary)
	}
	if r2.ListingDetail != (domain.ListingDetail{}) || r2.Title != "Role 2" {
		t.Errorf("failed detail should leave the summary with empty detail, got %+v", r2)
	}
	if r3.SeniorityLevel != "Senior 3" {
		t.Errorf("listing after the failure lost its detail: %+v", r3.ListingDetail)
	}
	if res.Summary.DetailFailures != 1 {
		t.Errorf("detail failures = %d", res.Summary.DetailFailures)
	}
	if site.maxSeen > 1 {
		t.Errorf("%d requests were in flight at once", site.maxSeen)
	}
}

func TestRun_MissingJobIDDropped(t *testing.T) {
	site := newFakeSite()
	page := cardsPage(3, "1", "3")
	broken := `<li><div class="base-card job-search-card"><h3 class="base-search-card__title">No id</h3></div></li>`
	page.Body = []byte(strings.Replace(string(page.Body), "<ul>", "<ul>"+broken, 1))
	site.pages[0] = page

	res, err := newRunner(t, site).Collect(context.Background(), domain.FilterSet{Keywords: "go"}, scrape.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(jobIDs(res.Records), ","); got != "1,3" {
		t.Errorf("records = %s, want 1,3", got)
	}
	if res.Summary.Dropped != 1 {
		t.Errorf("dropped = %d", res.Summary.Dropped)
	}
}

func TestRun_RetriesExhaustedYieldsPartialResults(t *testing.T) {
	site := newFakeSite()
	site.pages[0] = cardsPage(200, ids(1, 25)...)
	site.pages[25] = types.Response{Status: http.StatusServiceUnavailable}

	res, err := newRunner(t, site).Collect(context.Background(), domain.FilterSet{Keywords: "go"}, scrape.Options{MaxResults: 50})
	if err != nil {
		t.Fatalf("page failure must not fail the run: %v", err)
	}
	if len(res.Records) != 25 {
		t.Errorf("records = %d, want the 25 gathered before the failure", len(res.Records))
	}
	s := res.Summary
	if s.Reason != types.ReasonPartialResults || !s.Partial || s.LastError == "" {
		t.Errorf("summary = %+v", s)
	}
	if n := site.callsMatching(linkedin.GuestSearchPath + "?start=25"); n != 3 {
		t.Errorf("attempts at offset 25 = %d, want 3", n)
	}
}

func TestRun_NonRetryableStatusNotRetried(t *testing.T) {
	site := newFakeSite()
	site.pages[0] = cardsPage(200, ids(1, 25)...)
	site.pages[25] = types.Response{Status: http.StatusNotFound}

	res, err := newRunner(t, site).Collect(context.Background(), domain.FilterSet{Keywords: "go"}, scrape.Options{MaxResults: 50})
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary.Reason != types.ReasonPartialResults {
		t.Errorf("reason = %s", res.Summary.Reason)
	}
	if n := site.callsMatching(linkedin.GuestSearchPath); n != 1 {
		t.Errorf("a 404 was retried %d times", n)
	}
}

func TestRun_BadRequestEndsPagination(t *testing.T) {
	site := newFakeSite()
	site.pages[0] = cardsPage(0, ids(1, 25)...)
	site.pages[25] = types.Response{Status: http.StatusBadRequest}

	res, err := newRunner(t, site).Collect(context.Background(), domain.FilterSet{Keywords: "go"}, scrape.Options{MaxResults: 100})
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary.Reason != types.ReasonExhausted || res.Summary.Partial {
		t.Errorf("summary = %+v", res.Summary)
	}
	if len(res.Records) != 25 {
		t.Errorf("records = %d", len(res.Records))
	}
}

func TestRun_InvalidFilterFailsBeforeAnyRequest(t *testing.T) {
	site := newFakeSite()
	res, err := newRunner(t, site).Collect(context.Background(),
		domain.FilterSet{Keywords: "go", ExperienceLevels: []int{9}}, scrape.Options{})
	if !apperrors.IsType(err, apperrors.ErrTypeInvalidFilter) {
		t.Fatalf("err = %v, want INVALID_FILTER", err)
	}
	if len(site.calls) != 0 {
		t.Errorf("made %d requests for an invalid filter", len(site.calls))
	}
	if res.Summary.Reason != types.ReasonFailed || len(res.Records) != 0 {
		t.Errorf("summary = %+v", res.Summary)
	}
}

func TestRun_CancelKeepsAssembledRecords(t *testing.T) {
	site := newFakeSite()
	site.pages[0] = cardsPage(500, ids(1, 25)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []string
	sink := types.SinkFunc(func(_ context.Context, rec domain.JobRecord) error {
		got = append(got, rec.JobID)
		if len(got) == 5 {
			cancel()
		}
		return nil
	})

	sum, err := newRunner(t, site).Run(ctx, domain.FilterSet{Keywords: "go"}, scrape.Options{MaxResults: 100}, sink)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Reason != types.ReasonCancelled || !sum.Partial {
		t.Errorf("summary = %+v", sum)
	}
	if len(got) != 5 || sum.Records != 5 {
		t.Errorf("emitted %d records, summary says %d; want 5", len(got), sum.Records)
	}
}

func TestRun_SinkFailureIsFatal(t *testing.T) {
	site := newFakeSite()
	site.pages[0] = cardsPage(3, "1", "2", "3")

	sink := types.SinkFunc(func(_ context.Context, rec domain.JobRecord) error {
		if rec.JobID == "2" {
			return errors.New("disk full")
		}
		return nil
	})
	sum, err := newRunner(t, site).Run(context.Background(), domain.FilterSet{Keywords: "go"}, scrape.Options{}, sink)
	if !apperrors.IsType(err, apperrors.ErrTypeSink) {
		t.Fatalf("err = %v, want SINK", err)
	}
	if sum.Reason != types.ReasonFailed || sum.Records != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRun_TierCap(t *testing.T) {
	site := newFakeSite()
	site.pages[0] = cardsPage(500, ids(1, 25)...)

	res, err := newRunner(t, site).Collect(context.Background(), domain.FilterSet{Keywords: "go"},
		scrape.Options{MaxResults: 100, TierCap: 7})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 7 || res.Summary.LimitSource != types.LimitTier {
		t.Errorf("records = %d, limit source = %s", len(res.Records), res.Summary.LimitSource)
	}
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]domain.Enrichment
}

func (c *mapCache) Get(_ context.Context, id string) (domain.Enrichment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[id]
	return e, ok
}

func (c *mapCache) Set(_ context.Context, id string, e domain.Enrichment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[id] = e
}

func TestRun_DetailCacheSkipsRequests(t *testing.T) {
	site := newFakeSite()
	site.pages[0] = cardsPage(2, "1", "2")
	cache := &mapCache{m: map[string]domain.Enrichment{
		"1": {Detail: domain.ListingDetail{Industries: "Cached"}},
	}}

	res, err := newRunner(t, site, scrape.WithDetailCache(cache)).Collect(context.Background(),
		domain.FilterSet{Keywords: "go"}, scrape.Options{FetchDetails: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Records[0].Industries != "Cached" {
		t.Errorf("cached detail not used: %+v", res.Records[0].ListingDetail)
	}
	if n := site.callsMatching(linkedin.ViewPath); n != 1 {
		t.Errorf("detail requests = %d, want 1", n)
	}
	if _, ok := cache.Get(context.Background(), "2"); !ok {
		t.Errorf("fetched detail was not cached")
	}
}

func TestRun_GovernorSpacesEveryRequest(t *testing.T) {
	site := newFakeSite()
	site.pages[0] = cardsPage(2, "1", "2")

	const interval = 30 * time.Millisecond
	var (
		mu     sync.Mutex
		starts []time.Time
	)
	timed := transportFunc(func(ctx context.Context, rawURL string, params url.Values) (types.Response, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return site.Get(ctx, rawURL, params)
	})

	r := scrape.NewRunner(timed, util.NewGovernor(interval), zaptest.NewLogger(t))
	if _, err := r.Collect(context.Background(), domain.FilterSet{Keywords: "go"},
		scrape.Options{FetchDetails: true, DetailWorkers: 2}); err != nil {
		t.Fatal(err)
	}
	if len(starts) != 3 {
		t.Fatalf("requests = %d, want 3", len(starts))
	}
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < interval {
			t.Errorf("request %d started %v after the previous one, want >= %v", i, gap, interval)
		}
	}
}

type transportFunc func(ctx context.Context, rawURL string, params url.Values) (types.Response, error)

func (f transportFunc) Get(ctx context.Context, rawURL string, params url.Values) (types.Response, error) {
	return f(ctx, rawURL, params)
}

func TestEffectiveLimit(t *testing.T) {
	cases := []struct {
		opt   scrape.Options
		limit int
		src   types.LimitSource
	}{
		{scrape.Options{}, 100, types.LimitMaxResults},
		{scrape.Options{MaxResults: 40}, 40, types.LimitMaxResults},
		{scrape.Options{MaxResults: 5000}, 1000, types.LimitPlatform},
		{scrape.Options{MaxResults: 5000, TierCap: 300}, 300, types.LimitTier},
		{scrape.Options{MaxResults: 40, TierCap: 300}, 40, types.LimitMaxResults},
	}
	for _, c := range cases {
		limit, src := scrape.EffectiveLimit(c.opt)
		if limit != c.limit || src != c.src {
			t.Errorf("EffectiveLimit(%+v) = %d/%s, want %d/%s", c.opt, limit, src, c.limit, c.src)
		}
	}
}
