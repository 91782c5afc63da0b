package linkedin

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobscout-engine/internal/domain"
	apperrors "jobscout-engine/internal/errors"
	"jobscout-engine/internal/scrape/util"
)

var (
	viewIDRe     = regexp.MustCompile(`/jobs/view/(?:[^/?#]*-)?(\d+)`)
	resultsRe    = regexp.MustCompile(`([\d,]+)\s+results?`)
	nonDigitRe   = regexp.MustCompile(`[^\d]`)
	cardSelector = []string{
		"div.job-search-card",
		"li div[data-entity-urn]",
		"div.base-card",
	}
)

// FieldError describes a card or page whose mandatory fields could not be
// recovered.
type FieldError struct {
	Index   int
	JobID   string
	Missing []string
}

func (e *FieldError) Error() string {
	if e.Index < 0 {
		return "missing " + strings.Join(e.Missing, ", ")
	}
	if e.JobID != "" {
		return fmt.Sprintf("card %d (job %s): missing %s", e.Index, e.JobID, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("card %d: missing %s", e.Index, strings.Join(e.Missing, ", "))
}

type SearchResult struct {
	Listings []domain.ListingSummary
	Cards    int
	Dropped  []*FieldError

	Total      int
	TotalKnown bool
}

// ParseSearchPage extracts listing summaries from a search page or guest API
// fragment. Cards without a job id or title are dropped and reported in
// Dropped; the page itself only fails when the markup cannot be read at all.
func ParseSearchPage(r io.Reader, baseURL string, anchor time.Time) (SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return SearchResult{}, apperrors.Parse("read search page", err)
	}

	var res SearchResult
	res.Total, res.TotalKnown = parseTotal(doc)

	var cards *goquery.Selection
	for _, sel := range cardSelector {
		cards = doc.Find(sel)
		if cards.Length() > 0 {
			break
		}
	}
	res.Cards = cards.Length()

	cards.Each(func(i int, card *goquery.Selection) {
		ls, ferr := parseCard(i, card, baseURL, anchor)
		if ferr != nil {
			res.Dropped = append(res.Dropped, ferr)
			return
		}
		res.Listings = append(res.Listings, ls)
	})
	return res, nil
}

func parseCard(i int, card *goquery.Selection, baseURL string, anchor time.Time) (domain.ListingSummary, *FieldError) {
	link := util.FirstAttr(card, "href", "a.base-card__full-link", "a[href*='/jobs/view/']")

	ls := domain.ListingSummary{
		JobID:    cardJobID(card, link),
		Title:    util.FirstText(card, "h3.base-search-card__title", "h3"),
		Company:  util.FirstText(card, "h4.base-search-card__subtitle", "h4"),
		Location: util.FindLocation(card),
		Salary:   util.FirstText(card, "span.job-search-card__salary-info", "[class*='job-search-card__salary']"),
	}

	var missing []string
	if ls.JobID == "" {
		missing = append(missing, "jobId")
	}
	if ls.Title == "" {
		missing = append(missing, "title")
	}
	if len(missing) > 0 {
		return domain.ListingSummary{}, &FieldError{Index: i, JobID: ls.JobID, Missing: missing}
	}

	if href := util.FirstAttr(card, "href", "h4.base-search-card__subtitle a", "h4 a"); href != "" {
		ls.CompanyURL = util.CanonicalURL(baseURL, href)
	}

	if link != "" {
		ls.URL = util.CanonicalURL(baseURL, link)
	} else {
		ls.URL = JobViewURL(baseURL, ls.JobID)
	}

	if t := card.Find("time").First(); t.Length() > 0 {
		dt, _ := t.Attr("datetime")
		ls.PostedDateText = util.CleanText(t.Text())
		ls.PostedDateTimestamp = ResolvePostedDate(dt, ls.PostedDateText, anchor)
	}
	return ls, nil
}

func cardJobID(card *goquery.Selection, link string) string {
	urn, ok := card.Attr("data-entity-urn")
	if !ok {
		urn, _ = card.Find("[data-entity-urn]").First().Attr("data-entity-urn")
	}
	if i := strings.LastIndex(urn, "jobPosting:"); i >= 0 {
		if id := strings.TrimSpace(urn[i+len("jobPosting:"):]); id != "" {
			return id
		}
	}
	if m := viewIDRe.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return ""
}

func parseTotal(doc *goquery.Document) (int, bool) {
	if n, ok := atoiDigits(rawText(doc.Find("code#totalResults").First())); ok {
		return n, true
	}
	header := util.CleanText(doc.Find(".results-context-header").First().Text())
	if m := resultsRe.FindStringSubmatch(header); m != nil {
		if n, ok := atoiDigits(m[1]); ok {
			return n, true
		}
	}
	if n, ok := atoiDigits(doc.Find("span.results-context-header__job-count").First().Text()); ok {
		return n, true
	}
	return 0, false
}

// atoiDigits reads "1,234+" style counts.
func atoiDigits(s string) (int, bool) {
	s = nonDigitRe.ReplaceAllString(s, "")
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// rawText is Text plus the content of comment children, where the site tucks
// some counters away.
func rawText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#comment" {
			b.WriteString(c.Nodes[0].Data)
			return
		}
		b.WriteString(c.Text())
	})
	return b.String()
}
