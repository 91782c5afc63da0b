package linkedin

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobscout-engine/internal/domain"
	apperrors "jobscout-engine/internal/errors"
	"jobscout-engine/internal/scrape/util"
)

// ParseDetailPage reads the enriched fields from a job's own page. Each field
// is optional. The page is a parse failure only when none of them is present,
// in which case the error wraps a FieldError naming them all.
func ParseDetailPage(r io.Reader) (domain.Enrichment, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return domain.Enrichment{}, apperrors.Parse("read detail page", err)
	}

	var e domain.Enrichment
	d := &e.Detail

	if markup := doc.Find("div.show-more-less-html__markup").First(); markup.Length() > 0 {
		d.Description = blockText(markup)
	} else {
		d.Description = blockText(doc.Find("div.description__text").First())
	}

	doc.Find("ul.description__job-criteria-list li").Each(func(_ int, li *goquery.Selection) {
		header := strings.ToLower(util.CleanText(li.Find("h3").First().Text()))
		value := util.FirstText(li, "span.description__job-criteria-text")
		if header == "" || value == "" {
			return
		}
		switch {
		case strings.Contains(header, "seniority"):
			d.SeniorityLevel = value
		case strings.Contains(header, "employment"), strings.Contains(header, "type"):
			d.EmploymentType = value
		case strings.Contains(header, "function"):
			d.JobFunction = value
		case strings.Contains(header, "industr"):
			d.Industries = value
		}
	})

	d.ApplicantCount = util.FirstText(doc.Selection,
		"figcaption.num-applicants__caption",
		"span.num-applicants__caption",
		"figcaption[class*='num-applicants']",
		"span[class*='num-applicants']",
	)

	e.Salary = util.FirstText(doc.Selection,
		"div.salary.compensation__salary",
		"div[class*='salary']",
	)

	if d.IsEmpty() && e.Salary == "" {
		return e, apperrors.Parse("detail page has no recognisable fields", &FieldError{
			Index:   -1,
			Missing: []string{"description", "seniorityLevel", "employmentType", "jobFunction", "industries", "applicantCount"},
		})
	}
	return e, nil
}

// blockText joins the text nodes under sel with newlines.
func blockText(sel *goquery.Selection) string {
	var lines []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				if t := util.CleanText(c.Text()); t != "" {
					lines = append(lines, t)
				}
				return
			}
			walk(c)
		})
	}
	walk(sel)
	return strings.Join(lines, "\n")
}
