package util

import (
	"github.com/PuerkitoBio/goquery"
)

// FirstText returns the cleaned text of the first candidate selector that
// yields non-empty text under sel.
func FirstText(sel *goquery.Selection, candidates ...string) string {
	for _, c := range candidates {
		if t := CleanText(sel.Find(c).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// FirstAttr is FirstText for an attribute value.
func FirstAttr(sel *goquery.Selection, attr string, candidates ...string) string {
	for _, c := range candidates {
		if v, ok := sel.Find(c).First().Attr(attr); ok {
			if v = CleanText(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// FindLocation reads a card's location line.
func FindLocation(card *goquery.Selection) string {
	return NormalizeLocation(FirstText(card,
		"span.job-search-card__location",
		".base-search-card__metadata .job-search-card__location",
		"[class*='location']",
	))
}
