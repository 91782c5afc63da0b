package linkedin

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"jobscout-engine/internal/scrape/util"
)

const DateLayout = "2006-01-02"

var relativeRe = regexp.MustCompile(`^(\d+|a|an)\s+(second|minute|hour|day|week|month|year)s?\s+ago$`)

// ResolvePostedDate returns the posting date as YYYY-MM-DD. A well-formed
// datetime attribute wins; otherwise text is resolved relative to anchor.
// Anything that cannot be resolved exactly yields "".
func ResolvePostedDate(datetime, text string, anchor time.Time) string {
	if datetime = strings.TrimSpace(datetime); datetime != "" {
		if t, err := time.Parse(DateLayout, datetime); err == nil {
			return t.Format(DateLayout)
		}
	}
	if t, ok := ResolveRelative(text, anchor); ok {
		return t.Format(DateLayout)
	}
	return ""
}

// ResolveRelative parses phrases like "2 days ago", "an hour ago",
// "Reposted 3 weeks ago", "today" and "yesterday".
func ResolveRelative(text string, anchor time.Time) (time.Time, bool) {
	s := strings.ToLower(util.CleanText(text))
	for _, p := range []string{"reposted", "posted"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, p))
	}

	switch s {
	case "":
		return time.Time{}, false
	case "today", "just now":
		return anchor, true
	case "yesterday":
		return anchor.AddDate(0, 0, -1), true
	}

	m := relativeRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	n := 1
	if m[1] != "a" && m[1] != "an" {
		v, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		n = v
	}

	switch m[2] {
	case "second":
		return anchor.Add(-time.Duration(n) * time.Second), true
	case "minute":
		return anchor.Add(-time.Duration(n) * time.Minute), true
	case "hour":
		return anchor.Add(-time.Duration(n) * time.Hour), true
	case "day":
		return anchor.AddDate(0, 0, -n), true
	case "week":
		return anchor.AddDate(0, 0, -7*n), true
	case "month":
		return monthsBefore(anchor, n), true
	case "year":
		return monthsBefore(anchor, 12*n), true
	}
	return time.Time{}, false
}

// monthsBefore steps back n calendar months, clamping the day to the end of
// the target month (31 March minus one month is 28 or 29 February).
func monthsBefore(anchor time.Time, n int) time.Time {
	y, m, d := anchor.Date()
	first := time.Date(y, m-time.Month(n), 1, anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
