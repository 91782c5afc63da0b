package domain

import "strings"

type DatePosted string

const (
	DatePostedAny   DatePosted = ""
	DatePostedDay   DatePosted = "past_24_hours"
	DatePostedWeek  DatePosted = "past_week"
	DatePostedMonth DatePosted = "past_month"
)

// ParseDatePosted accepts the configuration names plus the short forms
// day/week/month. ok is false for anything else.
func ParseDatePosted(s string) (DatePosted, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "any":
		return DatePostedAny, true
	case "past_24_hours", "day", "24h":
		return DatePostedDay, true
	case "past_week", "week":
		return DatePostedWeek, true
	case "past_month", "month":
		return DatePostedMonth, true
	}
	return DatePosted(s), false
}

// FilterSet is the typed search input. Empty fields mean "no filter".
type FilterSet struct {
	Keywords         string
	Location         string
	GeoID            string // wins over Location when both are set
	DatePosted       DatePosted
	JobTypes         []string // F,P,C,T,V,I,O
	ExperienceLevels []int    // 1..6
	WorkTypes        []int    // 1..3
	SalaryTier       int      // 1..9, 0 = none
}

func (f FilterSet) HasTarget() bool {
	return strings.TrimSpace(f.Keywords) != "" ||
		strings.TrimSpace(f.Location) != "" ||
		strings.TrimSpace(f.GeoID) != ""
}
