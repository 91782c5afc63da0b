package linkedin

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"jobscout-engine/internal/domain"
	apperrors "jobscout-engine/internal/errors"
)

// Wire names of the search filters.
const (
	ParamKeywords   = "keywords"
	ParamLocation   = "location"
	ParamGeoID      = "geoId"
	ParamDatePosted = "f_TPR"
	ParamJobType    = "f_JT"
	ParamExperience = "f_E"
	ParamWorkType   = "f_WT"
	ParamSalary     = "f_SB2"
	ParamStart      = "start"
)

const jobTypeCodes = "FPCTVIO"

var datePostedCodes = map[domain.DatePosted]string{
	domain.DatePostedDay:   "r86400",
	domain.DatePostedWeek:  "r604800",
	domain.DatePostedMonth: "r2592000",
}

type Param struct {
	Name  string
	Value string
}

// Query is an ordered parameter list; encoding the same FilterSet always
// yields the same Query.
type Query []Param

func (q Query) Get(name string) string {
	for _, p := range q {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// With returns a copy of q with name set to value.
func (q Query) With(name, value string) Query {
	out := make(Query, 0, len(q)+1)
	replaced := false
	for _, p := range q {
		if p.Name == name {
			p.Value = value
			replaced = true
		}
		out = append(out, p)
	}
	if !replaced {
		out = append(out, Param{Name: name, Value: value})
	}
	return out
}

func (q Query) Values() url.Values {
	v := url.Values{}
	for _, p := range q {
		v.Set(p.Name, p.Value)
	}
	return v
}

// String encodes q keeping parameter order.
func (q Query) String() string {
	var b strings.Builder
	for i, p := range q {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// Encode maps fs to search parameters. An empty FilterSet is valid and encodes
// to an empty Query. geoId wins over location when both are set.
func Encode(fs domain.FilterSet) (Query, error) {
	var problems []string

	var q Query
	if kw := strings.TrimSpace(fs.Keywords); kw != "" {
		q = append(q, Param{ParamKeywords, kw})
	}
	if geo := strings.TrimSpace(fs.GeoID); geo != "" {
		if _, err := strconv.ParseUint(geo, 10, 64); err != nil {
			problems = append(problems, fmt.Sprintf("geoId %q is not numeric", geo))
		}
		q = append(q, Param{ParamGeoID, geo})
	} else if loc := strings.TrimSpace(fs.Location); loc != "" {
		q = append(q, Param{ParamLocation, loc})
	}

	if fs.DatePosted != domain.DatePostedAny {
		code, ok := datePostedCodes[fs.DatePosted]
		if !ok {
			problems = append(problems, fmt.Sprintf("datePosted %q is not one of past_24_hours, past_week, past_month", fs.DatePosted))
		} else {
			q = append(q, Param{ParamDatePosted, code})
		}
	}

	if len(fs.JobTypes) > 0 {
		var codes []string
		for _, jt := range fs.JobTypes {
			c := strings.ToUpper(strings.TrimSpace(jt))
			if len(c) != 1 || !strings.Contains(jobTypeCodes, c) {
				problems = append(problems, fmt.Sprintf("jobType %q is not one of %s", jt, strings.Join(strings.Split(jobTypeCodes, ""), ",")))
				continue
			}
			codes = append(codes, c)
		}
		if v := joinSet(codes); v != "" {
			q = append(q, Param{ParamJobType, v})
		}
	}

	if v, bad := intSet(fs.ExperienceLevels, 1, 6); len(bad) > 0 {
		problems = append(problems, fmt.Sprintf("experienceLevel %v outside 1..6", bad))
	} else if v != "" {
		q = append(q, Param{ParamExperience, v})
	}

	if v, bad := intSet(fs.WorkTypes, 1, 3); len(bad) > 0 {
		problems = append(problems, fmt.Sprintf("workType %v outside 1..3", bad))
	} else if v != "" {
		q = append(q, Param{ParamWorkType, v})
	}

	switch {
	case fs.SalaryTier < 0 || fs.SalaryTier > 9:
		problems = append(problems, fmt.Sprintf("salary %d outside 1..9", fs.SalaryTier))
	case fs.SalaryTier > 0:
		q = append(q, Param{ParamSalary, strconv.Itoa(fs.SalaryTier)})
	}

	if len(problems) > 0 {
		return nil, apperrors.InvalidFilter(strings.Join(problems, "; "), nil)
	}
	return q, nil
}

func intSet(vals []int, lo, hi int) (string, []int) {
	var (
		codes []string
		bad   []int
	)
	for _, v := range vals {
		if v < lo || v > hi {
			bad = append(bad, v)
			continue
		}
		codes = append(codes, strconv.Itoa(v))
	}
	return joinSet(codes), bad
}

func joinSet(codes []string) string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}
