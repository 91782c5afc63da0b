package linkedin_test

import (
	"testing"

	"jobscout-engine/internal/domain"
	apperrors "jobscout-engine/internal/errors"
	"jobscout-engine/internal/scrape/linkedin"
)

func TestEncode_FullFilterSet(t *testing.T) {
	fs := domain.FilterSet{
		Keywords:         " go developer ",
		Location:         "Berlin",
		DatePosted:       domain.DatePostedWeek,
		JobTypes:         []string{"c", "F", "F"},
		ExperienceLevels: []int{4, 2},
		WorkTypes:        []int{2},
		SalaryTier:       5,
	}
	q, err := linkedin.Encode(fs)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "keywords=go+developer&location=Berlin&f_TPR=r604800&f_JT=C%2CF&f_E=2%2C4&f_WT=2&f_SB2=5"
	if got := q.String(); got != want {
		t.Errorf("Encode = %s\nwant     %s", got, want)
	}
}

func TestEncode_GeoIDWinsOverLocation(t *testing.T) {
	q, err := linkedin.Encode(domain.FilterSet{Location: "Paris", GeoID: "103644278"})
	if err != nil {
		t.Fatal(err)
	}
	if q.Get(linkedin.ParamGeoID) != "103644278" {
		t.Errorf("geoId = %q", q.Get(linkedin.ParamGeoID))
	}
	if q.Get(linkedin.ParamLocation) != "" {
		t.Errorf("location should be omitted when geoId is set, got %q", q.Get(linkedin.ParamLocation))
	}
}

func TestEncode_EmptySetIsUnfiltered(t *testing.T) {
	q, err := linkedin.Encode(domain.FilterSet{})
	if err != nil {
		t.Fatalf("empty FilterSet must not be rejected: %v", err)
	}
	if len(q) != 0 {
		t.Errorf("Encode(empty) = %v, want no parameters", q)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	fs := domain.FilterSet{Keywords: "sre", JobTypes: []string{"T", "P", "F"}, WorkTypes: []int{3, 1, 2}}
	a, _ := linkedin.Encode(fs)
	b, _ := linkedin.Encode(fs)
	if a.String() != b.String() {
		t.Errorf("Encode not deterministic: %s vs %s", a, b)
	}
}

func TestEncode_RejectsOutOfRange(t *testing.T) {
	cases := map[string]domain.FilterSet{
		"jobType":         {JobTypes: []string{"X"}},
		"experienceLevel": {ExperienceLevels: []int{7}},
		"negative level":  {ExperienceLevels: []int{-1}},
		"workType":        {WorkTypes: []int{0}},
		"salary high":     {SalaryTier: 10},
		"salary negative": {SalaryTier: -2},
		"datePosted":      {DatePosted: "fortnight"},
		"geoId":           {GeoID: "berlin"},
	}
	for name, fs := range cases {
		_, err := linkedin.Encode(fs)
		if err == nil {
			t.Errorf("%s: expected an error", name)
			continue
		}
		if !apperrors.IsType(err, apperrors.ErrTypeInvalidFilter) {
			t.Errorf("%s: error type = %v, want INVALID_FILTER", name, err)
		}
	}
}

func TestQuery_With(t *testing.T) {
	q := linkedin.Query{{Name: "keywords", Value: "go"}}
	q2 := q.With(linkedin.ParamStart, "25")
	if q2.Get(linkedin.ParamStart) != "25" {
		t.Errorf("With did not add start")
	}
	if q.Get(linkedin.ParamStart) != "" {
		t.Errorf("With mutated the receiver")
	}
	q3 := q2.With(linkedin.ParamStart, "35")
	if len(q3) != 2 || q3.Get(linkedin.ParamStart) != "35" {
		t.Errorf("With should replace an existing value, got %v", q3)
	}
}
