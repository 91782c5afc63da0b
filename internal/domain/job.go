package domain

// ListingSummary is one card from a search results page.
type ListingSummary struct {
	JobID               string `json:"jobId"`
	Title               string `json:"title"`
	Company             string `json:"company"`
	CompanyURL          string `json:"companyUrl"`
	Location            string `json:"location"`
	PostedDateText      string `json:"postedDate"`          // raw text, e.g. "2 days ago"
	PostedDateTimestamp string `json:"postedDateTimestamp"` // YYYY-MM-DD or ""
	Salary              string `json:"salary"`
	URL                 string `json:"url"`
}

// ListingDetail holds the fields only present on the job's own page.
// Absent values are empty strings.
type ListingDetail struct {
	Description    string `json:"description"`
	SeniorityLevel string `json:"seniorityLevel"`
	EmploymentType string `json:"employmentType"`
	JobFunction    string `json:"jobFunction"`
	Industries     string `json:"industries"`
	ApplicantCount string `json:"applicantCount"`
}

func (d ListingDetail) IsEmpty() bool {
	return d == ListingDetail{}
}

// Enrichment is what one detail page contributes to a record. Salary is only
// used when the search card carried none.
type Enrichment struct {
	Detail ListingDetail `json:"detail"`
	Salary string        `json:"salary,omitempty"`
}

// JobRecord is the emitted record. Both halves are embedded so the JSON form is
// flat and every field is always present.
type JobRecord struct {
	ListingSummary
	ListingDetail
}

// SearchPage is the parsed result of one search request.
type SearchPage struct {
	Listings   []ListingSummary
	Cards      int // cards seen on the page, including dropped ones
	Offset     int
	NextOffset int
	HasMore    bool
	Total      int // total results reported by the site, 0 if unknown
}
