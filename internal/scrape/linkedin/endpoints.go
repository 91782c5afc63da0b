package linkedin

import "strings"

const (
	BaseURL = "https://www.linkedin.com"

	SearchPath      = "/jobs/search"
	GuestSearchPath = "/jobs-guest/jobs/api/seeMoreJobPostings/search"
	ViewPath        = "/jobs/view/"

	// PlatformCap is the deepest offset the site will serve for one query.
	PlatformCap = 1000

	FirstPageSize = 25
	GuestPageSize = 10
)

func trimBase(base string) string {
	if base == "" {
		base = BaseURL
	}
	return strings.TrimRight(base, "/")
}

func SearchURL(base string) string      { return trimBase(base) + SearchPath }
func GuestSearchURL(base string) string { return trimBase(base) + GuestSearchPath }

func JobViewURL(base, jobID string) string {
	return trimBase(base) + ViewPath + jobID
}
