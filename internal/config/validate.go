package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"jobscout-engine/internal/domain"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return fmt.Errorf("config validation failed:\n- %s", strings.Join(v.Errors, "\n- "))
}

// NormalizeAndValidate returns a normalized copy of cfg and every problem found.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.ToUpper(strings.TrimSpace(x))
			if x == "" || seen[x] {
				continue
			}
			seen[x] = true
			ys = append(ys, x)
		}
		return ys
	}

	in := &out.Input
	in.Keywords = strings.TrimSpace(in.Keywords)
	in.Location = strings.TrimSpace(in.Location)
	in.GeoID = strings.TrimSpace(in.GeoID)
	in.JobType = trimList(in.JobType)

	// ---- input ----

	if in.Keywords == "" && in.Location == "" && in.GeoID == "" {
		res.addWarn("input has no keywords, location or geoId; the search will be unfiltered")
	}
	if _, ok := domain.ParseDatePosted(in.DatePosted); !ok {
		res.addErr("input.datePosted must be one of past_24_hours, past_week, past_month (got %q)", in.DatePosted)
	}
	if in.MaxResults != nil {
		switch n := *in.MaxResults; {
		case n < 0:
			res.addErr("input.maxResults must be >= 0")
		case n == 0:
			res.addWarn("input.maxResults 0 means the default; using %d", DefaultMaxResults)
			limit := DefaultMaxResults
			in.MaxResults = &limit
		case n > MaxResultsCeiling:
			res.addWarn("input.maxResults %d is above the platform cap; using %d", n, MaxResultsCeiling)
			capped := MaxResultsCeiling
			in.MaxResults = &capped
		}
	}
	if in.Salary < 0 || in.Salary > 9 {
		res.addErr("input.salary must be 1..9")
	}

	// ---- scraper ----

	sc := &out.Scraper
	if sc.RequestInterval < 0 {
		res.addErr("scraper.request_interval must be >= 0")
	} else if sc.RequestInterval < 2*time.Second {
		res.addWarn("scraper.request_interval is very low (%s) and may get the client blocked", sc.RequestInterval)
	}
	if sc.RequestTimeout <= 0 {
		res.addErr("scraper.request_timeout must be > 0")
	}
	if sc.MaxAttempts < 1 {
		res.addErr("scraper.max_attempts must be >= 1")
	}
	if sc.DetailWorkers < 1 {
		res.addErr("scraper.detail_workers must be >= 1")
	}
	if sc.TierCap < 0 {
		res.addErr("scraper.tier_cap must be >= 0")
	}

	// ---- collaborators ----

	if out.Proxy.KeyringAccount != "" && out.Proxy.URL == "" {
		res.addWarn("proxy.keyring_account is set but proxy.url is empty; no proxy will be used")
	}
	if out.NATS.URL != "" && strings.TrimSpace(out.NATS.Subject) == "" {
		res.addErr("nats.subject is required when nats.url is set")
	}
	if out.Store.Retention < 0 {
		res.addErr("store.retention must be >= 0")
	}
	if spec := strings.TrimSpace(out.Schedule.Cron); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			res.addErr("schedule.cron %q: %v", spec, err)
		}
	}

	return out, res
}
