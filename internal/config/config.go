package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxResults = 100
	MaxResultsCeiling = 1000
)

// Input holds the run's search options under their public names.
type Input struct {
	Keywords        string     `yaml:"keywords"`
	Location        string     `yaml:"location"`
	GeoID           string     `yaml:"geoId"`
	DatePosted      string     `yaml:"datePosted"`
	JobType         StringList `yaml:"jobType"`
	ExperienceLevel IntList    `yaml:"experienceLevel"`
	WorkType        IntList    `yaml:"workType"`
	Salary          int        `yaml:"salary"`
	FetchJobDetails *bool      `yaml:"fetchJobDetails"`
	MaxResults      *int       `yaml:"maxResults"`
}

func (in Input) FetchDetails() bool {
	return in.FetchJobDetails == nil || *in.FetchJobDetails
}

func (in Input) Limit() int {
	if in.MaxResults == nil {
		return DefaultMaxResults
	}
	return *in.MaxResults
}

type Config struct {
	Input Input `yaml:"input"`

	Scraper struct {
		BaseURL         string        `yaml:"base_url"`
		RequestInterval time.Duration `yaml:"request_interval"`
		RequestTimeout  time.Duration `yaml:"request_timeout"`
		MaxAttempts     int           `yaml:"max_attempts"`
		RetryBaseDelay  time.Duration `yaml:"retry_base_delay"`
		DetailWorkers   int           `yaml:"detail_workers"`
		TierCap         int           `yaml:"tier_cap"`
	} `yaml:"scraper"`

	Proxy struct {
		URL            string `yaml:"url"`
		Username       string `yaml:"username"`
		KeyringAccount string `yaml:"keyring_account"`
	} `yaml:"proxy"`

	Store struct {
		SQLitePath  string        `yaml:"sqlite_path"`
		PostgresURL string        `yaml:"postgres_url"`
		Retention   time.Duration `yaml:"retention"` // 0 keeps everything
	} `yaml:"store"`

	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`

	Cache struct {
		RedisURL string        `yaml:"redis_url"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Output struct {
		Path string `yaml:"path"`
	} `yaml:"output"`

	Schedule struct {
		Cron       string `yaml:"cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
}

func Default() Config {
	var cfg Config
	cfg.Scraper.BaseURL = "https://www.linkedin.com"
	cfg.Scraper.RequestInterval = 5 * time.Second
	cfg.Scraper.RequestTimeout = 30 * time.Second
	cfg.Scraper.MaxAttempts = 3
	cfg.Scraper.RetryBaseDelay = 15 * time.Second
	cfg.Scraper.DetailWorkers = 2
	cfg.NATS.Subject = "jobs.linkedin"
	cfg.Cache.TTL = 24 * time.Hour
	cfg.Output.Path = "-"
	return cfg
}

// Load reads a YAML run file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// StringList accepts a YAML sequence or a comma separated scalar ("F,C").
type StringList []string

func (l *StringList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var out []string
		for _, p := range strings.Split(n.Value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*l = out
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := n.Decode(&out); err != nil {
			return err
		}
		*l = out
		return nil
	}
	return fmt.Errorf("line %d: expected a list or a comma separated string", n.Line)
}

// IntList is StringList for small integer codes ("1,2" or [1, 2] or 3).
type IntList []int

func (l *IntList) UnmarshalYAML(n *yaml.Node) error {
	var raw StringList
	if err := raw.UnmarshalYAML(n); err != nil {
		return err
	}
	out := make([]int, 0, len(raw))
	for _, s := range raw {
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("line %d: %q is not an integer", n.Line, s)
		}
		out = append(out, v)
	}
	*l = out
	return nil
}
