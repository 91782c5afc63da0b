package config

import (
	"errors"
	"os"
)

// EnsureConfig writes a starter run file at path unless one exists already.
func EnsureConfig(path string) (created bool, err error) {
	_, err = os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	cfg := Default()
	cfg.Input.Keywords = "software engineer"
	cfg.Input.Location = "United States"
	cfg.Input.DatePosted = "past_week"
	details, limit := true, DefaultMaxResults
	cfg.Input.FetchJobDetails = &details
	cfg.Input.MaxResults = &limit

	if err := SaveAtomic(path, cfg); err != nil {
		return false, err
	}
	return true, nil
}
