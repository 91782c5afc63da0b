package config

import (
	"jobscout-engine/internal/domain"
	apperrors "jobscout-engine/internal/errors"
)

// Filters converts the input section to a FilterSet. Range checks on the codes
// are left to the encoder.
func (in Input) Filters() (domain.FilterSet, error) {
	dp, ok := domain.ParseDatePosted(in.DatePosted)
	if !ok {
		return domain.FilterSet{}, apperrors.InvalidFilter("unknown datePosted "+in.DatePosted, nil)
	}
	return domain.FilterSet{
		Keywords:         in.Keywords,
		Location:         in.Location,
		GeoID:            in.GeoID,
		DatePosted:       dp,
		JobTypes:         in.JobType,
		ExperienceLevels: in.ExperienceLevel,
		WorkTypes:        in.WorkType,
		SalaryTier:       in.Salary,
	}, nil
}
