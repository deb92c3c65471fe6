package srs

import "github.com/phrazzld/scry-recall/internal/domain"

// Params defines the configurable parameters of the scheduling algorithm.
type Params struct {
	// MinEaseFactor is the floor applied after every easiness factor update.
	MinEaseFactor float64

	// Intervals, in days, for the first and second consecutive correct reviews.
	FirstInterval  int
	SecondInterval int
}

// ParamsConfig allows overriding the default parameters. Zero values keep the default.
type ParamsConfig struct {
	MinEaseFactor  float64
	FirstInterval  int
	SecondInterval int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor:  domain.MinEasinessFactor,
		FirstInterval:  1,
		SecondInterval: 6,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.FirstInterval > 0 {
		params.FirstInterval = config.FirstInterval
	}
	if config.SecondInterval > 0 {
		params.SecondInterval = config.SecondInterval
	}

	return params
}
