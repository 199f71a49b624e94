package services

import (
	"errors"
	"fmt"

	"hachi/models"
)

var (
	// ErrUnknownBreed is returned when a profile names a breed outside the table.
	ErrUnknownBreed = errors.New("unknown breed")
	// ErrUnknownSize is returned when a profile names a size outside the table.
	ErrUnknownSize = errors.New("unknown size category")
)

// Base canine temperature bands in degrees Fahrenheit, before the breed offset.
const (
	baseTempRestMin   = 101.0
	baseTempRestMax   = 102.5
	baseTempActiveMin = 102.0
	baseTempActiveMax = 103.5
)

// Resting heart rate runs roughly 10 BPM faster in puppies and seniors.
const (
	puppyAgeYears     = 2
	seniorAgeYears    = 10
	ageRestAdjustment = 10.0
)

// breedTempAdjust shifts the base temperature bands per breed. Thick-coated
// northern breeds run slightly cool, toy breeds slightly warm.
var breedTempAdjust = map[models.Breed]float64{
	models.BreedLabrador:        0.0,
	models.BreedGoldenRetriever: 0.0,
	models.BreedGermanShepherd:  0.1,
	models.BreedBeagle:          0.2,
	models.BreedPoodle:          -0.1,
	models.BreedChihuahua:       0.2,
	models.BreedHusky:           -0.3,
	models.BreedGreatDane:       -0.2,
}

type hrBounds struct {
	restMin, restMax     float64
	activeMin, activeMax float64
}

// sizeHeartRates maps the size category straight to heart-rate bounds.
// Smaller dogs beat faster at every bound; there is no interpolation
// between categories.
var sizeHeartRates = map[models.SizeCategory]hrBounds{
	models.SizeSmall:  {restMin: 90, restMax: 140, activeMin: 140, activeMax: 220},
	models.SizeMedium: {restMin: 70, restMax: 120, activeMin: 120, activeMax: 180},
	models.SizeLarge:  {restMin: 60, restMax: 100, activeMin: 100, activeMax: 160},
	models.SizeGiant:  {restMin: 50, restMax: 90, activeMin: 90, activeMax: 140},
}

// RangeProfileService computes health threshold ranges from a vest profile.
// It holds no state: callers recompute whenever the dashboard edits the
// breed/size/age selectors.
type RangeProfileService struct{}

// NewRangeProfileService creates a new range profile service.
func NewRangeProfileService() *RangeProfileService {
	return &RangeProfileService{}
}

// ComputeRanges derives the four threshold ranges for the given profile.
// Identical inputs always produce identical output. An out-of-table breed or
// size fails rather than substituting a default, so a bad profile never
// classifies a single sample.
func (s *RangeProfileService) ComputeRanges(profile models.VestProfile) (*models.RangeSet, error) {
	tempAdjust, ok := breedTempAdjust[profile.Breed]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBreed, profile.Breed)
	}

	hr, ok := sizeHeartRates[profile.Size]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSize, profile.Size)
	}

	rs := &models.RangeSet{
		TempRest: models.HealthRange{
			Min: baseTempRestMin + tempAdjust,
			Max: baseTempRestMax + tempAdjust,
		},
		TempActive: models.HealthRange{
			Min: baseTempActiveMin + tempAdjust,
			Max: baseTempActiveMax + tempAdjust,
		},
		HRRest:   models.HealthRange{Min: hr.restMin, Max: hr.restMax},
		HRActive: models.HealthRange{Min: hr.activeMin, Max: hr.activeMax},
	}

	// Puppies and seniors get faster resting bounds; active bounds unchanged.
	if profile.AgeYears < puppyAgeYears || profile.AgeYears > seniorAgeYears {
		rs.HRRest.Min += ageRestAdjustment
		rs.HRRest.Max += ageRestAdjustment
	}

	return rs, nil
}
