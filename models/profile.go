package models

// Breed is one of the supported breed identifiers. The breed selects a fixed
// temperature offset applied to the base range.
type Breed string

const (
	BreedLabrador        Breed = "labrador"
	BreedGoldenRetriever Breed = "golden_retriever"
	BreedGermanShepherd  Breed = "german_shepherd"
	BreedBeagle          Breed = "beagle"
	BreedPoodle          Breed = "poodle"
	BreedChihuahua       Breed = "chihuahua"
	BreedHusky           Breed = "husky"
	BreedGreatDane       Breed = "great_dane"
)

// SizeCategory is the four-way size bucket selecting heart-rate bounds.
type SizeCategory string

const (
	SizeSmall  SizeCategory = "small"
	SizeMedium SizeCategory = "medium"
	SizeLarge  SizeCategory = "large"
	SizeGiant  SizeCategory = "giant"
)

// VestProfile is the static configuration for one monitored dog. It feeds the
// range computation; weight is carried for display only.
type VestProfile struct {
	DeviceID string       `json:"device_id"`
	Breed    Breed        `json:"breed"`
	Size     SizeCategory `json:"size"`
	AgeYears int          `json:"age_years"`
	WeightKg int          `json:"weight_kg"`
}

// HealthRange is an inclusive [Min, Max] band of normal values for one metric
// in one activity mode. Invariant: Min <= Max.
type HealthRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the normal band.
func (r HealthRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// RangeSet is the full threshold snapshot computed from a VestProfile. It is
// rebuilt as a whole whenever the profile changes and swapped in atomically;
// individual ranges are never edited in place.
type RangeSet struct {
	TempRest   HealthRange `json:"temp_rest"`
	TempActive HealthRange `json:"temp_active"`
	HRRest     HealthRange `json:"hr_rest"`
	HRActive   HealthRange `json:"hr_active"`
}

// TempFor returns the temperature range applying in the given mode.
func (rs *RangeSet) TempFor(mode ActivityMode) HealthRange {
	if mode == ModeActive {
		return rs.TempActive
	}
	return rs.TempRest
}

// HRFor returns the heart-rate range applying in the given mode.
func (rs *RangeSet) HRFor(mode ActivityMode) HealthRange {
	if mode == ModeActive {
		return rs.HRActive
	}
	return rs.HRRest
}
