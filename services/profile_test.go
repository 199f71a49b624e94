package services

import (
	"testing"

	"hachi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adultProfile(breed models.Breed, size models.SizeCategory) models.VestProfile {
	return models.VestProfile{
		Breed:    breed,
		Size:     size,
		AgeYears: 5,
		WeightKg: 30,
	}
}

func TestComputeRanges_AllBoundsOrdered(t *testing.T) {
	svc := NewRangeProfileService()

	breeds := []models.Breed{
		models.BreedLabrador, models.BreedGoldenRetriever, models.BreedGermanShepherd,
		models.BreedBeagle, models.BreedPoodle, models.BreedChihuahua,
		models.BreedHusky, models.BreedGreatDane,
	}
	sizes := []models.SizeCategory{models.SizeSmall, models.SizeMedium, models.SizeLarge, models.SizeGiant}

	for _, breed := range breeds {
		for _, size := range sizes {
			for _, age := range []int{0, 1, 2, 5, 10, 11, 15} {
				profile := adultProfile(breed, size)
				profile.AgeYears = age

				rs, err := svc.ComputeRanges(profile)
				require.NoError(t, err)

				assert.LessOrEqual(t, rs.TempRest.Min, rs.TempRest.Max)
				assert.LessOrEqual(t, rs.TempActive.Min, rs.TempActive.Max)
				assert.LessOrEqual(t, rs.HRRest.Min, rs.HRRest.Max)
				assert.LessOrEqual(t, rs.HRActive.Min, rs.HRActive.Max)
			}
		}
	}
}

func TestComputeRanges_HeartRateMonotonicBySize(t *testing.T) {
	svc := NewRangeProfileService()

	order := []models.SizeCategory{models.SizeSmall, models.SizeMedium, models.SizeLarge, models.SizeGiant}

	var prev *models.RangeSet
	for _, size := range order {
		rs, err := svc.ComputeRanges(adultProfile(models.BreedLabrador, size))
		require.NoError(t, err)

		if prev != nil {
			assert.Less(t, rs.HRRest.Min, prev.HRRest.Min, "size %s", size)
			assert.Less(t, rs.HRRest.Max, prev.HRRest.Max, "size %s", size)
			assert.Less(t, rs.HRActive.Min, prev.HRActive.Min, "size %s", size)
			assert.Less(t, rs.HRActive.Max, prev.HRActive.Max, "size %s", size)
		}
		prev = rs
	}
}

func TestComputeRanges_AgeAdjustment(t *testing.T) {
	svc := NewRangeProfileService()

	adult := adultProfile(models.BreedLabrador, models.SizeLarge)
	base, err := svc.ComputeRanges(adult)
	require.NoError(t, err)

	for _, age := range []int{1, 11} {
		profile := adult
		profile.AgeYears = age

		rs, err := svc.ComputeRanges(profile)
		require.NoError(t, err)

		assert.Equal(t, base.HRRest.Min+10, rs.HRRest.Min, "age %d", age)
		assert.Equal(t, base.HRRest.Max+10, rs.HRRest.Max, "age %d", age)
		// Active bounds are not age-adjusted.
		assert.Equal(t, base.HRActive, rs.HRActive, "age %d", age)
	}
}

func TestComputeRanges_AgeAdjustmentNotCumulative(t *testing.T) {
	svc := NewRangeProfileService()

	profile := adultProfile(models.BreedBeagle, models.SizeMedium)
	profile.AgeYears = 12

	first, err := svc.ComputeRanges(profile)
	require.NoError(t, err)

	// Recomputing with identical inputs returns identical output.
	second, err := svc.ComputeRanges(profile)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeRanges_BreedTempOffset(t *testing.T) {
	svc := NewRangeProfileService()

	husky, err := svc.ComputeRanges(adultProfile(models.BreedHusky, models.SizeLarge))
	require.NoError(t, err)
	beagle, err := svc.ComputeRanges(adultProfile(models.BreedBeagle, models.SizeMedium))
	require.NoError(t, err)

	assert.InDelta(t, 100.7, husky.TempRest.Min, 1e-9)
	assert.InDelta(t, 102.2, husky.TempRest.Max, 1e-9)
	assert.InDelta(t, 101.2, beagle.TempRest.Min, 1e-9)
	assert.InDelta(t, 103.7, beagle.TempActive.Max, 1e-9)
}

func TestComputeRanges_UnknownBreed(t *testing.T) {
	svc := NewRangeProfileService()

	_, err := svc.ComputeRanges(adultProfile("wolf", models.SizeLarge))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownBreed)
}

func TestComputeRanges_UnknownSize(t *testing.T) {
	svc := NewRangeProfileService()

	_, err := svc.ComputeRanges(adultProfile(models.BreedLabrador, "enormous"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSize)
}
