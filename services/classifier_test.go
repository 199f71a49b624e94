package services

import (
	"testing"

	"hachi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_BinaryTemperatureBoundaries(t *testing.T) {
	c := NewStatusClassifier()
	rng := models.HealthRange{Min: 101.0, Max: 102.5}

	tests := []struct {
		name  string
		value float64
		want  models.StatusLevel
	}{
		{"at min", 101.0, models.StatusNormal},
		{"at max", 102.5, models.StatusNormal},
		{"inside", 101.8, models.StatusNormal},
		{"half above max", 103.0, models.StatusMonitor},
		{"half below min", 100.5, models.StatusMonitor},
		{"deep above max", 104.0, models.StatusAlert},
		{"deep below min", 99.5, models.StatusAlert},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ClassifyProfile(models.MetricTemperature, tt.value, rng)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_BinaryHeartRateBand(t *testing.T) {
	c := NewStatusClassifier()
	rng := models.HealthRange{Min: 60, Max: 100}

	tests := []struct {
		value float64
		want  models.StatusLevel
	}{
		{80, models.StatusNormal},
		{105, models.StatusMonitor},
		{111, models.StatusAlert},
		{55, models.StatusMonitor},
		{49, models.StatusAlert},
	}

	for _, tt := range tests {
		got, err := c.ClassifyProfile(models.MetricHeartRate, tt.value, rng)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "value %.0f", tt.value)
	}
}

func TestClassifyFixed_HeartRateCutoffs(t *testing.T) {
	c := NewStatusClassifier()

	tests := []struct {
		value float64
		want  models.StatusLevel
	}{
		{30, models.StatusAlert},    // below danger cutoff 40
		{50, models.StatusMonitor},  // between 40 and 60
		{100, models.StatusNormal},  // inside 60-180
		{200, models.StatusMonitor}, // between 180 and 250
		{260, models.StatusAlert},   // above danger cutoff 250
	}

	for _, tt := range tests {
		got, err := c.ClassifyFixed(models.MetricHeartRate, tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "value %.0f", tt.value)
	}
}

func TestClassifyFixed_TemperatureCutoffs(t *testing.T) {
	c := NewStatusClassifier()

	tests := []struct {
		value float64
		want  models.StatusLevel
	}{
		{37.0, models.StatusAlert},   // below danger cutoff 37.2
		{37.5, models.StatusMonitor}, // warning band
		{38.5, models.StatusNormal},
		{39.8, models.StatusMonitor},
		{40.3, models.StatusAlert}, // above danger cutoff 40.0
	}

	for _, tt := range tests {
		got, err := c.ClassifyFixed(models.MetricTemperature, tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "value %.1f", tt.value)
	}
}

func TestClassifyFixed_RespiratoryCutoffs(t *testing.T) {
	c := NewStatusClassifier()

	tests := []struct {
		value float64
		want  models.StatusLevel
	}{
		{7, models.StatusAlert},
		{9, models.StatusMonitor},
		{20, models.StatusNormal},
		{60, models.StatusMonitor},
		{90, models.StatusAlert},
	}

	for _, tt := range tests {
		got, err := c.ClassifyFixed(models.MetricRespiratoryRate, tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "value %.0f", tt.value)
	}
}

func TestClassifyFixed_UnknownMetric(t *testing.T) {
	c := NewStatusClassifier()

	_, err := c.ClassifyFixed("blood_pressure", 120)
	assert.Error(t, err)
}

func TestFixedRange(t *testing.T) {
	c := NewStatusClassifier()

	rng, ok := c.FixedRange(models.MetricHeartRate)
	require.True(t, ok)
	assert.Equal(t, models.HealthRange{Min: 60, Max: 180}, rng)

	_, ok = c.FixedRange("blood_pressure")
	assert.False(t, ok)
}
