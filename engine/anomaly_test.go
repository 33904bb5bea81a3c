package engine

import (
	"testing"
	"time"

	"backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func windowWithCounts(total int, counts map[models.EventType]int) *models.StreamWindow {
	return &models.StreamWindow{
		StartTime: testBase,
		EndTime:   testBase.Add(15 * time.Minute),
		Metrics: models.WindowMetrics{
			EventCount: total,
			TypeCounts: counts,
		},
	}
}

func TestSeverityBands(t *testing.T) {
	tests := []struct {
		deviation float64
		want      models.AnomalySeverity
	}{
		{deviation: 80, want: models.SeverityLow},
		{deviation: 100, want: models.SeverityLow},
		{deviation: 101, want: models.SeverityMedium},
		{deviation: 150, want: models.SeverityMedium},
		{deviation: 151, want: models.SeverityHigh},
		{deviation: 200, want: models.SeverityHigh},
		{deviation: 201, want: models.SeverityCritical},
		{deviation: 400, want: models.SeverityCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, severityForDeviation(tt.deviation), "deviation %.0f", tt.deviation)
	}
}

func TestSeverityOrderingMonotone(t *testing.T) {
	deviations := []float64{76, 90, 110, 140, 160, 190, 210, 500}
	for i := 1; i < len(deviations); i++ {
		lower := severityForDeviation(deviations[i-1])
		higher := severityForDeviation(deviations[i])
		assert.LessOrEqual(t, lower.Rank(), higher.Rank(),
			"severity must not decrease from %.0f%% to %.0f%%", deviations[i-1], deviations[i])
	}
}

func TestRateDetectorColdStart(t *testing.T) {
	d := NewRateDetector(75)
	window := windowWithCounts(10, map[models.EventType]int{models.EventBooking: 10})

	// Unobserved baseline means insufficient data, never a false anomaly.
	anomaly := d.Detect(testEvent(models.EventBooking, testBase), NewBaseline(), window)
	assert.Nil(t, anomaly)
}

func TestRateDetectorBelowThreshold(t *testing.T) {
	d := NewRateDetector(75)
	baseline := NewBaseline()
	baseline.Update(batchOf(map[models.EventType]int{models.EventBooking: 10})) // 0.2

	// Observed 0.25 vs baseline 0.2: 25% deviation, under the 75% threshold.
	window := windowWithCounts(20, map[models.EventType]int{models.EventBooking: 5})
	anomaly := d.Detect(testEvent(models.EventBooking, testBase), baseline, window)
	assert.Nil(t, anomaly)
}

func TestRateDetectorFlagsDeviation(t *testing.T) {
	d := NewRateDetector(75)
	baseline := NewBaseline()
	baseline.Update(batchOf(map[models.EventType]int{models.EventBooking: 10})) // 0.2

	// Observed 0.8 vs baseline 0.2: 300% deviation.
	window := windowWithCounts(10, map[models.EventType]int{models.EventBooking: 8})
	event := testEvent(models.EventBooking, testBase)
	anomaly := d.Detect(event, baseline, window)

	require.NotNil(t, anomaly)
	assert.Equal(t, models.SeverityCritical, anomaly.Severity)
	assert.Equal(t, models.AnomalyStatistical, anomaly.Type)
	assert.InDelta(t, 300, anomaly.Deviation, 1e-9)
	assert.Equal(t, 100.0, anomaly.Score) // clamped to 100
	assert.InDelta(t, 0.2, anomaly.Baseline, 1e-9)
	assert.Equal(t, event.EventID, anomaly.EventID)
	assert.NotEmpty(t, anomaly.Description)
	assert.NotEmpty(t, anomaly.SuggestedAction)
}

func TestRateDetectorScoreClamped(t *testing.T) {
	d := NewRateDetector(75)
	baseline := NewBaseline()
	baseline.Update(batchOf(map[models.EventType]int{models.EventBooking: 10})) // 0.2

	// Observed 0.38 vs baseline 0.2: 90% deviation, score stays under 100.
	window := windowWithCounts(50, map[models.EventType]int{models.EventBooking: 19})
	anomaly := d.Detect(testEvent(models.EventBooking, testBase), baseline, window)

	require.NotNil(t, anomaly)
	assert.InDelta(t, 90, anomaly.Score, 1e-9)
	assert.GreaterOrEqual(t, anomaly.Score, 0.0)
	assert.LessOrEqual(t, anomaly.Score, 100.0)
}

func TestRateDetectorBehavioralClassification(t *testing.T) {
	d := NewRateDetector(75)
	baseline := NewBaseline()
	baseline.Update(batchOf(map[models.EventType]int{
		models.EventComplaint:    1,
		models.EventCancellation: 1,
		models.EventBooking:      8,
	}))

	window := windowWithCounts(10, map[models.EventType]int{models.EventComplaint: 6})
	anomaly := d.Detect(testEvent(models.EventComplaint, testBase), baseline, window)

	require.NotNil(t, anomaly)
	assert.Equal(t, models.AnomalyBehavioral, anomaly.Type)
	assert.Contains(t, anomaly.SuggestedAction, "guest experience")
}

func TestRateDetectorEmptyWindow(t *testing.T) {
	d := NewRateDetector(75)
	baseline := NewBaseline()
	baseline.Update(batchOf(map[models.EventType]int{models.EventBooking: 10}))

	window := windowWithCounts(0, map[models.EventType]int{})
	assert.Nil(t, d.Detect(testEvent(models.EventBooking, testBase), baseline, window))
	assert.Nil(t, d.Detect(testEvent(models.EventBooking, testBase), baseline, nil))
}
