package engine

import (
	"testing"

	"backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amountEvent(eventType models.EventType, amount float64) *models.StreamEvent {
	e := testEvent(eventType, testBase)
	e.Data = map[string]interface{}{"amount": amount}
	return e
}

func TestZScoreFlagsOutlier(t *testing.T) {
	d := NewZScoreDetector([]string{"amount"}, 2.0)

	for i := 0; i < 6; i++ {
		v := 100.0
		if i%2 == 1 {
			v = 102.0
		}
		assert.Nil(t, d.Detect(amountEvent(models.EventPayment, v), nil, nil))
	}

	a := d.Detect(amountEvent(models.EventPayment, 200), nil, nil)
	require.NotNil(t, a)
	assert.Equal(t, models.AnomalyStatistical, a.Type)
	assert.Equal(t, models.SeverityCritical, a.Severity)
	assert.Equal(t, 100.0, a.Score)
	assert.InDelta(t, 101.0, a.Baseline, 0.001)
	assert.Greater(t, a.Deviation, 2.0)
	assert.Contains(t, a.Description, "standard deviations")
}

func TestZScoreNeedsMinimumSamples(t *testing.T) {
	d := NewZScoreDetector([]string{"amount"}, 2.0)

	for _, v := range []float64{100, 102, 100, 102} {
		d.Detect(amountEvent(models.EventPayment, v), nil, nil)
	}

	// Only four prior samples, so even an extreme value passes.
	assert.Nil(t, d.Detect(amountEvent(models.EventPayment, 500), nil, nil))
}

func TestZScoreSkipsZeroSpread(t *testing.T) {
	d := NewZScoreDetector([]string{"amount"}, 2.0)

	for i := 0; i < 10; i++ {
		d.Detect(amountEvent(models.EventPayment, 100), nil, nil)
	}

	assert.Nil(t, d.Detect(amountEvent(models.EventPayment, 1000), nil, nil))
}

func TestZScoreIgnoresValuesWithinSigma(t *testing.T) {
	d := NewZScoreDetector([]string{"amount"}, 2.0)

	for _, v := range []float64{90, 110, 95, 105, 100, 100} {
		d.Detect(amountEvent(models.EventPayment, v), nil, nil)
	}

	assert.Nil(t, d.Detect(amountEvent(models.EventPayment, 108), nil, nil))
}

func TestZScoreIgnoresUntrackedMetrics(t *testing.T) {
	d := NewZScoreDetector([]string{"amount"}, 2.0)

	e := testEvent(models.EventReview, testBase)
	e.Data = map[string]interface{}{"rating": 1.0}
	for i := 0; i < 10; i++ {
		assert.Nil(t, d.Detect(e, nil, nil))
	}
}

func TestZScoreBehavioralClassification(t *testing.T) {
	d := NewZScoreDetector([]string{"amount"}, 2.0)

	for i := 0; i < 6; i++ {
		v := 10.0
		if i%2 == 1 {
			v = 12.0
		}
		d.Detect(amountEvent(models.EventComplaint, v), nil, nil)
	}

	a := d.Detect(amountEvent(models.EventComplaint, 80), nil, nil)
	require.NotNil(t, a)
	assert.Equal(t, models.AnomalyBehavioral, a.Type)
}

func TestZScoreDefaultSigma(t *testing.T) {
	d := NewZScoreDetector([]string{"amount"}, -1)
	assert.Equal(t, 2.0, d.sigma)
}
