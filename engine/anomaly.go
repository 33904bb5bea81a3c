package engine

import (
	"fmt"
	"math"
	"time"

	"backend/models"

	"github.com/google/uuid"
)

// Detector is the pluggable anomaly detection strategy run per event against
// the processor's current state.
type Detector interface {
	Detect(event *models.StreamEvent, baseline *Baseline, current *models.StreamWindow) *models.Anomaly
}

// RateDetector is the default strategy: it compares an event type's rate within
// the most recent window against the EWMA baseline and flags deviations above
// the configured threshold percentage.
type RateDetector struct {
	Threshold float64
}

// NewRateDetector creates the default deviation-percent detector.
func NewRateDetector(threshold float64) *RateDetector {
	return &RateDetector{Threshold: threshold}
}

// Detect is a pure function of the state at call time; it must re-read the
// window counts on every event because the batch mutates them as it goes.
func (d *RateDetector) Detect(event *models.StreamEvent, baseline *Baseline, current *models.StreamWindow) *models.Anomaly {
	expected := baseline.Rate(event.EventType)
	if expected == 0 {
		return nil // cold start, insufficient data
	}
	if current == nil || current.Metrics.EventCount == 0 {
		return nil
	}

	observed := float64(current.Metrics.TypeCounts[event.EventType]) / float64(current.Metrics.EventCount)
	deviation := math.Abs(observed-expected) / expected * 100
	if deviation < d.Threshold {
		return nil
	}

	anomalyType := models.AnomalyStatistical
	if models.BehavioralEventTypes[event.EventType] {
		anomalyType = models.AnomalyBehavioral
	}

	return &models.Anomaly{
		AnomalyID:  uuid.NewString(),
		EventID:    event.EventID,
		EventType:  event.EventType,
		PropertyID: event.PropertyID,
		DetectedAt: time.Now(),
		Type:       anomalyType,
		Severity:   severityForDeviation(deviation),
		Score:      math.Min(100, deviation),
		Baseline:   expected,
		Deviation:  deviation,
		Description: fmt.Sprintf("%s rate %.3f deviates %.1f%% from baseline %.3f",
			event.EventType, observed, deviation, expected),
		SuggestedAction: suggestedAction(anomalyType, event.EventType),
	}
}

// severityForDeviation maps a deviation percentage onto fixed severity bands.
func severityForDeviation(deviation float64) models.AnomalySeverity {
	switch {
	case deviation > 200:
		return models.SeverityCritical
	case deviation > 150:
		return models.SeverityHigh
	case deviation > 100:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func suggestedAction(t models.AnomalyType, eventType models.EventType) string {
	if t == models.AnomalyBehavioral {
		return fmt.Sprintf("Review guest experience workflows: unusual %s volume may indicate a service issue", eventType)
	}
	return fmt.Sprintf("Investigate %s activity at the property for operational causes", eventType)
}
