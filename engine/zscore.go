package engine

import (
	"fmt"
	"math"
	"time"

	"backend/models"

	"github.com/google/uuid"
)

const zscoreMinSamples = 5

// ZScoreDetector is an alternate strategy for continuous numeric metrics (for
// example payment amounts or review ratings) that the rate-based detector does
// not cover. It keeps a rolling sample per tracked metric and flags values
// whose z-score exceeds the sigma threshold.
type ZScoreDetector struct {
	metrics  []string
	sigma    float64
	capacity int
	history  map[string]*rollingStats
}

// NewZScoreDetector tracks the named data fields with the given sigma
// threshold (2.0 is a sensible default) over a rolling sample of 50 values.
func NewZScoreDetector(metrics []string, sigma float64) *ZScoreDetector {
	if sigma <= 0 {
		sigma = 2.0
	}
	return &ZScoreDetector{
		metrics:  metrics,
		sigma:    sigma,
		capacity: 50,
		history:  make(map[string]*rollingStats),
	}
}

// Detect checks each tracked metric carried by the event against its rolling
// distribution. The first metric past the threshold produces the anomaly.
func (d *ZScoreDetector) Detect(event *models.StreamEvent, _ *Baseline, _ *models.StreamWindow) *models.Anomaly {
	for _, name := range d.metrics {
		value, ok := event.Metric(name)
		if !ok {
			continue
		}

		stats, exists := d.history[name]
		if !exists {
			stats = newRollingStats(d.capacity)
			d.history[name] = stats
		}

		mean, stdDev, n := stats.meanStdDev()
		stats.add(value)
		if n < zscoreMinSamples || stdDev == 0 {
			continue
		}

		z := math.Abs(value-mean) / stdDev
		if z <= d.sigma {
			continue
		}

		// Express sigmas on the same percentage scale the severity bands use.
		deviation := z * 50
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
			Baseline:   mean,
			Deviation:  z,
			Description: fmt.Sprintf("%s value %.2f is %.1f standard deviations from mean %.2f",
				name, value, z, mean),
			SuggestedAction: suggestedAction(anomalyType, event.EventType),
		}
	}
	return nil
}

// rollingStats is a bounded sample of recent values.
type rollingStats struct {
	values   []float64
	maxSize  int
	position int
	full     bool
}

func newRollingStats(maxSize int) *rollingStats {
	return &rollingStats{
		values:  make([]float64, maxSize),
		maxSize: maxSize,
	}
}

func (s *rollingStats) add(v float64) {
	s.values[s.position] = v
	s.position = (s.position + 1) % s.maxSize
	if !s.full && s.position == 0 {
		s.full = true
	}
}

func (s *rollingStats) size() int {
	if s.full {
		return s.maxSize
	}
	return s.position
}

func (s *rollingStats) meanStdDev() (mean, stdDev float64, n int) {
	n = s.size()
	if n == 0 {
		return 0, 0, 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += s.values[i]
	}
	mean = sum / float64(n)

	var variance float64
	for i := 0; i < n; i++ {
		diff := s.values[i] - mean
		variance += diff * diff
	}
	variance /= float64(n)
	return mean, math.Sqrt(variance), n
}
