package engine

import (
	"fmt"
	"testing"
	"time"

	"backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventRun builds n events of one type spaced by interval, starting at start.
func eventRun(eventType models.EventType, n int, start time.Time, interval time.Duration) []*models.StreamEvent {
	events := make([]*models.StreamEvent, n)
	for i := 0; i < n; i++ {
		e := testEvent(eventType, start.Add(time.Duration(i)*interval))
		e.EventID = fmt.Sprintf("%s_%d_%d", eventType, start.UnixNano(), i)
		events[i] = e
	}
	return events
}

func TestProcessorSteadyStreamNoAnomalies(t *testing.T) {
	p := NewProcessor(DefaultConfig())

	// First sight of a type establishes its baseline without false alarms.
	p.ProcessEvents(eventRun(models.EventBooking, 20, testBase, time.Second))

	assert.Greater(t, p.BaselineSnapshot()["booking_rate"], 0.0)
	assert.Empty(t, p.RecentAnomalies(0))
	assert.Empty(t, p.ActiveAlerts())
	assert.Equal(t, int64(20), p.Metrics().TotalEvents)
}

func TestProcessorComplaintSurgeRaisesAlerts(t *testing.T) {
	p := NewProcessor(DefaultConfig())

	p.ProcessEvents(eventRun(models.EventBooking, 20, testBase, time.Second))

	// The first complaint batch establishes the baseline; the second batch
	// deviates hard against it inside the same window.
	p.ProcessEvents(eventRun(models.EventComplaint, 25, testBase.Add(20*time.Second), time.Second))
	p.ProcessEvents(eventRun(models.EventComplaint, 25, testBase.Add(45*time.Second), time.Second))

	anomalies := p.RecentAnomalies(0)
	require.NotEmpty(t, anomalies)
	for _, a := range anomalies {
		assert.Equal(t, models.EventComplaint, a.EventType)
		assert.Equal(t, models.AnomalyBehavioral, a.Type)
		assert.GreaterOrEqual(t, a.Score, 0.0)
		assert.LessOrEqual(t, a.Score, 100.0)
	}

	alerts := p.ActiveAlerts()
	require.NotEmpty(t, alerts)
	for _, alert := range alerts {
		assert.Equal(t, models.CategoryAnomaly, alert.Category)
		assert.False(t, alert.Acknowledged)
		assert.Contains(t, alert.Title, "Anomaly: complaint")
		assert.Contains(t, alert.AffectedEntities, "property_001")
		assert.NotEmpty(t, alert.Recommendations)
	}

	metrics := p.Metrics()
	assert.Equal(t, int64(70), metrics.TotalEvents)
	assert.Equal(t, int64(len(anomalies)), metrics.AnomaliesDetected)
	assert.Equal(t, int64(len(alerts)), metrics.AlertsGenerated)
}

func TestProcessorSpikeScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowSize = 5 * time.Minute
	cfg.WindowSlide = 2 * time.Minute
	p := NewProcessor(cfg)

	// Six clusters in disjoint windows with counts 10,10,10,10,60,10.
	counts := []int{10, 10, 10, 10, 60, 10}
	var batch []*models.StreamEvent
	for i, n := range counts {
		start := testBase.Add(time.Duration(i) * 6 * time.Minute)
		batch = append(batch, eventRun(models.EventBooking, n, start, time.Second)...)
	}
	p.ProcessEvents(batch)

	windows := p.Windows()
	require.Len(t, windows, 6)

	peak := windows[4]
	assert.Equal(t, 60, peak.Metrics.EventCount)
	require.True(t, peak.HasPattern(models.PatternSpike))
	assert.Equal(t, "high", peak.Metrics.Patterns[0].Significance)
}

func TestProcessorThroughputScenario(t *testing.T) {
	p := NewProcessor(DefaultConfig())

	types := []models.EventType{
		models.EventBooking, models.EventCheckin,
		models.EventCheckout, models.EventPayment,
	}
	var batch []*models.StreamEvent
	for i := 0; i < 1000; i++ {
		e := testEvent(types[i%4], testBase.Add(time.Duration(i)*100*time.Millisecond))
		e.EventID = fmt.Sprintf("evt_%d", i)
		batch = append(batch, e)
	}

	for i := 0; i < 1000; i += 250 {
		p.ProcessEvents(batch[i : i+250])
	}

	metrics := p.Metrics()
	assert.Equal(t, int64(1000), metrics.TotalEvents)
	assert.Greater(t, metrics.EventsPerSecond, 0.0)
	assert.GreaterOrEqual(t, metrics.ActiveWindows, 1)
	assert.False(t, metrics.LastUpdateTime.IsZero())
}

func TestProcessorTotalEventsMonotone(t *testing.T) {
	p := NewProcessor(DefaultConfig())

	sizes := []int{5, 7, 9, 1}
	var total int64
	for i, n := range sizes {
		start := testBase.Add(time.Duration(i) * time.Minute)
		p.ProcessEvents(eventRun(models.EventBooking, n, start, time.Second))
		total += int64(n)
		assert.Equal(t, total, p.Metrics().TotalEvents)
	}
}

func TestProcessorWindowsBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowSize = 5 * time.Minute
	cfg.WindowSlide = 5 * time.Minute
	cfg.MaxWindows = 4
	p := NewProcessor(cfg)

	for i := 0; i < 30; i++ {
		start := testBase.Add(time.Duration(i) * 5 * time.Minute)
		p.ProcessEvents(eventRun(models.EventBooking, 3, start, time.Second))
		assert.LessOrEqual(t, p.Metrics().ActiveWindows, 4)
	}

	assert.Equal(t, 4, p.Metrics().ActiveWindows)
}

func TestProcessorColdStartForecast(t *testing.T) {
	p := NewProcessor(DefaultConfig())

	f := p.Forecast("events", 30)
	assert.Less(t, f.Confidence, 50.0)
	assert.Equal(t, models.TrendStable, f.Trend)

	// One window is still insufficient history.
	p.ProcessEvents(eventRun(models.EventBooking, 10, testBase, time.Second))
	f = p.Forecast("events", 30)
	assert.Less(t, f.Confidence, 50.0)
	assert.Equal(t, models.TrendStable, f.Trend)
}

func TestProcessorAcknowledgeIdempotent(t *testing.T) {
	p := NewProcessor(DefaultConfig())

	p.ProcessEvents(eventRun(models.EventBooking, 20, testBase, time.Second))
	p.ProcessEvents(eventRun(models.EventComplaint, 25, testBase.Add(20*time.Second), time.Second))
	p.ProcessEvents(eventRun(models.EventComplaint, 25, testBase.Add(45*time.Second), time.Second))

	alerts := p.ActiveAlerts()
	require.NotEmpty(t, alerts)
	target := alerts[0].AlertID
	before := len(alerts)

	assert.True(t, p.AcknowledgeAlert(target))
	assert.Len(t, p.ActiveAlerts(), before-1)

	// Second acknowledgement and unknown ids change nothing.
	assert.True(t, p.AcknowledgeAlert(target))
	assert.Len(t, p.ActiveAlerts(), before-1)
	assert.False(t, p.AcknowledgeAlert("no-such-alert"))
	assert.Len(t, p.ActiveAlerts(), before-1)
}

func TestProcessorRecentAnomaliesNewestFirst(t *testing.T) {
	p := NewProcessor(DefaultConfig())

	p.ProcessEvents(eventRun(models.EventBooking, 20, testBase, time.Second))
	p.ProcessEvents(eventRun(models.EventComplaint, 25, testBase.Add(20*time.Second), time.Second))
	p.ProcessEvents(eventRun(models.EventComplaint, 25, testBase.Add(45*time.Second), time.Second))

	all := p.RecentAnomalies(0)
	require.Greater(t, len(all), 2)

	limited := p.RecentAnomalies(2)
	require.Len(t, limited, 2)
	assert.Equal(t, all[0].AnomalyID, limited[0].AnomalyID)
	assert.Equal(t, all[1].AnomalyID, limited[1].AnomalyID)
	assert.False(t, limited[0].DetectedAt.Before(limited[1].DetectedAt))
}

func TestProcessorDetectionDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableAnomalyDetection = false
	p := NewProcessor(cfg)

	p.ProcessEvents(eventRun(models.EventBooking, 20, testBase, time.Second))
	p.ProcessEvents(eventRun(models.EventComplaint, 25, testBase.Add(20*time.Second), time.Second))
	p.ProcessEvents(eventRun(models.EventComplaint, 25, testBase.Add(45*time.Second), time.Second))

	assert.Empty(t, p.RecentAnomalies(0))
	assert.Empty(t, p.ActiveAlerts())
}

func TestProcessorAlertsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableAlerts = false
	p := NewProcessor(cfg)

	p.ProcessEvents(eventRun(models.EventBooking, 20, testBase, time.Second))
	p.ProcessEvents(eventRun(models.EventComplaint, 25, testBase.Add(20*time.Second), time.Second))
	p.ProcessEvents(eventRun(models.EventComplaint, 25, testBase.Add(45*time.Second), time.Second))

	assert.NotEmpty(t, p.RecentAnomalies(0))
	assert.Empty(t, p.ActiveAlerts())
	assert.Zero(t, p.Metrics().AlertsGenerated)
}

func TestProcessorReset(t *testing.T) {
	p := NewProcessor(DefaultConfig())

	p.ProcessEvents(eventRun(models.EventBooking, 20, testBase, time.Second))
	p.Reset()

	metrics := p.Metrics()
	assert.Zero(t, metrics.TotalEvents)
	assert.Zero(t, metrics.ActiveWindows)
	assert.Empty(t, p.BaselineSnapshot())
	assert.Empty(t, p.Windows())
}

func TestProcessorSetThreshold(t *testing.T) {
	p := NewProcessor(DefaultConfig())

	p.SetThreshold(150)
	assert.Equal(t, 150.0, p.Config().AnomalyThreshold)

	// Invalid values are ignored.
	p.SetThreshold(0)
	assert.Equal(t, 150.0, p.Config().AnomalyThreshold)
}

func TestProcessorEmptyBatchNoop(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	p.ProcessEvents(nil)

	assert.Zero(t, p.Metrics().TotalEvents)
	assert.True(t, p.Metrics().LastUpdateTime.IsZero())
}
