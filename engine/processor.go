package engine

import (
	"sync"
	"time"

	"backend/models"
)

// Processor is the single-writer streaming analytics engine for one property
// shard. All state lives in memory; batches are processed strictly
// sequentially under one exclusive-access boundary, and query operations are
// pure reads. Cross-shard calls are fully independent.
type Processor struct {
	mu       sync.RWMutex
	cfg      Config
	windows  *windowRing
	baseline *Baseline
	detector Detector

	anomalies []*models.Anomaly
	alerts    []*models.Alert
	metrics   models.StreamMetrics

	batches         int64
	totalProcessing time.Duration
}

// NewProcessor creates a processor with the default rate-deviation detector.
func NewProcessor(cfg Config) *Processor {
	cfg = cfg.sanitize()
	return &Processor{
		cfg:      cfg,
		windows:  newWindowRing(cfg.MaxWindows),
		baseline: NewBaseline(),
		detector: NewRateDetector(cfg.AnomalyThreshold),
	}
}

// NewProcessorWithDetector creates a processor with an alternate detection
// strategy, e.g. a z-score detector over continuous metrics.
func NewProcessorWithDetector(cfg Config, detector Detector) *Processor {
	p := NewProcessor(cfg)
	if detector != nil {
		p.detector = detector
	}
	return p
}

// Config returns the processor configuration.
func (p *Processor) Config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// SetThreshold updates the anomaly deviation threshold on a running shard.
// Window geometry is fixed at construction.
func (p *Processor) SetThreshold(threshold float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if threshold <= 0 {
		return
	}
	p.cfg.AnomalyThreshold = threshold
	if d, ok := p.detector.(*RateDetector); ok {
		d.Threshold = threshold
	}
}

// ProcessEvents runs one batch through the full pipeline: baseline update,
// window assignment, per-event anomaly detection with alerting, a single
// pattern scan, then metrics recomputation. It is a total function over its
// inputs; malformed timestamps are treated as late arrivals, never errors.
func (p *Processor) ProcessEvents(events []*models.StreamEvent) {
	if len(events) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()

	// Detection compares against the baseline as it stood before this batch:
	// blending the batch in first would let a surge raise its own reference
	// rate, and a type first seen in this batch must read as insufficient
	// data rather than a false anomaly.
	reference := p.baseline.Clone()
	p.baseline.Update(events)

	for _, event := range events {
		window := p.windows.assign(event, p.cfg.WindowSize, p.cfg.WindowSlide)
		if window == nil {
			continue // late event whose window was already evicted
		}

		if !p.cfg.EnableAnomalyDetection {
			continue
		}
		anomaly := p.detector.Detect(event, reference, window)
		if anomaly == nil {
			continue
		}

		p.anomalies = append(p.anomalies, anomaly)
		window.Metrics.AnomalyCount++
		p.metrics.AnomaliesDetected++

		if p.cfg.EnableAlerts && anomaly.Severity.Rank() >= models.SeverityMedium.Rank() {
			p.alerts = append(p.alerts, NewAlertFromAnomaly(anomaly, event))
			p.metrics.AlertsGenerated++
		}
	}

	if p.cfg.EnablePatternDetection {
		DetectPatterns(p.windows.all())
	}

	p.updateMetrics(len(events), time.Since(start))
}

// updateMetrics recomputes throughput counters after a batch.
func (p *Processor) updateMetrics(batchSize int, elapsed time.Duration) {
	p.batches++
	p.totalProcessing += elapsed

	p.metrics.TotalEvents += int64(batchSize)
	p.metrics.AverageProcessingTime = float64(p.totalProcessing.Microseconds()) / float64(p.batches) / 1000.0
	p.metrics.ActiveWindows = p.windows.len()
	p.metrics.LastUpdateTime = time.Now()

	oldest, newest := p.windows.oldest(), p.windows.newest()
	if oldest != nil && newest != nil {
		span := newest.EndTime.Sub(oldest.StartTime).Seconds()
		if span > 0 {
			p.metrics.EventsPerSecond = float64(p.metrics.TotalEvents) / span
		}
	}
}

// Metrics returns a copy of the current stream metrics.
func (p *Processor) Metrics() models.StreamMetrics {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metrics
}

// RecentAnomalies returns the n most recent anomalies, newest first.
func (p *Processor) RecentAnomalies(n int) []*models.Anomaly {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if n <= 0 || n > len(p.anomalies) {
		n = len(p.anomalies)
	}
	out := make([]*models.Anomaly, n)
	for i := 0; i < n; i++ {
		out[i] = p.anomalies[len(p.anomalies)-1-i]
	}
	return out
}

// ActiveAlerts returns all unacknowledged alerts.
func (p *Processor) ActiveAlerts() []*models.Alert {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []*models.Alert
	for _, a := range p.alerts {
		if !a.Acknowledged {
			out = append(out, a)
		}
	}
	return out
}

// Alerts returns every alert raised so far, oldest first, acknowledged or not.
func (p *Processor) Alerts() []*models.Alert {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*models.Alert, len(p.alerts))
	copy(out, p.alerts)
	return out
}

// AcknowledgeAlert marks the alert as acknowledged. Unknown and already
// acknowledged ids are a no-op; acknowledgement never reverses.
func (p *Processor) AcknowledgeAlert(alertID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, a := range p.alerts {
		if a.AlertID == alertID {
			a.Acknowledged = true
			return true
		}
	}
	return false
}

// Forecast predicts the metric ("events" or "anomalies") over the horizon.
func (p *Processor) Forecast(metric string, horizonMinutes int) models.Forecast {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return forecast(p.windows.all(), p.baseline, metric, horizonMinutes)
}

// BaselineSnapshot returns the current learned baseline rates.
func (p *Processor) BaselineSnapshot() map[string]float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.baseline.Snapshot()
}

// Windows returns the retained windows oldest first. The returned slice is a
// fresh copy of the ring order; callers must not mutate the windows.
func (p *Processor) Windows() []*models.StreamWindow {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.windows.all()
}

// Reset drops all windows, baseline data, anomalies, alerts, and counters.
func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.windows.reset()
	p.baseline.Reset()
	p.anomalies = nil
	p.alerts = nil
	p.metrics = models.StreamMetrics{}
	p.batches = 0
	p.totalProcessing = 0
}
