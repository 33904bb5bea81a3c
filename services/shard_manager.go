package services

import (
	"log"
	"sort"
	"sync"

	"backend/engine"
	"backend/models"
)

// AlertCallback receives every newly generated alert together with its shard's
// property id, for persistence and live broadcast.
type AlertCallback func(propertyID string, alert *models.Alert)

// AnomalyCallback receives every newly detected anomaly for the audit trail
// and live broadcast.
type AnomalyCallback func(anomaly *models.Anomaly)

// ShardManager runs one engine processor per property. Each shard is
// single-writer and independently serialized; the manager only guards the
// shard map itself.
type ShardManager struct {
	cfg             engine.Config
	shards          map[string]*engine.Processor
	alertCursor     map[string]int
	anomalyCursor   map[string]int
	mutex           sync.RWMutex
	alertCallback   AlertCallback
	anomalyCallback AnomalyCallback
}

// NewShardManager creates a manager that lazily spins up shards as properties
// first appear in the stream.
func NewShardManager(cfg engine.Config, alertCallback AlertCallback) *ShardManager {
	return &ShardManager{
		cfg:           cfg,
		shards:        make(map[string]*engine.Processor),
		alertCursor:   make(map[string]int),
		anomalyCursor: make(map[string]int),
		alertCallback: alertCallback,
	}
}

// OnAnomaly registers a callback fired once per newly detected anomaly. Must
// be set before the first Ingest.
func (m *ShardManager) OnAnomaly(cb AnomalyCallback) {
	m.anomalyCallback = cb
}

// shard returns the processor for a property, creating it on first use.
func (m *ShardManager) shard(propertyID string) *engine.Processor {
	m.mutex.RLock()
	p, ok := m.shards[propertyID]
	m.mutex.RUnlock()
	if ok {
		return p
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if p, ok = m.shards[propertyID]; ok {
		return p
	}
	p = engine.NewProcessor(m.cfg)
	m.shards[propertyID] = p
	log.Printf("Created processor shard for property %s", propertyID)
	return p
}

// Ingest routes a batch to its per-property shards and fires the alert
// callback for every alert the batch generated.
func (m *ShardManager) Ingest(events []*models.StreamEvent) {
	byProperty := make(map[string][]*models.StreamEvent)
	for _, e := range events {
		byProperty[e.PropertyID] = append(byProperty[e.PropertyID], e)
	}

	for propertyID, batch := range byProperty {
		p := m.shard(propertyID)
		p.ProcessEvents(batch)
		m.dispatchNewAnomalies(propertyID, p)
		m.dispatchNewAlerts(propertyID, p)
	}
}

// dispatchNewAnomalies emits anomalies appended since the last batch for this
// shard, oldest first.
func (m *ShardManager) dispatchNewAnomalies(propertyID string, p *engine.Processor) {
	if m.anomalyCallback == nil {
		return
	}

	anomalies := p.RecentAnomalies(0)
	m.mutex.Lock()
	cursor := m.anomalyCursor[propertyID]
	m.anomalyCursor[propertyID] = len(anomalies)
	m.mutex.Unlock()

	for i := len(anomalies) - cursor - 1; i >= 0; i-- {
		m.anomalyCallback(anomalies[i])
	}
}

// dispatchNewAlerts emits alerts appended since the last batch for this shard.
func (m *ShardManager) dispatchNewAlerts(propertyID string, p *engine.Processor) {
	if m.alertCallback == nil {
		return
	}

	alerts := p.Alerts()
	m.mutex.Lock()
	cursor := m.alertCursor[propertyID]
	m.alertCursor[propertyID] = len(alerts)
	m.mutex.Unlock()

	for _, alert := range alerts[cursor:] {
		m.alertCallback(propertyID, alert)
	}
}

// Properties lists all known property ids, sorted.
func (m *ShardManager) Properties() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]string, 0, len(m.shards))
	for id := range m.shards {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Metrics returns the stream metrics for one property; ok is false when the
// property has never produced an event.
func (m *ShardManager) Metrics(propertyID string) (models.StreamMetrics, bool) {
	m.mutex.RLock()
	p, ok := m.shards[propertyID]
	m.mutex.RUnlock()
	if !ok {
		return models.StreamMetrics{}, false
	}
	return p.Metrics(), true
}

// AggregateMetrics sums counters across all shards for the system health view.
func (m *ShardManager) AggregateMetrics() models.StreamMetrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var agg models.StreamMetrics
	for _, p := range m.shards {
		metrics := p.Metrics()
		agg.TotalEvents += metrics.TotalEvents
		agg.AnomaliesDetected += metrics.AnomaliesDetected
		agg.AlertsGenerated += metrics.AlertsGenerated
		agg.ActiveWindows += metrics.ActiveWindows
		agg.EventsPerSecond += metrics.EventsPerSecond
		if metrics.LastUpdateTime.After(agg.LastUpdateTime) {
			agg.LastUpdateTime = metrics.LastUpdateTime
		}
	}
	return agg
}

// RecentAnomalies returns the n newest anomalies for one property.
func (m *ShardManager) RecentAnomalies(propertyID string, n int) []*models.Anomaly {
	m.mutex.RLock()
	p, ok := m.shards[propertyID]
	m.mutex.RUnlock()
	if !ok {
		return nil
	}
	return p.RecentAnomalies(n)
}

// ActiveAlerts returns unacknowledged alerts for one property.
func (m *ShardManager) ActiveAlerts(propertyID string) []*models.Alert {
	m.mutex.RLock()
	p, ok := m.shards[propertyID]
	m.mutex.RUnlock()
	if !ok {
		return nil
	}
	return p.ActiveAlerts()
}

// AllActiveAlerts returns unacknowledged alerts across every property.
func (m *ShardManager) AllActiveAlerts() []*models.Alert {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var out []*models.Alert
	for _, p := range m.shards {
		out = append(out, p.ActiveAlerts()...)
	}
	return out
}

// AcknowledgeAlert acknowledges an alert by id wherever it lives. Unknown ids
// are a tolerated no-op so stale acknowledgements from other channels do not
// error.
func (m *ShardManager) AcknowledgeAlert(alertID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, p := range m.shards {
		if p.AcknowledgeAlert(alertID) {
			return true
		}
	}
	return false
}

// Forecast computes an on-demand prediction for one property's metric.
func (m *ShardManager) Forecast(propertyID, metric string, horizonMinutes int) (models.Forecast, bool) {
	m.mutex.RLock()
	p, ok := m.shards[propertyID]
	m.mutex.RUnlock()
	if !ok {
		return models.Forecast{}, false
	}
	return p.Forecast(metric, horizonMinutes), true
}

// Baseline returns the learned baseline rates for one property.
func (m *ShardManager) Baseline(propertyID string) map[string]float64 {
	m.mutex.RLock()
	p, ok := m.shards[propertyID]
	m.mutex.RUnlock()
	if !ok {
		return nil
	}
	return p.BaselineSnapshot()
}

// SetThreshold updates the anomaly threshold on every shard.
func (m *ShardManager) SetThreshold(threshold float64) {
	m.mutex.Lock()
	m.cfg.AnomalyThreshold = threshold
	shards := make([]*engine.Processor, 0, len(m.shards))
	for _, p := range m.shards {
		shards = append(shards, p)
	}
	m.mutex.Unlock()

	for _, p := range shards {
		p.SetThreshold(threshold)
	}
	log.Printf("Updated anomaly threshold to %.1f%% across %d shards", threshold, len(shards))
}

// Config returns the configuration new shards are created with.
func (m *ShardManager) Config() engine.Config {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.cfg
}

// ShardCount returns the number of live property shards.
func (m *ShardManager) ShardCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.shards)
}
