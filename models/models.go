package models

import (
	"time"
)

// EventType identifies the kind of business occurrence carried by a StreamEvent.
type EventType string

const (
	EventBooking      EventType = "booking"
	EventCheckin      EventType = "checkin"
	EventCheckout     EventType = "checkout"
	EventComplaint    EventType = "complaint"
	EventCancellation EventType = "cancellation"
	EventMaintenance  EventType = "maintenance"
	EventPayment      EventType = "payment"
	EventReview       EventType = "review"
	EventRoomService  EventType = "room_service"
)

// ValidEventTypes is the set of event types accepted at the ingestion boundary.
var ValidEventTypes = map[EventType]bool{
	EventBooking:      true,
	EventCheckin:      true,
	EventCheckout:     true,
	EventComplaint:    true,
	EventCancellation: true,
	EventMaintenance:  true,
	EventPayment:      true,
	EventReview:       true,
	EventRoomService:  true,
}

// BehavioralEventTypes carry guest sentiment; anomalies on these are classified
// as behavioral rather than statistical.
var BehavioralEventTypes = map[EventType]bool{
	EventComplaint:    true,
	EventCancellation: true,
}

// StreamEvent represents one immutable business occurrence from a PMS/POS producer.
type StreamEvent struct {
	EventID    string                 `json:"event_id"`
	EventType  EventType              `json:"event_type"`
	Timestamp  time.Time              `json:"timestamp"`
	PropertyID string                 `json:"property_id"`
	RoomID     string                 `json:"room_id,omitempty"`
	GuestID    string                 `json:"guest_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Priority   string                 `json:"priority,omitempty"`
}

// Metric extracts a numeric field from the event data map. Returns false when
// the field is absent or non-numeric; JSON numbers may decode as float64 or int.
func (e *StreamEvent) Metric(name string) (float64, bool) {
	v, ok := e.Data[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// AnomalySeverity orders anomaly severities from least to most severe.
type AnomalySeverity string

const (
	SeverityLow      AnomalySeverity = "low"
	SeverityMedium   AnomalySeverity = "medium"
	SeverityHigh     AnomalySeverity = "high"
	SeverityCritical AnomalySeverity = "critical"
)

// Rank returns the band position of a severity for ordering comparisons.
func (s AnomalySeverity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	}
	return -1
}

// AnomalyType distinguishes rate-deviation anomalies from sentiment-driven ones.
type AnomalyType string

const (
	AnomalyStatistical AnomalyType = "statistical"
	AnomalyBehavioral  AnomalyType = "behavioral"
)

// Anomaly records a single statistically significant deviation tied to one event.
type Anomaly struct {
	AnomalyID       string          `json:"anomaly_id"`
	EventID         string          `json:"event_id"`
	EventType       EventType       `json:"event_type"`
	PropertyID      string          `json:"property_id"`
	DetectedAt      time.Time       `json:"detected_at"`
	Type            AnomalyType     `json:"type"`
	Severity        AnomalySeverity `json:"severity"`
	Score           float64         `json:"score"`
	Baseline        float64         `json:"baseline"`
	Deviation       float64         `json:"deviation"`
	Description     string          `json:"description"`
	SuggestedAction string          `json:"suggested_action,omitempty"`
}

// PatternType identifies a multi-window structural signal.
type PatternType string

const (
	PatternSpike   PatternType = "spike"
	PatternTrend   PatternType = "trend"
	PatternDrop    PatternType = "drop"
	PatternCyclic  PatternType = "cyclic"
	PatternCluster PatternType = "cluster"
)

// Pattern is a structural signal detected over a sequence of windows, attached
// to the window in which it was found.
type Pattern struct {
	Type         PatternType `json:"type"`
	Confidence   float64     `json:"confidence"`
	Description  string      `json:"description"`
	StartTime    time.Time   `json:"start_time"`
	EndTime      time.Time   `json:"end_time"`
	Significance string      `json:"significance"`
}

// WindowMetrics holds the per-window tallies derived as events arrive.
type WindowMetrics struct {
	EventCount   int               `json:"event_count"`
	TypeCounts   map[EventType]int `json:"type_counts"`
	AnomalyCount int               `json:"anomaly_count"`
	Patterns     []Pattern         `json:"patterns,omitempty"`
}

// StreamWindow is one half-open time bucket [StartTime, EndTime) of events.
type StreamWindow struct {
	WindowID  string         `json:"window_id"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Events    []*StreamEvent `json:"events,omitempty"`
	Metrics   WindowMetrics  `json:"metrics"`
}

// Contains reports whether ts falls inside the window's half-open interval.
func (w *StreamWindow) Contains(ts time.Time) bool {
	return !ts.Before(w.StartTime) && ts.Before(w.EndTime)
}

// HasPattern reports whether a pattern of the given type is already attached.
func (w *StreamWindow) HasPattern(t PatternType) bool {
	for _, p := range w.Metrics.Patterns {
		if p.Type == t {
			return true
		}
	}
	return false
}

// AlertPriority mirrors anomaly severity one-to-one.
type AlertPriority string

const (
	PriorityLow      AlertPriority = "low"
	PriorityMedium   AlertPriority = "medium"
	PriorityHigh     AlertPriority = "high"
	PriorityCritical AlertPriority = "critical"
)

// AlertCategory classifies the origin of an alert.
type AlertCategory string

const (
	CategoryAnomaly    AlertCategory = "anomaly"
	CategoryThreshold  AlertCategory = "threshold"
	CategoryPattern    AlertCategory = "pattern"
	CategoryPrediction AlertCategory = "prediction"
)

// Alert is an actionable, acknowledgeable notification raised from a qualifying
// anomaly. Alerts are never deleted, only acknowledged.
type Alert struct {
	AlertID          string        `json:"alert_id"`
	Timestamp        time.Time     `json:"timestamp"`
	Priority         AlertPriority `json:"priority"`
	Category         AlertCategory `json:"category"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	AffectedEntities []string      `json:"affected_entities"`
	Recommendations  []string      `json:"recommendations"`
	Acknowledged     bool          `json:"acknowledged"`
}

// StreamMetrics aggregates processor throughput and detection counters.
type StreamMetrics struct {
	TotalEvents           int64     `json:"total_events"`
	EventsPerSecond       float64   `json:"events_per_second"`
	AverageProcessingTime float64   `json:"average_processing_time_ms"`
	AnomaliesDetected     int64     `json:"anomalies_detected"`
	AlertsGenerated       int64     `json:"alerts_generated"`
	ActiveWindows         int       `json:"active_windows"`
	LastUpdateTime        time.Time `json:"last_update_time"`
}

// TrendDirection classifies the slope of a forecast.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// Forecast is a short-horizon prediction for one window-level metric. Computed
// on demand, never stored.
type Forecast struct {
	Metric         string         `json:"metric"`
	CurrentValue   float64        `json:"current_value"`
	PredictedValue float64        `json:"predicted_value"`
	Confidence     float64        `json:"confidence"`
	TimeHorizon    int            `json:"time_horizon_minutes"`
	Trend          TrendDirection `json:"trend"`
}

// WebSocketMessage represents a message sent to WebSocket clients.
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// AlertRecord is the persisted form of an alert as stored in Postgres; the
// engine itself keeps alerts in memory.
type AlertRecord struct {
	ID             int        `json:"id" db:"id"`
	AlertID        string     `json:"alert_id" db:"alert_id"`
	PropertyID     string     `json:"property_id" db:"property_id"`
	Priority       string     `json:"priority" db:"priority"`
	Category       string     `json:"category" db:"category"`
	Title          string     `json:"title" db:"title"`
	Message        string     `json:"message" db:"message"`
	Acknowledged   bool       `json:"acknowledged" db:"acknowledged"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at" db:"acknowledged_at"`
}
