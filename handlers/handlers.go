package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"backend/database"
	"backend/kafka"
	"backend/models"
	"backend/services"
	"backend/websocket"

	"github.com/gin-gonic/gin"
)

// Handler contains all the dependencies needed for HTTP handlers
type Handler struct {
	db      *database.DB
	hub     *websocket.Hub
	shards  *services.ShardManager
	dedup   *services.DedupCache
	started time.Time
}

// New creates a new handler instance
func New(db *database.DB, hub *websocket.Hub, shards *services.ShardManager, dedup *services.DedupCache) *Handler {
	return &Handler{
		db:      db,
		hub:     hub,
		shards:  shards,
		dedup:   dedup,
		started: time.Now(),
	}
}

// IngestEvents accepts a batch of events over HTTP, for webhook-style
// producers that do not publish to Kafka. Validation and deduplication happen
// here, at the boundary; the engine never sees rejected events.
func (h *Handler) IngestEvents(c *gin.Context) {
	var events []*models.StreamEvent
	if err := c.ShouldBindJSON(&events); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	accepted := make([]*models.StreamEvent, 0, len(events))
	rejected := 0
	duplicates := 0
	for _, event := range events {
		if err := kafka.ValidateEvent(event); err != nil {
			rejected++
			continue
		}
		if h.dedup.Seen(event.EventID) {
			duplicates++
			continue
		}
		accepted = append(accepted, event)
	}

	if len(accepted) > 0 {
		h.shards.Ingest(accepted)
		for _, event := range accepted {
			h.hub.BroadcastEvent(event)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"accepted":   len(accepted),
		"rejected":   rejected,
		"duplicates": duplicates,
	})
}

// GetStreamMetrics returns metrics for one property, or the aggregate view.
func (h *Handler) GetStreamMetrics(c *gin.Context) {
	propertyID := c.Query("property_id")

	if propertyID == "" {
		c.JSON(http.StatusOK, gin.H{
			"metrics":    h.shards.AggregateMetrics(),
			"properties": h.shards.ShardCount(),
		})
		return
	}

	metrics, ok := h.shards.Metrics(propertyID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Unknown property",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"property_id": propertyID,
		"metrics":     metrics,
	})
}

// GetAnomalies returns recent anomalies. With a property_id it reads the live
// shard; without one it falls back to the persisted audit trail.
func (h *Handler) GetAnomalies(c *gin.Context) {
	propertyID := c.Query("property_id")
	limit := queryInt(c, "limit", 20)

	if propertyID != "" {
		c.JSON(http.StatusOK, gin.H{
			"anomalies":   h.shards.RecentAnomalies(propertyID, limit),
			"property_id": propertyID,
		})
		return
	}

	anomalies, err := h.db.GetRecentAnomalies("", limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve anomalies",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"anomalies": anomalies,
		"count":     len(anomalies),
	})
}

// GetAlerts retrieves unacknowledged alerts from the live shards.
func (h *Handler) GetAlerts(c *gin.Context) {
	propertyID := c.Query("property_id")

	var alerts []*models.Alert
	if propertyID != "" {
		alerts = h.shards.ActiveAlerts(propertyID)
	} else {
		alerts = h.shards.AllActiveAlerts()
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// AcknowledgeAlert acknowledges a specific alert. Acknowledgement is
// idempotent and tolerates unknown ids from clients that already acknowledged
// through another channel.
func (h *Handler) AcknowledgeAlert(c *gin.Context) {
	alertID := c.Param("id")
	if alertID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid alert ID",
		})
		return
	}

	found := h.shards.AcknowledgeAlert(alertID)
	if err := h.db.AcknowledgeAlert(alertID); err != nil {
		log.Printf("Failed to persist acknowledgement for alert %s: %v", alertID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Alert acknowledged",
		"alert_id": alertID,
		"found":    found,
	})
}

// GetForecast returns an on-demand prediction for a property metric.
func (h *Handler) GetForecast(c *gin.Context) {
	propertyID := c.Query("property_id")
	metric := c.DefaultQuery("metric", "events")
	horizon := queryInt(c, "horizon", 30)

	forecast, ok := h.shards.Forecast(propertyID, metric, horizon)
	if !ok {
		// A property with no shard has no history; answer with the explicit
		// low-confidence default instead of an error.
		forecast = models.Forecast{
			Metric:      metric,
			Confidence:  30,
			TimeHorizon: horizon,
			Trend:       models.TrendStable,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"property_id": propertyID,
		"forecast":    forecast,
	})
}

// GetBaseline returns the learned baseline rates for one property.
func (h *Handler) GetBaseline(c *gin.Context) {
	propertyID := c.Query("property_id")
	baseline := h.shards.Baseline(propertyID)
	if baseline == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Unknown property",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"property_id": propertyID,
		"baseline":    baseline,
	})
}

// GetProperties lists the known property shards with their metrics.
func (h *Handler) GetProperties(c *gin.Context) {
	properties := h.shards.Properties()

	out := make([]gin.H, 0, len(properties))
	for _, id := range properties {
		metrics, _ := h.shards.Metrics(id)
		out = append(out, gin.H{
			"property_id": id,
			"metrics":     metrics,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"properties": out,
		"count":      len(out),
	})
}

// GetPersistedAlerts retrieves the persisted unacknowledged alerts.
func (h *Handler) GetPersistedAlerts(c *gin.Context) {
	alerts, err := h.db.GetUnacknowledgedAlerts(c.Query("property_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve alerts",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetProcessorConfig returns the configuration new shards are created with.
func (h *Handler) GetProcessorConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"config": h.shards.Config(),
	})
}

// UpdateThreshold updates the anomaly deviation threshold on all shards.
func (h *Handler) UpdateThreshold(c *gin.Context) {
	var req struct {
		AnomalyThreshold float64 `json:"anomaly_threshold" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.AnomalyThreshold <= 0 || req.AnomalyThreshold > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Threshold must be between 0 and 1000 percent",
		})
		return
	}

	h.shards.SetThreshold(req.AnomalyThreshold)

	c.JSON(http.StatusOK, gin.H{
		"message":           "Anomaly threshold updated",
		"anomaly_threshold": req.AnomalyThreshold,
	})
}

// GetSystemHealth returns overall system health information
func (h *Handler) GetSystemHealth(c *gin.Context) {
	metrics := h.shards.AggregateMetrics()

	health := gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"uptime":    time.Since(h.started).String(),
		"websocket": gin.H{
			"connected_clients": h.hub.GetClientCount(),
		},
		"database": gin.H{
			"status": "connected",
		},
		"processing": gin.H{
			"total_events":       metrics.TotalEvents,
			"anomalies_detected": metrics.AnomaliesDetected,
			"alerts_generated":   metrics.AlertsGenerated,
			"active_shards":      h.shards.ShardCount(),
			"dedup_entries":      h.dedup.Size(),
		},
	}

	if err := h.db.Ping(); err != nil {
		health["status"] = "degraded"
		health["database"] = gin.H{"status": "unreachable"}
	}

	c.JSON(http.StatusOK, health)
}

// WebSocketEndpoint handles WebSocket connections
func (h *Handler) WebSocketEndpoint(c *gin.Context) {
	h.hub.HandleWebSocket(c.Writer, c.Request)
}

func queryInt(c *gin.Context, key string, defaultValue int) int {
	raw := c.Query(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 || v > 1000 {
		return defaultValue
	}
	return v
}
