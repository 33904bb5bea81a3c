package engine

import (
	"fmt"
	"strings"
	"time"

	"backend/models"

	"github.com/google/uuid"
)

// NewAlertFromAnomaly builds a prioritized alert from a qualifying anomaly.
// The orchestrator only calls this for anomalies of medium severity or above.
func NewAlertFromAnomaly(anomaly *models.Anomaly, event *models.StreamEvent) *models.Alert {
	entities := []string{event.PropertyID}
	if event.RoomID != "" {
		entities = append(entities, event.RoomID)
	}
	if event.GuestID != "" {
		entities = append(entities, event.GuestID)
	}

	var recommendations []string
	if anomaly.SuggestedAction != "" {
		recommendations = append(recommendations, anomaly.SuggestedAction)
	}
	recommendations = append(recommendations,
		"Monitor pattern over next hour",
		"Review historical data for similar anomalies",
	)

	return &models.Alert{
		AlertID:   uuid.NewString(),
		Timestamp: time.Now(),
		Priority:  priorityForSeverity(anomaly.Severity),
		Category:  models.CategoryAnomaly,
		Title: fmt.Sprintf("%s Anomaly: %s",
			titleCase(string(anomaly.Type)), anomaly.EventType),
		Description:      anomaly.Description,
		AffectedEntities: entities,
		Recommendations:  recommendations,
		Acknowledged:     false,
	}
}

// priorityForSeverity mirrors anomaly severity one-to-one onto alert priority.
func priorityForSeverity(s models.AnomalySeverity) models.AlertPriority {
	switch s {
	case models.SeverityCritical:
		return models.PriorityCritical
	case models.SeverityHigh:
		return models.PriorityHigh
	case models.SeverityMedium:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
