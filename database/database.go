package database

import (
	"database/sql"
	"fmt"
	"time"

	"backend/models"

	_ "github.com/lib/pq"
)

// DB wraps the database connection. Only alerts and anomaly audit rows are
// persisted; events and windows stay in the engine's memory.
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{db}, nil
}

// InsertAlert persists a generated alert for the review UIs.
func (db *DB) InsertAlert(propertyID string, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (alert_id, property_id, priority, category, title, message, acknowledged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := db.Exec(query, alert.AlertID, propertyID, string(alert.Priority),
		string(alert.Category), alert.Title, alert.Description, alert.Acknowledged, alert.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %v", err)
	}

	return nil
}

// InsertAnomaly persists a detected anomaly for offline review.
func (db *DB) InsertAnomaly(anomaly *models.Anomaly) error {
	query := `
		INSERT INTO anomalies (anomaly_id, event_id, property_id, event_type, anomaly_type,
			severity, score, baseline, deviation, description, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := db.Exec(query, anomaly.AnomalyID, anomaly.EventID, anomaly.PropertyID,
		string(anomaly.EventType), string(anomaly.Type), string(anomaly.Severity),
		anomaly.Score, anomaly.Baseline, anomaly.Deviation, anomaly.Description, anomaly.DetectedAt)
	if err != nil {
		return fmt.Errorf("failed to insert anomaly: %v", err)
	}

	return nil
}

// GetUnacknowledgedAlerts retrieves unacknowledged alerts, newest first.
func (db *DB) GetUnacknowledgedAlerts(propertyID string) ([]models.AlertRecord, error) {
	query := `
		SELECT id, alert_id, property_id, priority, category, title, message, acknowledged, created_at, acknowledged_at
		FROM alerts
		WHERE acknowledged = false AND ($1 = '' OR property_id = $1)
		ORDER BY created_at DESC
		LIMIT 100
	`

	rows, err := db.Query(query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %v", err)
	}
	defer rows.Close()

	var alerts []models.AlertRecord
	for rows.Next() {
		var alert models.AlertRecord
		err := rows.Scan(&alert.ID, &alert.AlertID, &alert.PropertyID, &alert.Priority,
			&alert.Category, &alert.Title, &alert.Message, &alert.Acknowledged,
			&alert.CreatedAt, &alert.AcknowledgedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %v", err)
		}
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

// AcknowledgeAlert marks a persisted alert as acknowledged.
func (db *DB) AcknowledgeAlert(alertID string) error {
	query := `
		UPDATE alerts
		SET acknowledged = true, acknowledged_at = NOW()
		WHERE alert_id = $1
	`

	_, err := db.Exec(query, alertID)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %v", err)
	}

	return nil
}

// GetRecentAnomalies retrieves persisted anomalies, newest first.
func (db *DB) GetRecentAnomalies(propertyID string, limit int) ([]models.Anomaly, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `
		SELECT anomaly_id, event_id, property_id, event_type, anomaly_type,
			severity, score, baseline, deviation, description, detected_at
		FROM anomalies
		WHERE ($1 = '' OR property_id = $1)
		ORDER BY detected_at DESC
		LIMIT $2
	`

	rows, err := db.Query(query, propertyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %v", err)
	}
	defer rows.Close()

	var anomalies []models.Anomaly
	for rows.Next() {
		var a models.Anomaly
		err := rows.Scan(&a.AnomalyID, &a.EventID, &a.PropertyID, &a.EventType,
			&a.Type, &a.Severity, &a.Score, &a.Baseline, &a.Deviation,
			&a.Description, &a.DetectedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %v", err)
		}
		anomalies = append(anomalies, a)
	}

	return anomalies, nil
}
