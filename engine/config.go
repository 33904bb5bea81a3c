package engine

import "time"

// Config controls windowing, detection, and alerting for one processor shard.
type Config struct {
	WindowSize             time.Duration `json:"window_size"`
	WindowSlide            time.Duration `json:"window_slide"`
	AnomalyThreshold       float64       `json:"anomaly_threshold"`
	MaxWindows             int           `json:"max_windows"`
	EnablePatternDetection bool          `json:"enable_pattern_detection"`
	EnableAnomalyDetection bool          `json:"enable_anomaly_detection"`
	EnableAlerts           bool          `json:"enable_alerts"`
}

// DefaultConfig returns the standard processor configuration.
func DefaultConfig() Config {
	return Config{
		WindowSize:             15 * time.Minute,
		WindowSlide:            5 * time.Minute,
		AnomalyThreshold:       75.0,
		MaxWindows:             12,
		EnablePatternDetection: true,
		EnableAnomalyDetection: true,
		EnableAlerts:           true,
	}
}

// sanitize fills in zero values so a partially specified config never divides
// by zero or allocates an empty ring.
func (c Config) sanitize() Config {
	d := DefaultConfig()
	if c.WindowSize <= 0 {
		c.WindowSize = d.WindowSize
	}
	if c.WindowSlide <= 0 {
		c.WindowSlide = d.WindowSlide
	}
	if c.AnomalyThreshold <= 0 {
		c.AnomalyThreshold = d.AnomalyThreshold
	}
	if c.MaxWindows <= 0 {
		c.MaxWindows = d.MaxWindows
	}
	return c
}
