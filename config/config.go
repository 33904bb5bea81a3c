package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"backend/engine"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Processor engine.Config
	DedupTTL  time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string
	AllowOrigins []string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// KafkaConfig holds Kafka connection configuration
type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	dbPort, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %v", err)
	}

	windowSize, err := envMinutes("WINDOW_SIZE_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	windowSlide, err := envMinutes("WINDOW_SLIDE_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	threshold, err := envFloat("ANOMALY_THRESHOLD", 75)
	if err != nil {
		return nil, err
	}
	maxWindows, err := envInt("MAX_WINDOWS", 12)
	if err != nil {
		return nil, err
	}
	dedupTTL, err := envMinutes("DEDUP_TTL_MINUTES", 30)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("SERVER_PORT", "8080"),
			AllowOrigins: []string{
				getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
				"http://localhost:3000",
			},
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     dbPort,
			Name:     getEnvOrDefault("DB_NAME", "guestflow"),
			User:     getEnvOrDefault("DB_USER", "guestflow"),
			Password: getEnvOrDefault("DB_PASSWORD", "guestflow"),
			SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnvOrDefault("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnvOrDefault("KAFKA_GROUP_ID", "guestflow-backend"),
			Topics:  []string{getEnvOrDefault("KAFKA_TOPIC", "hotel.events")},
		},
		Processor: engine.Config{
			WindowSize:             windowSize,
			WindowSlide:            windowSlide,
			AnomalyThreshold:       threshold,
			MaxWindows:             maxWindows,
			EnablePatternDetection: envBool("ENABLE_PATTERN_DETECTION", true),
			EnableAnomalyDetection: envBool("ENABLE_ANOMALY_DETECTION", true),
			EnableAlerts:           envBool("ENABLE_ALERTS", true),
		},
		DedupTTL: dedupTTL,
	}, nil
}

// GetDatabaseURL returns formatted database connection URL
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return v, nil
}

func envFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return v, nil
}

func envMinutes(key string, defaultValue int) (time.Duration, error) {
	v, err := envInt(key, defaultValue)
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Minute, nil
}

func envBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return v
}
