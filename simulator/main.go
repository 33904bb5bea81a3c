package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// StreamEvent mirrors the backend's wire format.
type StreamEvent struct {
	EventID    string                 `json:"event_id"`
	EventType  string                 `json:"event_type"`
	Timestamp  time.Time              `json:"timestamp"`
	PropertyID string                 `json:"property_id"`
	RoomID     string                 `json:"room_id,omitempty"`
	GuestID    string                 `json:"guest_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// eventMix is the steady-state distribution of hotel event types.
var eventMix = []struct {
	eventType string
	weight    float64
}{
	{"booking", 0.30},
	{"checkin", 0.15},
	{"checkout", 0.15},
	{"payment", 0.15},
	{"room_service", 0.10},
	{"review", 0.06},
	{"maintenance", 0.04},
	{"complaint", 0.03},
	{"cancellation", 0.02},
}

// EventSimulator generates synthetic hotel traffic and publishes it to Kafka.
type EventSimulator struct {
	producer   sarama.SyncProducer
	topic      string
	frequency  time.Duration
	properties []string
	burstRate  float64
	burstLeft  int
	burstType  string
}

// NewEventSimulator creates a simulator publishing to the given topic.
func NewEventSimulator(brokers []string, topic string, properties []string, frequency time.Duration) (*EventSimulator, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %v", err)
	}

	return &EventSimulator{
		producer:   producer,
		topic:      topic,
		frequency:  frequency,
		properties: properties,
		burstRate:  0.01, // 1% chance per tick to start an anomaly burst
	}, nil
}

// generateEvent produces one event; during a burst it skews heavily toward a
// single event type so the backend's detectors have something to find.
func (s *EventSimulator) generateEvent() *StreamEvent {
	eventType := s.pickType()
	propertyID := s.properties[rand.Intn(len(s.properties))]

	data := map[string]interface{}{}
	switch eventType {
	case "booking", "payment":
		data["amount"] = 80.0 + rand.Float64()*400.0
		data["nights"] = rand.Intn(7) + 1
	case "review":
		data["rating"] = float64(rand.Intn(5) + 1)
	case "complaint":
		data["category"] = []string{"noise", "cleanliness", "staff", "billing"}[rand.Intn(4)]
	}

	event := &StreamEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		Timestamp:  time.Now(),
		PropertyID: propertyID,
		Data:       data,
	}

	if eventType != "booking" && eventType != "cancellation" {
		event.RoomID = fmt.Sprintf("room_%d", rand.Intn(200)+100)
	}
	if eventType == "complaint" || eventType == "review" || eventType == "checkin" {
		event.GuestID = fmt.Sprintf("guest_%d", rand.Intn(5000))
	}

	return event
}

func (s *EventSimulator) pickType() string {
	if s.burstLeft > 0 {
		s.burstLeft--
		return s.burstType
	}

	if rand.Float64() < s.burstRate {
		bursts := []string{"complaint", "cancellation", "booking"}
		s.burstType = bursts[rand.Intn(len(bursts))]
		s.burstLeft = 30 + rand.Intn(50)
		log.Printf("Starting %s burst: %d events", s.burstType, s.burstLeft)
		return s.burstType
	}

	roll := rand.Float64()
	for _, m := range eventMix {
		if roll < m.weight {
			return m.eventType
		}
		roll -= m.weight
	}
	return "booking"
}

// publishEvent sends an event to Kafka keyed by property so each property's
// stream stays ordered within a partition.
func (s *EventSimulator) publishEvent(event *StreamEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %v", err)
	}

	message := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(event.PropertyID),
		Value: sarama.ByteEncoder(eventJSON),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.EventType)},
			{Key: []byte("property_id"), Value: []byte(event.PropertyID)},
		},
	}

	partition, offset, err := s.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("delivery failed: %v", err)
	}

	log.Printf("Event delivered to %s [%d] at offset %d: %s @ %s",
		s.topic, partition, offset, event.EventType, event.PropertyID)
	return nil
}

// Start begins the simulation loop
func (s *EventSimulator) Start() {
	log.Printf("Starting event simulator for %d properties, frequency: %v",
		len(s.properties), s.frequency)

	ticker := time.NewTicker(s.frequency)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			event := s.generateEvent()
			if err := s.publishEvent(event); err != nil {
				log.Printf("Error publishing event: %v", err)
			}
		case sig := <-sigChan:
			log.Printf("Received signal %v, shutting down...", sig)
			s.Close()
			return
		}
	}
}

// Close gracefully shuts down the simulator
func (s *EventSimulator) Close() {
	log.Println("Closing event simulator...")
	if err := s.producer.Close(); err != nil {
		log.Printf("Producer close error: %v", err)
	}
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	brokers := []string{getEnvOrDefault("KAFKA_BROKERS", "localhost:9092")}
	topic := getEnvOrDefault("KAFKA_TOPIC", "hotel.events")
	properties := []string{
		getEnvOrDefault("PROPERTY_ID", "property_001"),
		"property_002",
		"property_003",
	}

	frequencyMs := getEnvOrDefault("EVENT_FREQUENCY", "100")
	frequency, err := strconv.Atoi(frequencyMs)
	if err != nil {
		log.Fatalf("Invalid event frequency: %v", err)
	}

	log.Printf("Configuration: brokers=%v, topic=%s, frequency=%dms", brokers, topic, frequency)

	simulator, err := NewEventSimulator(brokers, topic, properties, time.Duration(frequency)*time.Millisecond)
	if err != nil {
		log.Fatalf("Failed to create event simulator: %v", err)
	}

	simulator.Start()
}
