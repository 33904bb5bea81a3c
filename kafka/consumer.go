package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"backend/models"

	"github.com/IBM/sarama"
)

// Consumer reads hotel business events from Kafka and hands validated events
// to the processing loop. Malformed events are rejected here, at the ingestion
// boundary, and never reach the engine.
type Consumer struct {
	group        sarama.ConsumerGroup
	topics       []string
	eventChannel chan *models.StreamEvent
	errorChannel chan error
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewConsumer creates a consumer group subscribed to the given topics.
func NewConsumer(brokers []string, groupID string, topics []string) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		group:        group,
		topics:       topics,
		eventChannel: make(chan *models.StreamEvent, 256),
		errorChannel: make(chan error, 10),
	}, nil
}

// EventChannel returns the channel of validated stream events.
func (c *Consumer) EventChannel() <-chan *models.StreamEvent {
	return c.eventChannel
}

// ErrorChannel returns the channel of consumer and validation errors.
func (c *Consumer) ErrorChannel() <-chan error {
	return c.errorChannel
}

// Start begins consuming in the background until Stop is called.
func (c *Consumer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(2)

	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			c.reportError(fmt.Errorf("consumer group error: %w", err))
		}
	}()

	go func() {
		defer c.wg.Done()
		handler := &eventHandler{consumer: c}
		for {
			if err := c.group.Consume(ctx, c.topics, handler); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.reportError(fmt.Errorf("consume session failed: %w", err))
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	log.Printf("Kafka consumer started, topics: %s", strings.Join(c.topics, ", "))
}

// Stop gracefully stops the consumer.
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	err := c.group.Close()
	c.wg.Wait()
	close(c.eventChannel)
	close(c.errorChannel)
	return err
}

func (c *Consumer) reportError(err error) {
	select {
	case c.errorChannel <- err:
	default:
		log.Printf("Error channel full, dropping error: %v", err)
	}
}

// eventHandler implements sarama.ConsumerGroupHandler.
type eventHandler struct {
	consumer *Consumer
}

func (h *eventHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *eventHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *eventHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		h.processMessage(msg)
		session.MarkMessage(msg, "")
	}
	return nil
}

func (h *eventHandler) processMessage(msg *sarama.ConsumerMessage) {
	var event models.StreamEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.consumer.reportError(fmt.Errorf("failed to unmarshal message at %s[%d]@%d: %w",
			msg.Topic, msg.Partition, msg.Offset, err))
		return
	}

	if err := ValidateEvent(&event); err != nil {
		h.consumer.reportError(fmt.Errorf("invalid event: %w", err))
		return
	}

	select {
	case h.consumer.eventChannel <- &event:
	default:
		log.Printf("Event channel full, dropping event %s from property %s",
			event.EventID, event.PropertyID)
	}
}

// ValidateEvent enforces the ingestion contract: required identifiers, a
// timestamp, and a recognized event type.
func ValidateEvent(event *models.StreamEvent) error {
	if event.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if event.PropertyID == "" {
		return fmt.Errorf("property_id is required")
	}
	if event.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if !models.ValidEventTypes[event.EventType] {
		return fmt.Errorf("unrecognized event type: %s", event.EventType)
	}
	return nil
}
