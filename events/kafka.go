package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/IBM/sarama"
)

// KafkaConfig holds Kafka consumer configuration for the event feed.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// KafkaBus consumes provider job lifecycle events from a Kafka topic and
// fans them out to in-process subscribers. It satisfies Bus.
type KafkaBus struct {
	*InProcBus

	consumer sarama.ConsumerGroup
	topic    string
	groupID  string
	ready    chan bool
}

// NewKafkaBus creates a Kafka-backed event bus. Call Start before subscribing.
func NewKafkaBus(config KafkaConfig) (*KafkaBus, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	client, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}

	return &KafkaBus{
		InProcBus: NewInProcBus(),
		consumer:  client,
		topic:     config.Topic,
		groupID:   config.GroupID,
		ready:     make(chan bool),
	}, nil
}

// Start begins consuming job events and publishing them to subscribers.
func (b *KafkaBus) Start(ctx context.Context) error {
	handler := &jobEventHandler{bus: b.InProcBus, ready: b.ready}

	go func() {
		for {
			if err := b.consumer.Consume(ctx, []string{b.topic}, handler); err != nil {
				if err == context.Canceled {
					log.Println("Kafka event consumer context canceled")
					return
				}
				log.Printf("Error from Kafka event consumer: %v", err)
			}

			if ctx.Err() != nil {
				return
			}
			handler.ready = make(chan bool)
		}
	}()

	<-b.ready
	log.Printf("✅ Kafka event feed started (group: %s, topic: %s)", b.groupID, b.topic)

	go func() {
		for err := range b.consumer.Errors() {
			log.Printf("❌ Kafka event feed error: %v", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the consumer.
func (b *KafkaBus) Close() error {
	log.Println("Closing Kafka event feed...")
	return b.consumer.Close()
}

// jobEventHandler implements sarama.ConsumerGroupHandler by decoding each
// message as a JobEvent and publishing it to the in-process bus.
type jobEventHandler struct {
	bus   *InProcBus
	ready chan bool
}

func (h *jobEventHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

func (h *jobEventHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *jobEventHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			var ev JobEvent
			if err := json.Unmarshal(message.Value, &ev); err != nil {
				log.Printf("❌ Failed to unmarshal job event: %v", err)
				session.MarkMessage(message, "")
				continue
			}

			if ev.ProjectID == "" {
				log.Printf("❌ Job event missing project ID, skipping")
				session.MarkMessage(message, "")
				continue
			}

			h.bus.Publish(ev)
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
