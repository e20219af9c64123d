// Package kafka provides the Kafka-backed event bus used in multi-worker
// deployments.
package kafka

import (
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	wkafka "github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"

	"github.com/zaptalk/zaptalk/pkg/eventbus"
)

const defaultConsumerGroup = "cg-zaptalk-event-bus"

// NewEventBus wires a watermill Kafka publisher/subscriber pair into the
// shared EventBus implementation.
func NewEventBus(brokers []string, consumerGroup string, logger *slog.Logger) (eventbus.EventBus, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no Kafka brokers configured")
	}

	if consumerGroup == "" {
		consumerGroup = defaultConsumerGroup
	}

	wmLogger := watermill.NewSlogLogger(logger)

	publisher, err := wkafka.NewPublisher(wkafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: wkafka.DefaultMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	saramaConfig := wkafka.DefaultSaramaSubscriberConfig()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := wkafka.NewSubscriber(wkafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           wkafka.DefaultMarshaler{},
		OverwriteSaramaConfig: saramaConfig,
		ConsumerGroup:         consumerGroup,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}

	return eventbus.NewWatermillEventBus(publisher, subscriber), nil
}
