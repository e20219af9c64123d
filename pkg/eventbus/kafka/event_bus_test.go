package kafka_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaTc "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/zaptalk/zaptalk/pkg/eventbus/kafka"
	"github.com/zaptalk/zaptalk/pkg/events"
)

var (
	kafkaContainer *kafkaTc.KafkaContainer
	brokers        []string
	logger         *slog.Logger
)

func TestMain(m *testing.M) {
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx := context.Background()

	var err error

	kafkaContainer, err = kafkaTc.Run(ctx, "confluentinc/confluent-local:7.7.0", testcontainers.WithEnv(map[string]string{
		"KAFKA_CREATE_TOPICS": "true",
	}))
	if err != nil {
		panic("Failed to start Kafka container: " + err.Error())
	}

	brokers, err = kafkaContainer.Brokers(ctx)
	if err != nil {
		panic("Failed to get Kafka brokers: " + err.Error())
	}

	createTopic(brokers)

	code := m.Run()

	if err := kafkaContainer.Terminate(ctx); err != nil {
		panic("Failed to terminate Kafka container: " + err.Error())
	}

	os.Exit(code)
}

func createTopic(brokers []string) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0

	admin, err := sarama.NewClusterAdmin(brokers, config)
	if err != nil {
		panic("Failed to connect cluster admin: " + err.Error())
	}

	defer func() {
		if err := admin.Close(); err != nil {
			panic(err.Error())
		}
	}()

	err = admin.CreateTopic(events.Topic, &sarama.TopicDetail{
		NumPartitions:     1,
		ReplicationFactor: 1,
	}, false)
	if err != nil {
		panic("Failed to create topic: " + err.Error())
	}
}

func TestNewEventBus(t *testing.T) {
	bus, err := kafka.NewEventBus(brokers, "", logger)
	require.NoError(t, err)
	require.NotNil(t, bus)

	assert.NoError(t, bus.Close())
}

func TestNewEventBusNoBrokers(t *testing.T) {
	bus, err := kafka.NewEventBus(nil, "", logger)
	assert.Error(t, err)
	assert.Nil(t, bus)
}

func TestPublishAndSubscribe(t *testing.T) {
	bus, err := kafka.NewEventBus(brokers, "cg-test-roundtrip", logger)
	require.NoError(t, err)

	defer func() {
		assert.NoError(t, bus.Close())
	}()

	received := make(chan *events.ContactCreated, 1)

	err = bus.Handle(events.ContactCreatedEvent, func(_ context.Context, event any) error {
		if created, ok := event.(*events.ContactCreated); ok {
			received <- created
		}

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// Give the consumer group time to join before the first publish.
	time.Sleep(2 * time.Second)

	event := events.ContactCreated{
		BaseEvent: events.NewBaseEvent(events.ContactCreatedEvent, "owner-1"),
		ContactID: "contact-1",
	}
	require.NoError(t, bus.Publish(ctx, "owner-1", event))

	select {
	case got := <-received:
		assert.Equal(t, "contact-1", got.ContactID)
		assert.Equal(t, events.ContactCreatedEvent, got.Type)
	case <-time.After(10 * time.Second):
		t.Fatal("Did not receive event within timeout")
	}
}

func TestMultipleEventTypes(t *testing.T) {
	bus, err := kafka.NewEventBus(brokers, "cg-test-multi", logger)
	require.NoError(t, err)

	defer func() {
		assert.NoError(t, bus.Close())
	}()

	received := make(chan events.EventType, 2)

	err = bus.Handle(events.ContactTaggedEvent, func(_ context.Context, event any) error {
		if tagged, ok := event.(*events.ContactTagged); ok {
			received <- tagged.GetType()
		}

		return nil
	})
	require.NoError(t, err)

	err = bus.Handle(events.RunCompletedEvent, func(_ context.Context, event any) error {
		if completed, ok := event.(*events.RunCompleted); ok {
			received <- completed.GetType()
		}

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	time.Sleep(2 * time.Second)

	tagged := events.ContactTagged{
		BaseEvent: events.NewBaseEvent(events.ContactTaggedEvent, "owner-1"),
		ContactID: "contact-1",
		Tag:       "vip",
	}
	require.NoError(t, bus.Publish(ctx, "owner-1", tagged))

	completed := events.RunCompleted{
		BaseEvent: events.NewBaseEvent(events.RunCompletedEvent, "owner-1"),
		RunID:     "run-1",
	}
	require.NoError(t, bus.Publish(ctx, "owner-1", completed))

	got := make(map[events.EventType]bool)

	for range 2 {
		select {
		case eventType := <-received:
			got[eventType] = true
		case <-time.After(10 * time.Second):
			t.Fatal("Did not receive all events within timeout")
		}
	}

	assert.True(t, got[events.ContactTaggedEvent])
	assert.True(t, got[events.RunCompletedEvent])
}
