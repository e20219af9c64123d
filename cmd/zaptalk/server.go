package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/zaptalk/zaptalk/pkg/actions/condition"
	"github.com/zaptalk/zaptalk/pkg/actions/sendbuttons"
	"github.com/zaptalk/zaptalk/pkg/actions/sendmedia"
	"github.com/zaptalk/zaptalk/pkg/actions/sendtemplate"
	"github.com/zaptalk/zaptalk/pkg/actions/sendtext"
	"github.com/zaptalk/zaptalk/pkg/actions/sendwebhook"
	"github.com/zaptalk/zaptalk/pkg/actions/setfield"
	"github.com/zaptalk/zaptalk/pkg/actions/splitpath"
	"github.com/zaptalk/zaptalk/pkg/actions/tags"
	"github.com/zaptalk/zaptalk/pkg/cache"
	"github.com/zaptalk/zaptalk/pkg/engine"
	"github.com/zaptalk/zaptalk/pkg/eventbus"
	kafkabus "github.com/zaptalk/zaptalk/pkg/eventbus/kafka"
	"github.com/zaptalk/zaptalk/pkg/log"
	"github.com/zaptalk/zaptalk/pkg/otelhelper"
	"github.com/zaptalk/zaptalk/pkg/persistence"
	"github.com/zaptalk/zaptalk/pkg/persistence/memory"
	"github.com/zaptalk/zaptalk/pkg/persistence/postgresql"
	"github.com/zaptalk/zaptalk/pkg/protocol"
	"github.com/zaptalk/zaptalk/pkg/registry"
	"github.com/zaptalk/zaptalk/pkg/trigger"
	"github.com/zaptalk/zaptalk/pkg/web"
	"github.com/zaptalk/zaptalk/pkg/whatsapp"
)

const templateCacheTTL = 5 * time.Minute

// Server owns the wired application: storage, event bus, engine and the
// HTTP trigger surface.
type Server struct {
	logger *slog.Logger
	store  persistence.Persistence
	bus    eventbus.EventBus
	app    *fiber.App
}

func NewServer(ctx context.Context, command *cli.Command) (*Server, error) {
	logger := log.WithModule("server")

	store, err := newPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return nil, err
	}

	templates, err := newTemplateCache(logger, command.String("redis-url"))
	if err != nil {
		return nil, err
	}

	bus, err := newEventBus(logger, command.String("kafka-brokers"), command.String("kafka-group-id"))
	if err != nil {
		return nil, err
	}

	messenger := whatsapp.NewClient(command.String("whatsapp-api-url"), logger)

	engineOpts := []engine.Option{engine.WithPublisher(bus)}

	if command.Bool("tracing") {
		tracer, err := newTracer(ctx)
		if err != nil {
			return nil, err
		}

		engineOpts = append(engineOpts, engine.WithTracer(tracer))
	}

	reg := newRegistry(logger, store, templates, messenger)
	eng := engine.New(store, reg, logger, engineOpts...)

	webhooks := trigger.NewWebhookService(store, eng, bus, logger)

	dispatcher := trigger.NewDispatcher(store, eng, logger)
	if err := dispatcher.Bind(bus); err != nil {
		return nil, fmt.Errorf("failed to bind trigger dispatcher: %w", err)
	}

	app := fiber.New(fiber.Config{AppName: "zaptalk"})
	web.NewTriggerHandlers(webhooks, store, logger).Register(app)

	return &Server{
		logger: logger,
		store:  store,
		bus:    bus,
		app:    app,
	}, nil
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context, port int) error {
	if err := s.bus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- s.app.Listen(fmt.Sprintf(":%d", port))
	}()

	s.logger.InfoContext(ctx, "Zaptalk trigger server started", "port", port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.InfoContext(ctx, "Shutting down")

	if err := s.app.Shutdown(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to shut down HTTP server", "error", err)
	}

	if err := s.bus.Close(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
	}

	return s.store.Close(ctx)
}

func newPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	if databaseURL == "" {
		logger.WarnContext(ctx, "No database URL configured, using in-memory storage")

		return memory.NewPersistence(), nil
	}

	return postgresql.NewPersistence(ctx, logger, databaseURL)
}

func newTemplateCache(logger *slog.Logger, redisURL string) (cache.TemplateCache, error) {
	if redisURL == "" {
		return cache.NewMemoryCache(), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	return cache.NewRedisCache(redis.NewClient(opts), logger, templateCacheTTL), nil
}

func newEventBus(logger *slog.Logger, brokers, groupID string) (eventbus.EventBus, error) {
	if brokers == "" {
		return eventbus.NewChannelEventBus(), nil
	}

	return kafkabus.NewEventBus(strings.Split(brokers, ","), groupID, logger)
}

func newTracer(ctx context.Context) (trace.Tracer, error) {
	tracer, err := otelhelper.NewTracer(ctx, "zaptalk")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	return tracer, nil
}

func newRegistry(logger *slog.Logger, store persistence.Persistence, templates cache.TemplateCache, messenger protocol.Messenger) *registry.Registry {
	reg := registry.New(logger)

	reg.Register(sendtemplate.NewFactory(store, templates, messenger))
	reg.Register(sendtext.NewFactory(messenger))
	reg.Register(sendmedia.NewFactory(messenger))
	reg.Register(sendbuttons.NewFactory(messenger))
	reg.Register(tags.NewAddFactory())
	reg.Register(tags.NewRemoveFactory())
	reg.Register(setfield.NewFactory())
	reg.Register(sendwebhook.NewFactory())
	reg.Register(condition.NewFactory())
	reg.Register(splitpath.NewFactory())

	return reg
}
