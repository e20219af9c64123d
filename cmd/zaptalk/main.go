package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/zaptalk/zaptalk/pkg/log"
)

const defaultPort = 9090

func main() {
	cmd := &cli.Command{
		Name:                  "zaptalk",
		Usage:                 "WhatsApp automation engine",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the trigger server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL connection URL; in-memory storage when empty",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the template cache; in-process cache when empty",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka brokers; in-process bus when empty",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "kafka-group-id",
				Usage:   "Kafka consumer group",
				Sources: cli.EnvVars("KAFKA_GROUP_ID"),
			},
			&cli.StringFlag{
				Name:    "whatsapp-api-url",
				Usage:   "WhatsApp Business API base URL",
				Value:   "https://graph.facebook.com/v21.0",
				Sources: cli.EnvVars("WHATSAPP_API_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OTLP trace export",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			server, err := NewServer(ctx, command)
			if err != nil {
				return err
			}

			return server.Run(ctx, command.Int("port"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.WithModule("main").Error("zaptalk exited with error", "error", err)
		os.Exit(1)
	}
}
