package cli

import (
	"context"
	"errors"
	"fmt"

	"example.com/snapgram/cmd/server"
	appkafka "example.com/snapgram/internal/broker"
	"example.com/snapgram/internal/filestore"
	config "example.com/snapgram/internal/init"
	"example.com/snapgram/internal/service"
	"example.com/snapgram/internal/store"
	"example.com/snapgram/internal/webhook"
	"github.com/spf13/cobra"
)

// NewServerCommand creates the server command.
func NewServerCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Serve the HTTP API and the identity webhook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Init(rootOpts.ConfigFile)
			return withSignals(cmd.Context(), func(ctx context.Context) error {
				return runServer(ctx, cfg)
			})
		},
	}
}

func kafkaConfig(cfg *config.Config) appkafka.KafkaConfig {
	return appkafka.KafkaConfig{
		Brokers:      []string{cfg.KafkaBroker},
		Topic:        cfg.KafkaTopic,
		GroupID:      cfg.KafkaGroupID,
		WriteTimeout: cfg.KafkaWriteTO,
		ReadTimeout:  cfg.KafkaReadTO,
		BatchTimeout: cfg.KafkaBatchTO,
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	st, err := store.New(cfg)
	if err != nil {
		return fmt.Errorf("cassandra connection failed: %w", err)
	}
	defer st.Close()

	writer, err := appkafka.NewKafkaWriter(kafkaConfig(cfg))
	if err != nil {
		return fmt.Errorf("kafka writer init failed: %w", err)
	}
	defer writer.Close()

	files, err := filestore.NewS3FileStore(cfg)
	if err != nil {
		return fmt.Errorf("s3 init failed: %w", err)
	}

	svc := service.New(st, files, appkafka.NewEventPublisher(writer))

	if cfg.ClerkWebhookSecret == "" {
		logg.Error("main", "CLERK_WEBHOOK_SECRET not set, /clerk-webhook will reject every delivery", nil)
	}
	hook, err := webhook.NewHandler(svc, cfg.ClerkWebhookSecret)
	if err != nil {
		return fmt.Errorf("webhook init failed: %w", err)
	}

	srv := server.New(svc, hook, server.Options{
		JWTSecret:      []byte(cfg.JWTSecret),
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})
	server.Run(ctx, srv, cfg.ServerAddr, cfg.TLSCert, cfg.TLSKey)
	return nil
}
