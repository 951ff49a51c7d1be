// Package main is the Lambda entry point for the mail forwarder.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"

	"github.com/maila-ai/ses-forwarder/internal/config"
	"github.com/maila-ai/ses-forwarder/internal/dispatch"
	"github.com/maila-ai/ses-forwarder/internal/dispatch/ses"
	"github.com/maila-ai/ses-forwarder/internal/dispatch/stdout"
	"github.com/maila-ai/ses-forwarder/internal/forwarder"
	"github.com/maila-ai/ses-forwarder/internal/llm"
	"github.com/maila-ai/ses-forwarder/internal/search"
	"github.com/maila-ai/ses-forwarder/internal/storage"
)

func main() {
	// A .env file is optional; real environment variables win.
	godotenv.Load()

	cfg, err := loadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging.Level)

	if !cfg.AnthropicConfigured() {
		slog.Error("the ANTHROPIC_API_KEY environment variable must be set")
		os.Exit(1)
	}

	ctx := context.Background()
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		slog.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	store := storage.New(s3.NewFromConfig(awsCfg), cfg.Store.Bucket, cfg.Store.KeyPrefix)
	sender := selectSender(cfg, awsCfg)
	drafter := newDrafter(cfg)

	fwd := forwarder.New(cfg.Routing, store, sender, drafter)

	slog.Info("starting ses-forwarder",
		"region", cfg.Region,
		"sender", sender.Name(),
		"bucket", cfg.Store.Bucket,
		"key_prefix", cfg.Store.KeyPrefix,
	)

	lambda.Start(func(ctx context.Context, ev events.SimpleEmailEvent) error {
		return fwd.Handle(ctx, ev)
	})
}

// loadConfig loads configuration from the specified path (YAML + env
// override) or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// loadAWSConfig builds the shared AWS SDK configuration, honoring static
// credentials when configured.
func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AWS.AccessKeyID != "" && cfg.AWS.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, ""),
		))
	}

	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectSender chooses the outbound transport based on configuration.
func selectSender(cfg *config.Config, awsCfg aws.Config) dispatch.Sender {
	switch cfg.Sender {
	case "stdout":
		slog.Info("using stdout sender")
		return stdout.New()
	case "ses", "":
		return ses.New(sesv2.NewFromConfig(awsCfg))
	default:
		slog.Error("unknown sender", "sender", cfg.Sender)
		os.Exit(1)
		return nil
	}
}

// newDrafter builds the completion-backed reply drafter. Web grounding is
// enabled only when a search endpoint is configured.
func newDrafter(cfg *config.Config) *llm.Drafter {
	client := llm.NewClient(cfg.Anthropic.APIKey, cfg.Anthropic.BaseURL)

	var searcher search.Searcher
	if cfg.Search.Endpoint != "" {
		searcher = search.New(cfg.Search.Endpoint, cfg.Search.BatchSize, cfg.Search.BatchDelay)
	}

	return llm.NewDrafter(client, searcher,
		cfg.Anthropic.Model,
		cfg.Anthropic.InstantModel,
		cfg.Anthropic.Signature,
	)
}
