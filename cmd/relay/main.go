package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/ogulcanaydogan/cost-anomaly-relay/internal/config"
	"github.com/ogulcanaydogan/cost-anomaly-relay/internal/logging"
	"github.com/ogulcanaydogan/cost-anomaly-relay/internal/relay"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	handler, err := relay.NewAWS(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("init relay: %w", err)
	}

	logger.Info("relay started")
	lambda.Start(handler.Handle)
	return nil
}
