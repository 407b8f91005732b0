package relay

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"

	"github.com/ogulcanaydogan/cost-anomaly-relay/internal/config"
	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/accounts"
	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/alerts"
	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/blocks"
	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/secrets"
)

// NewAWS builds a handler backed by Secrets Manager, Organizations and the
// Slack webhook publisher.
func NewAWS(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Secret.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	resolver := secrets.NewResolver(secretsmanager.NewFromConfig(awsCfg), cfg.Secret.Name)
	builder := blocks.NewBuilder(accounts.NewOrganizations(organizations.NewFromConfig(awsCfg)), logger)
	publisher := alerts.NewSlackPublisher(cfg.Slack.Timeout)

	return NewHandler(resolver, builder, publisher, logger), nil
}
