package relay

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/alerts"
	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/anomaly"
)

// SuccessMessage is returned once Slack has acknowledged the message.
const SuccessMessage = "Posted to Slack Channel Successfully"

// Response is the invocation result.
type Response struct {
	StatusCode      int    `json:"statusCode"`
	ResponseMessage string `json:"responseMessage"`
}

// WebhookURLResolver returns the webhook URL to post to.
type WebhookURLResolver interface {
	ResolveWebhookURL(ctx context.Context) (string, error)
}

// MessageBuilder renders an anomaly event as Block Kit blocks.
type MessageBuilder interface {
	Build(ctx context.Context, ev *anomaly.Event) (slack.Blocks, error)
}

// Handler relays one SNS anomaly notification to Slack per invocation.
type Handler struct {
	secrets   WebhookURLResolver
	builder   MessageBuilder
	publisher alerts.Publisher
	logger    *zap.Logger
}

// NewHandler wires the relay pipeline.
func NewHandler(secrets WebhookURLResolver, builder MessageBuilder, publisher alerts.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		secrets:   secrets,
		builder:   builder,
		publisher: publisher,
		logger:    logger,
	}
}

// Handle resolves the webhook URL, decodes the event, builds the message and
// posts it. Any failure aborts the invocation; nothing is posted partially.
func (h *Handler) Handle(ctx context.Context, envelope events.SNSEvent) (Response, error) {
	logger := h.logger.With(zap.String("request_id", requestID(ctx)))

	url, err := h.secrets.ResolveWebhookURL(ctx)
	if err != nil {
		logger.Error("resolve webhook url", zap.Error(err))
		return Response{}, fmt.Errorf("resolve webhook url: %w", err)
	}
	logger.Info("webhook url retrieved", zap.String("url", alerts.RedactURL(url)))

	if n := len(envelope.Records); n > 1 {
		logger.Warn("envelope carries more than one record, only the first is relayed", zap.Int("records", n))
	}

	ev, err := anomaly.Decode(envelope)
	if err != nil {
		logger.Error("decode anomaly event", zap.Error(err))
		return Response{}, fmt.Errorf("decode anomaly event: %w", err)
	}
	logger = logger.With(zap.String("anomaly_id", ev.AnomalyID))

	msg, err := h.builder.Build(ctx, ev)
	if err != nil {
		logger.Error("build slack message", zap.Error(err))
		return Response{}, fmt.Errorf("build slack message: %w", err)
	}

	ack, err := h.publisher.Publish(ctx, url, ev, msg)
	if err != nil {
		logger.Error("publish slack message", zap.String("publisher", h.publisher.Name()), zap.Error(err))
		return Response{}, fmt.Errorf("publish slack message: %w", err)
	}

	logger.Info("anomaly relayed",
		zap.String("publisher", h.publisher.Name()),
		zap.String("total_impact", ev.Impact.TotalImpact.String()),
		zap.Int("root_causes", len(ev.RootCauses)),
		zap.Int("blocks", len(msg.BlockSet)),
		zap.Int("status", ack.StatusCode),
	)

	return Response{StatusCode: 200, ResponseMessage: SuccessMessage}, nil
}

func requestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}
