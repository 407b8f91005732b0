package alerts

import (
	"context"
	"errors"

	"github.com/slack-go/slack"

	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/anomaly"
)

// ErrPublishFailed is returned when the webhook does not acknowledge a message.
var ErrPublishFailed = errors.New("publish failed")

// AckBody is the body Slack returns for an accepted webhook message.
const AckBody = "ok"

// Ack is the webhook's acknowledgment of a posted message.
type Ack struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

// Publisher posts a rendered anomaly message to a chat webhook.
type Publisher interface {
	// Name returns the publisher identifier.
	Name() string

	// Publish posts blocks to url. The event's text is sent as the notification fallback.
	Publish(ctx context.Context, url string, ev *anomaly.Event, blocks slack.Blocks) (*Ack, error)
}
