package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/slack-go/slack"

	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/anomaly"
)

const maxAckBody = 64 << 10

// SlackPublisher posts Block Kit messages to a Slack incoming webhook.
type SlackPublisher struct {
	client *http.Client
}

// NewSlackPublisher creates a Slack webhook publisher. A zero timeout leaves
// the request bounded only by its context.
func NewSlackPublisher(timeout time.Duration) *SlackPublisher {
	return &SlackPublisher{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *SlackPublisher) Name() string { return "slack" }

func (s *SlackPublisher) Publish(ctx context.Context, webhookURL string, ev *anomaly.Event, blocks slack.Blocks) (*Ack, error) {
	encoded, err := json.Marshal(blocks)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal blocks: %w", ErrPublishFailed, err)
	}

	body, err := json.Marshal(slackPayload{
		Text:   ev.Text(),
		Blocks: string(encoded),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal slack payload: %w", ErrPublishFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create slack request: %w", ErrPublishFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send slack message: %w", ErrPublishFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAckBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read slack response: %w", ErrPublishFailed, err)
	}

	ack := &Ack{StatusCode: resp.StatusCode, Body: string(respBody)}
	if resp.StatusCode != http.StatusOK {
		return ack, fmt.Errorf("%w: slack returned status %d: %s", ErrPublishFailed, resp.StatusCode, ack.Body)
	}
	if ack.Body != AckBody {
		return ack, fmt.Errorf("%w: slack returned body %q, want %q", ErrPublishFailed, ack.Body, AckBody)
	}
	return ack, nil
}

// slackPayload carries blocks as a JSON-encoded string alongside the fallback text.
type slackPayload struct {
	Text   string `json:"text"`
	Blocks string `json:"blocks"`
}

// RedactURL hides the path and query of a webhook URL, which carry its token.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "<invalid-url>"
	}
	redacted := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		redacted += "/REDACTED"
	}
	return redacted
}
