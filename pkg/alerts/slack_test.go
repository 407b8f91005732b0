package alerts_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/alerts"
	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/anomaly"
)

func testMessage() (*anomaly.Event, slack.Blocks) {
	ev := &anomaly.Event{
		Impact:             anomaly.Impact{TotalImpact: decimal.RequireFromString("12.5")},
		AnomalyStartDate:   "2024-03-01",
		AnomalyEndDate:     "2024-03-02",
		AnomalyDetailsLink: "https://example.com/anomaly",
		Raw:                `{"anomalyId":"abc"}`,
	}
	blocks := slack.Blocks{BlockSet: []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "hello", true, false)),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.PlainTextType, "service : EC2", false, false),
		}, nil),
	}}
	return ev, blocks
}

func TestSlackPublisher_Name(t *testing.T) {
	assert.Equal(t, "slack", alerts.NewSlackPublisher(0).Name())
}

func TestSlackPublisher_Publish(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, http.MethodPost, r.Method)

		err := json.NewDecoder(r.Body).Decode(&received)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	ev, blocks := testMessage()
	ack, err := alerts.NewSlackPublisher(5*time.Second).Publish(context.Background(), server.URL, ev, blocks)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, ack.StatusCode)
	assert.Equal(t, "ok", ack.Body)

	assert.Equal(t, `{"anomalyId":"abc"}`, received["text"])

	encoded, ok := received["blocks"].(string)
	require.True(t, ok, "blocks must be sent as a JSON-encoded string")

	var sent slack.Blocks
	require.NoError(t, json.Unmarshal([]byte(encoded), &sent))
	require.Len(t, sent.BlockSet, 2)
	assert.Equal(t, slack.MBTHeader, sent.BlockSet[0].BlockType())
	assert.Equal(t, "service : EC2", sent.BlockSet[1].(*slack.SectionBlock).Fields[0].Text)
}

func TestSlackPublisher_Publish_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	ev, blocks := testMessage()
	ack, err := alerts.NewSlackPublisher(0).Publish(context.Background(), server.URL, ev, blocks)
	require.Error(t, err)
	assert.ErrorIs(t, err, alerts.ErrPublishFailed)
	assert.Contains(t, err.Error(), "status 500")
	require.NotNil(t, ack)
	assert.Equal(t, http.StatusInternalServerError, ack.StatusCode)
}

func TestSlackPublisher_Publish_BadAck(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"invalid token", "invalid_token"},
		{"trailing newline", "ok\n"},
		{"no text", "no_text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			ev, blocks := testMessage()
			_, err := alerts.NewSlackPublisher(0).Publish(context.Background(), server.URL, ev, blocks)
			assert.ErrorIs(t, err, alerts.ErrPublishFailed)
		})
	}
}

func TestSlackPublisher_Publish_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	ev, blocks := testMessage()
	_, err := alerts.NewSlackPublisher(time.Second).Publish(context.Background(), url, ev, blocks)
	assert.ErrorIs(t, err, alerts.ErrPublishFailed)
}

func TestSlackPublisher_Publish_InvalidURL(t *testing.T) {
	ev, blocks := testMessage()
	_, err := alerts.NewSlackPublisher(0).Publish(context.Background(), "://bad", ev, blocks)
	assert.ErrorIs(t, err, alerts.ErrPublishFailed)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://hooks.slack.com/REDACTED", alerts.RedactURL("https://hooks.slack.com/services/T000/B000/XXXX"))
	assert.Equal(t, "https://example.com", alerts.RedactURL("https://example.com"))
	assert.Equal(t, "<invalid-url>", alerts.RedactURL("not a url"))
}
