package blocks_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/accounts"
	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/anomaly"
	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/blocks"
)

type countingResolver struct {
	names map[string]string
	calls int
}

func (c *countingResolver) AccountName(ctx context.Context, id string) (string, error) {
	c.calls++
	return accounts.Static(c.names).AccountName(ctx, id)
}

func testEvent(rootCauses ...anomaly.RootCause) *anomaly.Event {
	return &anomaly.Event{
		Impact:             anomaly.Impact{TotalImpact: decimal.RequireFromString("123.45")},
		AnomalyStartDate:   "2024-03-01T00:00:00Z",
		AnomalyEndDate:     "2024-03-02T00:00:00Z",
		AnomalyDetailsLink: "https://console.aws.amazon.com/cost-management/home#/anomaly-detection",
		RootCauses:         rootCauses,
	}
}

func sectionText(t *testing.T, b slack.Block) string {
	t.Helper()
	s, ok := b.(*slack.SectionBlock)
	require.True(t, ok, "expected section block, got %T", b)
	require.NotNil(t, s.Text)
	assert.Empty(t, s.Fields)
	return s.Text.Text
}

func fieldTexts(t *testing.T, b slack.Block) []string {
	t.Helper()
	s, ok := b.(*slack.SectionBlock)
	require.True(t, ok, "expected section block, got %T", b)
	assert.Nil(t, s.Text)
	var out []string
	for _, f := range s.Fields {
		assert.Equal(t, slack.PlainTextType, f.Type)
		out = append(out, f.Text)
	}
	return out
}

func TestBuild_Layout(t *testing.T) {
	b := blocks.NewBuilder(nil, nil)
	ev := testEvent(
		anomaly.NewRootCause("service", "AmazonCloudWatch", "region", "eu-west-1"),
		anomaly.NewRootCause("usageType", "DataTransfer-Out-Bytes"),
	)

	msg, err := b.Build(context.Background(), ev)
	require.NoError(t, err)
	require.Len(t, msg.BlockSet, 8)

	header, ok := msg.BlockSet[0].(*slack.HeaderBlock)
	require.True(t, ok)
	assert.Equal(t, slack.PlainTextType, header.Text.Type)
	assert.Equal(t, ":warning: Cost Anomaly Detected ", header.Text.Text)

	assert.Equal(t, "*Total Anomaly Cost*: $123.45", sectionText(t, msg.BlockSet[1]))
	assert.Equal(t, "*Anomaly Start Date*: 2024-03-01T00:00:00Z", sectionText(t, msg.BlockSet[2]))
	assert.Equal(t, "*Anomaly End Date*: 2024-03-02T00:00:00Z", sectionText(t, msg.BlockSet[3]))
	assert.Equal(t, "*Anomaly Details Link*: https://console.aws.amazon.com/cost-management/home#/anomaly-detection", sectionText(t, msg.BlockSet[4]))
	assert.Equal(t, "*Root Causes* :mag:", sectionText(t, msg.BlockSet[5]))

	for i := 1; i <= 5; i++ {
		assert.Equal(t, slack.MarkdownType, msg.BlockSet[i].(*slack.SectionBlock).Text.Type)
	}

	assert.Equal(t, []string{"service : AmazonCloudWatch", "region : eu-west-1"}, fieldTexts(t, msg.BlockSet[6]))
	assert.Equal(t, []string{"usageType : DataTransfer-Out-Bytes"}, fieldTexts(t, msg.BlockSet[7]))
}

func TestBuild_LinkedAccount(t *testing.T) {
	resolver := &countingResolver{names: map[string]string{"111122223333": "Prod-Account"}}
	b := blocks.NewBuilder(resolver, nil)

	msg, err := b.Build(context.Background(), testEvent(
		anomaly.NewRootCause("linkedAccount", "111122223333", "service", "EC2"),
	))
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"accountName : Prod-Account", "linkedAccount : 111122223333", "service : EC2"},
		fieldTexts(t, msg.BlockSet[6]),
	)
	assert.Equal(t, 1, resolver.calls)
}

func TestBuild_AccountNameBeforeLinkedAccountMidway(t *testing.T) {
	resolver := &countingResolver{names: map[string]string{"111122223333": "Prod-Account", "444455556666": "Dev"}}
	b := blocks.NewBuilder(resolver, nil)

	msg, err := b.Build(context.Background(), testEvent(
		anomaly.NewRootCause("service", "EC2", "linkedAccount", "111122223333", "region", "us-east-1"),
		anomaly.NewRootCause("linkedAccount", "444455556666"),
	))
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"service : EC2", "accountName : Prod-Account", "linkedAccount : 111122223333", "region : us-east-1"},
		fieldTexts(t, msg.BlockSet[6]),
	)
	assert.Equal(t, []string{"accountName : Dev", "linkedAccount : 444455556666"}, fieldTexts(t, msg.BlockSet[7]))
	assert.Equal(t, 2, resolver.calls)
}

func TestBuild_LookupFailureAborts(t *testing.T) {
	b := blocks.NewBuilder(accounts.Static{}, nil)

	_, err := b.Build(context.Background(), testEvent(
		anomaly.NewRootCause("linkedAccount", "111122223333"),
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, accounts.ErrAccountLookupFailed)
}

func TestBuild_NilResolverWithLinkedAccount(t *testing.T) {
	_, err := blocks.NewBuilder(nil, nil).Build(context.Background(), testEvent(
		anomaly.NewRootCause("linkedAccount", "111122223333"),
	))
	assert.ErrorIs(t, err, accounts.ErrAccountLookupFailed)
}

func TestBuild_EmptyRootCauseRejected(t *testing.T) {
	_, err := blocks.NewBuilder(nil, nil).Build(context.Background(), testEvent(anomaly.RootCause{}))
	assert.ErrorIs(t, err, blocks.ErrInvalidSpan)
}

func TestBuild_SpanCount(t *testing.T) {
	resolver := accounts.Static{"1": "one", "2": "two"}
	tests := []struct {
		name       string
		rootCauses []anomaly.RootCause
	}{
		{"none", nil},
		{"single", []anomaly.RootCause{anomaly.NewRootCause("service", "EC2")}},
		{"mixed", []anomaly.RootCause{
			anomaly.NewRootCause("service", "EC2", "region", "us-east-1", "linkedAccount", "1"),
			anomaly.NewRootCause("usageType", "x"),
			anomaly.NewRootCause("linkedAccount", "2", "service", "S3"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := blocks.NewBuilder(resolver, nil).Build(context.Background(), testEvent(tt.rootCauses...))
			require.NoError(t, err)

			keys, linked := 0, 0
			for _, rc := range tt.rootCauses {
				keys += rc.Len()
				if _, ok := rc.Get(anomaly.LinkedAccountKey); ok {
					linked++
				}
			}
			assert.Equal(t, 6+keys+linked, blocks.SpanCount(msg))
			assert.Len(t, msg.BlockSet, 6+len(tt.rootCauses))
		})
	}
}

func TestBuild_TotalCostKeepsSourceDigits(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"123.45", "*Total Anomaly Cost*: $123.45"},
		{"0.001234", "*Total Anomaly Cost*: $0.001234"},
		{"1500", "*Total Anomaly Cost*: $1500"},
		{"100.0", "*Total Anomaly Cost*: $100.0"},
		{"1500.00", "*Total Anomaly Cost*: $1500.0"},
		{"123.450", "*Total Anomaly Cost*: $123.45"},
		{"1e3", "*Total Anomaly Cost*: $1000.0"},
	}
	for _, tt := range tests {
		ev := testEvent()
		ev.Impact.TotalImpact = decimal.RequireFromString(tt.in)

		msg, err := blocks.NewBuilder(nil, nil).Build(context.Background(), ev)
		require.NoError(t, err)
		assert.Equal(t, tt.want, sectionText(t, msg.BlockSet[1]))
	}
}

func TestBuild_JSONRoundTrip(t *testing.T) {
	msg, err := blocks.NewBuilder(accounts.Static{"111122223333": "Prod-Account"}, nil).Build(context.Background(), testEvent(
		anomaly.NewRootCause("linkedAccount", "111122223333", "service", "EC2"),
	))
	require.NoError(t, err)

	first, err := json.Marshal(msg)
	require.NoError(t, err)

	var parsed slack.Blocks
	require.NoError(t, json.Unmarshal(first, &parsed))
	require.Len(t, parsed.BlockSet, len(msg.BlockSet))

	second, err := json.Marshal(parsed)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(first, &raw))
	assert.Equal(t, "header", raw[0]["type"])
	assert.Equal(t, true, raw[0]["text"].(map[string]any)["emoji"])
	assert.NotContains(t, raw[1]["text"].(map[string]any), "emoji")
	assert.Equal(t, "section", raw[6]["type"])
	assert.NotContains(t, raw[6], "text")
	assert.Len(t, raw[6]["fields"], 3)
}
