package blocks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/accounts"
	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/anomaly"
)

// Message labels.
const (
	HeaderText       = ":warning: Cost Anomaly Detected "
	TotalCostLabel   = "*Total Anomaly Cost*: $"
	StartDateLabel   = "*Anomaly Start Date*: "
	EndDateLabel     = "*Anomaly End Date*: "
	DetailsLinkLabel = "*Anomaly Details Link*: "
	RootCausesText   = "*Root Causes* :mag:"

	// AccountNameKey is the synthesized field placed before each linkedAccount field.
	AccountNameKey = "accountName"
)

// ErrInvalidSpan is returned when a text span violates Block Kit rules.
var ErrInvalidSpan = errors.New("invalid text span")

// Builder turns anomaly events into Slack Block Kit messages.
type Builder struct {
	accounts accounts.Resolver
	logger   *zap.Logger
}

// NewBuilder creates a builder. resolver may be nil when events carry no
// linkedAccount attributes.
func NewBuilder(resolver accounts.Resolver, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{accounts: resolver, logger: logger}
}

// Build lays out the message: a header, four summary sections, a root
// causes label and one fields section per root cause.
func (b *Builder) Build(ctx context.Context, ev *anomaly.Event) (slack.Blocks, error) {
	header, err := span(slack.PlainTextType, HeaderText, true)
	if err != nil {
		return slack.Blocks{}, err
	}
	set := []slack.Block{slack.NewHeaderBlock(header)}

	for _, text := range []string{
		TotalCostLabel + formatCost(ev.Impact.TotalImpact),
		StartDateLabel + ev.AnomalyStartDate,
		EndDateLabel + ev.AnomalyEndDate,
		DetailsLinkLabel + ev.AnomalyDetailsLink,
		RootCausesText,
	} {
		s, err := span(slack.MarkdownType, text, false)
		if err != nil {
			return slack.Blocks{}, err
		}
		set = append(set, slack.NewSectionBlock(s, nil, nil))
	}

	for i, rc := range ev.RootCauses {
		fields, err := b.rootCauseFields(ctx, rc)
		if err != nil {
			return slack.Blocks{}, fmt.Errorf("root cause %d: %w", i, err)
		}
		set = append(set, slack.NewSectionBlock(nil, fields, nil))
	}

	return slack.Blocks{BlockSet: set}, nil
}

func (b *Builder) rootCauseFields(ctx context.Context, rc anomaly.RootCause) ([]*slack.TextBlockObject, error) {
	if rc.Len() == 0 {
		return nil, fmt.Errorf("%w: root cause has no attributes", ErrInvalidSpan)
	}

	fields := make([]*slack.TextBlockObject, 0, rc.Len()+1)
	for _, attr := range rc.Attributes {
		if attr.Key == anomaly.LinkedAccountKey {
			name, err := b.accountName(ctx, attr.Value)
			if err != nil {
				return nil, err
			}
			f, err := span(slack.PlainTextType, field(AccountNameKey, name), false)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}

		f, err := span(slack.PlainTextType, field(attr.Key, attr.Value), false)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func (b *Builder) accountName(ctx context.Context, accountID string) (string, error) {
	if b.accounts == nil {
		return "", fmt.Errorf("%w: no account resolver for %s", accounts.ErrAccountLookupFailed, accountID)
	}
	name, err := b.accounts.AccountName(ctx, accountID)
	if err != nil {
		return "", err
	}
	b.logger.Debug("resolved linked account", zap.String("account_id", accountID), zap.String("account_name", name))
	return name, nil
}

// formatCost prints an amount the way the producer typed it. Integers stay
// integers; amounts written with a fraction or exponent keep at least one
// decimal place (100.0, 1e3 -> 1000.0) with trailing zeros beyond it dropped.
func formatCost(d decimal.Decimal) string {
	s := d.String()
	if d.Exponent() != 0 && !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func field(key, value string) string {
	return key + " : " + value
}

// span builds a text object. emoji is only allowed on plain_text.
func span(kind, text string, emoji bool) (*slack.TextBlockObject, error) {
	switch kind {
	case slack.PlainTextType:
	case slack.MarkdownType:
		if emoji {
			return nil, fmt.Errorf("%w: emoji set on %s span", ErrInvalidSpan, kind)
		}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidSpan, kind)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: empty %s text", ErrInvalidSpan, kind)
	}
	return slack.NewTextBlockObject(kind, text, emoji, false), nil
}

// SpanCount returns the number of text spans in blocks: one per header or
// text section, plus one per field.
func SpanCount(blocks slack.Blocks) int {
	n := 0
	for _, block := range blocks.BlockSet {
		switch bl := block.(type) {
		case *slack.HeaderBlock:
			n++
		case *slack.SectionBlock:
			if bl.Text != nil {
				n++
			}
			n += len(bl.Fields)
		}
	}
	return n
}
