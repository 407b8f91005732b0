package anomaly

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/shopspring/decimal"
)

// ErrMalformedEvent is returned when the SNS envelope or the anomaly record
// inside it cannot be decoded.
var ErrMalformedEvent = errors.New("malformed anomaly event")

// wireEvent mirrors Event with pointers so missing fields can be told apart
// from zero values.
type wireEvent struct {
	AnomalyID          string       `json:"anomalyId"`
	AccountID          string       `json:"accountId"`
	MonitorArn         string       `json:"monitorArn"`
	SubscriptionName   string       `json:"subscriptionName"`
	DimensionalValue   string       `json:"dimensionalValue"`
	AnomalyStartDate   *string      `json:"anomalyStartDate"`
	AnomalyEndDate     *string      `json:"anomalyEndDate"`
	AnomalyDetailsLink *string      `json:"anomalyDetailsLink"`
	AnomalyScore       *Score       `json:"anomalyScore"`
	Impact             *wireImpact  `json:"impact"`
	RootCauses         *[]RootCause `json:"rootCauses"`
}

type wireImpact struct {
	TotalImpact           *decimal.Decimal    `json:"totalImpact"`
	MaxImpact             decimal.NullDecimal `json:"maxImpact"`
	TotalActualSpend      decimal.NullDecimal `json:"totalActualSpend"`
	TotalExpectedSpend    decimal.NullDecimal `json:"totalExpectedSpend"`
	TotalImpactPercentage decimal.NullDecimal `json:"totalImpactPercentage"`
}

// Decode extracts the anomaly record carried by the first SNS record.
func Decode(envelope events.SNSEvent) (*Event, error) {
	if len(envelope.Records) == 0 {
		return nil, fmt.Errorf("%w: envelope has no records", ErrMalformedEvent)
	}
	return DecodeMessage([]byte(envelope.Records[0].SNS.Message))
}

// DecodeMessage decodes an anomaly record from a raw SNS message body.
func DecodeMessage(message []byte) (*Event, error) {
	if len(strings.TrimSpace(string(message))) == 0 {
		return nil, fmt.Errorf("%w: empty message body", ErrMalformedEvent)
	}

	var w wireEvent
	if err := json.Unmarshal(message, &w); err != nil {
		return nil, fmt.Errorf("%w: decode message: %v", ErrMalformedEvent, err)
	}

	var missing []string
	if w.Impact == nil || w.Impact.TotalImpact == nil {
		missing = append(missing, "impact.totalImpact")
	}
	if w.AnomalyStartDate == nil {
		missing = append(missing, "anomalyStartDate")
	}
	if w.AnomalyEndDate == nil {
		missing = append(missing, "anomalyEndDate")
	}
	if w.AnomalyDetailsLink == nil {
		missing = append(missing, "anomalyDetailsLink")
	}
	if w.RootCauses == nil {
		missing = append(missing, "rootCauses")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedEvent, strings.Join(missing, ", "))
	}

	for i, rc := range *w.RootCauses {
		if rc.Len() == 0 {
			return nil, fmt.Errorf("%w: root cause %d has no attributes", ErrMalformedEvent, i)
		}
	}

	return &Event{
		AnomalyID:          w.AnomalyID,
		AccountID:          w.AccountID,
		MonitorArn:         w.MonitorArn,
		SubscriptionName:   w.SubscriptionName,
		DimensionalValue:   w.DimensionalValue,
		AnomalyStartDate:   *w.AnomalyStartDate,
		AnomalyEndDate:     *w.AnomalyEndDate,
		AnomalyDetailsLink: *w.AnomalyDetailsLink,
		AnomalyScore:       w.AnomalyScore,
		Impact: Impact{
			TotalImpact:           *w.Impact.TotalImpact,
			MaxImpact:             w.Impact.MaxImpact,
			TotalActualSpend:      w.Impact.TotalActualSpend,
			TotalExpectedSpend:    w.Impact.TotalExpectedSpend,
			TotalImpactPercentage: w.Impact.TotalImpactPercentage,
		},
		RootCauses: *w.RootCauses,
		Raw:        string(message),
	}, nil
}
