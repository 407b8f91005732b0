package anomaly

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// LinkedAccountKey is the root cause attribute that carries an AWS account id.
const LinkedAccountKey = "linkedAccount"

// Event is a decoded AWS Cost Anomaly Detection notification.
type Event struct {
	AnomalyID          string      `json:"anomalyId,omitempty"`
	AccountID          string      `json:"accountId,omitempty"`
	MonitorArn         string      `json:"monitorArn,omitempty"`
	SubscriptionName   string      `json:"subscriptionName,omitempty"`
	DimensionalValue   string      `json:"dimensionalValue,omitempty"`
	AnomalyStartDate   string      `json:"anomalyStartDate"`
	AnomalyEndDate     string      `json:"anomalyEndDate"`
	AnomalyDetailsLink string      `json:"anomalyDetailsLink"`
	AnomalyScore       *Score      `json:"anomalyScore,omitempty"`
	Impact             Impact      `json:"impact"`
	RootCauses         []RootCause `json:"rootCauses"`

	// Raw is the message body the event was decoded from.
	Raw string `json:"-"`
}

// Impact holds the cost figures of an anomaly. Amounts keep the digits the producer sent.
type Impact struct {
	TotalImpact           decimal.Decimal     `json:"totalImpact"`
	MaxImpact             decimal.NullDecimal `json:"maxImpact,omitempty"`
	TotalActualSpend      decimal.NullDecimal `json:"totalActualSpend,omitempty"`
	TotalExpectedSpend    decimal.NullDecimal `json:"totalExpectedSpend,omitempty"`
	TotalImpactPercentage decimal.NullDecimal `json:"totalImpactPercentage,omitempty"`
}

// Score is the anomaly detector's confidence score.
type Score struct {
	MaxScore     float64 `json:"maxScore"`
	CurrentScore float64 `json:"currentScore"`
}

// Text returns the plain-text form of the event used as a chat fallback.
func (e *Event) Text() string {
	if e.Raw != "" {
		return e.Raw
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf("%+v", *e)
	}
	return string(b)
}

// Attribute is one key/value pair of a root cause.
type Attribute struct {
	Key   string
	Value string
}

// RootCause is one contributing factor of an anomaly. Attributes keep the
// order in which the producer wrote them.
type RootCause struct {
	Attributes []Attribute
}

// NewRootCause builds a root cause from alternating key, value arguments.
func NewRootCause(kv ...string) RootCause {
	var rc RootCause
	for i := 0; i+1 < len(kv); i += 2 {
		rc.Set(kv[i], kv[i+1])
	}
	return rc
}

// Set stores value under key. An existing key keeps its position.
func (rc *RootCause) Set(key, value string) {
	for i := range rc.Attributes {
		if rc.Attributes[i].Key == key {
			rc.Attributes[i].Value = value
			return
		}
	}
	rc.Attributes = append(rc.Attributes, Attribute{Key: key, Value: value})
}

// Get returns the value stored under key.
func (rc RootCause) Get(key string) (string, bool) {
	for _, a := range rc.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Len returns the number of distinct keys.
func (rc RootCause) Len() int { return len(rc.Attributes) }

func (rc *RootCause) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read root cause: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("root cause must be an object, got %v", tok)
	}

	var out RootCause
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read root cause key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected root cause key %v", tok)
		}
		var value *string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("root cause attribute %q: %w", key, err)
		}
		if value == nil {
			return fmt.Errorf("root cause attribute %q must be a string, got null", key)
		}
		out.Set(key, *value)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read root cause end: %w", err)
	}

	*rc = out
	return nil
}

func (rc RootCause) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range rc.Attributes {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(a.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(a.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
