package alerts

import (
	"fmt"
	"math/rand"
	"time"

	telemetry "cement-cloud/internal/telemetry/domain"
)

// Severity is the level of an emitted log event.
type Severity string

const (
	SeverityAlert   Severity = "Alert"
	SeverityWarning Severity = "Warning"
	SeverityInfo    Severity = "Info"
)

type Operator string

const (
	OperatorGreater Operator = ">"
	OperatorLess    Operator = "<"
)

// Event is one classified log entry. Produced fresh per evaluation,
// never persisted; the id is the wall-clock classification time.
type Event struct {
	ID      string   `json:"id"`
	Level   Severity `json:"level"`
	Message string   `json:"message"`
}

// Rule is one threshold check against a numeric record field. The
// comparison is strict: a value exactly at the threshold does not match.
type Rule struct {
	Field     string
	Operator  Operator
	Threshold float64
	Severity  Severity
	Format    string
}

// Matches evaluates the rule against a record. Missing or non-numeric
// fields never match.
func (r Rule) Matches(record telemetry.Record) bool {
	value, ok := record.Float(r.Field)
	if !ok {
		return false
	}
	switch r.Operator {
	case OperatorGreater:
		return value > r.Threshold
	case OperatorLess:
		return value < r.Threshold
	default:
		return false
	}
}

// defaultRules in escalation order: more severe checked first, first
// match wins.
var defaultRules = []Rule{
	{Field: "spc", Operator: OperatorGreater, Threshold: 950, Severity: SeverityAlert, Format: "Critical SPC: %.1f kWh/t!"},
	{Field: "co2", Operator: OperatorGreater, Threshold: 22, Severity: SeverityAlert, Format: "Critical CO2: %.2f t/t!"},
	{Field: "clinker_quality", Operator: OperatorLess, Threshold: 35, Severity: SeverityAlert, Format: "Critical Quality: %.1f%%!"},
	{Field: "spc", Operator: OperatorGreater, Threshold: 880, Severity: SeverityWarning, Format: "High SPC: %.1f kWh/t."},
	{Field: "co2", Operator: OperatorGreater, Threshold: 18, Severity: SeverityWarning, Format: "High CO2: %.2f t/t."},
	{Field: "clinker_quality", Operator: OperatorLess, Threshold: 38, Severity: SeverityWarning, Format: "Quality Drop: %.1f%%."},
}

const (
	heartbeatProbability = 0.2
	heartbeatField       = "tsr"
	heartbeatFormat      = "System stable. TSR: %.1f%%."
)

// Classifier maps one telemetry record to an optional event. Stateless
// across calls; the random source drives the residual Info heartbeat.
type Classifier struct {
	rules     []Rule
	now       func() time.Time
	randFloat func() float64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock overrides the event id clock.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// WithRandSource overrides the heartbeat random source. Tests inject a
// fixed draw; production keeps the probabilistic behavior.
func WithRandSource(randFloat func() float64) Option {
	return func(c *Classifier) { c.randFloat = randFloat }
}

// NewClassifier constructs a classifier with the built-in rule table.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		rules:     defaultRules,
		now:       time.Now,
		randFloat: rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify evaluates the rules in order and returns the first match,
// or a probabilistic Info heartbeat, or nil. Re-evaluating the same
// record may yield a different Info/nil outcome; that is simulated log
// noise, not caching misbehavior.
func (c *Classifier) Classify(record telemetry.Record) *Event {
	for _, rule := range c.rules {
		if !rule.Matches(record) {
			continue
		}
		value, _ := record.Float(rule.Field)
		return c.event(rule.Severity, fmt.Sprintf(rule.Format, value))
	}

	if c.randFloat() < heartbeatProbability {
		tsr, _ := record.Float(heartbeatField)
		return c.event(SeverityInfo, fmt.Sprintf(heartbeatFormat, tsr))
	}
	return nil
}

func (c *Classifier) event(level Severity, message string) *Event {
	return &Event{
		ID:      c.now().Format(time.RFC3339Nano),
		Level:   level,
		Message: message,
	}
}
