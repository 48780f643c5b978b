package advisor

import (
	"context"
	"errors"

	telemetry "cement-cloud/internal/telemetry/domain"
)

// contextWindow is how many trailing records feed the prompt context.
const contextWindow = 20

// ErrNotConfigured reports a missing text-generation collaborator.
var ErrNotConfigured = errors.New("advisor: text generation service is not configured")

// ErrNoData reports that the optimizer has no current plant state.
var ErrNoData = errors.New("advisor: plant data not available")

// Generator produces a text reply for a composed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Targets are the operator's numeric optimization targets. The JSON
// keys match the dashboard frontend payload.
type Targets struct {
	TargetSPC     float64 `json:"targetSPC"`
	TargetQuality float64 `json:"targetQuality"`
	MaxTSR        float64 `json:"maxTSR"`
}

// Service composes prompts from the current timeline state and forwards
// them to the external text-generation collaborator. It never retries:
// a collaborator failure is surfaced to the caller as-is.
type Service struct {
	timeline  telemetry.Timeline
	generator Generator
}

// NewService constructs an advisor service. generator may be nil when
// the collaborator is unconfigured; calls then fail with
// ErrNotConfigured.
func NewService(timeline telemetry.Timeline, generator Generator) *Service {
	return &Service{timeline: timeline, generator: generator}
}

// Chat answers a free-text operator message with plant context.
func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	if s.generator == nil {
		return "", ErrNotConfigured
	}
	prompt := buildChatPrompt(s.timeline, message)
	return s.generator.Generate(ctx, prompt)
}

// Optimize produces a control plan toward the operator's targets.
func (s *Service) Optimize(ctx context.Context, targets Targets) (string, error) {
	if s.generator == nil {
		return "", ErrNotConfigured
	}
	latest, ok := s.timeline.Latest()
	if !ok {
		return "", ErrNoData
	}
	prompt := buildOptimizePrompt(latest, targets)
	return s.generator.Generate(ctx, prompt)
}
