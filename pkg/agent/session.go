package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/harun/unsure/internal/observability"
	"github.com/harun/unsure/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ReasoningSession owns at most one agent binding and rebinds it whenever
// the config passed to Ask changes. Ask calls are serialized.
type ReasoningSession struct {
	id      string
	factory AgentFactory
	logger  zerolog.Logger

	// sem admits one Ask at a time; waiters give up when their ctx ends
	sem chan struct{}

	mu          sync.Mutex
	boundConfig *SessionConfig
	binding     AgentHandle
	closed      bool
}

// SessionOptions configures a ReasoningSession
type SessionOptions struct {
	Factory AgentFactory
	Logger  zerolog.Logger
}

// NewReasoningSession creates an unbound session. A nil factory selects the
// default OpenAI/Anthropic provider factory.
func NewReasoningSession(opts SessionOptions) *ReasoningSession {
	observability.EnsureRegistered()

	factory := opts.Factory
	if factory == nil {
		factory = NewProviderFactory(ProviderOptions{Logger: opts.Logger})
	}

	id := tracing.NewRunID()
	return &ReasoningSession{
		id:      id,
		factory: factory,
		sem:     make(chan struct{}, 1),
		logger:  opts.Logger.With().Str("component", "session").Str("session_id", id).Logger(),
	}
}

// ID returns the session id used in logs and traces
func (s *ReasoningSession) ID() string {
	return s.id
}

// Bound reports whether a binding exists and returns its config
func (s *ReasoningSession) Bound() (SessionConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boundConfig == nil {
		return SessionConfig{}, false
	}
	return *s.boundConfig, true
}

type runResult struct {
	out *RunOutput
	err error
}

// Ask forwards question to the agent bound to cfg.
//
// Empty questions and invalid configs fail before any provider call. When
// ctx ends first Ask stops waiting and returns a *ProviderError wrapping
// ErrTimeout or context.Canceled; the remote computation is not aborted.
func (s *ReasoningSession) Ask(ctx context.Context, question string, cfg SessionConfig) (*Answer, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracing.GetTraceID(ctx) == "" {
		ctx = tracing.NewRequestContext(ctx)
	}
	ctx = tracing.WithSessionKey(ctx, s.id)
	ctx, span := tracing.StartSpan(
		ctx,
		"unsure.agent",
		"session.ask",
		attribute.String("model", cfg.ModelID),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, s.logger)

	start := time.Now()
	answer, err := s.ask(ctx, question, cfg)
	observability.RecordAsk(metricModel(cfg.ModelID), outcome(err), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn().Err(err).Str("model", cfg.ModelID).Msg("Ask failed")
		return nil, err
	}

	answer.Duration = time.Since(start)
	logger.Info().
		Str("model", cfg.ModelID).
		Str("binding_id", answer.BindingID).
		Dur("duration", answer.Duration).
		Msg("Ask completed")
	return answer, nil
}

func (s *ReasoningSession) ask(ctx context.Context, question string, cfg SessionConfig) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, contextError(ctx.Err())
	}
	defer func() { <-s.sem }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}

	handle, err := s.ensureBinding(ctx, cfg)
	if err != nil {
		return nil, NewProviderError(err)
	}

	done := make(chan runResult, 1)
	go func() {
		out, err := handle.Run(ctx, question, RunOptions{RevealReasoning: true})
		done <- runResult{out: out, err: err}
	}()

	var res runResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return nil, contextError(ctx.Err())
	}

	if res.err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, contextError(ctxErr)
		}
		return nil, NewProviderError(res.err)
	}
	if res.out == nil {
		return nil, NewProviderError(fmt.Errorf("malformed response: no output"))
	}

	return &Answer{
		Content:          res.out.Content,
		DiagnosticOutput: res.out.RawTrace,
		ModelID:          cfg.ModelID,
		BindingID:        handle.ID(),
		Usage:            res.out.Usage,
	}, nil
}

// ensureBinding returns the binding for cfg, replacing a binding made for a
// different config. Callers hold s.mu.
func (s *ReasoningSession) ensureBinding(ctx context.Context, cfg SessionConfig) (AgentHandle, error) {
	if s.binding != nil && s.boundConfig != nil && s.boundConfig.Equal(cfg) {
		return s.binding, nil
	}

	if s.binding != nil {
		s.logger.Info().
			Str("from_model", s.boundConfig.ModelID).
			Str("to_model", cfg.ModelID).
			Msg("Configuration changed, rebinding agent")
		s.releaseBinding()
	}

	ctx, span := tracing.StartSpan(ctx, "unsure.agent", "session.bind", attribute.String("model", cfg.ModelID))
	defer span.End()

	handle, err := s.factory.CreateAgent(ctx, DefaultAgentSpec(cfg))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	if handle == nil {
		return nil, fmt.Errorf("failed to create agent: factory returned no agent")
	}

	bound := cfg
	s.binding = handle
	s.boundConfig = &bound
	observability.RecordBindingCreated(cfg.ModelID)

	s.logger.Debug().Str("binding_id", handle.ID()).Str("model", cfg.ModelID).Msg("Agent bound")
	return handle, nil
}

// releaseBinding closes the current binding. Callers hold s.mu.
func (s *ReasoningSession) releaseBinding() {
	if s.binding == nil {
		return
	}
	if err := s.binding.Close(); err != nil {
		s.logger.Warn().Err(err).Str("binding_id", s.binding.ID()).Msg("Failed to close agent binding")
	}
	observability.RecordBindingClosed()
	s.binding = nil
	s.boundConfig = nil
}

// Close releases the binding. The session cannot be used afterwards.
func (s *ReasoningSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.releaseBinding()
	s.closed = true
	return nil
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Cause: fmt.Errorf("%w: %w", ErrTimeout, err)}
	}
	return &ProviderError{Cause: err}
}

// metricModel keeps the model label bounded to the supported ids
func metricModel(id string) string {
	if IsSupportedModel(id) {
		return id
	}
	return "unsupported"
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrEmptyQuestion):
		return "empty_question"
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrInvalidModel):
		return "invalid_model"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrSessionClosed):
		return "closed"
	default:
		return "provider_error"
	}
}
