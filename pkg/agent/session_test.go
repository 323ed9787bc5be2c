package agent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/unsure/internal/observability"
)

// stubFactory counts agent creations and records the order of lifecycle events
type stubFactory struct {
	mu        sync.Mutex
	specs     []AgentSpec
	handles   []*stubHandle
	events    []string
	createErr error
	run       func(ctx context.Context, question string, opts RunOptions) (*RunOutput, error)
}

func (f *stubFactory) CreateAgent(ctx context.Context, spec AgentSpec) (AgentHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.specs = append(f.specs, spec)
	f.events = append(f.events, "create:"+spec.ModelID)
	if f.createErr != nil {
		return nil, f.createErr
	}

	h := &stubHandle{factory: f, id: spec.ModelID, run: f.run}
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *stubFactory) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.specs)
}

func (f *stubFactory) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, h := range f.handles {
		total += h.runs
	}
	return total
}

type stubHandle struct {
	factory   *stubFactory
	id        string
	run       func(ctx context.Context, question string, opts RunOptions) (*RunOutput, error)
	runs      int
	questions []string
	opts      []RunOptions
	closed    bool
}

func (h *stubHandle) ID() string { return h.id }

func (h *stubHandle) Run(ctx context.Context, question string, opts RunOptions) (*RunOutput, error) {
	h.factory.mu.Lock()
	h.runs++
	h.questions = append(h.questions, question)
	h.opts = append(h.opts, opts)
	run := h.run
	h.factory.mu.Unlock()

	if run != nil {
		return run(ctx, question, opts)
	}
	return &RunOutput{Content: "ok"}, nil
}

func (h *stubHandle) Close() error {
	h.factory.mu.Lock()
	defer h.factory.mu.Unlock()
	h.closed = true
	h.factory.events = append(h.factory.events, "close:"+h.id)
	return nil
}

func newTestSession(f *stubFactory) *ReasoningSession {
	return NewReasoningSession(SessionOptions{
		Factory: f,
		Logger:  zerolog.Nop(),
	})
}

func mustConfig(t *testing.T, model, credential string) SessionConfig {
	t.Helper()
	cfg, err := NewSessionConfig(model, credential)
	require.NoError(t, err)
	return cfg
}

func TestAskMissingCredential(t *testing.T) {
	for _, model := range []string{"gpt-4o-mini", "gpt-4o", "gpt-4", "gpt-3.5-turbo", "claude-sonnet-4-0"} {
		t.Run(model, func(t *testing.T) {
			f := &stubFactory{}
			s := newTestSession(f)
			defer s.Close()

			answer, err := s.Ask(context.Background(), "What is Heartbleed?", mustConfig(t, model, ""))

			assert.Nil(t, answer)
			assert.ErrorIs(t, err, ErrMissingCredential)
			assert.False(t, IsProviderError(err))
			assert.Equal(t, 0, f.createCount())
			assert.Equal(t, 0, f.runCount())
		})
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	cases := map[string]string{
		"empty":    "",
		"spaces":   "   ",
		"newlines": "\n\n",
		"mixed":    " \t\r\n ",
	}

	for name, question := range cases {
		t.Run(name, func(t *testing.T) {
			f := &stubFactory{}
			s := newTestSession(f)
			defer s.Close()

			_, err := s.Ask(context.Background(), question, mustConfig(t, "gpt-4o-mini", "sk-test"))

			assert.ErrorIs(t, err, ErrEmptyQuestion)
			assert.Equal(t, 0, f.createCount())
			assert.Equal(t, 0, f.runCount())
		})
	}

	t.Run("checked before credential", func(t *testing.T) {
		f := &stubFactory{}
		s := newTestSession(f)
		defer s.Close()

		_, err := s.Ask(context.Background(), "", mustConfig(t, "gpt-4o-mini", ""))
		assert.ErrorIs(t, err, ErrEmptyQuestion)
	})
}

func TestAskInvalidModel(t *testing.T) {
	f := &stubFactory{}
	s := newTestSession(f)
	defer s.Close()

	_, err := s.Ask(context.Background(), "hello", SessionConfig{ModelID: "bogus-model", Credential: "sk-test"})

	assert.ErrorIs(t, err, ErrInvalidModel)
	assert.Equal(t, 0, f.createCount())
}

func TestAskReusesBinding(t *testing.T) {
	f := &stubFactory{}
	s := newTestSession(f)
	defer s.Close()
	cfg := mustConfig(t, "gpt-4o-mini", "sk-test")

	_, err := s.Ask(context.Background(), "first", cfg)
	require.NoError(t, err)
	_, err = s.Ask(context.Background(), "second", cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, f.createCount())
	assert.Equal(t, 2, f.runCount())

	bound, ok := s.Bound()
	assert.True(t, ok)
	assert.Equal(t, cfg, bound)
}

func TestAskRebindsOnConfigChange(t *testing.T) {
	tests := []struct {
		name string
		cfg1 SessionConfig
		cfg2 SessionConfig
	}{
		{
			name: "model changes",
			cfg1: SessionConfig{ModelID: "gpt-4o-mini", Credential: "sk-test"},
			cfg2: SessionConfig{ModelID: "gpt-4o", Credential: "sk-test"},
		},
		{
			name: "credential changes",
			cfg1: SessionConfig{ModelID: "gpt-4o-mini", Credential: "sk-one"},
			cfg2: SessionConfig{ModelID: "gpt-4o-mini", Credential: "sk-two"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &stubFactory{}
			s := newTestSession(f)
			defer s.Close()

			_, err := s.Ask(context.Background(), "q1", tt.cfg1)
			require.NoError(t, err)
			_, err = s.Ask(context.Background(), "q2", tt.cfg2)
			require.NoError(t, err)

			require.Equal(t, 2, f.createCount())
			assert.Equal(t, tt.cfg2.ModelID, f.specs[1].ModelID)
			assert.Equal(t, tt.cfg2.Credential, f.specs[1].Credential)

			// old binding is released before the new one is created
			assert.Equal(t, []string{
				"create:" + tt.cfg1.ModelID,
				"close:" + tt.cfg1.ModelID,
				"create:" + tt.cfg2.ModelID,
			}, f.events)
			assert.True(t, f.handles[0].closed)
			assert.False(t, f.handles[1].closed)
		})
	}
}

func TestAskBindingSpec(t *testing.T) {
	f := &stubFactory{}
	s := newTestSession(f)
	defer s.Close()

	_, err := s.Ask(context.Background(), "  What is Heartbleed?  ", mustConfig(t, "gpt-4o", "sk-test"))
	require.NoError(t, err)

	require.Len(t, f.specs, 1)
	spec := f.specs[0]
	assert.Equal(t, "gpt-4o", spec.ModelID)
	assert.Equal(t, "sk-test", spec.Credential)
	assert.Equal(t, UncertaintyInstructions, spec.Instructions)
	require.Len(t, spec.Tools, 1)
	assert.Equal(t, ThinkToolName, spec.Tools[0].Name)

	// question is forwarded verbatim with reasoning revealed
	h := f.handles[0]
	assert.Equal(t, []string{"  What is Heartbleed?  "}, h.questions)
	assert.True(t, h.opts[0].RevealReasoning)
}

func TestAskProviderError(t *testing.T) {
	cause := errors.New("401 unauthorized")
	f := &stubFactory{
		run: func(ctx context.Context, question string, opts RunOptions) (*RunOutput, error) {
			return nil, cause
		},
	}
	s := newTestSession(f)
	defer s.Close()

	_, err := s.Ask(context.Background(), "hello", mustConfig(t, "gpt-4o-mini", "sk-test"))

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, cause, pe.Cause)
	assert.ErrorIs(t, err, cause)

	// no automatic retry
	assert.Equal(t, 1, f.runCount())
}

func TestAskCreateFailureLeavesSessionUnbound(t *testing.T) {
	cause := errors.New("bad key")
	f := &stubFactory{createErr: cause}
	s := newTestSession(f)
	defer s.Close()
	cfg := mustConfig(t, "gpt-4o-mini", "sk-test")

	_, err := s.Ask(context.Background(), "hello", cfg)
	assert.True(t, IsProviderError(err))
	assert.ErrorIs(t, err, cause)

	_, ok := s.Bound()
	assert.False(t, ok)

	// caller may retry; a new creation is attempted
	f.createErr = nil
	_, err = s.Ask(context.Background(), "hello", cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, f.createCount())
}

func TestAskScenarios(t *testing.T) {
	cfg := SessionConfig{ModelID: "gpt-4o-mini", Credential: "sk-test"}

	tests := []struct {
		name     string
		question string
		content  string
	}{
		{
			name:     "known answer",
			question: "What is the exact CVE identifier for the Heartbleed vulnerability?",
			content:  "CVE-2014-0160",
		},
		{
			name:     "uncertain answer passes through unchanged",
			question: "Who is currently the most dangerous ransomware group?",
			content:  "I don't know",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &stubFactory{
				run: func(ctx context.Context, question string, opts RunOptions) (*RunOutput, error) {
					return &RunOutput{Content: tt.content}, nil
				},
			}
			s := newTestSession(f)
			defer s.Close()

			answer, err := s.Ask(context.Background(), tt.question, cfg)
			require.NoError(t, err)

			assert.Equal(t, tt.content, answer.Content)
			assert.Equal(t, "", answer.DiagnosticOutput)
			assert.Equal(t, "gpt-4o-mini", answer.ModelID)
		})
	}
}

func TestAskDiagnosticOutput(t *testing.T) {
	f := &stubFactory{
		run: func(ctx context.Context, question string, opts RunOptions) (*RunOutput, error) {
			return &RunOutput{Content: "I don't know", RawTrace: "Thought: no reliable source"}, nil
		},
	}
	s := newTestSession(f)
	defer s.Close()

	answer, err := s.Ask(context.Background(), "q", mustConfig(t, "gpt-4o-mini", "sk-test"))
	require.NoError(t, err)
	assert.Equal(t, "I don't know", answer.Content)
	assert.Equal(t, "Thought: no reliable source", answer.DiagnosticOutput)
}

func TestAskTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	f := &stubFactory{
		run: func(ctx context.Context, question string, opts RunOptions) (*RunOutput, error) {
			// ignores ctx like an uncooperative provider
			<-release
			return &RunOutput{Content: "late"}, nil
		},
	}
	s := newTestSession(f)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := s.Ask(ctx, "slow question", mustConfig(t, "gpt-4o-mini", "sk-test"))

	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, IsProviderError(err))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAskCanceled(t *testing.T) {
	f := &stubFactory{}
	s := newTestSession(f)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Ask(ctx, "hello", mustConfig(t, "gpt-4o-mini", "sk-test"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 0, f.runCount())
}

func TestSessionClose(t *testing.T) {
	f := &stubFactory{}
	s := newTestSession(f)
	cfg := mustConfig(t, "gpt-4o-mini", "sk-test")

	_, err := s.Ask(context.Background(), "hello", cfg)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.True(t, f.handles[0].closed)

	_, ok := s.Bound()
	assert.False(t, ok)

	_, err = s.Ask(context.Background(), "hello", cfg)
	assert.ErrorIs(t, err, ErrSessionClosed)

	// idempotent
	assert.NoError(t, s.Close())
}

func TestAskSerialized(t *testing.T) {
	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0

	f := &stubFactory{
		run: func(ctx context.Context, question string, opts RunOptions) (*RunOutput, error) {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return &RunOutput{Content: "ok"}, nil
		},
	}
	s := newTestSession(f)
	defer s.Close()

	cfgs := []SessionConfig{
		{ModelID: "gpt-4o-mini", Credential: "sk-a"},
		{ModelID: "gpt-4o", Credential: "sk-a"},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Ask(context.Background(), "q", cfgs[i%2])
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight)
	assert.Equal(t, 8, f.runCount())
}

func TestAskWaitingCallerHonorsDeadline(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	f := &stubFactory{
		run: func(ctx context.Context, question string, opts RunOptions) (*RunOutput, error) {
			if question == "slow" {
				close(started)
				<-release
			}
			return &RunOutput{Content: "ok"}, nil
		},
	}
	s := newTestSession(f)
	defer s.Close()
	cfg := mustConfig(t, "gpt-4o-mini", "sk-test")

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.Ask(context.Background(), "slow", cfg)
		firstDone <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := s.Ask(ctx, "queued", cfg)

	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, IsProviderError(err))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1, f.runCount())

	close(release)
	require.NoError(t, <-firstDone)

	// the slot is free again once the first Ask returns
	_, err = s.Ask(context.Background(), "next", cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, f.runCount())
}

func TestAskMetricsModelLabel(t *testing.T) {
	f := &stubFactory{}
	s := newTestSession(f)
	defer s.Close()

	_, err := s.Ask(context.Background(), "hello", SessionConfig{ModelID: "made-up-model-4711", Credential: "sk-test"})
	require.ErrorIs(t, err, ErrInvalidModel)

	rec := httptest.NewRecorder()
	observability.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `unsure_ask_total{model="unsupported",outcome="invalid_model"}`)
	assert.NotContains(t, body, "made-up-model-4711")

	assert.Equal(t, "gpt-4o", metricModel("gpt-4o"))
	assert.Equal(t, "unsupported", metricModel(""))
}
