package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/harun/unsure/internal/config"
	"github.com/harun/unsure/pkg/agent"
)

// fakeFactory records bindings and answers every question from reply
type fakeFactory struct {
	mu        sync.Mutex
	specs     []agent.AgentSpec
	closed    int
	questions []string
	reply     func(ctx context.Context, question string) (*agent.RunOutput, error)
}

func (f *fakeFactory) CreateAgent(ctx context.Context, spec agent.AgentSpec) (agent.AgentHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specs = append(f.specs, spec)
	return &fakeHandle{factory: f, id: fmt.Sprintf("binding-%d", len(f.specs))}, nil
}

func (f *fakeFactory) created() []agent.AgentSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]agent.AgentSpec(nil), f.specs...)
}

func (f *fakeFactory) asked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.questions...)
}

type fakeHandle struct {
	factory *fakeFactory
	id      string
}

func (h *fakeHandle) ID() string { return h.id }

func (h *fakeHandle) Run(ctx context.Context, question string, opts agent.RunOptions) (*agent.RunOutput, error) {
	h.factory.mu.Lock()
	h.factory.questions = append(h.factory.questions, question)
	reply := h.factory.reply
	h.factory.mu.Unlock()

	if reply != nil {
		return reply(ctx, question)
	}
	return &agent.RunOutput{
		Content:  "I don't know",
		RawTrace: "Thought: cannot verify " + question,
	}, nil
}

func (h *fakeHandle) Close() error {
	h.factory.mu.Lock()
	defer h.factory.mu.Unlock()
	h.factory.closed++
	return nil
}

type cliResult struct {
	out    string
	errOut string
	err    error
}

// writeConfig writes body as the config file and returns its path
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unsure.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

// runCLI executes the CLI against factory with input as stdin
func runCLI(t *testing.T, factory *fakeFactory, input string, args ...string) cliResult {
	t.Helper()
	for _, name := range []string{
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "UNSURE_MODEL", "UNSURE_API_KEY",
		"UNSURE_ANTHROPIC_API_KEY", "UNSURE_TIMEOUT", "UNSURE_SHOW_TRACE",
	} {
		t.Setenv(name, "")
	}

	orig := newAgentFactory
	newAgentFactory = func(cfg *config.Config, log zerolog.Logger) agent.AgentFactory {
		return factory
	}
	t.Cleanup(func() { newAgentFactory = orig })

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	err := run(context.Background(), args, strings.NewReader(input), out, errOut)
	return cliResult{out: out.String(), errOut: errOut.String(), err: err}
}
