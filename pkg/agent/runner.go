package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/harun/unsure/internal/observability"
	"github.com/harun/unsure/internal/tracing"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultMaxTurns = 10

// runner is the AgentHandle returned by ProviderFactory. It holds one
// provider client and runs the tool loop for each question.
type runner struct {
	id        string
	spec      AgentSpec
	maxTokens int
	maxTurns  int
	logger    zerolog.Logger

	tools   map[string]ToolDefinition
	schemas map[string]*gojsonschema.Schema

	mu       sync.RWMutex
	provider LLMProvider
}

type runnerConfig struct {
	Provider  LLMProvider
	Spec      AgentSpec
	MaxTokens int
	MaxTurns  int
	Logger    zerolog.Logger
}

func newRunner(cfg runnerConfig) (*runner, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaultMaxTurns
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate binding id: %w", err)
	}

	r := &runner{
		id:        id,
		spec:      cfg.Spec,
		maxTokens: cfg.MaxTokens,
		maxTurns:  cfg.MaxTurns,
		provider:  cfg.Provider,
		tools:     make(map[string]ToolDefinition),
		schemas:   make(map[string]*gojsonschema.Schema),
		logger: cfg.Logger.With().
			Str("component", "agent").
			Str("binding_id", id).
			Str("model", cfg.Spec.ModelID).
			Logger(),
	}

	for _, def := range cfg.Spec.Tools {
		if def.Name == "" {
			return nil, fmt.Errorf("tool name cannot be empty")
		}
		if _, exists := r.tools[def.Name]; exists {
			return nil, fmt.Errorf("duplicate tool: %s", def.Name)
		}
		schema, err := compileToolSchema(def)
		if err != nil {
			return nil, err
		}
		r.tools[def.Name] = def
		r.schemas[def.Name] = schema
	}

	return r, nil
}

// ID returns the binding id
func (r *runner) ID() string {
	return r.id
}

// Close drops the provider client. Runs already in flight keep their copy.
func (r *runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provider = nil
	return nil
}

// Run executes the tool loop for question
func (r *runner) Run(ctx context.Context, question string, opts RunOptions) (*RunOutput, error) {
	r.mu.RLock()
	provider := r.provider
	r.mu.RUnlock()
	if provider == nil {
		return nil, ErrAgentClosed
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"unsure.agent",
		"provider.run",
		attribute.String("provider", provider.Provider()),
		attribute.String("model", r.spec.ModelID),
		attribute.String("binding_id", r.id),
	)
	defer span.End()

	out, err := r.executeWithTools(ctx, provider, question, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

// executeWithTools handles the tool execution loop
func (r *runner) executeWithTools(ctx context.Context, provider LLMProvider, question string, opts RunOptions) (*RunOutput, error) {
	logger := tracing.LoggerFromContext(ctx, r.logger)

	messages := []AgentMessage{{Role: "user", Content: question}}
	pad := &Scratchpad{}
	trace := &traceBuilder{enabled: opts.RevealReasoning}
	usage := &TokenUsage{}
	allToolCalls := []ToolCall{}

	for turn := 0; turn < r.maxTurns; turn++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		start := time.Now()
		response, err := provider.Call(ctx, LLMRequest{
			Model:        r.spec.ModelID,
			Instructions: r.spec.systemInstructions(),
			Messages:     messages,
			Tools:        r.spec.Tools,
			MaxTokens:    r.maxTokens,
		})
		observability.RecordProviderCall(provider.Provider(), time.Since(start), err == nil)
		if err != nil {
			logger.Warn().Err(err).Int("turn", turn).Msg("Provider call failed")
			return nil, err
		}

		usage.Add(response.Usage)
		trace.reasoning(response.Reasoning)

		// No tool calls - we're done
		if len(response.ToolCalls) == 0 {
			logger.Debug().Int("turns", turn+1).Int("tool_calls", len(allToolCalls)).Msg("Agent run finished")
			return &RunOutput{
				Content:   response.Content,
				RawTrace:  trace.String(),
				ToolCalls: allToolCalls,
				Usage:     usage,
			}, nil
		}

		// Text next to tool calls is intermediate, not part of the answer
		trace.note(response.Content)

		messages = append(messages, AgentMessage{
			Role:      "assistant",
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})

		for _, toolCall := range response.ToolCalls {
			result := r.executeTool(ctx, pad, toolCall)
			trace.toolCall(toolCall, result)

			content := result.Output
			if result.Error != "" {
				content = "Error: " + result.Error
			}
			messages = append(messages, AgentMessage{
				Role:       "tool",
				Content:    content,
				ToolCallID: result.ToolCallID,
			})
		}

		allToolCalls = append(allToolCalls, response.ToolCalls...)
	}

	return nil, fmt.Errorf("maximum tool execution turns (%d) exceeded", r.maxTurns)
}

// executeTool validates and runs one tool call. Failures are reported back
// to the model rather than aborting the run.
func (r *runner) executeTool(ctx context.Context, pad *Scratchpad, call ToolCall) ToolResult {
	def, ok := r.tools[call.Name]
	if !ok {
		return ToolResult{ToolCallID: call.ID, Error: fmt.Sprintf("tool not found: %s", call.Name)}
	}

	if err := validateToolParams(r.schemas[call.Name], call.Parameters); err != nil {
		r.logger.Debug().Str("tool", call.Name).Err(err).Msg("Rejected tool call")
		return ToolResult{ToolCallID: call.ID, Error: err.Error()}
	}

	start := time.Now()
	output, err := def.Handler(ctx, pad, call.Parameters)
	observability.RecordToolExecution(call.Name, time.Since(start), err == nil)
	if err != nil {
		return ToolResult{ToolCallID: call.ID, Error: err.Error()}
	}
	return ToolResult{ToolCallID: call.ID, Output: output}
}

// traceBuilder assembles the diagnostic side channel of a run
type traceBuilder struct {
	enabled bool
	b       strings.Builder
}

func (t *traceBuilder) line(s string) {
	if !t.enabled {
		return
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	t.b.WriteString(s)
	t.b.WriteString("\n")
}

func (t *traceBuilder) reasoning(s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	t.line("Reasoning: " + s)
}

func (t *traceBuilder) note(s string) {
	t.line(s)
}

func (t *traceBuilder) toolCall(call ToolCall, result ToolResult) {
	if !t.enabled {
		return
	}
	if call.Name == ThinkToolName && result.Error == "" {
		thought, _ := call.Parameters["thought"].(string)
		t.line("Thought: " + thought)
		return
	}
	args, _ := json.Marshal(call.Parameters)
	t.line(fmt.Sprintf("Tool Call: %s(%s)", call.Name, args))
	if result.Error != "" {
		t.line("Tool Error: " + result.Error)
	}
}

func (t *traceBuilder) String() string {
	return strings.TrimRight(t.b.String(), "\n")
}
