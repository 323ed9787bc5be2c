package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// AgentFactory creates agent bindings
type AgentFactory interface {
	CreateAgent(ctx context.Context, spec AgentSpec) (AgentHandle, error)
}

// AgentHandle is one live agent instance owned by a ReasoningSession
type AgentHandle interface {
	// ID identifies the binding in logs and answers
	ID() string

	// Run forwards question to the agent and returns its raw output
	Run(ctx context.Context, question string, opts RunOptions) (*RunOutput, error)

	// Close releases the resources held by the binding
	Close() error
}

// LLMProvider is an interface for LLM API providers
type LLMProvider interface {
	// Call makes an LLM API call
	Call(ctx context.Context, request LLMRequest) (*LLMResponse, error)

	// Provider returns the provider name
	Provider() string
}

// LLMRequest contains the request parameters for LLM call
type LLMRequest struct {
	Model        string
	Instructions []string
	Messages     []AgentMessage
	Tools        []ToolDefinition
	MaxTokens    int
}

// LLMResponse contains the response from LLM
type LLMResponse struct {
	Content string
	// Reasoning holds reasoning text the model emitted outside Content
	Reasoning string
	ToolCalls []ToolCall
	Usage     *TokenUsage
}

// ProviderOptions configures the default provider factory
type ProviderOptions struct {
	OpenAIBaseURL    string
	AnthropicBaseURL string
	MaxTokens        int
	MaxTurns         int
	Logger           zerolog.Logger
}

// ProviderFactory creates agents backed by the OpenAI or Anthropic APIs
type ProviderFactory struct {
	opts ProviderOptions
}

// NewProviderFactory creates a provider factory
func NewProviderFactory(opts ProviderOptions) *ProviderFactory {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = defaultMaxTurns
	}
	return &ProviderFactory{opts: opts}
}

// NewProvider creates the LLM provider serving modelID
func (f *ProviderFactory) NewProvider(modelID, credential string) (LLMProvider, error) {
	info, ok := LookupModel(modelID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidModel, modelID)
	}

	switch info.Provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(credential, f.opts.OpenAIBaseURL), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(credential, f.opts.AnthropicBaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", info.Provider)
	}
}

// CreateAgent builds a binding for spec
func (f *ProviderFactory) CreateAgent(ctx context.Context, spec AgentSpec) (AgentHandle, error) {
	if spec.Credential == "" {
		return nil, ErrMissingCredential
	}

	provider, err := f.NewProvider(spec.ModelID, spec.Credential)
	if err != nil {
		return nil, err
	}

	r, err := newRunner(runnerConfig{
		Provider:  provider,
		Spec:      spec,
		MaxTokens: f.opts.MaxTokens,
		MaxTurns:  f.opts.MaxTurns,
		Logger:    f.opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}
