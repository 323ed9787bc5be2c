package agent

import (
	"time"
)

// AgentSpec configures one agent binding
type AgentSpec struct {
	ModelID      string           `json:"model_id"`
	Credential   string           `json:"-"`
	Tools        []ToolDefinition `json:"-"`
	Instructions string           `json:"instructions"`
	Markdown     bool             `json:"markdown"`
}

// RunOptions controls a single agent run
type RunOptions struct {
	RevealReasoning bool `json:"reveal_reasoning"`
}

// RunOutput is the raw result of an agent run
type RunOutput struct {
	Content   string      `json:"content"`
	RawTrace  string      `json:"raw_trace,omitempty"`
	ToolCalls []ToolCall  `json:"tool_calls,omitempty"`
	Usage     *TokenUsage `json:"usage,omitempty"`
}

// Answer is returned to the caller of Ask
type Answer struct {
	Content          string        `json:"content"`
	DiagnosticOutput string        `json:"diagnostic_output,omitempty"`
	ModelID          string        `json:"model_id,omitempty"`
	BindingID        string        `json:"binding_id,omitempty"`
	Usage            *TokenUsage   `json:"usage,omitempty"`
	Duration         time.Duration `json:"duration,omitempty"`
}

// ToolCall represents a tool invocation
type ToolCall struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters"`
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates other into u
func (u *TokenUsage) Add(other *TokenUsage) {
	if u == nil || other == nil {
		return
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// AgentMessage represents a message in the conversation
type AgentMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolResult represents the result of a tool execution
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
}
