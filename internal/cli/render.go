package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/harun/unsure/pkg/agent"
)

// reportedError marks an error whose message was already shown to the user
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// IsReported reports whether err was already rendered for the user
func IsReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// renderAnswer prints the reasoning trace (when requested and present) in a
// fenced block, followed by the answer content.
func renderAnswer(w io.Writer, answer *agent.Answer, showTrace bool) {
	if showTrace && answer.DiagnosticOutput != "" {
		fmt.Fprintf(w, "```\n%s\n```\n\n", strings.TrimRight(answer.DiagnosticOutput, "\n"))
	}
	fmt.Fprintln(w, answer.Content)
}

// userMessage maps an Ask error to the message shown to the user
func userMessage(err error, model string) string {
	switch {
	case errors.Is(err, agent.ErrEmptyQuestion):
		return "Please enter a question or select a sample question first."
	case errors.Is(err, agent.ErrMissingCredential):
		env, name := "OPENAI_API_KEY", "OpenAI"
		if info, ok := agent.LookupModel(model); ok && info.Provider == agent.ProviderAnthropic {
			env, name = "ANTHROPIC_API_KEY", "Anthropic"
		}
		return fmt.Sprintf("Please enter your %s API key: run `unsure configure` or set %s.", name, env)
	case errors.Is(err, agent.ErrInvalidModel):
		return fmt.Sprintf("Model %q is not supported. Run `unsure models` to see the available models.", model)
	case errors.Is(err, agent.ErrTimeout):
		return "The agent did not answer in time. Try again or raise the timeout with --timeout."
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	case errors.Is(err, agent.ErrSessionClosed):
		return "The session has been closed."
	case agent.IsProviderError(err):
		var pe *agent.ProviderError
		errors.As(err, &pe)
		return fmt.Sprintf("The model provider returned an error: %v", pe.Cause)
	default:
		return err.Error()
	}
}

// renderError prints the user message for err and marks it reported
func renderError(w io.Writer, err error, model string) error {
	fmt.Fprintln(w, userMessage(err, model))
	return &reportedError{err: err}
}
