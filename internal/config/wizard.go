package config

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/harun/unsure/internal/terminal"
	"github.com/harun/unsure/pkg/agent"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	prompt terminal.Prompter
	out    io.Writer
}

// NewWizard creates a new configuration wizard
func NewWizard(prompt terminal.Prompter, out io.Writer) *Wizard {
	return &Wizard{prompt: prompt, out: out}
}

// Run walks through model, key and timeout selection starting from
// current. Pressing Enter keeps the current value.
func (w *Wizard) Run(current *Config) (*Config, error) {
	cfg := *current
	validator := NewValidator()

	fmt.Fprintln(w.out, "=== unsure configuration ===")
	fmt.Fprintln(w.out)

	// Model
	models := agent.SupportedModels()
	fmt.Fprintln(w.out, "Models:")
	for i, m := range models {
		marker := " "
		if m.ID == cfg.Model {
			marker = "*"
		}
		fmt.Fprintf(w.out, " %s %d) %-24s %s\n", marker, i+1, m.ID, m.DisplayName)
	}
	for {
		answer, err := w.prompt.ReadLine(fmt.Sprintf("Model (number or id) [%s]: ", cfg.Model))
		if err != nil {
			return nil, err
		}
		if answer == "" {
			break
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(models) {
			answer = models[n-1].ID
		}
		if err := validator.ValidateModel(answer); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Model = answer
		break
	}
	fmt.Fprintln(w.out)

	// API key for the chosen model's provider
	provider := agent.ProviderOpenAI
	if info, ok := agent.LookupModel(cfg.Model); ok {
		provider = info.Provider
	}
	label := provider.DisplayName()
	for {
		hint := "not set"
		if cfg.CredentialFor(cfg.Model) != "" {
			hint = "keep current"
		}
		key, err := w.prompt.ReadSecret(fmt.Sprintf("%s API key (input hidden, Enter to %s): ", label, hint))
		if err != nil {
			return nil, err
		}
		if key == "" {
			break
		}
		if err := validator.ValidateAPIKey(key, provider); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.SetCredential(cfg.Model, key)
		break
	}
	if cfg.CredentialFor(cfg.Model) == "" {
		fmt.Fprintf(w.out, "Warning: no %s API key configured; questions will be rejected until one is set.\n", label)
	}
	fmt.Fprintln(w.out)

	// Timeout
	for {
		answer, err := w.prompt.ReadLine(fmt.Sprintf("Timeout per question [%s]: ", cfg.Timeout))
		if err != nil {
			return nil, err
		}
		if answer == "" {
			break
		}
		timeout, err := time.ParseDuration(answer)
		if err == nil {
			err = validator.ValidateTimeout(timeout)
		}
		if err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Timeout = timeout
		break
	}

	// Trace
	answer, err := w.prompt.ReadLine(fmt.Sprintf("Show reasoning trace above answers? (y/n) [%s]: ", yesNo(cfg.ShowTrace)))
	if err != nil {
		return nil, err
	}
	switch answer {
	case "y", "Y", "yes":
		cfg.ShowTrace = true
	case "n", "N", "no":
		cfg.ShowTrace = false
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return &cfg, nil
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}
