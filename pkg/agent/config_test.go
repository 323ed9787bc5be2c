package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionConfig(t *testing.T) {
	t.Run("accepts supported models", func(t *testing.T) {
		for _, m := range SupportedModels() {
			cfg, err := NewSessionConfig(m.ID, "sk-test")
			require.NoError(t, err)
			assert.Equal(t, m.ID, cfg.ModelID)
			assert.Equal(t, m.Provider, cfg.Provider())
		}
	})

	t.Run("rejects unknown model", func(t *testing.T) {
		_, err := NewSessionConfig("bogus-model", "sk-test")
		assert.ErrorIs(t, err, ErrInvalidModel)
		assert.Contains(t, err.Error(), "bogus-model")
	})

	t.Run("allows empty credential at construction", func(t *testing.T) {
		cfg, err := NewSessionConfig("gpt-4o-mini", "")
		require.NoError(t, err)
		assert.ErrorIs(t, cfg.Validate(), ErrMissingCredential)
	})
}

func TestSessionConfigValidate(t *testing.T) {
	assert.NoError(t, SessionConfig{ModelID: "gpt-4", Credential: "sk-x"}.Validate())
	assert.ErrorIs(t, SessionConfig{ModelID: "gpt-5-ultra", Credential: "sk-x"}.Validate(), ErrInvalidModel)
	assert.ErrorIs(t, SessionConfig{ModelID: "gpt-4"}.Validate(), ErrMissingCredential)
}

func TestSessionConfigEqual(t *testing.T) {
	a := SessionConfig{ModelID: "gpt-4o", Credential: "sk-a"}

	assert.True(t, a.Equal(SessionConfig{ModelID: "gpt-4o", Credential: "sk-a"}))
	assert.False(t, a.Equal(SessionConfig{ModelID: "gpt-4o-mini", Credential: "sk-a"}))
	assert.False(t, a.Equal(SessionConfig{ModelID: "gpt-4o", Credential: "sk-b"}))
}

func TestSessionConfigStringMasksCredential(t *testing.T) {
	cfg := SessionConfig{ModelID: "gpt-4o", Credential: "sk-supersecret"}
	assert.NotContains(t, cfg.String(), "supersecret")
	assert.Contains(t, cfg.String(), "gpt-4o")
	assert.Contains(t, SessionConfig{ModelID: "gpt-4o"}.String(), "<unset>")
}

func TestSupportedModels(t *testing.T) {
	models := SupportedModels()
	require.NotEmpty(t, models)
	assert.Equal(t, DefaultModelID, models[0].ID)

	ids := []string{}
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	assert.Subset(t, ids, []string{"gpt-4o-mini", "gpt-4o", "gpt-4", "gpt-3.5-turbo"})

	// callers get a copy
	models[0].ID = "changed"
	assert.Equal(t, DefaultModelID, SupportedModels()[0].ID)
}

func TestUncertaintyInstructions(t *testing.T) {
	expected := `You are an uncertainty-aware reasoning agent. Follow these rules:
1. Explicitly evaluate your confidence for each reasoning step
2. If ANY uncertainty exists in final answer confidence, say "I don't know"
3. Never guess or provide adjacent/similar answers
4. Flag ambiguous terms or unclear requirements

Reasoning format:
1. Question analysis
2. Knowledge verification
3. Confidence assessment
4. Final answer decision`

	assert.Equal(t, expected, UncertaintyInstructions)

	spec := DefaultAgentSpec(SessionConfig{ModelID: "gpt-4o-mini", Credential: "sk-test"})
	assert.Equal(t, []string{UncertaintyInstructions, markdownInstruction}, spec.systemInstructions())
}

func TestProviderKindDisplayName(t *testing.T) {
	assert.Equal(t, "OpenAI", ProviderOpenAI.DisplayName())
	assert.Equal(t, "Anthropic", ProviderAnthropic.DisplayName())
	assert.Equal(t, "other", ProviderKind("other").DisplayName())
}
