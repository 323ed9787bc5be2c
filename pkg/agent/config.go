package agent

import (
	"fmt"
)

// SessionConfig selects the model and credential used for a binding.
// Two configs are equal iff both fields match, so values compare with ==.
type SessionConfig struct {
	ModelID    string `json:"model_id"`
	Credential string `json:"-"`
}

// NewSessionConfig builds a config for modelID. An empty credential is
// accepted here and rejected when the config is used.
func NewSessionConfig(modelID, credential string) (SessionConfig, error) {
	if !IsSupportedModel(modelID) {
		return SessionConfig{}, fmt.Errorf("%w: %q", ErrInvalidModel, modelID)
	}
	return SessionConfig{ModelID: modelID, Credential: credential}, nil
}

// Validate checks the config is usable for a reasoning call
func (c SessionConfig) Validate() error {
	if !IsSupportedModel(c.ModelID) {
		return fmt.Errorf("%w: %q", ErrInvalidModel, c.ModelID)
	}
	if c.Credential == "" {
		return ErrMissingCredential
	}
	return nil
}

// Equal reports whether both configs select the same model and credential
func (c SessionConfig) Equal(other SessionConfig) bool {
	return c == other
}

// Provider returns the backend serving the configured model
func (c SessionConfig) Provider() ProviderKind {
	info, ok := LookupModel(c.ModelID)
	if !ok {
		return ""
	}
	return info.Provider
}

// String masks the credential
func (c SessionConfig) String() string {
	cred := "<unset>"
	if c.Credential != "" {
		cred = "<redacted>"
	}
	return fmt.Sprintf("SessionConfig{model=%s credential=%s}", c.ModelID, cred)
}
