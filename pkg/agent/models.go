package agent

// ProviderKind identifies the backend serving a model
type ProviderKind string

const (
	ProviderOpenAI    ProviderKind = "openai"
	ProviderAnthropic ProviderKind = "anthropic"
)

// DisplayName returns the provider's product name
func (k ProviderKind) DisplayName() string {
	switch k {
	case ProviderAnthropic:
		return "Anthropic"
	case ProviderOpenAI:
		return "OpenAI"
	default:
		return string(k)
	}
}

// DefaultModelID is the model selected when none is configured
const DefaultModelID = "gpt-4o-mini"

// ModelInfo describes a supported model
type ModelInfo struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"display_name"`
	Provider    ProviderKind `json:"provider"`
}

var supportedModels = []ModelInfo{
	{ID: "gpt-4o-mini", DisplayName: "GPT-4o Mini", Provider: ProviderOpenAI},
	{ID: "gpt-4o", DisplayName: "GPT-4o", Provider: ProviderOpenAI},
	{ID: "gpt-4", DisplayName: "GPT-4", Provider: ProviderOpenAI},
	{ID: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo", Provider: ProviderOpenAI},
	{ID: "claude-sonnet-4-0", DisplayName: "Claude Sonnet 4", Provider: ProviderAnthropic},
	{ID: "claude-3-5-haiku-latest", DisplayName: "Claude 3.5 Haiku", Provider: ProviderAnthropic},
}

// SupportedModels returns the model allow-list in display order
func SupportedModels() []ModelInfo {
	models := make([]ModelInfo, len(supportedModels))
	copy(models, supportedModels)
	return models
}

// LookupModel returns the model info for id
func LookupModel(id string) (ModelInfo, bool) {
	for _, m := range supportedModels {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// IsSupportedModel reports whether id is on the allow-list
func IsSupportedModel(id string) bool {
	_, ok := LookupModel(id)
	return ok
}
