package agent

// UncertaintyInstructions is sent unchanged as the system instruction of
// every binding.
const UncertaintyInstructions = "You are an uncertainty-aware reasoning agent. Follow these rules:\n" +
	"1. Explicitly evaluate your confidence for each reasoning step\n" +
	"2. If ANY uncertainty exists in final answer confidence, say \"I don't know\"\n" +
	"3. Never guess or provide adjacent/similar answers\n" +
	"4. Flag ambiguous terms or unclear requirements\n" +
	"\n" +
	"Reasoning format:\n" +
	"1. Question analysis\n" +
	"2. Knowledge verification\n" +
	"3. Confidence assessment\n" +
	"4. Final answer decision"

// markdownInstruction is appended as a separate system entry when AgentSpec
// has Markdown set.
const markdownInstruction = "Use markdown to format your answers."

// DefaultAgentSpec returns the fixed agent configuration for cfg
func DefaultAgentSpec(cfg SessionConfig) AgentSpec {
	return AgentSpec{
		ModelID:      cfg.ModelID,
		Credential:   cfg.Credential,
		Tools:        []ToolDefinition{ThinkTool()},
		Instructions: UncertaintyInstructions,
		Markdown:     true,
	}
}

// systemInstructions lists the system entries sent to the provider
func (s AgentSpec) systemInstructions() []string {
	instructions := []string{}
	if s.Instructions != "" {
		instructions = append(instructions, s.Instructions)
	}
	if s.Markdown {
		instructions = append(instructions, markdownInstruction)
	}
	return instructions
}
