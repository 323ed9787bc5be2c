// Package agent binds questions to an uncertainty-aware LLM agent.
//
// Invariants:
// - A ReasoningSession owns at most one agent binding at a time.
// - The binding is rebuilt whenever the SessionConfig changes.
// - Empty questions and missing credentials never reach the provider.
// - Provider failures surface as *ProviderError and are never retried.
//
// Usage:
//
//	session := agent.NewReasoningSession(agent.SessionOptions{
//		Factory: agent.NewProviderFactory(agent.ProviderOptions{}),
//	})
//	defer session.Close()
//
//	cfg, _ := agent.NewSessionConfig("gpt-4o-mini", os.Getenv("OPENAI_API_KEY"))
//	answer, err := session.Ask(ctx, "What is the CVE for Heartbleed?", cfg)
//	_ = answer
package agent
