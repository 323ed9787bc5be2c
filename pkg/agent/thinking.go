package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ThinkToolName is the name the model uses to record reasoning notes
const ThinkToolName = "think"

// ToolHandler executes a tool call within a run
type ToolHandler func(ctx context.Context, pad *Scratchpad, params map[string]interface{}) (string, error)

// ToolDefinition describes a tool offered to the model
type ToolDefinition struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object describing the tool input
	Parameters map[string]interface{}
	Handler    ToolHandler
}

// Scratchpad collects the intermediate notes of one run
type Scratchpad struct {
	mu       sync.Mutex
	thoughts []string
}

// Add appends a thought
func (p *Scratchpad) Add(thought string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.thoughts = append(p.thoughts, thought)
}

// Thoughts returns a copy of the recorded thoughts
func (p *Scratchpad) Thoughts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.thoughts))
	copy(out, p.thoughts)
	return out
}

// ThinkTool returns the reflective reasoning tool. The model calls it with a
// thought; the thought is kept on the run's scratchpad and the full list of
// thoughts so far is echoed back.
func ThinkTool() ToolDefinition {
	return ToolDefinition{
		Name: ThinkToolName,
		Description: "Use this tool to think through a problem step by step. " +
			"It does not fetch new information or change anything; it records the thought " +
			"and returns every thought recorded so far. Use it as a scratchpad for " +
			"confidence checks before committing to a final answer.",
		Parameters: map[string]interface{}{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]interface{}{
				"thought": map[string]interface{}{
					"type":        "string",
					"description": "A thought to think about.",
					"minLength":   1,
				},
			},
			"required": []string{"thought"},
		},
		Handler: think,
	}
}

func think(ctx context.Context, pad *Scratchpad, params map[string]interface{}) (string, error) {
	thought, _ := params["thought"].(string)
	pad.Add(thought)

	var b strings.Builder
	b.WriteString("Thoughts:\n")
	for _, t := range pad.Thoughts() {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	return b.String(), nil
}

// compileToolSchema compiles the tool's parameter schema
func compileToolSchema(def ToolDefinition) (*gojsonschema.Schema, error) {
	if def.Parameters == nil {
		return nil, nil
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.Parameters))
	if err != nil {
		return nil, fmt.Errorf("invalid schema for tool %s: %w", def.Name, err)
	}
	return schema, nil
}

// validateToolParams validates params against a compiled schema
func validateToolParams(schema *gojsonschema.Schema, params map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return err
	}

	if !result.Valid() {
		errs := []string{}
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// toolSchema returns the JSON Schema of def, defaulting to an empty object
func toolSchema(def ToolDefinition) map[string]interface{} {
	if def.Parameters != nil {
		return def.Parameters
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
