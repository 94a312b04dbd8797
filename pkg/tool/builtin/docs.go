// Package toolbuiltin ships the tools the engine registers out of the box.
package toolbuiltin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cexll/diagramchat-go/pkg/docs"
	"github.com/cexll/diagramchat-go/pkg/tool"
)

const (
	docsToolName        = "get_docs"
	docsToolDescription = "Fetch Mermaid reference documentation for a diagram topic before answering."
)

var docsSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]any{
		"topic": map[string]any{
			"type":        "string",
			"description": "Diagram kind to fetch documentation for, e.g. flowchart or sequenceDiagram.",
		},
	},
	Required: []string{"topic"},
}

// DocsTool resolves documentation topics through a docs.Provider. Its result
// Data is the document itself, so the function-call output carries the
// document body plus its source locator.
type DocsTool struct {
	provider docs.Provider
}

// NewDocsTool wraps the provider into the conventional get_docs tool.
func NewDocsTool(provider docs.Provider) *DocsTool {
	return &DocsTool{provider: provider}
}

func (d *DocsTool) Name() string { return docsToolName }

func (d *DocsTool) Description() string { return docsToolDescription }

func (d *DocsTool) Schema() *tool.JSONSchema { return docsSchema }

// Execute looks up the topic named by params. The topic key is preferred;
// when the service drifts to a different argument name, the first string
// value is used instead.
func (d *DocsTool) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	if d == nil || d.provider == nil {
		return nil, errors.New("docs tool is not initialised")
	}
	// An empty topic still reaches the provider; deciding how to answer a
	// blank lookup is its call, not ours.
	topic := ExtractTopic(params)
	doc, err := d.provider.Lookup(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("lookup docs for %q: %w", topic, err)
	}
	return &tool.Result{Output: doc.Content, Data: doc}, nil
}

// ExtractTopic pulls the documentation topic out of a parsed argument
// object: the declared "topic" key wins, otherwise the first string value
// found is accepted.
func ExtractTopic(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	if v, ok := params["topic"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	for _, v := range params {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
