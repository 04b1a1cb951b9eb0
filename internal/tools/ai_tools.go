package tools

import (
	"context"
	"fmt"

	"github.com/mcpenterprise/server/internal/memory"
	"github.com/mcpenterprise/server/internal/registry"
)

// AIClient is the narrow language-model dependency ai_analyze needs.
type AIClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RegisterAITools wires ai_analyze onto reg when client is non-nil.
// Called only when an API key was configured; the caller simply skips
// this call otherwise (§4.H: an absent optional group never registers).
func RegisterAITools(reg *registry.Registry, client AIClient, recall *memory.Store) {
	if client == nil {
		return
	}

	reg.Register(registry.Tool{
		Name:        "ai_analyze",
		Description: "Summarize a project's recalled memories for a query using a language model.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
			"query":      {Type: registry.TypeString, Required: true},
		}},
		DefaultTimeoutMs: 60000,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			projectID, err := requiredStringArg(args, "project_id")
			if err != nil {
				return nil, err
			}
			query, err := requiredStringArg(args, "query")
			if err != nil {
				return nil, err
			}

			recalled, err := recall.Recall(ctx, projectID, query, 5)
			if err != nil {
				return nil, err
			}
			if len(recalled.Memories) == 0 {
				return map[string]any{"summary": "no relevant memories found"}, nil
			}

			prompt := buildAnalysisPrompt(query, recalled.Memories)
			summary, err := client.Complete(ctx, prompt)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"summary":      summary,
				"source_count": len(recalled.Memories),
			}, nil
		},
	})
}

func buildAnalysisPrompt(query string, memories []memory.Record) string {
	prompt := fmt.Sprintf("Summarize the following project memories with respect to the question %q:\n\n", query)
	for _, m := range memories {
		prompt += fmt.Sprintf("- [%s] %s\n", m.Tier, m.Content)
	}
	return prompt
}
