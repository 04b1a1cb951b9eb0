package tools

import (
	"context"

	"github.com/mcpenterprise/server/internal/firewall"
	"github.com/mcpenterprise/server/internal/registry"
)

// RegisterFirewallTools wires record_error, check_operation,
// query_errors, and get_stats onto reg, backed by fw.
func RegisterFirewallTools(reg *registry.Registry, fw *firewall.Firewall) {
	reg.Register(registry.Tool{
		Name:        "record_error",
		Description: "Record an error occurrence and its fingerprint, updating the stored pattern.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"error_type":    {Type: registry.TypeString, Required: true},
			"error_scene":   {Type: registry.TypeString},
			"feature_map":   {Type: registry.TypeObject},
			"error_message": {Type: registry.TypeString},
			"solution":      {Type: registry.TypeString},
			"block_level":   {Type: registry.TypeString},
		}},
		Handler: handleRecordError(fw),
	})

	reg.Register(registry.Tool{
		Name:        "check_operation",
		Description: "Check a proposed operation against recorded error patterns before it runs.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"operation_type":   {Type: registry.TypeString, Required: true},
			"operation_params": {Type: registry.TypeObject},
		}},
		Handler: handleCheckOperation(fw),
	})

	reg.Register(registry.Tool{
		Name:        "query_errors",
		Description: "List recorded error patterns, optionally filtered by type or block level.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"error_type":  {Type: registry.TypeString},
			"block_level": {Type: registry.TypeString},
		}},
		Handler: handleQueryErrors(fw),
	})

	reg.Register(registry.Tool{
		Name:        "get_stats",
		Description: "Return error firewall counters: total patterns, occurrences, blocked, warned, intercepted.",
		InputSchema: registry.Schema{},
		Handler:     handleFirewallStats(fw),
	})
}

func handleRecordError(fw *firewall.Firewall) registry.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		errorType, err := requiredStringArg(args, "error_type")
		if err != nil {
			return nil, err
		}

		errorID, isNew, err := fw.RecordError(ctx, firewall.RecordInput{
			ErrorType:    errorType,
			ErrorScene:   stringArg(args, "error_scene", ""),
			FeatureMap:   stringMapArg(args, "feature_map"),
			ErrorMessage: stringArg(args, "error_message", ""),
			Solution:     stringArg(args, "solution", ""),
			BlockLevel:   firewall.BlockLevel(stringArg(args, "block_level", string(firewall.BlockNone))),
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"error_id": errorID, "is_new": isNew}, nil
	}
}

func handleCheckOperation(fw *firewall.Firewall) registry.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		operationType, err := requiredStringArg(args, "operation_type")
		if err != nil {
			return nil, err
		}
		decision := fw.CheckOperation(ctx, operationType, stringMapArg(args, "operation_params"))
		return map[string]any{
			"should_block": decision.ShouldBlock,
			"risk":         string(decision.Risk),
			"confidence":   decision.Confidence,
			"matched":      decision.Matched,
			"error_id":     decision.ErrorID,
			"solution":     decision.Solution,
		}, nil
	}
}

func handleQueryErrors(fw *firewall.Firewall) registry.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		patterns := fw.QueryErrors(firewall.Filter{
			ErrorType:  stringArg(args, "error_type", ""),
			BlockLevel: firewall.BlockLevel(stringArg(args, "block_level", "")),
		})

		out := make([]map[string]any, 0, len(patterns))
		for _, p := range patterns {
			out = append(out, map[string]any{
				"error_id":         p.ErrorID,
				"error_type":       p.ErrorType,
				"error_scene":      p.ErrorScene,
				"error_message":    p.ErrorMessage,
				"solution":         p.Solution,
				"block_level":      string(p.BlockLevel),
				"occurrence_count": p.OccurrenceCount,
				"last_seen_at":     p.LastSeenAt,
			})
		}
		return map[string]any{"patterns": out}, nil
	}
}

func handleFirewallStats(fw *firewall.Firewall) registry.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		stats := fw.GetStats()
		return map[string]any{
			"total_patterns":    stats.TotalPatterns,
			"total_occurrences": stats.TotalOccurrences,
			"blocked_count":     stats.BlockedCount,
			"warned_count":      stats.WarnedCount,
			"intercepted_count": stats.InterceptedCount,
		}, nil
	}
}
