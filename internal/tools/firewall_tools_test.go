package tools

import (
	"context"
	"testing"

	"github.com/mcpenterprise/server/internal/firewall"
)

func TestRecordErrorThenCheckOperationBlocks(t *testing.T) {
	fw := firewall.New(nil, nil)
	reg := newTestRegistry()
	RegisterFirewallTools(reg, fw)

	record, _ := reg.Get("record_error")
	result, err := record.Handler(context.Background(), map[string]any{
		"error_type":  "ios_build",
		"feature_map": map[string]any{"device_name": "iPhone 15", "os_version": "17.0"},
		"solution":    "use iPhone 15 Pro (17.2)",
		"block_level": "block",
	})
	if err != nil {
		t.Fatalf("record_error: %v", err)
	}
	if result.(map[string]any)["is_new"] != true {
		t.Fatal("expected is_new on first record")
	}

	check, _ := reg.Get("check_operation")
	result, err = check.Handler(context.Background(), map[string]any{
		"operation_type":   "ios_build",
		"operation_params": map[string]any{"device_name": "iPhone 15", "os_version": "17.0"},
	})
	if err != nil {
		t.Fatalf("check_operation: %v", err)
	}
	decision := result.(map[string]any)
	if decision["should_block"] != true {
		t.Fatalf("expected should_block=true, got %+v", decision)
	}

	result, err = check.Handler(context.Background(), map[string]any{
		"operation_type":   "ios_build",
		"operation_params": map[string]any{"device_name": "iPhone 15 Pro", "os_version": "17.2"},
	})
	if err != nil {
		t.Fatalf("check_operation: %v", err)
	}
	if result.(map[string]any)["should_block"] != false {
		t.Fatalf("expected no block for unrelated params, got %+v", result)
	}
}

func TestGetStatsReflectsRecordedPatterns(t *testing.T) {
	fw := firewall.New(nil, nil)
	reg := newTestRegistry()
	RegisterFirewallTools(reg, fw)

	record, _ := reg.Get("record_error")
	record.Handler(context.Background(), map[string]any{"error_type": "x"})

	stats, _ := reg.Get("get_stats")
	result, err := stats.Handler(context.Background(), nil)
	if err != nil {
		t.Fatalf("get_stats: %v", err)
	}
	if result.(map[string]any)["total_patterns"] != 1 {
		t.Fatalf("expected 1 pattern, got %+v", result)
	}
}
