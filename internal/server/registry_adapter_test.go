package server

import (
	"context"
	"testing"

	"github.com/mcpenterprise/server/internal/registry"
)

func TestRegistryToolListerTranslatesToolsAndLoadsSchemaDocs(t *testing.T) {
	reg := registry.New()
	reg.Register(registry.Tool{
		Name:        "store_memory",
		Description: "store a memory",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{"content": {Type: registry.TypeString, Required: true}}},
		Handler:     func(ctx context.Context, args map[string]any) (any, error) { return nil, nil },
	})

	lister := NewRegistryToolLister(reg)
	descriptors := lister.List()
	if len(descriptors) != 1 || descriptors[0].Name != "store_memory" {
		t.Fatalf("expected store_memory descriptor, got %+v", descriptors)
	}
	doc, ok := descriptors[0].InputSchema.(map[string]any)
	if !ok {
		t.Fatalf("expected published schema doc to be loaded, got %T", descriptors[0].InputSchema)
	}
	if doc["title"] != "store_memory" {
		t.Fatalf("unexpected schema doc: %+v", doc)
	}
}

func TestRegistryToolListerFallsBackToInternalSchemaWhenDocMissing(t *testing.T) {
	reg := registry.New()
	reg.Register(registry.Tool{
		Name: "no_published_doc",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"x": {Type: registry.TypeString},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) { return nil, nil },
	})

	lister := NewRegistryToolLister(reg)
	descriptors := lister.List()
	if _, ok := descriptors[0].InputSchema.(registry.Schema); !ok {
		t.Fatalf("expected fallback to registry.Schema, got %T", descriptors[0].InputSchema)
	}
}
