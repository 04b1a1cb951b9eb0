package tools

import "github.com/mcpenterprise/server/internal/registry"

func newTestRegistry() *registry.Registry {
	return registry.New()
}
