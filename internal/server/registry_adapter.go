package server

import (
	"github.com/mcpenterprise/server/internal/registry"
	"github.com/mcpenterprise/server/schemas"
)

// RegistryToolLister adapts a *registry.Registry to this package's
// narrower ToolLister, translating registry.Tool (which also carries
// the handler and default timeout, neither of which belongs in a
// tools/list response) down to the public {name, description, schema}
// triple.
type RegistryToolLister struct {
	registry *registry.Registry
}

// NewRegistryToolLister wraps reg for use as a Server's ToolLister.
func NewRegistryToolLister(reg *registry.Registry) *RegistryToolLister {
	return &RegistryToolLister{registry: reg}
}

// List implements ToolLister.
func (l *RegistryToolLister) List() []ToolDescriptor {
	tools := l.registry.List()
	descriptors := make([]ToolDescriptor, 0, len(tools))
	for _, t := range tools {
		descriptors = append(descriptors, ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schemaDocFor(t),
		})
	}
	return descriptors
}

// schemaDocFor prefers a tool's explicitly set SchemaDoc, then falls
// back to the embedded published schema document for its name, and
// finally to the internal validation Schema if neither is available.
func schemaDocFor(t registry.Tool) any {
	if t.SchemaDoc != nil {
		return t.SchemaDoc
	}
	if doc, ok := schemas.Load(t.Name); ok {
		return doc
	}
	return t.InputSchema
}
