// Package schemas embeds the JSON schema documents exposed alongside
// each tool's internal validation rules (registry.Schema covers
// presence/type checking; these documents are the richer JSON-schema
// view returned to clients via tools/list).
package schemas

import "embed"

// FS contains every schemas/<tool_name>/v1.json present in this
// directory, embedded at compile time. Not every tool has one.
//
//go:embed */v1.json
var FS embed.FS
