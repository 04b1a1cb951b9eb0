// Package relational adapts the relational storage contract (§6) onto
// PostgreSQL via pgx, grounded on the teacher's pkg/database wrapper
// style adopted from the retrieval pack's logistics service.
package relational

import "time"

// Project is the owning entity for memories, sessions, notes, TODOs,
// and design decisions (§3).
type Project struct {
	ProjectID   string
	Name        string
	Description string
	Owner       string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Memory is the durable (mid/long tier) half of a Memory Record (§3).
// Short-tier records live entirely in the KV adapter and never reach
// this store.
type Memory struct {
	MemoryID   string
	ProjectID  string
	Tier       string // "mid" or "long"
	Content    string
	Category   string
	Importance float64
	Tags       []string
	Creator    string
	CreatedAt  time.Time
	Embedding  []float32 // populated for mid-tier rows only
}

// ErrorPattern is the durable half of the Error Firewall's fingerprint
// store (§3, §4.F).
type ErrorPattern struct {
	ErrorID            string
	ErrorType          string
	ErrorScene         string
	FeatureMap         map[string]string
	ErrorMessage       string
	Solution           string
	SolutionConfidence float64
	BlockLevel         string // "none", "warning", "block"
	OccurrenceCount    int64
	CreatedAt          time.Time
	LastSeenAt         time.Time
}

// Session, Todo, Note, and Decision back the supplemented project-context
// tool group (SPEC_FULL.md §3).
type Session struct {
	SessionID string
	ProjectID string
	Summary   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Todo struct {
	TodoID    string
	ProjectID string
	Text      string
	Status    string // "open", "done"
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Note struct {
	NoteID    string
	ProjectID string
	Content   string
	CreatedAt time.Time
}

type Decision struct {
	DecisionID string
	ProjectID  string
	Title      string
	Rationale  string
	CreatedAt  time.Time
}

// CodeEntity and CodeRelation back the code-knowledge tool group
// (SPEC_FULL.md §3); they are populated entirely by an external
// Analyzer, never parsed in-process.
type CodeEntity struct {
	EntityID  string
	ProjectID string
	Kind      string // "file", "package", "function", "type", ...
	Name      string
	Path      string
	Metadata  map[string]string
	CreatedAt time.Time
}

type CodeRelation struct {
	RelationID string
	ProjectID  string
	FromID     string
	ToID       string
	Kind       string // "calls", "imports", "implements", ...
	CreatedAt  time.Time
}
