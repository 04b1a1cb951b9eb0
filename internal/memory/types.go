// Package memory implements the Tiered Memory of §4.E: writes fan out
// to short (KV), mid (vector), and long (relational) tiers; recall
// queries all three concurrently and merges scores.
package memory

import "time"

// Tier names a memory's storage location.
type Tier string

const (
	TierShort Tier = "short"
	TierMid   Tier = "mid"
	TierLong  Tier = "long"
)

// Record is a single recalled memory, always carrying its source tier.
type Record struct {
	MemoryID  string
	ProjectID string
	Tier      Tier
	Content   string
	Category  string
	Importance float64
	Tags      []string
	Score     float64
	CreatedAt time.Time
}

// StoreInput is the payload accepted by Store.
type StoreInput struct {
	ProjectID  string
	Tier       Tier
	Content    string
	Category   string
	Importance float64
	Tags       []string
	Creator    string
}

// RecallResult is the payload returned by Recall.
type RecallResult struct {
	Memories       []Record
	TotalTokenSaved int
}

// SearchStat is one entry in the rolling mid-tier search statistics
// buffer (§4.E "Statistics").
type SearchStat struct {
	Query      string
	TopK       int
	DurationMs float64
	Results    int
	Success    bool
	Timestamp  time.Time
}

// Publisher is the narrow pub/sub dependency this package needs.
type Publisher interface {
	Publish(channel string, payload any)
}
