package memory

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcpenterprise/server/internal/storage/vector"
)

// KV is the short-tier dependency: SETEX-style writes and plain reads.
type KV interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// VectorIndex is the mid-tier dependency.
type VectorIndex interface {
	Upsert(ctx context.Context, memoryID, projectID, content, category string, importance float64, embedding []float32) error
	Search(ctx context.Context, projectID string, embedding []float32, limit int, efSearch int) ([]vector.Match, error)
}

// Embedder is the embedding collaborator dependency.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Relational is the long-tier dependency.
type Relational interface {
	EnsureProject(ctx context.Context, projectID, name string) error
	InsertMemory(ctx context.Context, m RelationalMemory) error
	TopMemoriesByImportance(ctx context.Context, projectID, tier string, limit int) ([]RelationalMemory, error)
	RecentMemories(ctx context.Context, projectID, tier string, limit int) ([]RelationalMemory, error)
	MemoriesByProject(ctx context.Context, projectID, tier string) ([]RelationalMemory, error)
}

// RelationalMemory mirrors internal/storage/relational.Memory without
// importing that package's Store type, keeping this package's
// dependency surface to the narrow interfaces above.
type RelationalMemory struct {
	MemoryID   string
	ProjectID  string
	Tier       string
	Content    string
	Category   string
	Importance float64
	Tags       []string
	Creator    string
	CreatedAt  time.Time
}

const (
	shortTTL        = 3600 * time.Second
	shortHalfLife   = 5 * time.Minute
	longCandidateFn = 3 // candidate set size multiplier for the long tier
	recentFallbackFn = 2
)

// breadcrumb is an in-process record of a recent short-tier touch,
// used to serve recency-scored short-tier recall. The KV contract
// (§6: GET/SETEX/DEL/pattern-DEL/PING) has no listing primitive, so
// the authoritative TTL'd copy lives in KV while this bounded,
// per-project ring supplies the ordering recall needs.
type breadcrumb struct {
	memoryID   string
	content    string
	category   string
	importance float64
	storedAt   time.Time
}

const breadcrumbRingSize = 200

// Store implements §4.E's write/recall contract across the three
// tiers, grounded on the teacher's session.Pool for its concurrency
// shape (independent per-tier work fanned out and joined).
type Store struct {
	kv         KV
	vectorIdx  VectorIndex
	embedder   Embedder
	relational Relational
	publisher  Publisher

	breadcrumbMu sync.Mutex
	breadcrumbs  map[string][]breadcrumb // project_id -> ring, oldest first

	statsMu sync.Mutex
	stats   []SearchStat
}

// New builds a Store. Any dependency may be nil; Store degrades the
// corresponding tier to a no-op rather than failing the whole recall.
func New(kv KV, vectorIdx VectorIndex, embedder Embedder, relational Relational, publisher Publisher) *Store {
	return &Store{
		kv:          kv,
		vectorIdx:   vectorIdx,
		embedder:    embedder,
		relational:  relational,
		publisher:   publisher,
		breadcrumbs: make(map[string][]breadcrumb),
	}
}

func (s *Store) recordBreadcrumb(projectID string, b breadcrumb) {
	s.breadcrumbMu.Lock()
	defer s.breadcrumbMu.Unlock()

	ring := append(s.breadcrumbs[projectID], b)
	if len(ring) > breadcrumbRingSize {
		ring = ring[len(ring)-breadcrumbRingSize:]
	}
	s.breadcrumbs[projectID] = ring
}

func shortKey(projectID, memoryID string) string {
	return fmt.Sprintf("short:%s:%s", projectID, memoryID)
}

// newMemoryID builds the mem_<yyyymmddHHMMSS>_<8 hex> identifier §3
// requires, taking the random suffix from a UUID's leading bytes
// rather than a fresh random source.
func newMemoryID(now time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("mem_%s_%s", now.Format("20060102150405"), hex.EncodeToString(id[:4]))
}

// Store writes in.Content at in.Tier, plus a short-tier recency
// breadcrumb when the tier is mid or long (§4.E: "storing at a higher
// tier also writes a short-tier breadcrumb... but not vice versa").
func (s *Store) Store(ctx context.Context, in StoreInput) (string, error) {
	now := time.Now()
	memoryID := newMemoryID(now)

	switch in.Tier {
	case TierShort:
		if err := s.writeShort(ctx, in.ProjectID, memoryID, in.Content); err != nil {
			return "", err
		}
		s.recordBreadcrumb(in.ProjectID, breadcrumb{memoryID: memoryID, content: in.Content, category: in.Category, importance: in.Importance, storedAt: now})
	case TierMid:
		if err := s.writeMid(ctx, in.ProjectID, memoryID, in); err != nil {
			return "", err
		}
		s.writeBreadcrumb(ctx, in.ProjectID, memoryID, in.Content)
		s.recordBreadcrumb(in.ProjectID, breadcrumb{memoryID: memoryID, content: in.Content, category: in.Category, importance: in.Importance, storedAt: now})
	case TierLong:
		if err := s.writeLong(ctx, in.ProjectID, memoryID, in, now); err != nil {
			return "", err
		}
		s.writeBreadcrumb(ctx, in.ProjectID, memoryID, in.Content)
		s.recordBreadcrumb(in.ProjectID, breadcrumb{memoryID: memoryID, content: in.Content, category: in.Category, importance: in.Importance, storedAt: now})
	default:
		return "", fmt.Errorf("memory: unknown tier %q", in.Tier)
	}

	s.publish("memory_updates", map[string]any{
		"memory_id":  memoryID,
		"project_id": in.ProjectID,
		"tier":       string(in.Tier),
	})
	return memoryID, nil
}

func (s *Store) writeShort(ctx context.Context, projectID, memoryID, content string) error {
	if s.kv == nil {
		return fmt.Errorf("memory: short tier unavailable")
	}
	return s.kv.Set(ctx, shortKey(projectID, memoryID), []byte(content), shortTTL)
}

// writeBreadcrumb best-effort mirrors a higher-tier write into the
// short tier; failures are swallowed since the breadcrumb is a
// recency aid, not the record of truth.
func (s *Store) writeBreadcrumb(ctx context.Context, projectID, memoryID, content string) {
	if s.kv == nil {
		return
	}
	_ = s.kv.Set(ctx, shortKey(projectID, memoryID), []byte(content), shortTTL)
}

func (s *Store) writeMid(ctx context.Context, projectID, memoryID string, in StoreInput) error {
	if s.vectorIdx == nil || s.embedder == nil {
		return fmt.Errorf("memory: mid tier unavailable")
	}
	content := in.Content
	if len(content) > 2000 {
		content = content[:2000]
	}
	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("memory: embed mid-tier content: %w", err)
	}
	return s.vectorIdx.Upsert(ctx, memoryID, projectID, content, in.Category, in.Importance, embedding)
}

func (s *Store) writeLong(ctx context.Context, projectID, memoryID string, in StoreInput, now time.Time) error {
	if s.relational == nil {
		return fmt.Errorf("memory: long tier unavailable")
	}
	if err := s.relational.EnsureProject(ctx, projectID, projectID); err != nil {
		return fmt.Errorf("memory: ensure project %s: %w", projectID, err)
	}
	return s.relational.InsertMemory(ctx, RelationalMemory{
		MemoryID:   memoryID,
		ProjectID:  projectID,
		Tier:       string(TierLong),
		Content:    in.Content,
		Category:   in.Category,
		Importance: in.Importance,
		Tags:       in.Tags,
		Creator:    in.Creator,
		CreatedAt:  now,
	})
}

// Recall runs the three per-tier retrievals concurrently, merges by
// §4.E's scoring rules, dedupes by memory_id preferring the highest
// score, and returns the top_k results.
func (s *Store) Recall(ctx context.Context, projectID, query string, topK int) (RecallResult, error) {
	if topK <= 0 {
		topK = 5
	}
	start := time.Now()

	var wg sync.WaitGroup
	var short, mid, long []Record
	wg.Add(3)

	go func() {
		defer wg.Done()
		short = s.recallShort(ctx, projectID)
	}()
	go func() {
		defer wg.Done()
		mid = s.recallMid(ctx, projectID, query, topK)
	}()
	go func() {
		defer wg.Done()
		long = s.recallLong(ctx, projectID, query, topK)
	}()
	wg.Wait()

	merged := mergeByHighestScore(short, mid, long)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > topK {
		merged = merged[:topK]
	}

	s.recordSearchStat(query, topK, time.Since(start), len(merged), true)

	tokenSaved := 0
	for _, m := range merged {
		tokenSaved += len(strings.Fields(m.Content))
	}
	return RecallResult{Memories: merged, TotalTokenSaved: tokenSaved}, nil
}

func mergeByHighestScore(groups ...[]Record) []Record {
	best := make(map[string]Record)
	var order []string
	for _, group := range groups {
		for _, r := range group {
			existing, ok := best[r.MemoryID]
			if !ok {
				order = append(order, r.MemoryID)
				best[r.MemoryID] = r
				continue
			}
			if r.Score > existing.Score {
				best[r.MemoryID] = r
			}
		}
	}
	out := make([]Record, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	return out
}

// recallShort scores every live breadcrumb by recency decay (half-life
// 5 min), per §4.E. Expired entries (older than the short-tier TTL)
// are dropped.
func (s *Store) recallShort(ctx context.Context, projectID string) []Record {
	s.breadcrumbMu.Lock()
	ring := append([]breadcrumb(nil), s.breadcrumbs[projectID]...)
	s.breadcrumbMu.Unlock()

	now := time.Now()
	out := make([]Record, 0, len(ring))
	for _, b := range ring {
		age := now.Sub(b.storedAt)
		if age > shortTTL {
			continue
		}
		out = append(out, Record{
			MemoryID:   b.memoryID,
			ProjectID:  projectID,
			Tier:       TierShort,
			Content:    b.content,
			Category:   b.category,
			Importance: b.importance,
			Score:      recencyScore(age),
			CreatedAt:  b.storedAt,
		})
	}
	return out
}

func (s *Store) recallMid(ctx context.Context, projectID, query string, topK int) []Record {
	if s.vectorIdx == nil || s.embedder == nil {
		return nil
	}
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil
	}
	efSearch := clampInt(2*topK, 64, 128)
	matches, err := s.vectorIdx.Search(ctx, projectID, embedding, topK, efSearch)
	if err != nil {
		return nil
	}

	out := make([]Record, 0, len(matches))
	for _, m := range matches {
		out = append(out, Record{
			MemoryID:   m.MemoryID,
			ProjectID:  m.ProjectID,
			Tier:       TierMid,
			Content:    m.Content,
			Category:   m.Category,
			Importance: float64(m.Importance),
			Score:      1 - float64(m.Distance), // cosine distance -> similarity
		})
	}
	return out
}

func (s *Store) recallLong(ctx context.Context, projectID, query string, topK int) []Record {
	if s.relational == nil {
		return nil
	}
	keywords := ExtractKeywords(query, DefaultQueryKeywords)

	var rows []RelationalMemory
	var err error
	if len(keywords) == 0 {
		rows, err = s.relational.RecentMemories(ctx, projectID, string(TierLong), recentFallbackFn*topK)
	} else {
		rows, err = s.relational.TopMemoriesByImportance(ctx, projectID, string(TierLong), longCandidateFn*topK)
	}
	if err != nil {
		return nil
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		score := row.Importance
		if len(keywords) > 0 {
			matched := 0
			contentKeywords := ExtractKeywords(row.Content, DefaultQueryKeywords)
			contentSet := make(map[string]bool, len(contentKeywords))
			for _, k := range contentKeywords {
				contentSet[k] = true
			}
			for _, k := range keywords {
				if contentSet[k] {
					matched++
				}
			}
			score = (float64(matched) / float64(len(keywords))) * row.Importance
		}
		out = append(out, Record{
			MemoryID:   row.MemoryID,
			ProjectID:  row.ProjectID,
			Tier:       TierLong,
			Content:    row.Content,
			Category:   row.Category,
			Importance: row.Importance,
			Tags:       row.Tags,
			Score:      score,
			CreatedAt:  row.CreatedAt,
		})
	}
	return out
}

func clampInt(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// recencyScore applies the short tier's exponential decay with a
// 5-minute half-life.
func recencyScore(age time.Duration) float64 {
	return math.Exp(-math.Ln2 * age.Seconds() / shortHalfLife.Seconds())
}

func (s *Store) recordSearchStat(query string, topK int, d time.Duration, results int, success bool) {
	stat := SearchStat{Query: query, TopK: topK, DurationMs: float64(d.Microseconds()) / 1000.0, Results: results, Success: success, Timestamp: time.Now()}

	s.statsMu.Lock()
	s.stats = append(s.stats, stat)
	if len(s.stats) > 1000 {
		s.stats = s.stats[len(s.stats)-1000:]
	}
	s.statsMu.Unlock()

	s.publish("vector_search", map[string]any{
		"query":     truncate(query, 50),
		"top_k":     topK,
		"time_ms":   stat.DurationMs,
		"results":   results,
		"success":   success,
		"timestamp": stat.Timestamp,
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// SearchLatencyPercentiles is the P50/P95/P99 mid-tier search latency
// summary exposed at the unified stats endpoint.
type SearchLatencyPercentiles struct {
	Count int     `json:"count"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// LatencyPercentiles computes P50/P95/P99 over the rolling mid-tier
// search buffer, grounded on the teacher's analysis.computePercentile
// (sort then rank-index lookup).
func (s *Store) LatencyPercentiles() SearchLatencyPercentiles {
	stats := s.Stats()
	if len(stats) == 0 {
		return SearchLatencyPercentiles{}
	}

	durations := make([]float64, len(stats))
	for i, stat := range stats {
		durations[i] = stat.DurationMs
	}
	sort.Float64s(durations)

	return SearchLatencyPercentiles{
		Count: len(durations),
		P50Ms: percentile(durations, 50),
		P95Ms: percentile(durations, 95),
		P99Ms: percentile(durations, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int((p / 100.0) * float64(len(sorted)))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	if index < 0 {
		index = 0
	}
	return sorted[index]
}

// Stats returns the rolling mid-tier search statistics buffer, newest
// last, for P50/P95/P99 computation at the stats endpoint.
func (s *Store) Stats() []SearchStat {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	out := make([]SearchStat, len(s.stats))
	copy(out, s.stats)
	return out
}

// ListMemories returns the memories the relational store holds for a
// project at the given tier, bypassing relevance scoring entirely.
// Only long-tier writes reach the relational store: mid-tier memories
// live in the vector index and short-tier ones in KV, so neither is
// listable here.
func (s *Store) ListMemories(ctx context.Context, projectID string, tier Tier) ([]Record, error) {
	if s.relational == nil {
		return nil, nil
	}
	rows, err := s.relational.MemoriesByProject(ctx, projectID, string(tier))
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{
			MemoryID:   r.MemoryID,
			ProjectID:  r.ProjectID,
			Tier:       Tier(r.Tier),
			Content:    r.Content,
			Category:   r.Category,
			Importance: r.Importance,
			Tags:       r.Tags,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) publish(channel string, payload any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(channel, payload)
}
