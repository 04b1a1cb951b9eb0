package firewall

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// exactMatchThreshold is §4.F's ≥0.50 feature-overlap confidence gate.
const exactMatchThreshold = 0.50

// highRiskThreshold promotes a feature-overlap match from medium to
// high risk at ≥0.85 confidence.
const highRiskThreshold = 0.85

// Relational is the durable Error Pattern store dependency. It is
// optional: a nil Relational degrades the firewall to an in-memory
// cache only, satisfying §4.F's "functionality must not stop" failure
// semantics when the backing store (or, per the spec, the vector
// index it may also use) is unavailable.
type Relational interface {
	UpsertErrorPattern(ctx context.Context, e Pattern) error
	AllErrorPatterns(ctx context.Context) ([]Pattern, error)
}

// Firewall implements §4.F's four operations over an in-memory cache
// of Error Patterns, backed by Relational for durability.
type Firewall struct {
	relational Relational
	publisher  Publisher

	mu       sync.RWMutex
	patterns map[string]Pattern // error_id -> pattern

	totalOccurrences atomic.Int64
	blockedCount     atomic.Int64
	warnedCount      atomic.Int64
	interceptedCount atomic.Int64
}

// New builds a Firewall. relational/publisher may be nil.
func New(relational Relational, publisher Publisher) *Firewall {
	return &Firewall{
		relational: relational,
		publisher:  publisher,
		patterns:   make(map[string]Pattern),
	}
}

// Load populates the in-memory cache from durable storage, intended
// to run once at startup. A nil Relational is a no-op.
func (f *Firewall) Load(ctx context.Context) error {
	if f.relational == nil {
		return nil
	}
	rows, err := f.relational.AllErrorPatterns(ctx)
	if err != nil {
		return fmt.Errorf("firewall: load patterns: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range rows {
		f.patterns[row.ErrorID] = row
		f.totalOccurrences.Add(row.OccurrenceCount)
	}
	return nil
}

// RecordError implements record_error: fingerprint, insert if new,
// otherwise bump occurrence_count and keep the prior solution unless
// a non-empty replacement is supplied.
func (f *Firewall) RecordError(ctx context.Context, in RecordInput) (string, bool, error) {
	errorID := Fingerprint(in.ErrorType, in.FeatureMap)
	now := time.Now()

	f.mu.Lock()
	existing, isNew := f.patterns[errorID]
	isNew = !isNew
	if isNew {
		existing = Pattern{
			ErrorID:      errorID,
			ErrorType:    in.ErrorType,
			ErrorScene:   in.ErrorScene,
			FeatureMap:   in.FeatureMap,
			ErrorMessage: in.ErrorMessage,
			Solution:     in.Solution,
			BlockLevel:   in.BlockLevel,
			CreatedAt:    now,
		}
	} else {
		existing.OccurrenceCount++
		if in.Solution != "" {
			existing.Solution = in.Solution
		}
	}
	existing.OccurrenceCount = maxInt64(existing.OccurrenceCount, 1)
	existing.LastSeenAt = now
	f.patterns[errorID] = existing
	f.mu.Unlock()

	f.totalOccurrences.Add(1)

	if f.relational != nil {
		if err := f.relational.UpsertErrorPattern(ctx, existing); err != nil {
			return "", false, fmt.Errorf("firewall: persist error pattern %s: %w", errorID, err)
		}
	}

	f.publishAsync("error_recorded", map[string]any{
		"error_id":    errorID,
		"error_type":  in.ErrorType,
		"error_scene": in.ErrorScene,
		"is_new":      isNew,
	})

	return errorID, isNew, nil
}

// CheckOperation implements check_operation: exact fingerprint match,
// else best feature-overlap match among same-error_type patterns.
func (f *Firewall) CheckOperation(ctx context.Context, operationType string, params map[string]string) Decision {
	fp := Fingerprint(operationType, params)

	f.mu.RLock()
	exact, ok := f.patterns[fp]
	var sameType []Pattern
	if !ok {
		for _, p := range f.patterns {
			if p.ErrorType == operationType {
				sameType = append(sameType, p)
			}
		}
	}
	f.mu.RUnlock()

	if ok {
		decision := Decision{
			ShouldBlock: exact.BlockLevel == BlockBlock,
			Risk:        RiskHigh,
			Confidence:  1.0,
			Matched:     true,
			ErrorID:     exact.ErrorID,
			Solution:    exact.Solution,
		}
		f.recordIntercept(exact, decision)
		return decision
	}

	best, bestConfidence, found := bestOverlapMatch(sameType, params)
	if found && bestConfidence >= exactMatchThreshold && (best.BlockLevel == BlockWarning || best.BlockLevel == BlockBlock) {
		risk := RiskMedium
		if bestConfidence >= highRiskThreshold {
			risk = RiskHigh
		}
		decision := Decision{
			ShouldBlock: best.BlockLevel == BlockBlock,
			Risk:        risk,
			Confidence:  bestConfidence,
			Matched:     true,
			ErrorID:     best.ErrorID,
			Solution:    best.Solution,
		}
		f.recordIntercept(best, decision)
		return decision
	}

	return Decision{ShouldBlock: false, Risk: RiskLow}
}

// bestOverlapMatch scores each candidate's stored feature keys present
// in params: 1.0 for an equal value, 0.8 case-insensitive, 0 otherwise;
// confidence = sum / |stored_features|.
func bestOverlapMatch(candidates []Pattern, params map[string]string) (Pattern, float64, bool) {
	var best Pattern
	bestConfidence := -1.0
	found := false

	for _, candidate := range candidates {
		if len(candidate.FeatureMap) == 0 {
			continue
		}
		var sum float64
		for key, storedValue := range candidate.FeatureMap {
			paramValue, present := params[key]
			switch {
			case present && paramValue == storedValue:
				sum += 1.0
			case present && strings.EqualFold(paramValue, storedValue):
				sum += 0.8
			}
		}
		confidence := sum / float64(len(candidate.FeatureMap))
		if confidence > bestConfidence {
			bestConfidence = confidence
			best = candidate
			found = true
		}
	}
	return best, bestConfidence, found
}

// recordIntercept updates counters and publishes error_intercepted.
func (f *Firewall) recordIntercept(p Pattern, d Decision) {
	f.interceptedCount.Add(1)
	action := "warned"
	if d.ShouldBlock {
		f.blockedCount.Add(1)
		action = "blocked"
	} else {
		f.warnedCount.Add(1)
	}

	f.publishAsync("error_intercepted", map[string]any{
		"error_id":       p.ErrorID,
		"operation_type": p.ErrorType,
		"action":         action,
		"confidence":     d.Confidence,
		"solution":       p.Solution,
	})
}

// publishAsync dispatches onto a background goroutine so a slow or
// failing subscriber never delays the caller, per §4.F's "must be
// non-blocking" requirement.
func (f *Firewall) publishAsync(channel string, payload any) {
	if f.publisher == nil {
		return
	}
	go f.publisher.Publish(channel, payload)
}

// QueryErrors implements query_errors over the in-memory cache.
func (f *Firewall) QueryErrors(filter Filter) []Pattern {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Pattern, 0, len(f.patterns))
	for _, p := range f.patterns {
		if filter.ErrorType != "" && p.ErrorType != filter.ErrorType {
			continue
		}
		if filter.BlockLevel != "" && p.BlockLevel != filter.BlockLevel {
			continue
		}
		out = append(out, p)
	}
	return out
}

// GetStats implements get_stats.
func (f *Firewall) GetStats() Stats {
	f.mu.RLock()
	total := len(f.patterns)
	f.mu.RUnlock()

	return Stats{
		TotalPatterns:    total,
		TotalOccurrences: f.totalOccurrences.Load(),
		BlockedCount:     f.blockedCount.Load(),
		WarnedCount:      f.warnedCount.Load(),
		InterceptedCount: f.interceptedCount.Load(),
	}
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
