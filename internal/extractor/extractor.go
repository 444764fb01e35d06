// Package extractor finds code blocks in assistant text and decides which file
// each one belongs to.
package extractor

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/freewebtopdf/chatfiles/internal/domain"
	"github.com/freewebtopdf/chatfiles/internal/language"
)

// Extractor applies an ordered rule table to assistant text
type Extractor struct {
	rules []Rule

	// Counters for monitoring
	scans      atomic.Int64
	fences     atomic.Int64
	ruleCounts []atomic.Int64 // parallel to rules
}

// NewExtractor creates an Extractor with the default rule table
func NewExtractor() *Extractor {
	return NewExtractorWithRules(DefaultRules)
}

// NewExtractorWithRules creates an Extractor over a custom rule table. The table
// is used in the given order; Deduplicate still orders candidates by rule ID.
func NewExtractorWithRules(rules []Rule) *Extractor {
	return &Extractor{
		rules:      rules,
		ruleCounts: make([]atomic.Int64, len(rules)),
	}
}

// Extract runs every rule over every fence and returns the raw, undeduplicated
// candidates in rule order
func (e *Extractor) Extract(text string) []domain.CodeBlockCandidate {
	e.scans.Add(1)

	fences := ScanFences(text)
	if len(fences) == 0 {
		return nil
	}
	e.fences.Add(int64(len(fences)))

	var candidates []domain.CodeBlockCandidate
	for i, rule := range e.rules {
		for _, f := range fences {
			name, ok := rule.Match(f)
			if !ok || !validToken(name) {
				continue
			}

			content := strings.TrimSpace(f.Body)
			if rule.Extract != nil {
				content = rule.Extract(f)
			}
			if content == "" {
				continue
			}

			candidates = append(candidates, domain.CodeBlockCandidate{
				Filename:   name,
				Content:    content,
				Language:   language.Normalize(f.Language),
				SourceRule: rule.ID,
				FenceIndex: f.Index,
			})
			e.ruleCounts[i].Add(1)
		}
	}

	return candidates
}

// ExtractUnique is Extract followed by Deduplicate
func (e *Extractor) ExtractUnique(text string) []domain.CodeBlockCandidate {
	return Deduplicate(e.Extract(text))
}

// HealthCheck reports the extractor state; it has no external dependencies
func (e *Extractor) HealthCheck(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatusHealthy
	message := "Extractor is operating normally"
	if len(e.rules) == 0 {
		status = domain.HealthStatusDegraded
		message = "No extraction rules configured"
	}

	return domain.HealthStatus{
		Status:  status,
		Message: message,
		Details: map[string]any{
			"rule_count": len(e.rules),
		},
		Timestamp: time.Now(),
	}
}

// GetStats returns extraction counters
func (e *Extractor) GetStats(ctx context.Context) map[string]any {
	perRule := make(map[string]int64, len(e.rules))
	for i, rule := range e.rules {
		perRule[rule.ID.String()] = e.ruleCounts[i].Load()
	}

	return map[string]any{
		"rule_count":      len(e.rules),
		"texts_scanned":   e.scans.Load(),
		"fences_scanned":  e.fences.Load(),
		"candidates_rule": perRule,
	}
}
