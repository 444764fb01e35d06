package extractor

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/freewebtopdf/chatfiles/internal/domain"
)

func TestDeduplicate_SortsByRuleBeforeFirstWins(t *testing.T) {
	input := []domain.CodeBlockCandidate{
		{Filename: "late.js", SourceRule: domain.RuleNamedAs, FenceIndex: 0},
		{Filename: "early.js", SourceRule: domain.RuleInlineFilename, FenceIndex: 0},
		{Filename: "other.js", SourceRule: domain.RuleLeadIn, FenceIndex: 1},
	}

	result := Deduplicate(input)

	assert.Equal(t, []string{"early.js", "other.js"}, filenames(result))
}

func TestDeduplicate_WithinRuleFirstOccurrenceWins(t *testing.T) {
	input := []domain.CodeBlockCandidate{
		{Filename: "a.go", Content: "one", SourceRule: domain.RuleCommentTag, FenceIndex: 0},
		{Filename: "A.go", Content: "two", SourceRule: domain.RuleCommentTag, FenceIndex: 1},
	}

	result := Deduplicate(input)

	assert.Len(t, result, 1)
	assert.Equal(t, "one", result[0].Content)
}

func TestDeduplicate_DoesNotMutateInput(t *testing.T) {
	input := []domain.CodeBlockCandidate{
		{Filename: "b.go", SourceRule: domain.RuleNamedAs, FenceIndex: 1},
		{Filename: "a.go", SourceRule: domain.RuleInlineFilename, FenceIndex: 0},
	}

	Deduplicate(input)

	assert.Equal(t, "b.go", input[0].Filename)
}

func TestDeduplicate_Empty(t *testing.T) {
	assert.Empty(t, Deduplicate(nil))
}

// Property 1: output never holds two candidates with the same normalized name or fence
func TestProperty_DeduplicateUniqueness(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("names and fences are unique after deduplication", prop.ForAll(
		func(codes []int) bool {
			input := make([]domain.CodeBlockCandidate, len(codes))
			for i, code := range codes {
				input[i] = domain.CodeBlockCandidate{
					Filename:   fmt.Sprintf("File%d.go", code%6),
					Content:    "x",
					SourceRule: domain.RuleID(code/36%6 + 1),
					FenceIndex: code / 6 % 6,
				}
			}

			result := Deduplicate(input)

			names := map[string]bool{}
			fences := map[int]bool{}
			for _, c := range result {
				key := domain.NormalizeFilename(c.Filename)
				if names[key] || fences[c.FenceIndex] {
					return false
				}
				names[key] = true
				fences[c.FenceIndex] = true
			}
			return len(result) <= len(input)
		},
		gen.SliceOf(gen.IntRange(0, 215)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property 2: a fence keeps the candidate from the lowest rule that named it
func TestProperty_DeduplicateLowestRuleWins(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("each kept candidate has the lowest rule among its fence's candidates", prop.ForAll(
		func(rules []int) bool {
			input := make([]domain.CodeBlockCandidate, len(rules))
			lowest := 7
			for i, r := range rules {
				input[i] = domain.CodeBlockCandidate{
					Filename:   fmt.Sprintf("f%d.go", i),
					SourceRule: domain.RuleID(r),
					FenceIndex: 0,
				}
				lowest = min(lowest, r)
			}

			result := Deduplicate(input)
			if len(input) == 0 {
				return len(result) == 0
			}
			return len(result) == 1 && int(result[0].SourceRule) == lowest
		},
		gen.SliceOf(gen.IntRange(1, 6)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func filenames(candidates []domain.CodeBlockCandidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Filename
	}
	return names
}
