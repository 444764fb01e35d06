package extractor

import (
	"slices"

	"github.com/freewebtopdf/chatfiles/internal/domain"
)

// Deduplicate keeps at most one candidate per normalized filename and at most
// one per fence. Candidates are stable-sorted by rule, so for either key the
// earliest rule wins, and within a rule the earliest fence wins.
func Deduplicate(candidates []domain.CodeBlockCandidate) []domain.CodeBlockCandidate {
	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b domain.CodeBlockCandidate) int {
		return int(a.SourceRule) - int(b.SourceRule)
	})

	seenNames := make(map[string]struct{}, len(sorted))
	claimedFences := make(map[int]struct{}, len(sorted))
	result := make([]domain.CodeBlockCandidate, 0, len(sorted))

	for _, c := range sorted {
		// A fence already named by an earlier rule keeps that name
		if _, claimed := claimedFences[c.FenceIndex]; claimed {
			continue
		}
		claimedFences[c.FenceIndex] = struct{}{}

		key := domain.NormalizeFilename(c.Filename)
		if _, seen := seenNames[key]; seen {
			continue
		}
		seenNames[key] = struct{}{}
		result = append(result, c)
	}

	return result
}
