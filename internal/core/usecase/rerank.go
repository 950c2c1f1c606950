package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/stigtools/stig-rag/internal/core/domain"
)

var rankingNumberPattern = regexp.MustCompile(`\b\d+\b`)

// buildRerankPrompt lists the candidate controls and demands a bare
// comma-separated ranking so small models cannot wander.
func buildRerankPrompt(question string, results []domain.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rank these STIG controls by relevance to: %q\n\n", question)
	for i, result := range results {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, result.ControlID, result.Control.Title)
	}
	b.WriteString("\nIMPORTANT: Respond with ONLY the ranking numbers separated by commas.\n")
	b.WriteString("Example: 2,1,4,3,5\n\nRanking:")
	return b.String()
}

// parseRanking extracts the integers from a ranking response and accepts them
// only when they form an exact permutation of 1..n.
func parseRanking(response string, n int) ([]int, bool) {
	numbers := rankingNumberPattern.FindAllString(response, -1)
	if len(numbers) != n {
		return nil, false
	}
	ranking := make([]int, 0, n)
	seen := make(map[int]struct{}, n)
	for _, raw := range numbers {
		rank, err := strconv.Atoi(raw)
		if err != nil || rank < 1 || rank > n {
			return nil, false
		}
		if _, dup := seen[rank]; dup {
			return nil, false
		}
		seen[rank] = struct{}{}
		ranking = append(ranking, rank)
	}
	return ranking, true
}

// applyRanking reorders results per the validated ranking and rewrites scores
// to reflect the new positions.
func applyRanking(results []domain.SearchResult, ranking []int) []domain.SearchResult {
	reordered := make([]domain.SearchResult, 0, len(results))
	for position, rank := range ranking {
		result := results[rank-1]
		result.Score = float64(len(results) - position)
		reordered = append(reordered, result)
	}
	return reordered
}
