package usecase

import (
	"strings"
	"testing"

	"github.com/stigtools/stig-rag/internal/core/domain"
)

func rankedResults(ids ...string) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(ids))
	for i, id := range ids {
		out = append(out, domain.SearchResult{
			ControlID: id,
			Score:     float64(100 - i),
			Control:   domain.Control{ID: id, Title: "title " + id},
		})
	}
	return out
}

func TestParseRankingAcceptsPermutation(t *testing.T) {
	ranking, ok := parseRanking("2,1,4,3,5", 5)
	if !ok {
		t.Fatalf("expected valid ranking")
	}
	want := []int{2, 1, 4, 3, 5}
	for i := range want {
		if ranking[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ranking)
		}
	}
}

func TestParseRankingToleratesSurroundingText(t *testing.T) {
	if _, ok := parseRanking("Ranking: 3, 1, 2", 3); !ok {
		t.Fatalf("expected numbers extracted from chatty response")
	}
}

func TestParseRankingRejectsAnomalies(t *testing.T) {
	cases := map[string]string{
		"too few":      "1,2",
		"too many":     "1,2,3,4",
		"duplicate":    "1,2,2",
		"out of range": "0,1,2",
		"beyond n":     "1,2,4",
		"no numbers":   "I think the first is best",
	}
	for name, response := range cases {
		if _, ok := parseRanking(response, 3); ok {
			t.Fatalf("%s: expected rejection of %q", name, response)
		}
	}
}

func TestApplyRankingReordersAndRescores(t *testing.T) {
	results := rankedResults("V-1", "V-2", "V-3")
	reordered := applyRanking(results, []int{3, 1, 2})

	if reordered[0].ControlID != "V-3" || reordered[1].ControlID != "V-1" || reordered[2].ControlID != "V-2" {
		t.Fatalf("unexpected order: %v", reordered)
	}
	for i, want := range []float64{3, 2, 1} {
		if reordered[i].Score != want {
			t.Fatalf("expected positional score %f at %d, got %f", want, i, reordered[i].Score)
		}
	}
}

func TestBuildRerankPromptListsCandidates(t *testing.T) {
	prompt := buildRerankPrompt("ssh keys", rankedResults("V-1", "V-2"))
	if !strings.Contains(prompt, "1. V-1: title V-1") || !strings.Contains(prompt, "2. V-2: title V-2") {
		t.Fatalf("candidates missing from prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "ONLY the ranking numbers") {
		t.Fatalf("format instruction missing from prompt:\n%s", prompt)
	}
}
