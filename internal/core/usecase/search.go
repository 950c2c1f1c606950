package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/stigtools/stig-rag/internal/core/domain"
	"github.com/stigtools/stig-rag/internal/core/ports"
)

const defaultSearchLimit = 5

type SearchUseCase struct {
	store        ports.ControlStore
	defaultLimit int
	minScore     float64
}

func NewSearchUseCase(store ports.ControlStore, defaultLimit int, minScore float64) *SearchUseCase {
	if defaultLimit <= 0 {
		defaultLimit = defaultSearchLimit
	}
	if minScore <= 0 {
		minScore = 1.0
	}
	return &SearchUseCase{
		store:        store,
		defaultLimit: defaultLimit,
		minScore:     minScore,
	}
}

// Search runs the retrieval pipeline: enhance, filter, score, threshold,
// stable sort, truncate. An unloaded corpus yields an empty result, not an
// error.
func (uc *SearchUseCase) Search(
	_ context.Context,
	question string,
	limit int,
	filter domain.SearchFilter,
) ([]domain.SearchResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("question is required"))
	}
	if limit <= 0 {
		limit = uc.defaultLimit
	}
	if !uc.store.Loaded() {
		return []domain.SearchResult{}, nil
	}

	queryLower := strings.ToLower(question)
	tokens := tokenizeQuery(enhanceQuery(queryLower))

	// The index covers every control a token can reach; phrase-only queries
	// fall back to a full scan inside Candidates.
	candidates := uc.store.Candidates(tokens)

	scored := make([]domain.SearchResult, 0, len(candidates))
	for _, control := range candidates {
		if !matchesVersion(control.VersionTag, filter.Version) {
			continue
		}
		score := scoreControl(control, queryLower, tokens)
		if score < uc.minScore {
			continue
		}
		scored = append(scored, domain.SearchResult{
			ControlID: control.ID,
			Score:     score,
			Control:   control,
		})
	}

	// Candidates arrive in corpus insertion order; the stable sort keeps that
	// order among equal scores. Sorting happens on raw scores so that raw
	// near-ties are not collapsed by rounding; rounding is presentational.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	for i := range scored {
		scored[i].Score = roundScore(scored[i].Score)
	}
	return scored, nil
}

// matchesVersion accepts a control when either string contains the other,
// case-insensitively. An empty filter matches everything; an untagged control
// matches only the empty filter.
func matchesVersion(versionTag, filter string) bool {
	if filter == "" {
		return true
	}
	if versionTag == "" {
		return false
	}
	tag := strings.ToLower(versionTag)
	want := strings.ToLower(filter)
	return strings.Contains(tag, want) || strings.Contains(want, tag)
}

func roundScore(score float64) float64 {
	return math.Round(score*10) / 10
}
