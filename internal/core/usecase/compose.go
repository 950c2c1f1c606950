package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/stigtools/stig-rag/internal/core/domain"
	"github.com/stigtools/stig-rag/internal/core/ports"
)

// Context assembled for the generative backend uses only the top results with
// hard per-field truncation to keep generation latency bounded.
const (
	contextTopResults     = 2
	contextTitleLimit     = 150
	contextDescLimit      = 300
	contextCheckLimit     = 200
	contextFixLimit       = 200
	fallbackHighScore     = 50.0
	fallbackModerateScore = 20.0
	fallbackSomewhatScore = 5.0
)

// ComposeUseCase turns ranked results into a user-facing answer. It never
// fails: when the generative backend is disabled, unreachable, or returns an
// error marker, it degrades to the deterministic fallback rendering.
type ComposeUseCase struct {
	generator      ports.AnswerGenerator
	logger         *slog.Logger
	disabled       bool
	rerankDisabled bool
}

func NewComposeUseCase(generator ports.AnswerGenerator, logger *slog.Logger, disabled, rerankDisabled bool) *ComposeUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComposeUseCase{
		generator:      generator,
		logger:         logger,
		disabled:       disabled,
		rerankDisabled: rerankDisabled,
	}
}

// Compose returns the (possibly reordered) results, the answer text, the
// answer source, and whether reranking changed the order.
func (uc *ComposeUseCase) Compose(
	ctx context.Context,
	question string,
	results []domain.SearchResult,
) ([]domain.SearchResult, string, string, bool) {
	// Nothing to ground an answer in; the backend is never consulted.
	if len(results) == 0 {
		return results, uc.fallbackText(results), domain.AnsweredByFallback, false
	}
	if uc.disabled {
		uc.logger.Info("generative backend disabled, using fallback rendering")
		return results, uc.fallbackText(results), domain.AnsweredByFallback, false
	}
	if !uc.generator.IsAvailable(ctx) {
		uc.logger.Warn("generative backend unavailable, using fallback rendering")
		return results, uc.fallbackText(results), domain.AnsweredByFallback, false
	}

	reranked := false
	if len(results) > 1 && !uc.rerankDisabled {
		results, reranked = uc.rerank(ctx, question, results)
	}

	response := uc.generator.Generate(ctx, question, buildContext(results))
	if containsErrorMarker(response) {
		uc.logger.Warn("generation failed, using fallback rendering", "response", response)
		return results, uc.fallbackText(results), domain.AnsweredByFallback, reranked
	}
	return results, response, domain.AnsweredByGenerator, reranked
}

// rerank is strictly best-effort: any transport failure, malformed response,
// or non-permutation ranking keeps the original order.
func (uc *ComposeUseCase) rerank(
	ctx context.Context,
	question string,
	results []domain.SearchResult,
) ([]domain.SearchResult, bool) {
	if !uc.generator.SupportsReranking() {
		uc.logger.Info("model has known ranking formatting issues, skipping rerank")
		return results, false
	}

	response, err := uc.generator.Rerank(ctx, buildRerankPrompt(question, results))
	if err != nil {
		uc.logger.Warn("rerank request failed, keeping original order", "error", err)
		return results, false
	}
	ranking, ok := parseRanking(response, len(results))
	if !ok {
		uc.logger.Warn("invalid ranking response, keeping original order", "response", truncate(response, 50))
		return results, false
	}
	uc.logger.Info("reranked results", "count", len(results))
	return applyRanking(results, ranking), true
}

func buildContext(results []domain.SearchResult) string {
	top := results
	if len(top) > contextTopResults {
		top = top[:contextTopResults]
	}

	parts := make([]string, 0, len(top))
	for _, result := range top {
		parts = append(parts, fmt.Sprintf(
			"\nControl: %s\nTitle: %s\nDescription: %s\nCheck: %s\nFix: %s\n",
			result.ControlID,
			truncate(orDefault(result.Control.Title, "No title"), contextTitleLimit),
			truncate(orDefault(result.Control.Description, "No description"), contextDescLimit),
			truncate(orDefault(result.Control.Check, "No check procedure"), contextCheckLimit),
			truncate(orDefault(result.Control.Fix, "No fix procedure"), contextFixLimit),
		))
	}
	return strings.Join(parts, "\n")
}

// containsErrorMarker detects the sentinel strings the backend client emits in
// place of errors.
func containsErrorMarker(response string) bool {
	lower := strings.ToLower(response)
	return strings.Contains(lower, "timed out") || strings.Contains(lower, "error:")
}

func (uc *ComposeUseCase) fallbackText(results []domain.SearchResult) string {
	if len(results) == 0 {
		return "No relevant STIG controls found for your query."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant STIG controls:\n\n", len(results))
	for i, result := range results {
		fmt.Fprintf(&b, "%d. %s: %s (%s)\n",
			i+1,
			result.ControlID,
			orDefault(result.Control.Title, "No title"),
			relevanceLabel(result.Score),
		)
	}
	if uc.disabled {
		b.WriteString("\nEnhanced text search is active; generation is disabled.")
	} else {
		b.WriteString("\nNote: the generative backend is not available. Open a control for complete implementation guidance.")
	}
	return b.String()
}

func relevanceLabel(score float64) string {
	switch {
	case score >= fallbackHighScore:
		return "Highly Relevant"
	case score >= fallbackModerateScore:
		return "Moderately Relevant"
	case score >= fallbackSomewhatScore:
		return "Somewhat Relevant"
	default:
		return "Related"
	}
}

// truncate cuts at a byte budget without splitting a multi-byte rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
