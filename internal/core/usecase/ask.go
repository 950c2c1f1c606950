package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stigtools/stig-rag/internal/core/domain"
	"github.com/stigtools/stig-rag/internal/core/ports"
)

// AskUseCase orchestrates a question: retrieval, composition, and best-effort
// history/event side channels.
type AskUseCase struct {
	searcher ports.ControlSearcher
	composer *ComposeUseCase
	store    ports.ControlStore
	history  ports.QueryHistoryStore
	events   ports.EventPublisher
	logger   *slog.Logger
}

func NewAskUseCase(
	searcher ports.ControlSearcher,
	composer *ComposeUseCase,
	store ports.ControlStore,
	history ports.QueryHistoryStore,
	events ports.EventPublisher,
	logger *slog.Logger,
) *AskUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AskUseCase{
		searcher: searcher,
		composer: composer,
		store:    store,
		history:  history,
		events:   events,
		logger:   logger,
	}
}

func (uc *AskUseCase) Ask(
	ctx context.Context,
	question, stigID string,
	limit int,
	filter domain.SearchFilter,
) (*domain.Answer, error) {
	started := time.Now()

	if strings.TrimSpace(stigID) != "" {
		answer, err := uc.lookup(strings.TrimSpace(stigID))
		if err != nil {
			return nil, err
		}
		uc.record(ctx, question, filter, answer, time.Since(started))
		return answer, nil
	}

	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("question is required"))
	}

	results, err := uc.searcher.Search(ctx, question, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("search controls: %w", err)
	}
	retrievalMs := time.Since(started).Milliseconds()

	generationStarted := time.Now()
	results, text, answeredBy, reranked := uc.composer.Compose(ctx, question, results)

	answer := &domain.Answer{
		Text:         text,
		Sources:      results,
		AnsweredBy:   answeredBy,
		Reranked:     reranked,
		RetrievalMs:  retrievalMs,
		GenerationMs: time.Since(generationStarted).Milliseconds(),
	}
	uc.record(ctx, question, filter, answer, time.Since(started))
	return answer, nil
}

// lookup short-circuits retrieval when the caller already knows the control ID.
func (uc *AskUseCase) lookup(stigID string) (*domain.Answer, error) {
	control, ok := uc.store.Get(stigID)
	if !ok {
		return nil, domain.WrapError(domain.ErrControlNotFound, "lookup control", fmt.Errorf("id %q", stigID))
	}
	return &domain.Answer{
		Text:       formatControlText(control),
		AnsweredBy: domain.AnsweredByLookup,
		Sources: []domain.SearchResult{{
			ControlID: control.ID,
			Control:   control,
		}},
	}, nil
}

func formatControlText(control domain.Control) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", control.ID, orDefault(control.Title, "No title"))
	fmt.Fprintf(&b, "Severity: %s\n\n", control.Severity)
	fmt.Fprintf(&b, "Description:\n%s\n\n", orDefault(control.Description, "No description"))
	fmt.Fprintf(&b, "Check:\n%s\n\n", orDefault(control.Check, "No check procedure"))
	fmt.Fprintf(&b, "Fix:\n%s\n", orDefault(control.Fix, "No fix procedure"))
	return b.String()
}

// record writes the history row and publishes the answered event. Both are
// observers: failures are logged and never surface to the caller.
func (uc *AskUseCase) record(
	ctx context.Context,
	question string,
	filter domain.SearchFilter,
	answer *domain.Answer,
	elapsed time.Duration,
) {
	rec := domain.QueryRecord{
		ID:            uuid.NewString(),
		Question:      question,
		VersionFilter: filter.Version,
		ResultCount:   len(answer.Sources),
		AnsweredBy:    answer.AnsweredBy,
		DurationMs:    elapsed.Milliseconds(),
	}
	if len(answer.Sources) > 0 {
		rec.TopControlID = answer.Sources[0].ControlID
		rec.TopScore = answer.Sources[0].Score
	}

	if uc.history != nil {
		if err := uc.history.RecordQuery(ctx, rec); err != nil {
			uc.logger.Warn("record query history failed", "error", err)
		}
	}
	if uc.events != nil {
		if err := uc.events.PublishQuestionAnswered(ctx, rec); err != nil {
			uc.logger.Warn("publish answered event failed", "error", err)
		}
	}
}
