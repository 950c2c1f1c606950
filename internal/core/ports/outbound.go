package ports

import (
	"context"

	"github.com/stigtools/stig-rag/internal/core/domain"
)

// ControlStore holds the loaded corpus and its token index. Replace swaps the
// whole corpus atomically; readers always observe a single generation.
type ControlStore interface {
	Replace(controls []domain.Control)
	Get(id string) (domain.Control, bool)
	All() []domain.Control
	Candidates(tokens []string) []domain.Control
	Loaded() bool
	Len() int
	VersionTags() []string
}

// CorpusCodec decodes raw corpus payloads into control records.
type CorpusCodec interface {
	Decode(raw []byte) ([]domain.Control, error)
}

// AnswerGenerator talks to the generative backend. Generate never returns an
// error: transport failures come back as descriptive sentinel strings so the
// composer can degrade to the deterministic fallback.
type AnswerGenerator interface {
	IsAvailable(ctx context.Context) bool
	Generate(ctx context.Context, question, contextText string) string
	Rerank(ctx context.Context, prompt string) (string, error)
	SupportsReranking() bool
}

// QueryHistoryStore persists answered-question traces.
type QueryHistoryStore interface {
	RecordQuery(ctx context.Context, rec domain.QueryRecord) error
	RecentQueries(ctx context.Context, limit int) ([]domain.QueryRecord, error)
}

// EventPublisher emits fire-and-forget corpus and answer events.
type EventPublisher interface {
	PublishCorpusLoaded(ctx context.Context, controlCount int) error
	PublishQuestionAnswered(ctx context.Context, rec domain.QueryRecord) error
}
