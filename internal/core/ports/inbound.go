package ports

import (
	"context"

	"github.com/stigtools/stig-rag/internal/core/domain"
)

// CorpusAdmin is the inbound contract for corpus lifecycle operations.
type CorpusAdmin interface {
	LoadCorpus(ctx context.Context, raw []byte) (int, error)
	Stats(ctx context.Context) domain.CorpusStats
}

// ControlSearcher is the inbound contract for ranked control retrieval.
type ControlSearcher interface {
	Search(ctx context.Context, question string, limit int, filter domain.SearchFilter) ([]domain.SearchResult, error)
}

// QuestionAnswerer is the inbound contract for question answering over the corpus.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question, stigID string, limit int, filter domain.SearchFilter) (*domain.Answer, error)
}

// ControlReader is the inbound read model for single-control lookup.
type ControlReader interface {
	GetControl(ctx context.Context, id string) (*domain.Control, error)
}
