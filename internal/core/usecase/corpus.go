package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stigtools/stig-rag/internal/core/domain"
	"github.com/stigtools/stig-rag/internal/core/ports"
)

// CorpusUseCase owns corpus lifecycle: decode, atomic replacement, stats.
type CorpusUseCase struct {
	codec     ports.CorpusCodec
	store     ports.ControlStore
	generator ports.AnswerGenerator
	events    ports.EventPublisher
	logger    *slog.Logger

	backendURL   string
	backendModel string
	dataSource   string
}

func NewCorpusUseCase(
	codec ports.CorpusCodec,
	store ports.ControlStore,
	generator ports.AnswerGenerator,
	events ports.EventPublisher,
	logger *slog.Logger,
	backendURL, backendModel string,
) *CorpusUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &CorpusUseCase{
		codec:        codec,
		store:        store,
		generator:    generator,
		events:       events,
		logger:       logger,
		backendURL:   backendURL,
		backendModel: backendModel,
		dataSource:   "uploaded",
	}
}

// MarkAutoLoaded flags the stats payload when the corpus came from the
// startup auto-load path rather than an upload.
func (uc *CorpusUseCase) MarkAutoLoaded() {
	uc.dataSource = "auto-loaded"
}

// LoadCorpus decodes and atomically installs a new corpus generation. On a
// decode failure the previous corpus stays live.
func (uc *CorpusUseCase) LoadCorpus(ctx context.Context, raw []byte) (int, error) {
	controls, err := uc.codec.Decode(raw)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidFormat, "decode corpus", err)
	}
	if len(controls) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidFormat, "decode corpus", fmt.Errorf("no controls found"))
	}

	uc.store.Replace(controls)
	uc.logger.Info("corpus replaced", "controls", len(controls))

	if uc.events != nil {
		if err := uc.events.PublishCorpusLoaded(ctx, len(controls)); err != nil {
			uc.logger.Warn("publish corpus loaded event failed", "error", err)
		}
	}
	return len(controls), nil
}

func (uc *CorpusUseCase) Stats(ctx context.Context) domain.CorpusStats {
	if !uc.store.Loaded() {
		return domain.CorpusStats{Status: "no_data"}
	}
	return domain.CorpusStats{
		Status:           "loaded",
		TotalControls:    uc.store.Len(),
		SearchMethod:     "weighted_field_search_with_llm_reranking",
		BackendAvailable: uc.generator.IsAvailable(ctx),
		BackendURL:       uc.backendURL,
		BackendModel:     uc.backendModel,
		DataSource:       uc.dataSource,
		VersionTags:      uc.store.VersionTags(),
	}
}

// ControlReadUseCase serves single-control lookups.
type ControlReadUseCase struct {
	store ports.ControlStore
}

func NewControlReadUseCase(store ports.ControlStore) *ControlReadUseCase {
	return &ControlReadUseCase{store: store}
}

func (uc *ControlReadUseCase) GetControl(_ context.Context, id string) (*domain.Control, error) {
	control, ok := uc.store.Get(id)
	if !ok {
		return nil, domain.WrapError(domain.ErrControlNotFound, "get control", fmt.Errorf("id %q", id))
	}
	return &control, nil
}
