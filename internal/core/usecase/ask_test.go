package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stigtools/stig-rag/internal/core/domain"
)

type searcherFake struct {
	results []domain.SearchResult
	err     error
	limit   int
}

func (f *searcherFake) Search(_ context.Context, _ string, limit int, _ domain.SearchFilter) ([]domain.SearchResult, error) {
	f.limit = limit
	return f.results, f.err
}

type historyFake struct {
	records []domain.QueryRecord
	err     error
}

func (f *historyFake) RecordQuery(_ context.Context, rec domain.QueryRecord) error {
	f.records = append(f.records, rec)
	return f.err
}

func (f *historyFake) RecentQueries(_ context.Context, limit int) ([]domain.QueryRecord, error) {
	if limit > 0 && limit < len(f.records) {
		return f.records[:limit], f.err
	}
	return f.records, f.err
}

type publisherFake struct {
	loaded   int
	answered []domain.QueryRecord
	err      error
}

func (f *publisherFake) PublishCorpusLoaded(_ context.Context, count int) error {
	f.loaded = count
	return f.err
}

func (f *publisherFake) PublishQuestionAnswered(_ context.Context, rec domain.QueryRecord) error {
	f.answered = append(f.answered, rec)
	return f.err
}

func newAskFixture(results []domain.SearchResult) (*AskUseCase, *generatorFake, *historyFake, *publisherFake) {
	gen := &generatorFake{available: false}
	history := &historyFake{}
	events := &publisherFake{}
	store := sshCorpus()
	uc := NewAskUseCase(
		&searcherFake{results: results},
		NewComposeUseCase(gen, nil, false, false),
		store,
		history,
		events,
		nil,
	)
	return uc, gen, history, events
}

func TestAskComposesAndRecords(t *testing.T) {
	uc, _, history, events := newAskFixture(rankedResults("V-1", "V-2"))

	answer, err := uc.Ask(context.Background(), "ssh keys", "", 5, domain.SearchFilter{Version: "rhel8"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.AnsweredBy != domain.AnsweredByFallback {
		t.Fatalf("expected fallback with unavailable backend, got %s", answer.AnsweredBy)
	}
	if len(history.records) != 1 {
		t.Fatalf("expected one history record, got %d", len(history.records))
	}
	rec := history.records[0]
	if rec.TopControlID != "V-1" || rec.ResultCount != 2 || rec.VersionFilter != "rhel8" {
		t.Fatalf("unexpected history record %+v", rec)
	}
	if rec.ID == "" {
		t.Fatalf("expected generated record id")
	}
	if len(events.answered) != 1 {
		t.Fatalf("expected answered event")
	}
}

func TestAskSideChannelFailuresAreSwallowed(t *testing.T) {
	uc, _, history, events := newAskFixture(rankedResults("V-1"))
	history.err = errors.New("db down")
	events.err = errors.New("broker down")

	if _, err := uc.Ask(context.Background(), "ssh", "", 5, domain.SearchFilter{}); err != nil {
		t.Fatalf("Ask() must not surface side-channel errors, got %v", err)
	}
}

func TestAskEmptyQuestionIsInvalid(t *testing.T) {
	uc, _, _, _ := newAskFixture(nil)
	_, err := uc.Ask(context.Background(), "   ", "", 5, domain.SearchFilter{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAskStigIDShortCircuitsToLookup(t *testing.T) {
	uc, gen, _, _ := newAskFixture(nil)

	answer, err := uc.Ask(context.Background(), "", "V-230296", 5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.AnsweredBy != domain.AnsweredByLookup {
		t.Fatalf("expected lookup answer, got %s", answer.AnsweredBy)
	}
	if !strings.Contains(answer.Text, "V-230296") {
		t.Fatalf("lookup answer missing control id: %q", answer.Text)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].ControlID != "V-230296" {
		t.Fatalf("expected the control as sole source, got %v", answer.Sources)
	}
	if gen.probeCalls != 0 {
		t.Fatalf("lookup must not touch the backend")
	}
}

func TestAskUnknownStigID(t *testing.T) {
	uc, _, _, _ := newAskFixture(nil)
	_, err := uc.Ask(context.Background(), "", "V-0", 5, domain.SearchFilter{})
	if !domain.IsKind(err, domain.ErrControlNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type codecFake struct {
	controls []domain.Control
	err      error
}

func (f *codecFake) Decode([]byte) ([]domain.Control, error) { return f.controls, f.err }

func TestLoadCorpusReplacesStore(t *testing.T) {
	store := &storeFake{}
	events := &publisherFake{}
	uc := NewCorpusUseCase(
		&codecFake{controls: []domain.Control{{ID: "V-1"}, {ID: "V-2"}}},
		store,
		&generatorFake{},
		events,
		nil,
		"http://localhost:11434", "llama3.2:3b",
	)

	count, err := uc.LoadCorpus(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("LoadCorpus() error = %v", err)
	}
	if count != 2 || store.Len() != 2 {
		t.Fatalf("expected 2 controls installed, got count=%d len=%d", count, store.Len())
	}
	if events.loaded != 2 {
		t.Fatalf("expected corpus loaded event with count 2, got %d", events.loaded)
	}
}

func TestLoadCorpusDecodeFailureKeepsPreviousCorpus(t *testing.T) {
	store := &storeFake{}
	store.Replace([]domain.Control{{ID: "V-old"}})
	uc := NewCorpusUseCase(
		&codecFake{err: errors.New("not json")},
		store,
		&generatorFake{},
		nil,
		nil,
		"", "",
	)

	_, err := uc.LoadCorpus(context.Background(), []byte(`garbage`))
	if !domain.IsKind(err, domain.ErrInvalidFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	if _, ok := store.Get("V-old"); !ok {
		t.Fatalf("previous corpus must remain live after failed load")
	}
}

func TestStatsDistinguishesUnloadedCorpus(t *testing.T) {
	store := &storeFake{}
	uc := NewCorpusUseCase(&codecFake{}, store, &generatorFake{available: true}, nil, nil, "", "")

	if stats := uc.Stats(context.Background()); stats.Status != "no_data" {
		t.Fatalf("expected no_data status, got %q", stats.Status)
	}

	store.Replace([]domain.Control{{ID: "V-1", VersionTag: "rhel8"}})
	stats := uc.Stats(context.Background())
	if stats.Status != "loaded" || stats.TotalControls != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if !stats.BackendAvailable {
		t.Fatalf("expected backend availability surfaced in stats")
	}
}
