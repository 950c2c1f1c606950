package corpus

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stigtools/stig-rag/internal/core/domain"
)

func TestStoreReplaceAndGet(t *testing.T) {
	store := NewStore()
	if store.Loaded() {
		t.Fatalf("fresh store must report unloaded")
	}

	store.Replace([]domain.Control{
		{ID: "V-1", Title: "SSH daemon configuration", Severity: domain.SeverityMedium, VersionTag: "rhel8"},
		{ID: "V-2", Title: "Audit log retention", Severity: domain.SeverityHigh, VersionTag: "rhel9"},
	})

	if !store.Loaded() || store.Len() != 2 {
		t.Fatalf("expected 2 loaded controls, got %d", store.Len())
	}
	control, ok := store.Get("V-2")
	if !ok || control.Title != "Audit log retention" {
		t.Fatalf("Get(V-2) = %+v, %v", control, ok)
	}
	if _, ok := store.Get("V-404"); ok {
		t.Fatalf("expected miss for unknown id")
	}
}

func TestStoreSkipsRecordsWithoutID(t *testing.T) {
	store := NewStore()
	store.Replace([]domain.Control{
		{Title: "no id"},
		{ID: "V-1", Title: "kept"},
	})
	if store.Len() != 1 {
		t.Fatalf("expected id-less record skipped, got %d controls", store.Len())
	}
}

func TestStoreAllPreservesInsertionOrder(t *testing.T) {
	store := NewStore()
	controls := make([]domain.Control, 0, 20)
	for i := 0; i < 20; i++ {
		controls = append(controls, domain.Control{ID: fmt.Sprintf("V-%03d", 19-i)})
	}
	store.Replace(controls)

	all := store.All()
	for i := range controls {
		if all[i].ID != controls[i].ID {
			t.Fatalf("order broken at %d: %s vs %s", i, all[i].ID, controls[i].ID)
		}
	}
}

func TestStoreCandidatesFromIndex(t *testing.T) {
	store := NewStore()
	store.Replace([]domain.Control{
		{ID: "V-1", Title: "SSH daemon configuration"},
		{ID: "V-2", Title: "Firewall zones"},
		{ID: "V-3", Description: "Restart the ssh service after changes"},
	})

	candidates := store.Candidates([]string{"ssh"})
	if len(candidates) != 2 {
		t.Fatalf("expected 2 ssh candidates, got %d", len(candidates))
	}
	if candidates[0].ID != "V-1" || candidates[1].ID != "V-3" {
		t.Fatalf("candidates out of insertion order: %v", candidates)
	}

	if got := store.Candidates([]string{"nonexistent"}); len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", got)
	}
}

func TestStoreCandidatesFallsBackToFullScan(t *testing.T) {
	store := NewStore()
	store.Replace([]domain.Control{{ID: "V-1"}, {ID: "V-2"}})
	if got := store.Candidates(nil); len(got) != 2 {
		t.Fatalf("expected full scan on empty token set, got %d", len(got))
	}
}

func TestStoreIndexCoversSeverityAndVersionPhrases(t *testing.T) {
	store := NewStore()
	store.Replace([]domain.Control{
		{ID: "V-1", Title: "Something", Severity: domain.SeverityHigh, VersionTag: "rhel8"},
	})

	if got := store.Candidates([]string{"severity"}); len(got) != 1 {
		t.Fatalf("severity phrase not indexed")
	}
	if got := store.Candidates([]string{"high"}); len(got) != 1 {
		t.Fatalf("severity level not indexed")
	}
	if got := store.Candidates([]string{"rhel8"}); len(got) != 1 {
		t.Fatalf("version tag not indexed")
	}
}

func TestStoreVersionTags(t *testing.T) {
	store := NewStore()
	store.Replace([]domain.Control{
		{ID: "V-1", VersionTag: "rhel8"},
		{ID: "V-2", VersionTag: "rhel9"},
		{ID: "V-3", VersionTag: "rhel8"},
		{ID: "V-4", VersionTag: "unknown"},
		{ID: "V-5"},
	})
	tags := store.VersionTags()
	if len(tags) != 2 || tags[0] != "rhel8" || tags[1] != "rhel9" {
		t.Fatalf("unexpected version tags %v", tags)
	}
}

// Readers racing a Replace must only ever observe complete generations.
func TestStoreAtomicReplaceUnderConcurrentReads(t *testing.T) {
	store := NewStore()
	genA := []domain.Control{{ID: "A-1", Title: "alpha"}, {ID: "A-2", Title: "alpha"}}
	genB := []domain.Control{{ID: "B-1", Title: "beta"}, {ID: "B-2", Title: "beta"}, {ID: "B-3", Title: "beta"}}
	store.Replace(genA)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 8)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				all := store.All()
				if len(all) != 2 && len(all) != 3 {
					errs <- fmt.Sprintf("mixed generation size %d", len(all))
					return
				}
				prefix := all[0].ID[:1]
				for _, c := range all {
					if c.ID[:1] != prefix {
						errs <- fmt.Sprintf("mixed generation: %v", all)
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			store.Replace(genB)
		} else {
			store.Replace(genA)
		}
	}
	close(stop)
	wg.Wait()

	select {
	case msg := <-errs:
		t.Fatalf("%s", msg)
	default:
	}
}
