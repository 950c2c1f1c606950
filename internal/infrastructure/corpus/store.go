package corpus

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/stigtools/stig-rag/internal/core/domain"
)

// indexStopwords is the small stoplist applied at index build time. The query
// side applies a broader one; both drop tokens of length <= 2.
var indexStopwords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

var wordPattern = regexp.MustCompile(`\b\w+\b`)

// snapshot is one immutable corpus generation: controls in insertion order,
// the ID map, and the token index built over them.
type snapshot struct {
	controls    []domain.Control
	byID        map[string]int
	index       map[string][]int
	versionTags []string
}

// Store holds the corpus behind an atomic pointer. Replace builds the next
// snapshot completely before publishing it, so concurrent readers always see
// a single generation and never a partially indexed corpus.
type Store struct {
	current atomic.Pointer[snapshot]
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Replace(controls []domain.Control) {
	next := &snapshot{
		controls: make([]domain.Control, 0, len(controls)),
		byID:     make(map[string]int, len(controls)),
		index:    make(map[string][]int),
	}

	tagSeen := map[string]struct{}{}
	for _, control := range controls {
		if control.ID == "" {
			continue
		}
		if _, dup := next.byID[control.ID]; dup {
			continue
		}
		pos := len(next.controls)
		next.controls = append(next.controls, control)
		next.byID[control.ID] = pos

		for _, token := range indexTokens(control) {
			postings := next.index[token]
			if len(postings) > 0 && postings[len(postings)-1] == pos {
				continue
			}
			next.index[token] = append(postings, pos)
		}

		tag := control.VersionTag
		if tag != "" && !strings.EqualFold(tag, "unknown") {
			if _, dup := tagSeen[tag]; !dup {
				tagSeen[tag] = struct{}{}
				next.versionTags = append(next.versionTags, tag)
			}
		}
	}

	s.current.Store(next)
}

func (s *Store) Loaded() bool {
	snap := s.current.Load()
	return snap != nil && len(snap.controls) > 0
}

func (s *Store) Len() int {
	snap := s.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.controls)
}

func (s *Store) Get(id string) (domain.Control, bool) {
	snap := s.current.Load()
	if snap == nil {
		return domain.Control{}, false
	}
	pos, ok := snap.byID[id]
	if !ok {
		return domain.Control{}, false
	}
	return snap.controls[pos], true
}

// All returns the controls in insertion order of the last load.
func (s *Store) All() []domain.Control {
	snap := s.current.Load()
	if snap == nil {
		return nil
	}
	out := make([]domain.Control, len(snap.controls))
	copy(out, snap.controls)
	return out
}

// Candidates returns the union of the postings for the given tokens, in
// insertion order. With no usable tokens it falls back to the full corpus so
// phrase-only queries can still match.
func (s *Store) Candidates(tokens []string) []domain.Control {
	snap := s.current.Load()
	if snap == nil {
		return nil
	}
	if len(tokens) == 0 {
		return s.All()
	}

	hit := make(map[int]struct{})
	for _, token := range tokens {
		for _, pos := range snap.index[token] {
			hit[pos] = struct{}{}
		}
	}

	out := make([]domain.Control, 0, len(hit))
	for pos, control := range snap.controls {
		if _, ok := hit[pos]; ok {
			out = append(out, control)
		}
	}
	return out
}

func (s *Store) VersionTags() []string {
	snap := s.current.Load()
	if snap == nil {
		return nil
	}
	out := make([]string, len(snap.versionTags))
	copy(out, snap.versionTags)
	return out
}

// indexTokens tokenizes the searchable text of one control. The title is
// included twice so its tokens always reach the index even under future
// per-field weighting; severity and version become synthetic phrases.
func indexTokens(control domain.Control) []string {
	parts := []string{control.ID}
	if control.Title != "" {
		parts = append(parts, control.Title, control.Title)
	}
	if control.Description != "" {
		parts = append(parts, control.Description)
	}
	if control.Check != "" {
		parts = append(parts, control.Check)
	}
	if control.Fix != "" {
		parts = append(parts, control.Fix)
	}
	if control.Severity != "" {
		parts = append(parts, fmt.Sprintf("severity %s", control.Severity))
	}
	if control.VersionTag != "" {
		parts = append(parts, fmt.Sprintf("version %s", control.VersionTag))
	}

	words := wordPattern.FindAllString(strings.ToLower(strings.Join(parts, " ")), -1)
	out := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) <= 2 {
			continue
		}
		if _, stop := indexStopwords[word]; stop {
			continue
		}
		out = append(out, word)
	}
	return out
}
