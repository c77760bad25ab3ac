// Package prefilter narrows the calendar entries each candidate is compared
// against, using embedding similarity. It is a recall gate, not a matcher:
// when in doubt it keeps entries and lets the classifier decide.
package prefilter

import (
	"context"
	"math"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// DefaultThreshold is the inclusive cosine similarity cutoff.
const DefaultThreshold = 0.75

// Embedder produces a dense vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service builds per-candidate counterpart sets.
type Service struct {
	log       ectologger.Logger
	embedder  Embedder
	threshold float64
}

// NewService creates a prefilter service. A non-positive threshold falls back
// to DefaultThreshold.
func NewService(log ectologger.Logger, embedder Embedder, threshold float64) *Service {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Service{
		log:       log,
		embedder:  embedder,
		threshold: threshold,
	}
}

// BuildCounterparts returns one counterpart set per candidate, in candidate
// order. Summary and description are embedded as independent subjects; a
// candidate/entry pair is kept when any subject pair reaches the threshold
// (inclusive).
//
// If any embedding call fails, the filter degrades to returning the full
// entry set for every candidate rather than dropping possible matches.
// usedFallback reports that degradation. An empty set for a candidate is a
// legitimate no-counterpart signal, not an error.
func (s *Service) BuildCounterparts(
	ctx context.Context,
	candidates []models.CandidateEvent,
	entries []models.CalendarEntry,
) (sets [][]models.CalendarEntry, usedFallback bool) {
	ctx, span := tracing.StartSpan(ctx, "prefilter.Service.BuildCounterparts")
	defer span.End()

	sets = make([][]models.CalendarEntry, len(candidates))

	if len(entries) == 0 {
		for i := range sets {
			sets[i] = []models.CalendarEntry{}
		}
		return sets, false
	}

	vectors, err := s.embedAll(ctx, candidates, entries)
	if err != nil {
		s.log.WithContext(ctx).WithError(err).Warn("Embedding failed; passing full entry set to the classifier")
		for i := range sets {
			sets[i] = entries
		}
		return sets, true
	}

	for i := range candidates {
		sets[i] = s.selectEntries(&candidates[i], entries, vectors)
	}

	return sets, false
}

// embedAll embeds every distinct text exactly once per run.
func (s *Service) embedAll(
	ctx context.Context,
	candidates []models.CandidateEvent,
	entries []models.CalendarEntry,
) (map[string][]float32, error) {
	texts := make(map[string]struct{})
	for i := range candidates {
		for _, t := range subjectTexts(candidates[i].Summary, candidates[i].Description) {
			texts[t] = struct{}{}
		}
	}
	for i := range entries {
		for _, t := range subjectTexts(entries[i].Summary, entries[i].Description) {
			texts[t] = struct{}{}
		}
	}

	vectors := make(map[string][]float32, len(texts))
	for t := range texts {
		vec, err := s.embedder.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vectors[t] = vec
	}

	return vectors, nil
}

// selectEntries keeps the entries whose best subject similarity reaches the
// threshold. A textless candidate has nothing to match on and gets an empty
// set; a textless entry can never be selected by similarity.
func (s *Service) selectEntries(
	candidate *models.CandidateEvent,
	entries []models.CalendarEntry,
	vectors map[string][]float32,
) []models.CalendarEntry {
	candTexts := subjectTexts(candidate.Summary, candidate.Description)
	if len(candTexts) == 0 {
		return []models.CalendarEntry{}
	}

	selected := make([]models.CalendarEntry, 0, len(entries))
	for i := range entries {
		entryTexts := subjectTexts(entries[i].Summary, entries[i].Description)
		if len(entryTexts) == 0 {
			continue
		}

		best := -1.0
		for _, ct := range candTexts {
			for _, et := range entryTexts {
				sim := Cosine(vectors[ct], vectors[et])
				if sim > best {
					best = sim
				}
			}
		}

		if best >= s.threshold {
			selected = append(selected, entries[i])
		}
	}

	return selected
}

// subjectTexts returns the non-empty embedding subjects of a record.
func subjectTexts(summary, description string) []string {
	texts := make([]string, 0, 2)
	if summary != "" {
		texts = append(texts, summary)
	}
	if description != "" {
		texts = append(texts, description)
	}
	return texts
}

// Cosine returns the cosine similarity of two vectors, or 0 when either has
// no magnitude or the dimensions disagree.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
