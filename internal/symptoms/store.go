// Package symptoms holds the per-session symptom log shared by the
// recognition engine and the diagnostic arbiter.
package symptoms

import (
	"sync"
	"time"

	"github.com/mindwell-health/assessment-engine/internal/models"
)

// Store is an append-only, insertion-ordered symptom log. One Store exists
// per assessment session; it is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	symptoms []models.Symptom
	now      func() time.Time
}

// NewStore creates an empty symptom store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Add records a symptom, normalising missing attributes to their unknown
// values and clamping confidence into [0, 1]. Symptoms are never deduplicated
// or removed; downstream aggregation decides what matters.
func (s *Store) Add(symptom models.Symptom) {
	if symptom.Name == "" {
		return
	}
	if symptom.Category == "" {
		symptom.Category = models.CategoryOther
	}
	if symptom.Severity == "" {
		symptom.Severity = models.SeverityUnknown
	}
	if symptom.Frequency == "" {
		symptom.Frequency = models.FrequencyUnknown
	}
	if symptom.Duration == "" {
		symptom.Duration = models.DurationUnknown
	}
	if symptom.Impact == "" {
		symptom.Impact = models.ImpactUnknown
	}
	if symptom.Confidence < 0 {
		symptom.Confidence = 0
	}
	if symptom.Confidence > 1 {
		symptom.Confidence = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if symptom.RecordedAt.IsZero() {
		symptom.RecordedAt = s.now()
	}
	s.symptoms = append(s.symptoms, symptom)
}

// AddAll records each symptom in order.
func (s *Store) AddAll(symptoms []models.Symptom) {
	for _, symptom := range symptoms {
		s.Add(symptom)
	}
}

// Export returns a copy of all recorded symptoms in insertion order.
func (s *Store) Export() []models.Symptom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Symptom, len(s.symptoms))
	copy(out, s.symptoms)
	return out
}

// Count returns the number of recorded symptoms.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.symptoms)
}

// Summary tallies recorded symptoms by category and severity.
func (s *Store) Summary() models.SymptomSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := models.SymptomSummary{
		TotalSymptoms: len(s.symptoms),
		ByCategory:    make(map[models.Category]int),
		BySeverity:    make(map[models.Severity]int),
	}
	for _, symptom := range s.symptoms {
		summary.ByCategory[symptom.Category]++
		summary.BySeverity[symptom.Severity]++
	}
	return summary
}
