package store

import (
	"context"
	"sync"

	"github.com/mindwell-health/assessment-engine/internal/models"
)

// MemoryStore keeps session state in process memory.
type MemoryStore struct {
	mu            sync.RWMutex
	stages        map[string]map[string]models.StageResult
	conversations map[string][]models.ConversationTurn
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stages:        make(map[string]map[string]models.StageResult),
		conversations: make(map[string][]models.ConversationTurn),
	}
}

func (s *MemoryStore) SaveStageResult(_ context.Context, sessionID, stageID string, result models.StageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stages[sessionID] == nil {
		s.stages[sessionID] = make(map[string]models.StageResult)
	}
	s.stages[sessionID][stageID] = result
	return nil
}

func (s *MemoryStore) StageResults(_ context.Context, sessionID string) (map[string]models.StageResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.StageResult, len(s.stages[sessionID]))
	for id, result := range s.stages[sessionID] {
		out[id] = result
	}
	return out, nil
}

func (s *MemoryStore) AppendConversation(_ context.Context, sessionID string, turn models.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[sessionID] = append(s.conversations[sessionID], turn)
	return nil
}

func (s *MemoryStore) ConversationHistory(_ context.Context, sessionID string) ([]models.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ConversationTurn, len(s.conversations[sessionID]))
	copy(out, s.conversations[sessionID])
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
