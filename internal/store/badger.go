package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/mindwell-health/assessment-engine/internal/models"
)

// Key layout:
//
//	stage/<session>/<stage>  -> JSON StageResult
//	conv/<session>/<seq>     -> JSON ConversationTurn, seq zero-padded
//
// Prefix iteration over conv/<session>/ returns turns in append order.

// BadgerStore persists sessions in an embedded Badger database.
type BadgerStore struct {
	db *badger.DB

	mu      sync.Mutex
	nextSeq map[string]uint64
}

// NewBadgerStore opens (or creates) a Badger database at dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &BadgerStore{db: db, nextSeq: make(map[string]uint64)}, nil
}

func stageKey(sessionID, stageID string) []byte {
	return []byte(fmt.Sprintf("stage/%s/%s", sessionID, stageID))
}

func stagePrefix(sessionID string) []byte {
	return []byte(fmt.Sprintf("stage/%s/", sessionID))
}

func convKey(sessionID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("conv/%s/%012d", sessionID, seq))
}

func convPrefix(sessionID string) []byte {
	return []byte(fmt.Sprintf("conv/%s/", sessionID))
}

func (s *BadgerStore) SaveStageResult(ctx context.Context, sessionID, stageID string, result models.StageResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode stage result: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stageKey(sessionID, stageID), payload)
	})
}

func (s *BadgerStore) StageResults(ctx context.Context, sessionID string) (map[string]models.StageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := stagePrefix(sessionID)
	out := make(map[string]models.StageResult)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			stageID := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				var result models.StageResult
				if err := json.Unmarshal(val, &result); err != nil {
					return fmt.Errorf("decode stage %s: %w", stageID, err)
				}
				out[stageID] = result
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) AppendConversation(ctx context.Context, sessionID string, turn models.ConversationTurn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("encode conversation turn: %w", err)
	}

	seq, err := s.reserveSeq(sessionID)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(convKey(sessionID, seq), payload)
	})
}

func (s *BadgerStore) ConversationHistory(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := convPrefix(sessionID)
	var out []models.ConversationTurn

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var turn models.ConversationTurn
				if err := json.Unmarshal(val, &turn); err != nil {
					return fmt.Errorf("decode conversation turn: %w", err)
				}
				out = append(out, turn)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// reserveSeq hands out the next transcript sequence number for a session,
// scanning existing keys on first use so appends resume after a restart.
func (s *BadgerStore) reserveSeq(sessionID string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq, ok := s.nextSeq[sessionID]; ok {
		s.nextSeq[sessionID] = seq + 1
		return seq, nil
	}

	prefix := convPrefix(sessionID)
	var count uint64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return 0, err
	}

	s.nextSeq[sessionID] = count + 1
	return count, nil
}
