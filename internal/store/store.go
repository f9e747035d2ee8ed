// Package store persists per-session stage results and conversation
// transcripts. Sessions outlive a single process when the Badger-backed
// implementation is selected; the in-memory implementation backs tests and
// storage-less deployments.
package store

import (
	"context"

	"github.com/mindwell-health/assessment-engine/internal/models"
)

// Store is the session persistence boundary used by the arbitration pipeline.
type Store interface {
	// SaveStageResult records the outcome of one assessment stage, replacing
	// any prior result for the same stage id.
	SaveStageResult(ctx context.Context, sessionID, stageID string, result models.StageResult) error

	// StageResults returns all recorded stage results for a session, keyed by
	// stage id. A session with no results yields an empty map.
	StageResults(ctx context.Context, sessionID string) (map[string]models.StageResult, error)

	// AppendConversation adds one turn to the session transcript.
	AppendConversation(ctx context.Context, sessionID string, turn models.ConversationTurn) error

	// ConversationHistory returns the transcript in append order.
	ConversationHistory(ctx context.Context, sessionID string) ([]models.ConversationTurn, error)

	Close() error
}
