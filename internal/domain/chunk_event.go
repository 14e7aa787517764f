package domain

import (
	"fmt"
	"time"
)

// ChunkEventType identifies the governance mutation an audit event records
type ChunkEventType string

const (
	ChunkEventActivated         ChunkEventType = "activated"
	ChunkEventDeactivated       ChunkEventType = "deactivated"
	ChunkEventReclassified      ChunkEventType = "reclassified"
	ChunkEventPolicyChanged     ChunkEventType = "policy_changed"
	ChunkEventDeletedHard       ChunkEventType = "deleted_hard"
	ChunkEventAddedFromResearch ChunkEventType = "added_from_research"
)

// FieldSnapshot captures the mutated field(s) of a chunk before or after a
// governance mutation. Nil means no state on that side (creation has no
// before; hard delete has no after).
type FieldSnapshot map[string]any

// ChunkEvent is an append-only audit record of one governance mutation.
// Events are never edited or deleted; a hard delete closes the trail with a
// terminal event carrying a nil After.
type ChunkEvent struct {
	ID        string
	ChunkID   string
	OrgID     string
	Type      ChunkEventType
	Before    FieldSnapshot
	After     FieldSnapshot
	Reason    string
	ActorID   string
	CreatedAt time.Time
}

// ValidateChunkEvent validates a ChunkEvent instance
func ValidateChunkEvent(e *ChunkEvent) error {
	if e == nil {
		return fmt.Errorf("chunk event cannot be nil")
	}

	if e.ID == "" {
		return fmt.Errorf("chunk event ID is required")
	}

	if e.ChunkID == "" {
		return fmt.Errorf("chunk event ChunkID is required")
	}

	if e.ActorID == "" {
		return fmt.Errorf("chunk event ActorID is required")
	}

	if !isValidChunkEventType(e.Type) {
		return fmt.Errorf("chunk event Type is invalid: %s", e.Type)
	}

	return nil
}

// isValidChunkEventType checks if a ChunkEventType is valid
func isValidChunkEventType(t ChunkEventType) bool {
	switch t {
	case ChunkEventActivated, ChunkEventDeactivated, ChunkEventReclassified,
		ChunkEventPolicyChanged, ChunkEventDeletedHard, ChunkEventAddedFromResearch:
		return true
	}
	return false
}
