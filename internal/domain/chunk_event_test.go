package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkEventTypeConstants(t *testing.T) {
	tests := []struct {
		name     string
		typeVal  ChunkEventType
		expected string
	}{
		{"Activated", ChunkEventActivated, "activated"},
		{"Deactivated", ChunkEventDeactivated, "deactivated"},
		{"Reclassified", ChunkEventReclassified, "reclassified"},
		{"PolicyChanged", ChunkEventPolicyChanged, "policy_changed"},
		{"DeletedHard", ChunkEventDeletedHard, "deleted_hard"},
		{"AddedFromResearch", ChunkEventAddedFromResearch, "added_from_research"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.typeVal))
		})
	}
}

func TestValidateChunkEvent(t *testing.T) {
	valid := func() *ChunkEvent {
		return &ChunkEvent{
			ID:      "evt-1",
			ChunkID: "chunk-1",
			OrgID:   "org-1",
			Type:    ChunkEventDeactivated,
			Before:  FieldSnapshot{"is_active": true},
			After:   FieldSnapshot{"is_active": false},
			ActorID: "user-1",
		}
	}

	tests := []struct {
		name    string
		mutate  func(e *ChunkEvent)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid event",
			mutate:  func(e *ChunkEvent) {},
			wantErr: false,
		},
		{
			name: "terminal delete event with nil after",
			mutate: func(e *ChunkEvent) {
				e.Type = ChunkEventDeletedHard
				e.After = nil
			},
			wantErr: false,
		},
		{
			name:    "missing ID",
			mutate:  func(e *ChunkEvent) { e.ID = "" },
			wantErr: true,
			errMsg:  "ID",
		},
		{
			name:    "missing ChunkID",
			mutate:  func(e *ChunkEvent) { e.ChunkID = "" },
			wantErr: true,
			errMsg:  "ChunkID",
		},
		{
			name:    "missing ActorID",
			mutate:  func(e *ChunkEvent) { e.ActorID = "" },
			wantErr: true,
			errMsg:  "ActorID",
		},
		{
			name:    "invalid type",
			mutate:  func(e *ChunkEvent) { e.Type = "edited" },
			wantErr: true,
			errMsg:  "Type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := valid()
			tt.mutate(event)
			err := ValidateChunkEvent(event)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateChunkEventNil(t *testing.T) {
	err := ValidateChunkEvent(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil")
}
