package domain

import (
	"fmt"
	"time"
)

// SourceType represents the kind of raw content entering the system
type SourceType string

const (
	SourceTypeBookmark       SourceType = "bookmark"
	SourceTypeText           SourceType = "text"
	SourceTypeFile           SourceType = "file"
	SourceTypeVoiceRecording SourceType = "voice_recording"
)

// SourceStatus represents the intake lifecycle state of an ingestion source
type SourceStatus string

const (
	SourceStatusPending      SourceStatus = "pending"
	SourceStatusTranscribing SourceStatus = "transcribing"
	SourceStatusProcessing   SourceStatus = "processing"
	SourceStatusCompleted    SourceStatus = "completed"
	SourceStatusFailed       SourceStatus = "failed"
)

// SourcePayload is the tagged union over the per-type content of an
// ingestion source. Exactly one variant is set, matching the SourceType.
type SourcePayload struct {
	Bookmark *BookmarkPayload
	Text     *TextPayload
	File     *FilePayload
	Voice    *VoicePayload
}

// BookmarkPayload holds a saved link awaiting ingestion.
type BookmarkPayload struct {
	URL string
}

// TextPayload holds pasted text.
type TextPayload struct {
	Text string
}

// FilePayload references uploaded bytes in object storage.
type FilePayload struct {
	StorageKey string
	MimeType   string
}

// VoicePayload references an audio recording awaiting transcription.
type VoicePayload struct {
	StorageKey string
	MimeType   string
}

// IngestionSource is one raw-content intake event. It owns the intake state
// machine; derived knowledge items and chunks reference back to it.
type IngestionSource struct {
	ID        string
	OrgID     string
	UserID    string
	Type      SourceType
	SourceRef string // optional reference into an external entity (e.g. a saved link id)
	Payload   SourcePayload
	Title     string
	Metadata  map[string]string
	RawText   string // populated by transcription for voice sources

	DedupHash   string
	DedupReason string

	Status SourceStatus
	Error  string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// IsDeleted returns true if the source has been soft-deleted.
func (s *IngestionSource) IsDeleted() bool {
	return s.DeletedAt != nil
}

// InitialStatus returns the status a freshly created source starts in.
// Voice recordings enter via transcribing; everything else starts pending.
func InitialStatus(t SourceType) SourceStatus {
	if t == SourceTypeVoiceRecording {
		return SourceStatusTranscribing
	}
	return SourceStatusPending
}

// CanTransition reports whether the intake state machine allows moving from
// one status to another. Reingest resets any terminal status back to pending.
func CanTransition(from, to SourceStatus) bool {
	switch from {
	case SourceStatusTranscribing:
		return to == SourceStatusPending || to == SourceStatusFailed
	case SourceStatusPending:
		return to == SourceStatusProcessing || to == SourceStatusFailed
	case SourceStatusProcessing:
		return to == SourceStatusCompleted || to == SourceStatusFailed
	case SourceStatusCompleted, SourceStatusFailed:
		return to == SourceStatusPending
	}
	return false
}

// ValidateSource validates an IngestionSource instance
func ValidateSource(s *IngestionSource) error {
	if s == nil {
		return fmt.Errorf("ingestion source cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("ingestion source ID is required")
	}

	if s.OrgID == "" {
		return fmt.Errorf("ingestion source OrgID is required")
	}

	if s.UserID == "" {
		return fmt.Errorf("ingestion source UserID is required")
	}

	if !isValidSourceType(s.Type) {
		return fmt.Errorf("ingestion source Type is invalid: %s", s.Type)
	}

	if !isValidSourceStatus(s.Status) {
		return fmt.Errorf("ingestion source Status is invalid: %s", s.Status)
	}

	if s.DedupHash == "" {
		return fmt.Errorf("ingestion source DedupHash is required")
	}

	return validatePayload(s.Type, s.Payload)
}

func validatePayload(t SourceType, p SourcePayload) error {
	switch t {
	case SourceTypeBookmark:
		if p.Bookmark == nil || p.Bookmark.URL == "" {
			return fmt.Errorf("bookmark source requires a URL")
		}
	case SourceTypeText:
		if p.Text == nil || p.Text.Text == "" {
			return fmt.Errorf("text source requires non-empty text")
		}
	case SourceTypeFile:
		if p.File == nil || p.File.StorageKey == "" {
			return fmt.Errorf("file source requires a storage key")
		}
	case SourceTypeVoiceRecording:
		if p.Voice == nil || p.Voice.StorageKey == "" {
			return fmt.Errorf("voice source requires a storage key")
		}
	}
	return nil
}

// isValidSourceType checks if a SourceType is valid
func isValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypeBookmark, SourceTypeText, SourceTypeFile, SourceTypeVoiceRecording:
		return true
	}
	return false
}

// isValidSourceStatus checks if a SourceStatus is valid
func isValidSourceStatus(s SourceStatus) bool {
	switch s {
	case SourceStatusPending, SourceStatusTranscribing, SourceStatusProcessing,
		SourceStatusCompleted, SourceStatusFailed:
		return true
	}
	return false
}
