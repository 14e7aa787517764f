package domain

import (
	"fmt"
	"time"
)

// ItemType represents the type of a knowledge item
type ItemType string

const (
	ItemTypeArticle    ItemType = "article"
	ItemTypePost       ItemType = "post"
	ItemTypeNote       ItemType = "note"
	ItemTypeTranscript ItemType = "transcript"
	ItemTypeFact       ItemType = "fact"
)

// ItemSource is the provenance tag on a knowledge item
type ItemSource string

const (
	ItemSourceBookmark   ItemSource = "bookmark"
	ItemSourcePaste      ItemSource = "paste"
	ItemSourceUpload     ItemSource = "upload"
	ItemSourceVoice      ItemSource = "voice"
	ItemSourceFirstParty ItemSource = "first_party"
	ItemSourceResearch   ItemSource = "research"
)

// ChunkingStatus tracks how far the processing chain got for an item
type ChunkingStatus string

const (
	ChunkingStatusPending   ChunkingStatus = "pending"
	ChunkingStatusChunked   ChunkingStatus = "chunked"
	ChunkingStatusEmbedded  ChunkingStatus = "embedded"
	ChunkingStatusCompleted ChunkingStatus = "completed"
	ChunkingStatusSkipped   ChunkingStatus = "skipped"
	ChunkingStatusFailed    ChunkingStatus = "failed"
)

// ChunkingMetrics carries per-item pipeline diagnostics.
type ChunkingMetrics struct {
	ChunkCount   int   `json:"chunk_count"`
	FactCount    int   `json:"fact_count"`
	TokensUsed   int   `json:"tokens_used"`
	ElapsedMS    int64 `json:"elapsed_ms"`
	RetriesTotal int   `json:"retries_total"`
}

// KnowledgeItem is normalized, organization-scoped, hash-deduplicated content
// ready for chunking. (org_id, raw_text_sha256) is unique: identical content
// never produces two items in the same organization.
type KnowledgeItem struct {
	ID       string
	OrgID    string
	UserID   string
	SourceID string // back-reference to the ingestion source, empty for direct intake

	RawText       string
	RawTextSHA256 string
	Title         string
	Type          ItemType
	Source        ItemSource
	Confidence    float32 // provenance-based prior

	ChunkingStatus       ChunkingStatus
	ChunkingSkipReason   string
	ChunkingErrorCode    string
	ChunkingErrorMessage string
	ChunkingMetrics      *ChunkingMetrics

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConfidenceForSource returns the provenance-based confidence prior for
// content arriving through the given intake path.
func ConfidenceForSource(src ItemSource) float32 {
	switch src {
	case ItemSourceBookmark:
		return 0.3
	case ItemSourceFirstParty:
		return 0.8
	case ItemSourceResearch:
		return 0.5
	case ItemSourceVoice:
		return 0.7
	default:
		return 0.6
	}
}

// ItemSourceForType maps an ingestion source type to the provenance tag its
// derived knowledge item carries.
func ItemSourceForType(t SourceType) ItemSource {
	switch t {
	case SourceTypeBookmark:
		return ItemSourceBookmark
	case SourceTypeText:
		return ItemSourcePaste
	case SourceTypeFile:
		return ItemSourceUpload
	case SourceTypeVoiceRecording:
		return ItemSourceVoice
	default:
		return ItemSourcePaste
	}
}

// ValidateKnowledgeItem validates a KnowledgeItem instance
func ValidateKnowledgeItem(k *KnowledgeItem) error {
	if k == nil {
		return fmt.Errorf("knowledge item cannot be nil")
	}

	if k.ID == "" {
		return fmt.Errorf("knowledge item ID is required")
	}

	if k.OrgID == "" {
		return fmt.Errorf("knowledge item OrgID is required")
	}

	if k.RawText == "" {
		return fmt.Errorf("knowledge item RawText is required")
	}

	if k.RawTextSHA256 == "" {
		return fmt.Errorf("knowledge item RawTextSHA256 is required")
	}

	if k.Confidence < 0 || k.Confidence > 1 {
		return fmt.Errorf("knowledge item Confidence must be within [0, 1]")
	}

	return nil
}
