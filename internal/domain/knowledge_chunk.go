package domain

import (
	"fmt"
	"time"
)

// ChunkKind is the semantic category of a chunk's content
type ChunkKind string

const (
	ChunkKindFact    ChunkKind = "fact"
	ChunkKindAngle   ChunkKind = "angle"
	ChunkKindExample ChunkKind = "example"
	ChunkKindQuote   ChunkKind = "quote"
)

// UsagePolicy governs how a chunk may feed content generation
type UsagePolicy string

const (
	UsagePolicyNormal          UsagePolicy = "normal"
	UsagePolicyInspirationOnly UsagePolicy = "inspiration_only"
	UsagePolicyNeverGenerate   UsagePolicy = "never_generate"
)

// TransformationType records how chunk text relates to its source text
type TransformationType string

const (
	TransformationExtractive  TransformationType = "extractive"
	TransformationAbstractive TransformationType = "abstractive"
)

// SourceSpan points at the exact substring of the source item a chunk was
// derived from.
type SourceSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// KnowledgeChunk is the atomic retrievable unit. Retrieval reads nothing
// else. Governance state is mutated only through the governance service.
type KnowledgeChunk struct {
	ID     string
	ItemID string
	OrgID  string

	ChunkText      string
	SourceText     string
	SourceSpans    []SourceSpan
	Transformation TransformationType

	Kind        ChunkKind
	Role        string // e.g. definition, strategic_claim, example, quote
	Authority   string
	Confidence  float32
	TimeHorizon string
	Domain      string
	Actor       string

	IsActive bool
	Policy   UsagePolicy

	// Provenance for externally-sourced chunks (e.g. promoted from research)
	SourceType    string
	SourceRef     string
	SourceTitle   string
	SourceVariant string

	Embedding      []float32
	EmbeddingModel string
	TokenCount     int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateChunk validates a KnowledgeChunk instance
func ValidateChunk(c *KnowledgeChunk) error {
	if c == nil {
		return fmt.Errorf("knowledge chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("knowledge chunk ID is required")
	}

	if c.OrgID == "" {
		return fmt.Errorf("knowledge chunk OrgID is required")
	}

	if c.ChunkText == "" {
		return fmt.Errorf("knowledge chunk ChunkText is required")
	}

	if !IsValidChunkKind(c.Kind) {
		return fmt.Errorf("knowledge chunk Kind is invalid: %s", c.Kind)
	}

	if !IsValidUsagePolicy(c.Policy) {
		return fmt.Errorf("knowledge chunk Policy is invalid: %s", c.Policy)
	}

	return nil
}

// IsValidChunkKind checks if a ChunkKind is valid
func IsValidChunkKind(k ChunkKind) bool {
	switch k {
	case ChunkKindFact, ChunkKindAngle, ChunkKindExample, ChunkKindQuote:
		return true
	}
	return false
}

// IsValidUsagePolicy checks if a UsagePolicy is valid
func IsValidUsagePolicy(p UsagePolicy) bool {
	switch p {
	case UsagePolicyNormal, UsagePolicyInspirationOnly, UsagePolicyNeverGenerate:
		return true
	}
	return false
}
