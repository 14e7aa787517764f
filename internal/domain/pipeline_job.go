package domain

import (
	"fmt"
	"time"
)

// PipelineStage names one stage of the chunk pipeline. The chain runs in the
// fixed order returned by PipelineStages; a later stage never runs before its
// predecessor has committed.
type PipelineStage string

const (
	StageNormalize    PipelineStage = "normalize"
	StageChunk        PipelineStage = "chunk"
	StageEmbed        PipelineStage = "embed"
	StageVoiceTraits  PipelineStage = "extract_voice_traits"
	StageBusinessFact PipelineStage = "extract_business_facts"
)

// PipelineStages returns the chain's stage order.
func PipelineStages() []PipelineStage {
	return []PipelineStage{
		StageNormalize,
		StageChunk,
		StageEmbed,
		StageVoiceTraits,
		StageBusinessFact,
	}
}

// NextStage returns the stage following s, or empty when s is last.
func NextStage(s PipelineStage) PipelineStage {
	stages := PipelineStages()
	for i, st := range stages {
		if st == s && i+1 < len(stages) {
			return stages[i+1]
		}
	}
	return ""
}

// PipelineJobStatus represents the status of a pipeline job
type PipelineJobStatus string

const (
	PipelineJobStatusPending    PipelineJobStatus = "pending"
	PipelineJobStatusProcessing PipelineJobStatus = "processing"
	PipelineJobStatusCompleted  PipelineJobStatus = "completed"
	PipelineJobStatusFailed     PipelineJobStatus = "failed"
)

// PipelineJob is one dispatch of the chunk pipeline. SourceID is set for
// intake chains, which start at normalize; ItemID is set for item-scoped
// dispatches (a promoted chunk awaiting embedding), which start at embed.
// The job records which stage the chain has reached so a crashed worker
// resumes from the correct stage instead of restarting the chain.
type PipelineJob struct {
	ID          string
	SourceID    string // Set for source intake chains
	ItemID      string // Set for item-scoped dispatches
	OrgID       string
	Stage       PipelineStage
	Status      PipelineJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// ValidatePipelineJob validates a PipelineJob instance
func ValidatePipelineJob(j *PipelineJob) error {
	if j == nil {
		return fmt.Errorf("pipeline job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("pipeline job ID is required")
	}

	if j.SourceID == "" && j.ItemID == "" {
		return fmt.Errorf("pipeline job must have either SourceID or ItemID")
	}

	if j.SourceID != "" && j.ItemID != "" {
		return fmt.Errorf("pipeline job cannot have both SourceID and ItemID")
	}

	if !isValidPipelineStage(j.Stage) {
		return fmt.Errorf("pipeline job Stage is invalid: %s", j.Stage)
	}

	if !isValidPipelineJobStatus(j.Status) {
		return fmt.Errorf("pipeline job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("pipeline job Retries cannot be negative")
	}

	return nil
}

func isValidPipelineStage(s PipelineStage) bool {
	switch s {
	case StageNormalize, StageChunk, StageEmbed, StageVoiceTraits, StageBusinessFact:
		return true
	}
	return false
}

func isValidPipelineJobStatus(s PipelineJobStatus) bool {
	switch s {
	case PipelineJobStatusPending, PipelineJobStatusProcessing,
		PipelineJobStatusCompleted, PipelineJobStatusFailed:
		return true
	}
	return false
}
