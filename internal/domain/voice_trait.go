package domain

import (
	"fmt"
	"time"
)

// VoiceTrait is a writing-voice characteristic extracted from a knowledge
// item, used by generation consumers to match the organization's tone.
type VoiceTrait struct {
	ID         string
	OrgID      string
	ItemID     string
	Trait      string
	Example    string
	Confidence float32
	CreatedAt  time.Time
}

// ValidateVoiceTrait validates a VoiceTrait instance
func ValidateVoiceTrait(t *VoiceTrait) error {
	if t == nil {
		return fmt.Errorf("voice trait cannot be nil")
	}

	if t.ID == "" {
		return fmt.Errorf("voice trait ID is required")
	}

	if t.OrgID == "" {
		return fmt.Errorf("voice trait OrgID is required")
	}

	if t.Trait == "" {
		return fmt.Errorf("voice trait Trait is required")
	}

	return nil
}
