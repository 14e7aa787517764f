package domain

import (
	"fmt"
	"time"
)

// BusinessFact is a short atomic claim extracted from a knowledge item.
// ItemID is nullable: it is cleared, not cascaded, when the source item is
// deleted outside a full purge.
type BusinessFact struct {
	ID         string
	OrgID      string
	ItemID     string
	Fact       string
	Category   string
	Confidence float32
	CreatedAt  time.Time
}

// ValidateBusinessFact validates a BusinessFact instance
func ValidateBusinessFact(f *BusinessFact) error {
	if f == nil {
		return fmt.Errorf("business fact cannot be nil")
	}

	if f.ID == "" {
		return fmt.Errorf("business fact ID is required")
	}

	if f.OrgID == "" {
		return fmt.Errorf("business fact OrgID is required")
	}

	if f.Fact == "" {
		return fmt.Errorf("business fact Fact is required")
	}

	if f.Confidence < 0 || f.Confidence > 1 {
		return fmt.Errorf("business fact Confidence must be within [0, 1]")
	}

	return nil
}
