package domain

import (
	"fmt"
	"time"
)

// Folder is an organizational grouping of ingestion sources. Each folder
// carries an aggregate embedding over its members' chunks; StaleAt marks the
// aggregate as out of date until the folder worker recomputes it.
type Folder struct {
	ID        string
	OrgID     string
	Name      string
	Embedding []float32
	StaleAt   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsStale returns true if the folder's aggregate embedding needs recomputing.
func (f *Folder) IsStale() bool {
	return f.StaleAt != nil
}

// ValidateFolder validates a Folder instance
func ValidateFolder(f *Folder) error {
	if f == nil {
		return fmt.Errorf("folder cannot be nil")
	}

	if f.ID == "" {
		return fmt.Errorf("folder ID is required")
	}

	if f.OrgID == "" {
		return fmt.Errorf("folder OrgID is required")
	}

	if f.Name == "" {
		return fmt.Errorf("folder Name is required")
	}

	return nil
}
