package domain

import (
	"fmt"
	"time"
)

// Organization represents a tenant in the system
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Membership ties a user to an organization with a role. The permission
// resolver reads it to answer role_of(user, organization).
type Membership struct {
	OrgID     string
	UserID    string
	Role      Role
	CreatedAt time.Time
}

// ValidateOrganization validates an Organization instance
func ValidateOrganization(o *Organization) error {
	if o == nil {
		return fmt.Errorf("organization cannot be nil")
	}

	if o.ID == "" {
		return fmt.Errorf("organization ID is required")
	}

	if o.Name == "" {
		return fmt.Errorf("organization Name is required")
	}

	return nil
}

// ValidateMembership validates a Membership instance
func ValidateMembership(m *Membership) error {
	if m == nil {
		return fmt.Errorf("membership cannot be nil")
	}

	if m.OrgID == "" {
		return fmt.Errorf("membership OrgID is required")
	}

	if m.UserID == "" {
		return fmt.Errorf("membership UserID is required")
	}

	if !IsValidRole(m.Role) {
		return fmt.Errorf("membership Role is invalid: %s", m.Role)
	}

	return nil
}
