package domain

// Role is a user's role within an organization
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Capability names a permission checked before a governed operation
type Capability string

const (
	CapabilityKnowledgeRead       Capability = "knowledge.read"
	CapabilityKnowledgeActivate   Capability = "knowledge.activate"
	CapabilityKnowledgeDeactivate Capability = "knowledge.deactivate"
	CapabilityKnowledgeReclassify Capability = "knowledge.reclassify"
	CapabilityKnowledgeSetPolicy  Capability = "knowledge.set_policy"
	CapabilityKnowledgeDeleteHard Capability = "knowledge.delete_hard"
	CapabilityKnowledgePromote    Capability = "knowledge.promote"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleOwner: {
		CapabilityKnowledgeRead:       true,
		CapabilityKnowledgeActivate:   true,
		CapabilityKnowledgeDeactivate: true,
		CapabilityKnowledgeReclassify: true,
		CapabilityKnowledgeSetPolicy:  true,
		CapabilityKnowledgeDeleteHard: true,
		CapabilityKnowledgePromote:    true,
	},
	RoleAdmin: {
		CapabilityKnowledgeRead:       true,
		CapabilityKnowledgeActivate:   true,
		CapabilityKnowledgeDeactivate: true,
		CapabilityKnowledgeReclassify: true,
		CapabilityKnowledgeSetPolicy:  true,
		CapabilityKnowledgeDeleteHard: true,
		CapabilityKnowledgePromote:    true,
	},
	RoleEditor: {
		CapabilityKnowledgeRead:       true,
		CapabilityKnowledgeActivate:   true,
		CapabilityKnowledgeDeactivate: true,
		CapabilityKnowledgeReclassify: true,
		CapabilityKnowledgeSetPolicy:  true,
		CapabilityKnowledgePromote:    true,
	},
	RoleViewer: {
		CapabilityKnowledgeRead: true,
	},
}

// HasCapability reports whether a role grants the named capability.
// Hard delete is a distinct permission from the soft governance actions;
// only owner and admin carry it.
func (r Role) HasCapability(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	return caps[c]
}

// IsValidRole checks if a Role is valid
func IsValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}
