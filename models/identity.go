package models

// Identity is the request-scoped view of the caller, rebuilt on every request
// from a verified credential and the stored user profile.
type Identity struct {
	SubjectID      string `json:"uid"`
	Email          string `json:"email,omitempty"`
	Role           Role   `json:"role"`
	PilotProfileID string `json:"pilotId,omitempty"`
}

// NewIdentity builds an Identity. The pilot profile link is kept only for
// the Pilot role; any link stored on another role is dropped.
func NewIdentity(subjectID, email string, role Role, pilotProfileID string) *Identity {
	if role != RolePilot {
		pilotProfileID = ""
	}
	return &Identity{
		SubjectID:      subjectID,
		Email:          email,
		Role:           role,
		PilotProfileID: pilotProfileID,
	}
}

// IsAdmin returns true for the Administrator role
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdministrator
}

// HasAnyRole reports whether the identity carries one of roles.
// An empty list matches any identity.
func (i *Identity) HasAnyRole(roles ...Role) bool {
	if i == nil {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	return ContainsRole(roles, i.Role)
}

// LinkedPilotID returns the linked pilot profile id, or "" when the
// identity is not a Pilot or is unlinked.
func (i *Identity) LinkedPilotID() string {
	if i == nil || i.Role != RolePilot {
		return ""
	}
	return i.PilotProfileID
}
