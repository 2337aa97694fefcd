package authz

import "github.com/dsz/skyfleet/models"

// PilotOwned is implemented by resources that belong to a pilot profile
type PilotOwned interface {
	OwningPilotID() string
}

// UserOwned is implemented by resources addressed to a user account
type UserOwned interface {
	OwningUserID() string
}

// OwnershipPredicate reports whether id owns resource
type OwnershipPredicate func(id *models.Identity, resource any) bool

// PilotOwns matches a Pilot identity against the resource's pilot id.
// Only the Pilot role with a non-empty link can satisfy it.
func PilotOwns(id *models.Identity, resource any) bool {
	owned, ok := resource.(PilotOwned)
	if !ok || id == nil {
		return false
	}
	if id.Role != models.RolePilot || id.PilotProfileID == "" {
		return false
	}
	return owned.OwningPilotID() == id.PilotProfileID
}

// UserOwns matches the identity subject against the resource's user id
func UserOwns(id *models.Identity, resource any) bool {
	owned, ok := resource.(UserOwned)
	if !ok || id == nil || id.SubjectID == "" {
		return false
	}
	return owned.OwningUserID() == id.SubjectID
}

var predicates = map[string]OwnershipPredicate{
	"pilot": PilotOwns,
	"user":  UserOwns,
}

// Rule is the access rule for one action. An empty AllowedRoles list admits
// any authenticated identity. Ownership, when set, is enforced for the roles
// in OwnershipRoles; Administrators are never subject to it.
type Rule struct {
	Action         Action
	AllowedRoles   []models.Role
	Ownership      OwnershipPredicate
	OwnershipRoles []models.Role

	denyAll bool
}

// AllowsRole reports whether role passes the role check
func (r Rule) AllowsRole(role models.Role) bool {
	if r.denyAll {
		return false
	}
	return len(r.AllowedRoles) == 0 || models.ContainsRole(r.AllowedRoles, role)
}

// CheckRole runs only the authentication and role checks
func (r Rule) CheckRole(id *models.Identity) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if !r.AllowsRole(id.Role) {
		return ErrForbidden
	}
	return nil
}

// Check runs the role check and, when resource is non-nil, the ownership check
func (r Rule) Check(id *models.Identity, resource any) error {
	if err := r.CheckRole(id); err != nil {
		return err
	}
	if resource == nil || !r.ownershipApplies(id) {
		return nil
	}
	if !r.Ownership(id, resource) {
		return ErrForbidden
	}
	return nil
}

func (r Rule) ownershipApplies(id *models.Identity) bool {
	if r.Ownership == nil || id == nil || id.IsAdmin() {
		return false
	}
	return models.ContainsRole(r.OwnershipRoles, id.Role)
}

func (r Rule) clone() Rule {
	r.AllowedRoles = append([]models.Role(nil), r.AllowedRoles...)
	r.OwnershipRoles = append([]models.Role(nil), r.OwnershipRoles...)
	return r
}
