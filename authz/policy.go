// Package authz holds the declarative access policy shared by the gate, the
// guard and every service.
package authz

import (
	"errors"
	"strings"

	"github.com/dsz/skyfleet/models"
)

// ForbiddenMessage is the stable client-facing text for role and ownership denials
const ForbiddenMessage = "Forbidden: you do not have the necessary permissions"

var (
	// ErrUnauthenticated is returned when no identity has been resolved
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the identity fails a role or ownership check
	ErrForbidden = errors.New(ForbiddenMessage)
)

// Action names a protected operation, e.g. "flights.read"
type Action string

const (
	ActionPilotsRead        Action = "pilots.read"
	ActionPilotsWrite       Action = "pilots.write"
	ActionPilotFlightHours  Action = "pilots.flight_hours"
	ActionDronesRead        Action = "drones.read"
	ActionDronesWrite       Action = "drones.write"
	ActionDroneFlightHours  Action = "drones.flight_hours"
	ActionFlightsRead       Action = "flights.read"
	ActionFlightsCreate     Action = "flights.create"
	ActionFlightsUpdate     Action = "flights.update"
	ActionFlightsDelete     Action = "flights.delete"
	ActionMissionsRead      Action = "missions.read"
	ActionMissionsCreate    Action = "missions.create"
	ActionMissionsUpdate    Action = "missions.update"
	ActionMissionsDelete    Action = "missions.delete"
	ActionNotificationsRead Action = "notifications.read"
	// ActionNotificationsUpdate covers full updates and the mark-read operation
	ActionNotificationsUpdate Action = "notifications.update"
	ActionNotificationsCreate Action = "notifications.create"
	ActionNotificationsDelete Action = "notifications.delete"
	ActionCheckCertifications Action = "notifications.check_certs"
	ActionUsersRead           Action = "users.read"
	ActionUsersWrite          Action = "users.write"
	ActionAuthMe              Action = "auth.me"
)

// PageDecision is the outcome of evaluating the page table for a path
type PageDecision int

const (
	PageAllow PageDecision = iota
	PageLogin
	PageDenied
)

// PageRule maps a path prefix to the roles allowed to load it
type PageRule struct {
	Prefix       string
	AllowedRoles []models.Role
}

// Matches reports whether path falls under the rule prefix on a segment boundary
func (p PageRule) Matches(path string) bool {
	if path == p.Prefix {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(p.Prefix, "/")+"/")
}

// Policy is the immutable set of page and route rules. Build one with
// DefaultPolicy or LoadPolicy and pass it to constructors.
type Policy struct {
	pages []PageRule
	rules map[Action]Rule
}

// NewPolicy builds a Policy from explicit page and route rules
func NewPolicy(pages []PageRule, rules []Rule) *Policy {
	p := &Policy{
		pages: make([]PageRule, 0, len(pages)),
		rules: make(map[Action]Rule, len(rules)),
	}
	for _, pr := range pages {
		p.pages = append(p.pages, PageRule{
			Prefix:       pr.Prefix,
			AllowedRoles: append([]models.Role(nil), pr.AllowedRoles...),
		})
	}
	for _, r := range rules {
		p.rules[r.Action] = r.clone()
	}
	return p
}

// Rule returns the rule registered for action
func (p *Policy) Rule(action Action) (Rule, bool) {
	r, ok := p.rules[action]
	if !ok {
		return Rule{}, false
	}
	return r.clone(), true
}

// MustRule returns the rule for action or a rule that nobody satisfies
func (p *Policy) MustRule(action Action) Rule {
	if r, ok := p.Rule(action); ok {
		return r
	}
	return Rule{Action: action, denyAll: true}
}

// Authorize evaluates the rule for action against the identity and, when
// resource is non-nil, the rule's ownership predicate. Unknown actions are denied.
func (p *Policy) Authorize(id *models.Identity, action Action, resource any) error {
	return p.MustRule(action).Check(id, resource)
}

// Visible reports whether resource passes Authorize. List endpoints use it
// as a filter.
func (p *Policy) Visible(id *models.Identity, action Action, resource any) bool {
	return p.Authorize(id, action, resource) == nil
}

// RequiresOwnership reports whether the identity is restricted to owned
// resources under action.
func (p *Policy) RequiresOwnership(id *models.Identity, action Action) bool {
	return p.MustRule(action).ownershipApplies(id)
}

// Pages returns a copy of the page table
func (p *Policy) Pages() []PageRule {
	out := make([]PageRule, len(p.pages))
	copy(out, p.pages)
	return out
}

// IsProtectedPage reports whether any page rule matches path
func (p *Policy) IsProtectedPage(path string) bool {
	for _, pr := range p.pages {
		if pr.Matches(path) {
			return true
		}
	}
	return false
}

// PageAccess evaluates every page rule matching path. All matching rules
// must admit the identity.
func (p *Policy) PageAccess(id *models.Identity, path string) PageDecision {
	for _, pr := range p.pages {
		if !pr.Matches(path) {
			continue
		}
		if id == nil {
			return PageLogin
		}
		if len(pr.AllowedRoles) > 0 && !models.ContainsRole(pr.AllowedRoles, id.Role) {
			return PageDenied
		}
	}
	return PageAllow
}
