package authz

import "github.com/dsz/skyfleet/models"

var (
	adminOnly     = []models.Role{models.RoleAdministrator}
	adminAndPilot = []models.Role{models.RoleAdministrator, models.RolePilot}
	everyone      = []models.Role{models.RoleAdministrator, models.RolePilot, models.RoleViewer}
	pilotOnly     = []models.Role{models.RolePilot}
	nonAdmins     = []models.Role{models.RolePilot, models.RoleViewer}
)

// DefaultPages is the built-in page table
func DefaultPages() []PageRule {
	return []PageRule{
		{Prefix: "/dashboard", AllowedRoles: everyone},
		{Prefix: "/flights", AllowedRoles: everyone},
		{Prefix: "/flights/new", AllowedRoles: adminAndPilot},
		{Prefix: "/drones", AllowedRoles: everyone},
		{Prefix: "/pilots", AllowedRoles: everyone},
		{Prefix: "/missions", AllowedRoles: everyone},
		{Prefix: "/compliance", AllowedRoles: everyone},
		{Prefix: "/schedule", AllowedRoles: adminOnly},
		{Prefix: "/reports", AllowedRoles: adminOnly},
		{Prefix: "/settings", AllowedRoles: adminOnly},
	}
}

// DefaultRules is the built-in route rule set
func DefaultRules() []Rule {
	return []Rule{
		{Action: ActionPilotsRead, AllowedRoles: everyone},
		{Action: ActionPilotsWrite, AllowedRoles: adminOnly},
		{Action: ActionPilotFlightHours, AllowedRoles: everyone},
		{Action: ActionDronesRead, AllowedRoles: everyone},
		{Action: ActionDronesWrite, AllowedRoles: adminOnly},
		{Action: ActionDroneFlightHours, AllowedRoles: everyone},

		{Action: ActionFlightsRead, AllowedRoles: everyone, Ownership: PilotOwns, OwnershipRoles: pilotOnly},
		{Action: ActionFlightsCreate, AllowedRoles: adminAndPilot, Ownership: PilotOwns, OwnershipRoles: pilotOnly},
		{Action: ActionFlightsUpdate, AllowedRoles: adminAndPilot, Ownership: PilotOwns, OwnershipRoles: pilotOnly},
		{Action: ActionFlightsDelete, AllowedRoles: adminOnly},

		{Action: ActionMissionsRead, AllowedRoles: everyone, Ownership: PilotOwns, OwnershipRoles: pilotOnly},
		{Action: ActionMissionsCreate, AllowedRoles: adminAndPilot, Ownership: PilotOwns, OwnershipRoles: pilotOnly},
		{Action: ActionMissionsUpdate, AllowedRoles: adminAndPilot, Ownership: PilotOwns, OwnershipRoles: pilotOnly},
		{Action: ActionMissionsDelete, AllowedRoles: adminOnly},

		{Action: ActionNotificationsRead, AllowedRoles: everyone, Ownership: UserOwns, OwnershipRoles: nonAdmins},
		{Action: ActionNotificationsUpdate, AllowedRoles: everyone, Ownership: UserOwns, OwnershipRoles: nonAdmins},
		{Action: ActionNotificationsCreate, AllowedRoles: adminOnly},
		{Action: ActionNotificationsDelete, AllowedRoles: adminOnly},
		{Action: ActionCheckCertifications, AllowedRoles: adminOnly},

		{Action: ActionUsersRead, AllowedRoles: everyone},
		{Action: ActionUsersWrite, AllowedRoles: adminOnly},
		{Action: ActionAuthMe},
	}
}

// DefaultPolicy returns the built-in policy
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultPages(), DefaultRules())
}
