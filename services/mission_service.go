package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/repositories"
)

// MissionService manages scheduled missions. Pilots only see and edit
// missions assigned to them.
type MissionService struct {
	missions pilotScoped[models.Mission, *models.Mission]
}

// NewMissionService creates a new MissionService instance
func NewMissionService(repos *repositories.Repositories, policy *authz.Policy, logger *zap.Logger) *MissionService {
	return &MissionService{
		missions: pilotScoped[models.Mission, *models.Mission]{
			coll:   repos.Missions,
			tx:     repos.Store,
			policy: policy,
			logger: logger,
			actions: pilotActions{
				read:   authz.ActionMissionsRead,
				create: authz.ActionMissionsCreate,
				update: authz.ActionMissionsUpdate,
				delete: authz.ActionMissionsDelete,
			},
			notFound: ErrMissionNotFound,
			resource: "Mission",
			idPrefix: "M",
		},
	}
}

// List returns the missions visible to caller
func (s *MissionService) List(ctx context.Context, caller *models.Identity) ([]models.Mission, error) {
	return s.missions.list(ctx, caller)
}

// Get returns one mission
func (s *MissionService) Get(ctx context.Context, caller *models.Identity, id string) (*models.Mission, error) {
	return s.missions.get(ctx, caller, id)
}

// Create schedules a mission
func (s *MissionService) Create(ctx context.Context, caller *models.Identity, mission *models.Mission) (*models.Mission, error) {
	return s.missions.create(ctx, caller, mission)
}

// Update applies patch to a mission
func (s *MissionService) Update(ctx context.Context, caller *models.Identity, id string, patch Patch[models.Mission]) (*models.Mission, error) {
	return s.missions.update(ctx, caller, id, patch)
}

// Delete removes a mission
func (s *MissionService) Delete(ctx context.Context, caller *models.Identity, id string) error {
	return s.missions.remove(ctx, caller, id)
}
