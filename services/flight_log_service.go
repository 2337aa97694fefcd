package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/repositories"
)

// FlightLogService manages flight logs. Pilots only see and edit their own logs.
type FlightLogService struct {
	logs pilotScoped[models.FlightLog, *models.FlightLog]
}

// NewFlightLogService creates a new FlightLogService instance
func NewFlightLogService(repos *repositories.Repositories, policy *authz.Policy, logger *zap.Logger) *FlightLogService {
	return &FlightLogService{
		logs: pilotScoped[models.FlightLog, *models.FlightLog]{
			coll:   repos.FlightLogs,
			tx:     repos.Store,
			policy: policy,
			logger: logger,
			actions: pilotActions{
				read:   authz.ActionFlightsRead,
				create: authz.ActionFlightsCreate,
				update: authz.ActionFlightsUpdate,
				delete: authz.ActionFlightsDelete,
			},
			notFound: ErrFlightLogNotFound,
			resource: "Flight Log",
			idPrefix: "FL",
		},
	}
}

// List returns the flight logs visible to caller
func (s *FlightLogService) List(ctx context.Context, caller *models.Identity) ([]models.FlightLog, error) {
	return s.logs.list(ctx, caller)
}

// Get returns one flight log
func (s *FlightLogService) Get(ctx context.Context, caller *models.Identity, id string) (*models.FlightLog, error) {
	return s.logs.get(ctx, caller, id)
}

// Create records a flight
func (s *FlightLogService) Create(ctx context.Context, caller *models.Identity, log *models.FlightLog) (*models.FlightLog, error) {
	return s.logs.create(ctx, caller, log)
}

// Update applies patch to a flight log
func (s *FlightLogService) Update(ctx context.Context, caller *models.Identity, id string, patch Patch[models.FlightLog]) (*models.FlightLog, error) {
	return s.logs.update(ctx, caller, id, patch)
}

// Delete removes a flight log
func (s *FlightLogService) Delete(ctx context.Context, caller *models.Identity, id string) error {
	return s.logs.remove(ctx, caller, id)
}
