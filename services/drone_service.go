package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/repositories"
)

// DroneService manages the fleet inventory. Serial numbers are unique.
type DroneService struct {
	repos  *repositories.Repositories
	policy *authz.Policy
	logger *zap.Logger
}

// NewDroneService creates a new DroneService instance
func NewDroneService(repos *repositories.Repositories, policy *authz.Policy, logger *zap.Logger) *DroneService {
	return &DroneService{repos: repos, policy: policy, logger: logger}
}

// List returns every drone
func (s *DroneService) List(ctx context.Context, caller *models.Identity) ([]models.Drone, error) {
	if err := authorize(s.policy, caller, authz.ActionDronesRead, nil); err != nil {
		return nil, err
	}
	drones, err := s.repos.Drones.List(ctx)
	if err != nil {
		return nil, translate(err, ErrDroneNotFound, "list drones")
	}
	return drones, nil
}

// Get returns one drone
func (s *DroneService) Get(ctx context.Context, caller *models.Identity, droneID string) (*models.Drone, error) {
	if err := authorize(s.policy, caller, authz.ActionDronesRead, nil); err != nil {
		return nil, err
	}
	drone, err := s.repos.Drones.Get(ctx, droneID)
	if err != nil {
		return nil, translate(err, ErrDroneNotFound, "get drone")
	}
	return drone, nil
}

// Create stores a new drone
func (s *DroneService) Create(ctx context.Context, caller *models.Identity, drone *models.Drone) (*models.Drone, error) {
	if err := authorize(s.policy, caller, authz.ActionDronesWrite, nil); err != nil {
		return nil, err
	}
	drone.ApplyDefaults()
	if err := validate(drone); err != nil {
		return nil, err
	}

	created, err := WithTransactionResult(ctx, s.repos.Store, func(ctx context.Context) (*models.Drone, error) {
		if err := s.ensureSerialFree(ctx, drone.Serial, drone.ID); err != nil {
			return nil, err
		}
		if drone.ID == "" {
			id, err := nextSequentialID(ctx, s.repos.Drones, "D", 3)
			if err != nil {
				return nil, err
			}
			drone.ID = id
		}
		if err := s.repos.Drones.Create(ctx, drone.ID, drone); err != nil {
			return nil, err
		}
		return drone, nil
	})
	if err != nil {
		return nil, translate(err, ErrDroneNotFound, "create drone")
	}

	s.logger.Info("drone created", zap.String("drone_id", created.ID), zap.String("serial", created.Serial))
	return created, nil
}

// Update applies patch to an existing drone
func (s *DroneService) Update(ctx context.Context, caller *models.Identity, droneID string, patch Patch[models.Drone]) (*models.Drone, error) {
	if err := authorize(s.policy, caller, authz.ActionDronesWrite, nil); err != nil {
		return nil, err
	}
	if droneID == "" {
		return nil, missingID("Drone")
	}

	updated, err := WithTransactionResult(ctx, s.repos.Store, func(ctx context.Context) (*models.Drone, error) {
		drone, err := s.repos.Drones.Get(ctx, droneID)
		if err != nil {
			return nil, err
		}
		if err := patch(drone); err != nil {
			return nil, invalidBody(err)
		}
		drone.ID = droneID
		drone.ApplyDefaults()
		if err := validate(drone); err != nil {
			return nil, err
		}
		if err := s.ensureSerialFree(ctx, drone.Serial, droneID); err != nil {
			return nil, err
		}
		if err := s.repos.Drones.Set(ctx, droneID, drone); err != nil {
			return nil, err
		}
		return drone, nil
	})
	if err != nil {
		return nil, translate(err, ErrDroneNotFound, "update drone")
	}
	return updated, nil
}

// Delete removes a drone
func (s *DroneService) Delete(ctx context.Context, caller *models.Identity, droneID string) error {
	if err := authorize(s.policy, caller, authz.ActionDronesWrite, nil); err != nil {
		return err
	}
	if droneID == "" {
		return missingID("Drone")
	}
	if err := s.repos.Drones.Delete(ctx, droneID); err != nil {
		return translate(err, ErrDroneNotFound, "delete drone")
	}
	s.logger.Info("drone deleted", zap.String("drone_id", droneID))
	return nil
}

// FlightHours sums the drone's logged flight time
func (s *DroneService) FlightHours(ctx context.Context, caller *models.Identity, droneID string) (*models.FlightHours, error) {
	if err := authorize(s.policy, caller, authz.ActionDroneFlightHours, nil); err != nil {
		return nil, err
	}
	logs, err := s.repos.FlightLogs.List(ctx, repositories.Eq("droneId", droneID))
	if err != nil {
		return nil, translate(err, ErrFlightLogNotFound, "sum flight hours")
	}
	return &models.FlightHours{DroneID: droneID, TotalHours: models.TotalFlightHours(logs)}, nil
}

// ensureSerialFree fails with a conflict when another drone uses serial
func (s *DroneService) ensureSerialFree(ctx context.Context, serial, droneID string) error {
	existing, err := s.repos.Drones.List(ctx, repositories.Eq("serial", serial))
	if err != nil {
		return err
	}
	for _, d := range existing {
		if d.ID != droneID {
			return ErrDuplicateSerial
		}
	}
	return nil
}
