package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/repositories"
)

// PilotService manages pilot profiles and keeps the pilot/user link
// consistent in both directions.
type PilotService struct {
	repos  *repositories.Repositories
	policy *authz.Policy
	logger *zap.Logger
}

// NewPilotService creates a new PilotService instance
func NewPilotService(repos *repositories.Repositories, policy *authz.Policy, logger *zap.Logger) *PilotService {
	return &PilotService{repos: repos, policy: policy, logger: logger}
}

// List returns every pilot
func (s *PilotService) List(ctx context.Context, caller *models.Identity) ([]models.Pilot, error) {
	if err := authorize(s.policy, caller, authz.ActionPilotsRead, nil); err != nil {
		return nil, err
	}
	pilots, err := s.repos.Pilots.List(ctx)
	if err != nil {
		return nil, translate(err, ErrPilotNotFound, "list pilots")
	}
	return pilots, nil
}

// Get returns one pilot
func (s *PilotService) Get(ctx context.Context, caller *models.Identity, pilotID string) (*models.Pilot, error) {
	if err := authorize(s.policy, caller, authz.ActionPilotsRead, nil); err != nil {
		return nil, err
	}
	pilot, err := s.repos.Pilots.Get(ctx, pilotID)
	if err != nil {
		return nil, translate(err, ErrPilotNotFound, "get pilot")
	}
	return pilot, nil
}

// Create stores a new pilot. A pilot created with a userId links that
// user's pilotId to the new pilot in the same transaction.
func (s *PilotService) Create(ctx context.Context, caller *models.Identity, pilot *models.Pilot) (*models.Pilot, error) {
	if err := authorize(s.policy, caller, authz.ActionPilotsWrite, nil); err != nil {
		return nil, err
	}
	pilot.ApplyDefaults()
	if err := validate(pilot); err != nil {
		return nil, err
	}

	created, err := WithTransactionResult(ctx, s.repos.Store, func(ctx context.Context) (*models.Pilot, error) {
		if pilot.ID == "" {
			id, err := nextSequentialID(ctx, s.repos.Pilots, "P", 3)
			if err != nil {
				return nil, err
			}
			pilot.ID = id
		}
		if err := s.repos.Pilots.Create(ctx, pilot.ID, pilot); err != nil {
			return nil, err
		}
		if uid := pilot.LinkedUserID(); uid != "" {
			if err := s.linkUser(ctx, uid, pilot.ID); err != nil {
				return nil, err
			}
		}
		return pilot, nil
	})
	if err != nil {
		return nil, translate(err, ErrUserNotFound, "create pilot")
	}

	s.logger.Info("pilot created",
		zap.String("pilot_id", created.ID),
		zap.String("user_id", created.LinkedUserID()))
	return created, nil
}

// Update applies patch to an existing pilot. Changing userId moves the link.
func (s *PilotService) Update(ctx context.Context, caller *models.Identity, pilotID string, patch Patch[models.Pilot]) (*models.Pilot, error) {
	if err := authorize(s.policy, caller, authz.ActionPilotsWrite, nil); err != nil {
		return nil, err
	}
	if pilotID == "" {
		return nil, missingID("Pilot")
	}

	updated, err := WithTransactionResult(ctx, s.repos.Store, func(ctx context.Context) (*models.Pilot, error) {
		pilot, err := s.repos.Pilots.Get(ctx, pilotID)
		if err != nil {
			return nil, translate(err, ErrPilotNotFound, "get pilot")
		}
		previousUser := pilot.LinkedUserID()

		if err := patch(pilot); err != nil {
			return nil, invalidBody(err)
		}
		pilot.ID = pilotID
		pilot.ApplyDefaults()
		if err := validate(pilot); err != nil {
			return nil, err
		}

		if err := s.repos.Pilots.Set(ctx, pilotID, pilot); err != nil {
			return nil, err
		}
		if current := pilot.LinkedUserID(); current != previousUser {
			if previousUser != "" {
				if err := s.unlinkUser(ctx, previousUser, pilotID); err != nil {
					return nil, err
				}
			}
			if current != "" {
				if err := s.linkUser(ctx, current, pilotID); err != nil {
					return nil, err
				}
			}
		}
		return pilot, nil
	})
	if err != nil {
		return nil, translate(err, ErrUserNotFound, "update pilot")
	}
	return updated, nil
}

// Delete removes a pilot and clears pilotId on every user linked to it
func (s *PilotService) Delete(ctx context.Context, caller *models.Identity, pilotID string) error {
	if err := authorize(s.policy, caller, authz.ActionPilotsWrite, nil); err != nil {
		return err
	}
	if pilotID == "" {
		return missingID("Pilot")
	}

	err := WithTransaction(ctx, s.repos.Store, func(ctx context.Context) error {
		if err := s.repos.Pilots.Delete(ctx, pilotID); err != nil {
			return translate(err, ErrPilotNotFound, "delete pilot")
		}

		linked, err := s.repos.Users.List(ctx, repositories.Eq("pilotId", pilotID))
		if err != nil {
			return err
		}
		for i := range linked {
			linked[i].PilotID = nil
			if err := s.repos.Users.Set(ctx, linked[i].UID, &linked[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translate(err, ErrPilotNotFound, "delete pilot")
	}

	s.logger.Info("pilot deleted", zap.String("pilot_id", pilotID))
	return nil
}

// FlightHours sums the pilot's logged flight time
func (s *PilotService) FlightHours(ctx context.Context, caller *models.Identity, pilotID string) (*models.FlightHours, error) {
	if err := authorize(s.policy, caller, authz.ActionPilotFlightHours, nil); err != nil {
		return nil, err
	}
	logs, err := s.repos.FlightLogs.List(ctx, repositories.Eq("pilotId", pilotID))
	if err != nil {
		return nil, translate(err, ErrFlightLogNotFound, "sum flight hours")
	}
	return &models.FlightHours{PilotID: pilotID, TotalHours: models.TotalFlightHours(logs)}, nil
}

// linkUser points user uid at pilotID. A pilot previously linked to the
// user loses its back reference.
func (s *PilotService) linkUser(ctx context.Context, uid, pilotID string) error {
	user, err := s.repos.Users.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fieldError("userId", "userId must reference an existing user")
		}
		return err
	}

	if old := user.LinkedPilotID(); old != "" && old != pilotID {
		previous, err := s.repos.Pilots.Get(ctx, old)
		switch {
		case err == nil && previous.LinkedUserID() == uid:
			previous.UserID = nil
			if err := s.repos.Pilots.Set(ctx, old, previous); err != nil {
				return err
			}
		case err != nil && !errors.Is(err, repositories.ErrNotFound):
			return err
		}
	}

	user.PilotID = models.StringPtr(pilotID)
	return s.repos.Users.Set(ctx, uid, user)
}

// unlinkUser clears the user's pilotId when it still points at pilotID
func (s *PilotService) unlinkUser(ctx context.Context, uid, pilotID string) error {
	user, err := s.repos.Users.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return err
	}
	if user.LinkedPilotID() != pilotID {
		return nil
	}
	user.PilotID = nil
	return s.repos.Users.Set(ctx, uid, user)
}
