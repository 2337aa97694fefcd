package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/firebase"
	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/repositories"
)

// AccountProvisioner manages sign-in accounts at the identity provider
type AccountProvisioner interface {
	CreateAccount(ctx context.Context, email, password string) (string, error)
	UpdateEmail(ctx context.Context, uid, email string) error
	DeleteAccount(ctx context.Context, uid string) error
}

// UserService manages user profiles together with their provider accounts
type UserService struct {
	repos    *repositories.Repositories
	accounts AccountProvisioner
	policy   *authz.Policy
	logger   *zap.Logger
}

// NewUserService creates a new UserService instance
func NewUserService(repos *repositories.Repositories, accounts AccountProvisioner, policy *authz.Policy, logger *zap.Logger) *UserService {
	return &UserService{repos: repos, accounts: accounts, policy: policy, logger: logger}
}

// List returns every user profile
func (s *UserService) List(ctx context.Context, caller *models.Identity) ([]models.User, error) {
	if err := authorize(s.policy, caller, authz.ActionUsersRead, nil); err != nil {
		return nil, err
	}
	users, err := s.repos.Users.List(ctx)
	if err != nil {
		return nil, translate(err, ErrUserNotFound, "list users")
	}
	return users, nil
}

// Get returns the profile stored under uid
func (s *UserService) Get(ctx context.Context, caller *models.Identity, uid string) (*models.User, error) {
	if err := authorize(s.policy, caller, authz.ActionUsersRead, nil); err != nil {
		return nil, err
	}
	user, err := s.repos.Users.Get(ctx, uid)
	if err != nil {
		return nil, translate(err, ErrUserNotFound, "get user")
	}
	return user, nil
}

// GetByEmail returns the profile with the given email
func (s *UserService) GetByEmail(ctx context.Context, caller *models.Identity, email string) (*models.User, error) {
	if err := authorize(s.policy, caller, authz.ActionUsersRead, nil); err != nil {
		return nil, err
	}
	users, err := s.repos.Users.List(ctx, repositories.Eq("email", strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, translate(err, ErrUserNotFound, "find user")
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	return &users[0], nil
}

// Me returns the caller's own stored profile
func (s *UserService) Me(ctx context.Context, caller *models.Identity) (*models.User, error) {
	if err := authorize(s.policy, caller, authz.ActionAuthMe, nil); err != nil {
		return nil, err
	}
	user, err := s.repos.Users.Get(ctx, caller.SubjectID)
	if err != nil {
		return nil, translate(err, ErrUserNotFound, "get profile")
	}
	return user, nil
}

// Create provisions a provider account and stores its profile. A Pilot
// without a pilotId gets a new pilot profile derived from the email; a
// Pilot with a pilotId is linked to that existing profile.
func (s *UserService) Create(ctx context.Context, caller *models.Identity, req *models.CreateUserRequest) (*models.User, error) {
	if err := authorize(s.policy, caller, authz.ActionUsersWrite, nil); err != nil {
		return nil, err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate(req); err != nil {
		return nil, err
	}

	uid, err := s.accounts.CreateAccount(ctx, req.Email, req.Password)
	if err != nil {
		return nil, translate(err, ErrUserNotFound, "create account")
	}

	user, err := WithTransactionResult(ctx, s.repos.Store, func(ctx context.Context) (*models.User, error) {
		user := models.NewUser(uid, req.Email, req.Role, req.PilotID)
		if user.PilotID != nil && *user.PilotID == "" {
			user.PilotID = nil
		}

		if req.Role == models.RolePilot {
			pilotID, err := s.attachPilot(ctx, user)
			if err != nil {
				return nil, err
			}
			user.PilotID = models.StringPtr(pilotID)
		}

		if err := s.repos.Users.Create(ctx, uid, user); err != nil {
			return nil, err
		}
		return user, nil
	})
	if err != nil {
		// the profile never landed; drop the orphaned account
		if delErr := s.accounts.DeleteAccount(ctx, uid); delErr != nil {
			s.logger.Error("failed to remove account after profile error",
				zap.String("uid", uid),
				zap.Error(delErr))
		}
		return nil, translate(err, ErrPilotNotFound, "create user")
	}

	s.logger.Info("user created",
		zap.String("uid", user.UID),
		zap.String("role", string(user.Role)),
		zap.String("pilot_id", user.LinkedPilotID()))
	return user, nil
}

// attachPilot links user to the pilot named by user.PilotID, or creates a
// pilot profile for it, and returns the pilot id.
func (s *UserService) attachPilot(ctx context.Context, user *models.User) (string, error) {
	if pilotID := user.LinkedPilotID(); pilotID != "" {
		if err := s.setPilotBackref(ctx, pilotID, user.UID); err != nil {
			return "", err
		}
		return pilotID, nil
	}

	id, err := nextSequentialID(ctx, s.repos.Pilots, "P", 3)
	if err != nil {
		return "", err
	}
	pilot := &models.Pilot{
		ID:      id,
		UserID:  models.StringPtr(user.UID),
		Name:    user.EmailLocalPart(),
		Email:   user.Email,
		Contact: "",
	}
	// contact is filled in later by an administrator, so the profile is
	// stored without running request validation
	pilot.ApplyDefaults()
	if err := s.repos.Pilots.Create(ctx, id, pilot); err != nil {
		return "", err
	}
	return id, nil
}

// Update applies a partial update. Email changes are pushed to the provider
// account first; pilotId changes move the pilot back reference.
func (s *UserService) Update(ctx context.Context, caller *models.Identity, uid string, req *models.UpdateUserRequest) (*models.User, error) {
	if err := authorize(s.policy, caller, authz.ActionUsersWrite, nil); err != nil {
		return nil, err
	}
	if uid == "" {
		return nil, NewDomainError(ErrorTypeValidation, "User UID is required for update", nil)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &email
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	current, err := s.repos.Users.Get(ctx, uid)
	if err != nil {
		return nil, translate(err, ErrUserNotFound, "get user")
	}
	if req.Email != nil && *req.Email != current.Email {
		if err := s.accounts.UpdateEmail(ctx, uid, *req.Email); err != nil {
			return nil, translate(err, ErrUserNotFound, "update account email")
		}
	}

	updated, err := WithTransactionResult(ctx, s.repos.Store, func(ctx context.Context) (*models.User, error) {
		user, err := s.repos.Users.Get(ctx, uid)
		if err != nil {
			return nil, err
		}
		previousPilot := user.LinkedPilotID()

		if req.Email != nil {
			user.Email = *req.Email
		}
		if req.Role != nil {
			user.Role = *req.Role
		}
		if req.PilotID.Set {
			user.PilotID = req.PilotID.Value
			if user.PilotID != nil && *user.PilotID == "" {
				user.PilotID = nil
			}
		}

		if next := user.LinkedPilotID(); next != previousPilot {
			if previousPilot != "" {
				if err := s.clearPilotBackref(ctx, previousPilot, uid); err != nil {
					return nil, err
				}
			}
			if next != "" {
				if err := s.setPilotBackref(ctx, next, uid); err != nil {
					return nil, err
				}
			}
		}

		if err := s.repos.Users.Set(ctx, uid, user); err != nil {
			return nil, err
		}
		return user, nil
	})
	if err != nil {
		return nil, translate(err, ErrUserNotFound, "update user")
	}
	return updated, nil
}

// Delete removes the provider account and the profile. An account already
// gone at the provider does not block removing the profile.
func (s *UserService) Delete(ctx context.Context, caller *models.Identity, uid string) error {
	if err := authorize(s.policy, caller, authz.ActionUsersWrite, nil); err != nil {
		return err
	}
	if uid == "" {
		return NewDomainError(ErrorTypeValidation, "User UID is required for deletion", nil)
	}

	user, err := s.repos.Users.Get(ctx, uid)
	if err != nil {
		return translate(err, ErrUserNotFound, "get user")
	}

	if err := s.accounts.DeleteAccount(ctx, uid); err != nil {
		if !errors.Is(err, firebase.ErrAccountNotFound) {
			return translate(err, ErrUserNotFound, "delete account")
		}
		s.logger.Warn("provider account already removed", zap.String("uid", uid))
	}

	err = WithTransaction(ctx, s.repos.Store, func(ctx context.Context) error {
		if err := s.repos.Users.Delete(ctx, uid); err != nil {
			return err
		}
		if pilotID := user.LinkedPilotID(); pilotID != "" {
			return s.clearPilotBackref(ctx, pilotID, uid)
		}
		return nil
	})
	if err != nil {
		return translate(err, ErrUserNotFound, "delete user")
	}

	s.logger.Info("user deleted", zap.String("uid", uid))
	return nil
}

// setPilotBackref points pilot.userId at uid. A user previously linked to the
// pilot loses its pilotId.
func (s *UserService) setPilotBackref(ctx context.Context, pilotID, uid string) error {
	pilot, err := s.repos.Pilots.Get(ctx, pilotID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fieldError("pilotId", "pilotId must reference an existing pilot")
		}
		return err
	}

	if previous := pilot.LinkedUserID(); previous != "" && previous != uid {
		displaced, err := s.repos.Users.Get(ctx, previous)
		switch {
		case err == nil && displaced.LinkedPilotID() == pilotID:
			displaced.PilotID = nil
			if err := s.repos.Users.Set(ctx, previous, displaced); err != nil {
				return err
			}
			s.logger.Info("pilot link moved",
				zap.String("pilot_id", pilotID),
				zap.String("from_uid", previous),
				zap.String("to_uid", uid))
		case err != nil && !errors.Is(err, repositories.ErrNotFound):
			return err
		}
	}

	pilot.UserID = models.StringPtr(uid)
	return s.repos.Pilots.Set(ctx, pilotID, pilot)
}

// clearPilotBackref clears pilot.userId when it still points at uid
func (s *UserService) clearPilotBackref(ctx context.Context, pilotID, uid string) error {
	pilot, err := s.repos.Pilots.Get(ctx, pilotID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return err
	}
	if pilot.LinkedUserID() != uid {
		return nil
	}
	pilot.UserID = nil
	return s.repos.Pilots.Set(ctx, pilotID, pilot)
}
