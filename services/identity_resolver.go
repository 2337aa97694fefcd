package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/repositories"
)

// VerifiedToken is what the identity provider vouches for
type VerifiedToken struct {
	SubjectID string
	Email     string
}

// TokenVerifier verifies credentials against the external identity provider
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*VerifiedToken, error)
}

// IdentityResolver turns a raw credential into a request Identity: the token
// is verified, then the stored profile supplies role and pilot link.
// Nothing is cached between requests.
type IdentityResolver struct {
	verifier TokenVerifier
	users    *repositories.Collection[models.User]
	timeout  time.Duration
	logger   *zap.Logger
}

// NewIdentityResolver creates a resolver. timeout bounds the provider call
// and the profile lookup together.
func NewIdentityResolver(verifier TokenVerifier, users *repositories.Collection[models.User], timeout time.Duration, logger *zap.Logger) *IdentityResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IdentityResolver{
		verifier: verifier,
		users:    users,
		timeout:  timeout,
		logger:   logger,
	}
}

// Resolve verifies token and loads the caller's profile. Every failure,
// including provider or store outages, is an Unauthorized error.
func (r *IdentityResolver) Resolve(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	verified, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return nil, NewDomainError(ErrorTypeUnauthorized, ErrInvalidToken.Message, err)
	}
	if verified == nil || verified.SubjectID == "" {
		return nil, ErrInvalidToken
	}

	user, err := r.users.Get(ctx, verified.SubjectID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			r.logger.Error("profile lookup failed",
				zap.String("uid", verified.SubjectID),
				zap.Error(err))
		}
		return nil, NewDomainError(ErrorTypeUnauthorized, "User profile not found", err)
	}

	role, err := models.ParseRole(string(user.Role))
	if err != nil {
		r.logger.Warn("stored profile has unknown role",
			zap.String("uid", verified.SubjectID),
			zap.String("role", string(user.Role)))
		return nil, NewDomainError(ErrorTypeUnauthorized, "User profile has no valid role", err)
	}

	email := user.Email
	if email == "" {
		email = verified.Email
	}
	return models.NewIdentity(verified.SubjectID, email, role, user.LinkedPilotID()), nil
}
