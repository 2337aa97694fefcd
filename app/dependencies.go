package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/config"
	"github.com/dsz/skyfleet/firebase"
	"github.com/dsz/skyfleet/middleware"
	"github.com/dsz/skyfleet/repositories"
	"github.com/dsz/skyfleet/repositories/memory"
	"github.com/dsz/skyfleet/repositories/postgres"
	"github.com/dsz/skyfleet/services"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Store  repositories.DocumentStore
	Repos  *repositories.Repositories
	Logger *zap.Logger

	// Access control
	Policy   *authz.Policy
	Verifier services.TokenVerifier
	Accounts services.AccountProvisioner
	Resolver *services.IdentityResolver
	Gate     *middleware.Gate
	Guard    *middleware.Guard

	// Services
	Pilots        *services.PilotService
	Drones        *services.DroneService
	Missions      *services.MissionService
	FlightLogs    *services.FlightLogService
	Notifications *services.NotificationService
	Users         *services.UserService
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	policy, err := authz.LoadPolicy(cfg.Auth.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load access policy: %w", err)
	}

	store, db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	accounts, err := newAccountProvisioner(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize account provisioning: %w", err)
	}

	deps := Assemble(cfg, store, newTokenVerifier(cfg, logger), accounts, policy, logger)
	deps.DB = db

	logger.Info("all dependencies initialized successfully",
		zap.String("store", cfg.Store.Backend),
		zap.Bool("auth_configured", cfg.AuthConfigured()))
	return deps, nil
}

// Assemble wires services, resolver, gate and guard on top of an opened store
func Assemble(cfg *config.Config, store repositories.DocumentStore, verifier services.TokenVerifier, accounts services.AccountProvisioner, policy *authz.Policy, logger *zap.Logger) *Dependencies {
	repos := repositories.NewRepositories(store)
	resolver := services.NewIdentityResolver(verifier, repos.Users, cfg.Auth.VerifyTimeout, logger.Named("resolver"))

	return &Dependencies{
		Config:   cfg,
		Store:    store,
		Repos:    repos,
		Logger:   logger,
		Policy:   policy,
		Verifier: verifier,
		Accounts: accounts,
		Resolver: resolver,
		Gate: middleware.NewGate(resolver, policy, middleware.GateConfig{
			CookieName:       cfg.Auth.CookieName,
			LoginPath:        cfg.Auth.LoginPath,
			AccessDeniedPath: cfg.Auth.AccessDeniedPath,
			PublicAPIPaths:   cfg.Auth.PublicAPIPaths,
		}, logger.Named("gate")),
		Guard: middleware.NewGuard(resolver, cfg.Auth.CookieName, logger.Named("guard")),

		Pilots:        services.NewPilotService(repos, policy, logger),
		Drones:        services.NewDroneService(repos, policy, logger),
		Missions:      services.NewMissionService(repos, policy, logger),
		FlightLogs:    services.NewFlightLogService(repos, policy, logger),
		Notifications: services.NewNotificationService(repos, policy, logger),
		Users:         services.NewUserService(repos, accounts, policy, logger),
	}
}

// openStore opens the configured document store backend
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.DocumentStore, *postgres.DB, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		logger.Warn("using in-memory document store, data is lost on restart")
		return memory.NewStore(logger.Named("store")), nil, nil

	case config.StorePostgres:
		db, err := postgres.NewDB(cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Store.InitSchema {
			if err := db.InitSchema(ctx); err != nil {
				_ = db.Close()
				return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
			}
		}
		return postgres.NewDocumentStore(db, logger.Named("store")), db, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// newTokenVerifier returns the Firebase verifier, or one that rejects every
// token when no project is configured
func newTokenVerifier(cfg *config.Config, logger *zap.Logger) services.TokenVerifier {
	if !cfg.AuthConfigured() {
		logger.Warn("firebase not configured, every credential will be rejected")
		return rejectAllVerifier{}
	}
	return &firebaseVerifierAdapter{verifier: firebase.NewVerifier(firebase.Config{
		ProjectID:          cfg.Firebase.ProjectID,
		JWKSURL:            cfg.Firebase.JWKSURL,
		CacheTTL:           cfg.Firebase.CacheTTL,
		HTTPTimeout:        cfg.Firebase.HTTPTimeout,
		MinRefreshInterval: cfg.Firebase.MinRefreshInterval,
	})}
}

// newAccountProvisioner returns the Identity Toolkit client, or an
// in-process registry when no service account is configured
func newAccountProvisioner(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.AccountProvisioner, error) {
	if cfg.Firebase.ServiceAccountJSON == "" {
		logger.Warn("firebase admin credentials not configured, using local account registry")
		return firebase.NewLocalAccounts(logger.Named("accounts")), nil
	}
	return firebase.NewAccountClientFromServiceAccount(ctx,
		cfg.Firebase.IdentityToolkitURL,
		cfg.Firebase.ProjectID,
		[]byte(cfg.Firebase.ServiceAccountJSON))
}

// firebaseVerifierAdapter adapts firebase.Verifier to services.TokenVerifier
type firebaseVerifierAdapter struct {
	verifier *firebase.Verifier
}

func (a *firebaseVerifierAdapter) Verify(ctx context.Context, token string) (*services.VerifiedToken, error) {
	parsed, err := a.verifier.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &services.VerifiedToken{SubjectID: parsed.UID, Email: parsed.Email}, nil
}

// errAuthNotConfigured is returned for every token when Firebase is not configured
var errAuthNotConfigured = errors.New("authentication not configured")

// rejectAllVerifier rejects all tokens (used when Firebase is not configured)
type rejectAllVerifier struct{}

func (rejectAllVerifier) Verify(context.Context, string) (*services.VerifiedToken, error) {
	return nil, errAuthNotConfigured
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		} else {
			d.Logger.Info("store closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return errors.Join(errs...)
}
