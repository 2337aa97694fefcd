package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/repositories"
)

// ExpiryWarningDays is how far ahead certification expiry raises an alert
const ExpiryWarningDays = 60

// CertificationCheckResult reports the outcome of an expiry sweep
type CertificationCheckResult struct {
	Message              string `json:"message"`
	NotificationsCreated int    `json:"notificationsCreated"`
}

// NotificationService manages per-user notifications. Non-administrators
// only see and update notifications addressed to them.
type NotificationService struct {
	repos  *repositories.Repositories
	policy *authz.Policy
	logger *zap.Logger
	now    func() time.Time
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(repos *repositories.Repositories, policy *authz.Policy, logger *zap.Logger) *NotificationService {
	return &NotificationService{repos: repos, policy: policy, logger: logger, now: time.Now}
}

// List returns notifications visible to caller, optionally narrowed to userID.
// Asking for another user's notifications without admin rights is forbidden.
func (s *NotificationService) List(ctx context.Context, caller *models.Identity, userID string) ([]models.Notification, error) {
	if err := authorize(s.policy, caller, authz.ActionNotificationsRead, nil); err != nil {
		return nil, err
	}

	if s.policy.RequiresOwnership(caller, authz.ActionNotificationsRead) {
		if userID != "" && userID != caller.SubjectID {
			return nil, ErrForbidden
		}
		userID = caller.SubjectID
	}

	var filters []repositories.Filter
	if userID != "" {
		filters = append(filters, repositories.Eq("userId", userID))
	}
	rows, err := s.repos.Notifications.List(ctx, filters...)
	if err != nil {
		return nil, translate(err, ErrNotificationNotFound, "list notifications")
	}

	visible := rows[:0]
	for i := range rows {
		if s.policy.Visible(caller, authz.ActionNotificationsRead, &rows[i]) {
			visible = append(visible, rows[i])
		}
	}
	return visible, nil
}

// Get returns one notification
func (s *NotificationService) Get(ctx context.Context, caller *models.Identity, id string) (*models.Notification, error) {
	if err := authorize(s.policy, caller, authz.ActionNotificationsRead, nil); err != nil {
		return nil, err
	}
	n, err := s.repos.Notifications.Get(ctx, id)
	if err != nil {
		return nil, translate(err, ErrNotificationNotFound, "get notification")
	}
	if err := authorize(s.policy, caller, authz.ActionNotificationsRead, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Create stores a notification
func (s *NotificationService) Create(ctx context.Context, caller *models.Identity, n *models.Notification) (*models.Notification, error) {
	if err := authorize(s.policy, caller, authz.ActionNotificationsCreate, nil); err != nil {
		return nil, err
	}
	n.ApplyDefaults(s.now())
	if err := validate(n); err != nil {
		return nil, err
	}

	created, err := WithTransactionResult(ctx, s.repos.Store, func(ctx context.Context) (*models.Notification, error) {
		if err := s.insert(ctx, n); err != nil {
			return nil, err
		}
		return n, nil
	})
	if err != nil {
		return nil, translate(err, ErrNotificationNotFound, "create notification")
	}
	return created, nil
}

// Update applies patch to a notification. The patched notification must
// still belong to the caller.
func (s *NotificationService) Update(ctx context.Context, caller *models.Identity, id string, patch Patch[models.Notification]) (*models.Notification, error) {
	if err := authorize(s.policy, caller, authz.ActionNotificationsUpdate, nil); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, missingID("Notification")
	}

	updated, err := WithTransactionResult(ctx, s.repos.Store, func(ctx context.Context) (*models.Notification, error) {
		n, err := s.repos.Notifications.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := authorize(s.policy, caller, authz.ActionNotificationsUpdate, n); err != nil {
			return nil, err
		}
		if err := patch(n); err != nil {
			return nil, invalidBody(err)
		}
		n.ID = id
		n.ApplyDefaults(s.now())
		if err := validate(n); err != nil {
			return nil, err
		}
		if err := authorize(s.policy, caller, authz.ActionNotificationsUpdate, n); err != nil {
			return nil, err
		}
		if err := s.repos.Notifications.Set(ctx, id, n); err != nil {
			return nil, err
		}
		return n, nil
	})
	if err != nil {
		return nil, translate(err, ErrNotificationNotFound, "update notification")
	}
	return updated, nil
}

// MarkRead sets read=true on a notification owned by caller
func (s *NotificationService) MarkRead(ctx context.Context, caller *models.Identity, id string) (*models.Notification, error) {
	return s.Update(ctx, caller, id, func(n *models.Notification) error {
		n.Read = true
		return nil
	})
}

// Delete removes a notification
func (s *NotificationService) Delete(ctx context.Context, caller *models.Identity, id string) error {
	if err := authorize(s.policy, caller, authz.ActionNotificationsDelete, nil); err != nil {
		return err
	}
	if id == "" {
		return missingID("Notification")
	}
	if err := s.repos.Notifications.Delete(ctx, id); err != nil {
		return translate(err, ErrNotificationNotFound, "delete notification")
	}
	return nil
}

// CheckExpiringCertifications raises an alert for every certification that
// expires within ExpiryWarningDays, unless an unread alert for it already
// exists. Pilots without a linked user account are skipped.
func (s *NotificationService) CheckExpiringCertifications(ctx context.Context, caller *models.Identity) (*CertificationCheckResult, error) {
	if err := authorize(s.policy, caller, authz.ActionCheckCertifications, nil); err != nil {
		return nil, err
	}
	now := s.now()

	created, err := WithTransactionResult(ctx, s.repos.Store, func(ctx context.Context) (int, error) {
		pilots, err := s.repos.Pilots.List(ctx)
		if err != nil {
			return 0, err
		}

		count := 0
		for _, pilot := range pilots {
			uid := pilot.LinkedUserID()
			for _, cert := range pilot.Certifications {
				days, ok := cert.DaysUntilExpiry(now)
				if !ok || days <= 0 || days > ExpiryWarningDays {
					continue
				}
				if uid == "" {
					s.logger.Debug("expiring certification on unlinked pilot",
						zap.String("pilot_id", pilot.ID),
						zap.String("certification", cert.Type))
					continue
				}

				marker := fmt.Sprintf("Pilot %s certification %s expiring soon", pilot.Name, cert.Type)
				exists, err := s.hasUnreadAlert(ctx, uid, marker)
				if err != nil {
					return 0, err
				}
				if exists {
					continue
				}

				expires, _ := models.ParseDate(cert.Expires)
				n := &models.Notification{
					UserID:  uid,
					Type:    models.NotificationAlert,
					Message: fmt.Sprintf("%s (%s).", marker, models.FormatDate(expires)),
				}
				n.ApplyDefaults(now)
				if err := s.insert(ctx, n); err != nil {
					return 0, err
				}
				count++
			}
		}
		return count, nil
	})
	if err != nil {
		return nil, translate(err, ErrNotificationNotFound, "check expiring certifications")
	}

	s.logger.Info("certification expiry sweep finished", zap.Int("notifications_created", created))
	return &CertificationCheckResult{
		Message:              fmt.Sprintf("Checked for expiring certifications. %d new notifications created.", created),
		NotificationsCreated: created,
	}, nil
}

func (s *NotificationService) hasUnreadAlert(ctx context.Context, uid, marker string) (bool, error) {
	existing, err := s.repos.Notifications.List(ctx,
		repositories.Eq("userId", uid),
		repositories.Eq("type", string(models.NotificationAlert)),
		repositories.Eq("read", "false"),
	)
	if err != nil {
		return false, err
	}
	for _, n := range existing {
		if strings.Contains(n.Message, marker) {
			return true, nil
		}
	}
	return false, nil
}

// insert assigns the next numeric id when none is set and creates n
func (s *NotificationService) insert(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		id, err := nextSequentialID(ctx, s.repos.Notifications, "", 0)
		if err != nil {
			return err
		}
		n.ID = id
	}
	return s.repos.Notifications.Create(ctx, n.ID, n)
}
