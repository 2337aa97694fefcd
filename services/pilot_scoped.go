package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/repositories"
)

// pilotDocument is a document owned by a pilot profile
type pilotDocument[T any] interface {
	*T
	authz.PilotOwned
	ApplyDefaults()
	DocumentID() string
	SetDocumentID(id string)
}

// pilotActions names the policy actions guarding a pilot-owned collection
type pilotActions struct {
	read, create, update, delete authz.Action
}

// pilotScoped implements CRUD for collections whose rows belong to a pilot.
// Administrators see everything, Pilots only their own rows, Viewers read all.
type pilotScoped[T any, P pilotDocument[T]] struct {
	coll     *repositories.Collection[T]
	tx       repositories.TransactionManager
	policy   *authz.Policy
	logger   *zap.Logger
	actions  pilotActions
	notFound *DomainError
	resource string
	idPrefix string
}

func (s *pilotScoped[T, P]) list(ctx context.Context, caller *models.Identity) ([]T, error) {
	if err := authorize(s.policy, caller, s.actions.read, nil); err != nil {
		return nil, err
	}

	var filters []repositories.Filter
	if s.policy.RequiresOwnership(caller, s.actions.read) {
		pilotID := caller.LinkedPilotID()
		if pilotID == "" {
			return []T{}, nil
		}
		filters = append(filters, repositories.Eq("pilotId", pilotID))
	}

	rows, err := s.coll.List(ctx, filters...)
	if err != nil {
		return nil, translate(err, s.notFound, "list "+s.coll.Name())
	}

	visible := rows[:0]
	for i := range rows {
		if s.policy.Visible(caller, s.actions.read, P(&rows[i])) {
			visible = append(visible, rows[i])
		}
	}
	return visible, nil
}

func (s *pilotScoped[T, P]) get(ctx context.Context, caller *models.Identity, id string) (*T, error) {
	if err := authorize(s.policy, caller, s.actions.read, nil); err != nil {
		return nil, err
	}
	row, err := s.coll.Get(ctx, id)
	if err != nil {
		return nil, translate(err, s.notFound, "get "+s.coll.Name())
	}
	if err := authorize(s.policy, caller, s.actions.read, P(row)); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *pilotScoped[T, P]) create(ctx context.Context, caller *models.Identity, row *T) (*T, error) {
	if err := authorize(s.policy, caller, s.actions.create, nil); err != nil {
		return nil, err
	}
	doc := P(row)
	doc.ApplyDefaults()
	if err := validate(row); err != nil {
		return nil, err
	}
	// a Pilot may only create rows for their own profile
	if err := authorize(s.policy, caller, s.actions.create, doc); err != nil {
		return nil, err
	}

	created, err := WithTransactionResult(ctx, s.tx, func(ctx context.Context) (*T, error) {
		id := P(row).DocumentID()
		if id == "" {
			next, err := nextSequentialID(ctx, s.coll, s.idPrefix, 3)
			if err != nil {
				return nil, err
			}
			id = next
			P(row).SetDocumentID(id)
		}
		if err := s.coll.Create(ctx, id, row); err != nil {
			return nil, err
		}
		return row, nil
	})
	if err != nil {
		return nil, translate(err, s.notFound, "create "+s.coll.Name())
	}

	s.logger.Info(s.coll.Name()+" created",
		zap.String("id", P(created).DocumentID()),
		zap.String("pilot_id", P(created).OwningPilotID()),
		zap.String("by", caller.SubjectID))
	return created, nil
}

func (s *pilotScoped[T, P]) update(ctx context.Context, caller *models.Identity, id string, patch Patch[T]) (*T, error) {
	if err := authorize(s.policy, caller, s.actions.update, nil); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, missingID(s.resource)
	}

	updated, err := WithTransactionResult(ctx, s.tx, func(ctx context.Context) (*T, error) {
		row, err := s.coll.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := authorize(s.policy, caller, s.actions.update, P(row)); err != nil {
			return nil, err
		}

		if err := patch(row); err != nil {
			return nil, invalidBody(err)
		}
		P(row).SetDocumentID(id)
		P(row).ApplyDefaults()
		if err := validate(row); err != nil {
			return nil, err
		}
		// the patched row must still belong to the caller
		if err := authorize(s.policy, caller, s.actions.update, P(row)); err != nil {
			return nil, err
		}

		if err := s.coll.Set(ctx, id, row); err != nil {
			return nil, err
		}
		return row, nil
	})
	if err != nil {
		return nil, translate(err, s.notFound, "update "+s.coll.Name())
	}
	return updated, nil
}

func (s *pilotScoped[T, P]) remove(ctx context.Context, caller *models.Identity, id string) error {
	if err := authorize(s.policy, caller, s.actions.delete, nil); err != nil {
		return err
	}
	if id == "" {
		return missingID(s.resource)
	}

	err := WithTransaction(ctx, s.tx, func(ctx context.Context) error {
		row, err := s.coll.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(s.policy, caller, s.actions.delete, P(row)); err != nil {
			return err
		}
		return s.coll.Delete(ctx, id)
	})
	if err != nil {
		return translate(err, s.notFound, "delete "+s.coll.Name())
	}

	s.logger.Info(s.coll.Name()+" deleted", zap.String("id", id), zap.String("by", caller.SubjectID))
	return nil
}
