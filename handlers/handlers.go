package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/dsz/skyfleet/app"
	"github.com/dsz/skyfleet/middleware"
	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/services"
	"github.com/dsz/skyfleet/utils"
)

const (
	msgInvalidBody = "Invalid request body"
	maxBodyBytes   = 1 << 20
)

// resourceService is the CRUD surface shared by pilots, drones, missions
// and flight logs
type resourceService[T any] interface {
	List(ctx context.Context, caller *models.Identity) ([]T, error)
	Get(ctx context.Context, caller *models.Identity, id string) (*T, error)
	Create(ctx context.Context, caller *models.Identity, doc *T) (*T, error)
	Update(ctx context.Context, caller *models.Identity, id string, patch services.Patch[T]) (*T, error)
	Delete(ctx context.Context, caller *models.Identity, id string) error
}

// getOrList answers GET with one document when ?id= is present and the
// caller's visible list otherwise
func getOrList[T any](deps *app.Dependencies, svc resourceService[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middleware.IdentityFrom(r)
		if id := r.URL.Query().Get("id"); id != "" {
			doc, err := svc.Get(r.Context(), caller, id)
			if err != nil {
				HandleServiceError(w, err, deps.Logger)
				return
			}
			respondOK(w, doc, deps.Logger)
			return
		}

		docs, err := svc.List(r.Context(), caller)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		respondOK(w, docs, deps.Logger)
	}
}

func create[T any](deps *app.Dependencies, svc resourceService[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc T
		if err := decodeBody(w, r, &doc); err != nil {
			writeInvalidBody(w, err, deps.Logger)
			return
		}

		created, err := svc.Create(r.Context(), middleware.IdentityFrom(r), &doc)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		if err := utils.WriteCreated(w, created); err != nil {
			deps.Logger.Error("failed to write created response", zap.Error(err))
		}
	}
}

// update reads the target id from ?id= or the body and merges the body onto
// the stored document
func update[T any](deps *app.Dependencies, svc resourceService[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, id, err := readPatchBody(w, r)
		if err != nil {
			writeInvalidBody(w, err, deps.Logger)
			return
		}

		updated, err := svc.Update(r.Context(), middleware.IdentityFrom(r), id, mergePatch[T](body))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		respondOK(w, updated, deps.Logger)
	}
}

func remove[T any](deps *app.Dependencies, svc resourceService[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), middleware.IdentityFrom(r), r.URL.Query().Get("id")); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		utils.WriteNoContent(w)
	}
}

// mergePatch overlays a JSON body onto a loaded document. Fields absent from
// the body keep their stored value.
func mergePatch[T any](body []byte) services.Patch[T] {
	return func(doc *T) error {
		return json.Unmarshal(body, doc)
	}
}

// readPatchBody returns the raw body and the target id, taken from ?id=
// first and the body's "id" field second
func readPatchBody(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, "", err
	}
	var target struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &target); err != nil {
		return nil, "", err
	}
	if id := r.URL.Query().Get("id"); id != "" {
		return body, id, nil
	}
	return body, target.ID, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return utils.DecodeJSON(r, v)
}

func respondOK(w http.ResponseWriter, data interface{}, logger *zap.Logger) {
	if err := utils.WriteOK(w, data); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}
