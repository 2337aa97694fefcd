package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dsz/skyfleet/app"
	"github.com/dsz/skyfleet/middleware"
	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/utils"
)

// GetNotificationsHandler handles GET /api/notifications with optional
// ?id= or ?userId=
func GetNotificationsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middleware.IdentityFrom(r)
		query := r.URL.Query()

		if id := query.Get("id"); id != "" {
			n, err := deps.Notifications.Get(r.Context(), caller, id)
			if err != nil {
				HandleServiceError(w, err, deps.Logger)
				return
			}
			respondOK(w, n, deps.Logger)
			return
		}

		list, err := deps.Notifications.List(r.Context(), caller, query.Get("userId"))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		respondOK(w, list, deps.Logger)
	}
}

// CreateNotificationHandler handles POST /api/notifications
func CreateNotificationHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var n models.Notification
		if err := decodeBody(w, r, &n); err != nil {
			writeInvalidBody(w, err, deps.Logger)
			return
		}

		created, err := deps.Notifications.Create(r.Context(), middleware.IdentityFrom(r), &n)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		if err := utils.WriteCreated(w, created); err != nil {
			deps.Logger.Error("failed to write created response", zap.Error(err))
		}
	}
}

// UpdateNotificationHandler handles PUT /api/notifications
func UpdateNotificationHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, id, err := readPatchBody(w, r)
		if err != nil {
			writeInvalidBody(w, err, deps.Logger)
			return
		}

		updated, err := deps.Notifications.Update(r.Context(), middleware.IdentityFrom(r), id, mergePatch[models.Notification](body))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		respondOK(w, updated, deps.Logger)
	}
}

// MarkNotificationReadHandler handles PUT /api/notifications/{id}/read
func MarkNotificationReadHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Notifications.MarkRead(r.Context(), middleware.IdentityFrom(r), chi.URLParam(r, "id"))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		respondOK(w, n, deps.Logger)
	}
}

// DeleteNotificationHandler handles DELETE /api/notifications?id=
func DeleteNotificationHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Notifications.Delete(r.Context(), middleware.IdentityFrom(r), r.URL.Query().Get("id")); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		utils.WriteNoContent(w)
	}
}

// CheckExpiringCertsHandler handles GET /api/notifications/check-expiring-certs
func CheckExpiringCertsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := deps.Notifications.CheckExpiringCertifications(r.Context(), middleware.IdentityFrom(r))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		respondOK(w, result, deps.Logger)
	}
}
