package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dsz/skyfleet/app"
	"github.com/dsz/skyfleet/middleware"
	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/utils"
)

// GetUsersHandler handles GET /api/users with optional ?uid= or ?email=
func GetUsersHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middleware.IdentityFrom(r)
		query := r.URL.Query()

		var (
			data interface{}
			err  error
		)
		switch {
		case query.Get("uid") != "":
			data, err = deps.Users.Get(r.Context(), caller, query.Get("uid"))
		case query.Get("email") != "":
			data, err = deps.Users.GetByEmail(r.Context(), caller, query.Get("email"))
		default:
			data, err = deps.Users.List(r.Context(), caller)
		}
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		respondOK(w, data, deps.Logger)
	}
}

// CreateUserHandler handles POST /api/users. The provider account is created
// first, then the profile and, for pilots, the linked pilot document.
func CreateUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateUserRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeInvalidBody(w, err, deps.Logger)
			return
		}

		user, err := deps.Users.Create(r.Context(), middleware.IdentityFrom(r), &req)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		if err := utils.WriteCreated(w, user); err != nil {
			deps.Logger.Error("failed to write created response", zap.Error(err))
		}
	}
}

// UpdateUserHandler handles PUT /api/users?uid=
func UpdateUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdateUserRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeInvalidBody(w, err, deps.Logger)
			return
		}

		user, err := deps.Users.Update(r.Context(), middleware.IdentityFrom(r), r.URL.Query().Get("uid"), &req)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		respondOK(w, user, deps.Logger)
	}
}

// DeleteUserHandler handles DELETE /api/users?uid=
func DeleteUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Users.Delete(r.Context(), middleware.IdentityFrom(r), r.URL.Query().Get("uid")); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		utils.WriteNoContent(w)
	}
}

// CurrentUser is the body of GET /api/auth/me
type CurrentUser struct {
	UID     string      `json:"uid"`
	Email   string      `json:"email"`
	Role    models.Role `json:"role"`
	PilotID *string     `json:"pilotId"`
}

// GetCurrentUserHandler handles GET /api/auth/me
func GetCurrentUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := deps.Users.Me(r.Context(), middleware.IdentityFrom(r))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		respondOK(w, map[string]CurrentUser{
			"user": {
				UID:     user.UID,
				Email:   user.Email,
				Role:    user.Role,
				PilotID: user.PilotID,
			},
		}, deps.Logger)
	}
}
