package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dsz/skyfleet/app"
	"github.com/dsz/skyfleet/middleware"
	"github.com/dsz/skyfleet/models"
)

// GetPilotsHandler handles GET /api/pilots and GET /api/pilots?id=
func GetPilotsHandler(deps *app.Dependencies) http.HandlerFunc {
	return getOrList[models.Pilot](deps, deps.Pilots)
}

// CreatePilotHandler handles POST /api/pilots
func CreatePilotHandler(deps *app.Dependencies) http.HandlerFunc {
	return create[models.Pilot](deps, deps.Pilots)
}

// UpdatePilotHandler handles PUT /api/pilots
func UpdatePilotHandler(deps *app.Dependencies) http.HandlerFunc {
	return update[models.Pilot](deps, deps.Pilots)
}

// DeletePilotHandler handles DELETE /api/pilots?id=
func DeletePilotHandler(deps *app.Dependencies) http.HandlerFunc {
	return remove[models.Pilot](deps, deps.Pilots)
}

// PilotFlightHoursHandler handles GET /api/pilots/{id}/flight-hours
func PilotFlightHoursHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hours, err := deps.Pilots.FlightHours(r.Context(), middleware.IdentityFrom(r), chi.URLParam(r, "id"))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		respondOK(w, hours, deps.Logger)
	}
}
