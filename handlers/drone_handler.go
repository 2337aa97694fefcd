package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dsz/skyfleet/app"
	"github.com/dsz/skyfleet/middleware"
	"github.com/dsz/skyfleet/models"
)

// GetDronesHandler handles GET /api/drones and GET /api/drones?id=
func GetDronesHandler(deps *app.Dependencies) http.HandlerFunc {
	return getOrList[models.Drone](deps, deps.Drones)
}

// CreateDroneHandler handles POST /api/drones
func CreateDroneHandler(deps *app.Dependencies) http.HandlerFunc {
	return create[models.Drone](deps, deps.Drones)
}

// UpdateDroneHandler handles PUT /api/drones
func UpdateDroneHandler(deps *app.Dependencies) http.HandlerFunc {
	return update[models.Drone](deps, deps.Drones)
}

// DeleteDroneHandler handles DELETE /api/drones?id=
func DeleteDroneHandler(deps *app.Dependencies) http.HandlerFunc {
	return remove[models.Drone](deps, deps.Drones)
}

// DroneFlightHoursHandler handles GET /api/drones/{id}/flight-hours
func DroneFlightHoursHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hours, err := deps.Drones.FlightHours(r.Context(), middleware.IdentityFrom(r), chi.URLParam(r, "id"))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		respondOK(w, hours, deps.Logger)
	}
}
