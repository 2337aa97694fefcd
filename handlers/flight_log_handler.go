package handlers

import (
	"net/http"

	"github.com/dsz/skyfleet/app"
	"github.com/dsz/skyfleet/models"
)

// GetFlightLogsHandler handles GET /api/flights and GET /api/flights?id=
func GetFlightLogsHandler(deps *app.Dependencies) http.HandlerFunc {
	return getOrList[models.FlightLog](deps, deps.FlightLogs)
}

// CreateFlightLogHandler handles POST /api/flights
func CreateFlightLogHandler(deps *app.Dependencies) http.HandlerFunc {
	return create[models.FlightLog](deps, deps.FlightLogs)
}

// UpdateFlightLogHandler handles PUT /api/flights
func UpdateFlightLogHandler(deps *app.Dependencies) http.HandlerFunc {
	return update[models.FlightLog](deps, deps.FlightLogs)
}

// DeleteFlightLogHandler handles DELETE /api/flights?id=
func DeleteFlightLogHandler(deps *app.Dependencies) http.HandlerFunc {
	return remove[models.FlightLog](deps, deps.FlightLogs)
}
