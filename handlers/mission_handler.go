package handlers

import (
	"net/http"

	"github.com/dsz/skyfleet/app"
	"github.com/dsz/skyfleet/models"
)

// Missions and flight logs are pilot-owned; the services scope every call
// to the caller.

// GetMissionsHandler handles GET /api/missions and GET /api/missions?id=
func GetMissionsHandler(deps *app.Dependencies) http.HandlerFunc {
	return getOrList[models.Mission](deps, deps.Missions)
}

// CreateMissionHandler handles POST /api/missions
func CreateMissionHandler(deps *app.Dependencies) http.HandlerFunc {
	return create[models.Mission](deps, deps.Missions)
}

// UpdateMissionHandler handles PUT /api/missions
func UpdateMissionHandler(deps *app.Dependencies) http.HandlerFunc {
	return update[models.Mission](deps, deps.Missions)
}

// DeleteMissionHandler handles DELETE /api/missions?id=
func DeleteMissionHandler(deps *app.Dependencies) http.HandlerFunc {
	return remove[models.Mission](deps, deps.Missions)
}
