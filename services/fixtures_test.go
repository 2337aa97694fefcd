package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/repositories"
	"github.com/dsz/skyfleet/repositories/memory"
)

var (
	adminCaller   = models.NewIdentity("uid-admin", "admin@skyfleet.test", models.RoleAdministrator, "")
	pilotACaller  = models.NewIdentity("uid-a", "alice@skyfleet.test", models.RolePilot, "P001")
	pilotBCaller  = models.NewIdentity("uid-b", "bob@skyfleet.test", models.RolePilot, "P002")
	unlinkedPilot = models.NewIdentity("uid-c", "carol@skyfleet.test", models.RolePilot, "")
	viewerCaller  = models.NewIdentity("uid-v", "vera@skyfleet.test", models.RoleViewer, "")
)

func newTestRepos(t *testing.T) *repositories.Repositories {
	t.Helper()
	return repositories.NewRepositories(memory.NewStore(zap.NewNop()))
}

func seed[T any](t *testing.T, c *repositories.Collection[T], id string, v *T) {
	t.Helper()
	require.NoError(t, c.Create(context.Background(), id, v))
}

// seedFleet stores two linked pilots, their users and one log per pilot
func seedFleet(t *testing.T, repos *repositories.Repositories) {
	t.Helper()
	seed(t, repos.Users, "uid-a", models.NewUser("uid-a", "alice@skyfleet.test", models.RolePilot, models.StringPtr("P001")))
	seed(t, repos.Users, "uid-b", models.NewUser("uid-b", "bob@skyfleet.test", models.RolePilot, models.StringPtr("P002")))
	seed(t, repos.Pilots, "P001", testPilot("P001", "Alice", "uid-a"))
	seed(t, repos.Pilots, "P002", testPilot("P002", "Bob", "uid-b"))
	seed(t, repos.FlightLogs, "FL001", testFlightLog("FL001", "P001", 90))
	seed(t, repos.FlightLogs, "FL002", testFlightLog("FL002", "P002", 45))
}

func testPilot(id, name, uid string) *models.Pilot {
	p := &models.Pilot{
		ID:      id,
		UserID:  models.StringPtr(uid),
		Name:    name,
		Email:   name + "@skyfleet.test",
		Contact: "+1 555 0100",
	}
	p.ApplyDefaults()
	return p
}

func testFlightLog(id, pilotID string, minutes float64) *models.FlightLog {
	return &models.FlightLog{
		ID:          id,
		PilotID:     pilotID,
		DroneID:     "D001",
		Date:        "2025-03-01",
		Duration:    minutes,
		Location:    "North field",
		MissionType: "Survey",
		Incidents:   "None",
	}
}

func testMission(id, pilotID string) *models.Mission {
	return &models.Mission{
		ID:       id,
		Name:     "Roof inspection",
		Client:   "Acme",
		Location: "Depot 4",
		PilotID:  pilotID,
		DroneID:  "D001",
		Date:     "2025-06-01",
		Status:   models.MissionStatusScheduled,
	}
}

func fixedClock(day string) func() time.Time {
	t, err := time.Parse(models.DateLayout, day)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t.Add(9 * time.Hour) }
}

func defaultPolicy() *authz.Policy {
	return authz.DefaultPolicy()
}
