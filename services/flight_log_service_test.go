package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dsz/skyfleet/models"
)

func newFlightLogService(t *testing.T) (*FlightLogService, func() []models.FlightLog) {
	t.Helper()
	repos := newTestRepos(t)
	seedFleet(t, repos)
	svc := NewFlightLogService(repos, defaultPolicy(), zap.NewNop())
	all := func() []models.FlightLog {
		logs, err := repos.FlightLogs.List(context.Background())
		require.NoError(t, err)
		return logs
	}
	return svc, all
}

func logIDs(logs []models.FlightLog) []string {
	ids := make([]string, 0, len(logs))
	for _, l := range logs {
		ids = append(ids, l.ID)
	}
	return ids
}

func TestFlightLogService_ListIsScopedByRole(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFlightLogService(t)

	tests := []struct {
		name   string
		caller *models.Identity
		want   []string
	}{
		{"administrator sees all", adminCaller, []string{"FL001", "FL002"}},
		{"viewer sees all", viewerCaller, []string{"FL001", "FL002"}},
		{"pilot sees own", pilotACaller, []string{"FL001"}},
		{"other pilot sees own", pilotBCaller, []string{"FL002"}},
		{"unlinked pilot sees nothing", unlinkedPilot, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs, err := svc.List(ctx, tt.caller)
			require.NoError(t, err)
			assert.Equal(t, tt.want, logIDs(logs))
		})
	}
}

func TestFlightLogService_GetChecksExistenceBeforeOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFlightLogService(t)

	_, err := svc.Get(ctx, pilotACaller, "FL002")
	assert.True(t, IsForbiddenError(err))

	_, err = svc.Get(ctx, pilotACaller, "FL999")
	assert.True(t, IsNotFoundError(err))
	assert.Equal(t, "Flight Log not found", PublicMessage(err))

	log, err := svc.Get(ctx, pilotACaller, "FL001")
	require.NoError(t, err)
	assert.Equal(t, "P001", log.PilotID)
}

func TestFlightLogService_PilotCreatesOnlyOwnLogs(t *testing.T) {
	ctx := context.Background()
	svc, all := newFlightLogService(t)

	in := testFlightLog("", "P002", 20)
	_, err := svc.Create(ctx, pilotACaller, in)
	assert.True(t, IsForbiddenError(err))
	assert.Len(t, all(), 2)

	in = testFlightLog("", "P001", 20)
	in.Incidents = ""
	created, err := svc.Create(ctx, pilotACaller, in)
	require.NoError(t, err)
	assert.Equal(t, "FL003", created.ID)
	assert.Equal(t, "None", created.Incidents)

	_, err = svc.Create(ctx, unlinkedPilot, testFlightLog("", "P001", 5))
	assert.True(t, IsForbiddenError(err))

	_, err = svc.Create(ctx, viewerCaller, testFlightLog("", "P001", 5))
	assert.True(t, IsForbiddenError(err))
}

func TestFlightLogService_UpdateCannotReassignOwnership(t *testing.T) {
	ctx := context.Background()
	svc, all := newFlightLogService(t)

	_, err := svc.Update(ctx, pilotACaller, "FL001", func(l *models.FlightLog) error {
		l.PilotID = "P002"
		return nil
	})
	assert.True(t, IsForbiddenError(err))
	for _, l := range all() {
		if l.ID == "FL001" {
			assert.Equal(t, "P001", l.PilotID)
		}
	}

	_, err = svc.Update(ctx, pilotACaller, "FL002", func(l *models.FlightLog) error {
		l.Notes = "mine now"
		return nil
	})
	assert.True(t, IsForbiddenError(err))

	updated, err := svc.Update(ctx, pilotACaller, "FL001", func(l *models.FlightLog) error {
		l.Notes = "windy"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "windy", updated.Notes)

	reassigned, err := svc.Update(ctx, adminCaller, "FL001", func(l *models.FlightLog) error {
		l.PilotID = "P002"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "P002", reassigned.PilotID)
}

func TestFlightLogService_DeleteIsAdminOnly(t *testing.T) {
	ctx := context.Background()
	svc, all := newFlightLogService(t)

	err := svc.Delete(ctx, pilotACaller, "FL001")
	assert.True(t, IsForbiddenError(err))

	require.NoError(t, svc.Delete(ctx, adminCaller, "FL001"))
	assert.Len(t, all(), 1)

	err = svc.Delete(ctx, adminCaller, "FL001")
	assert.True(t, IsNotFoundError(err))

	err = svc.Delete(ctx, adminCaller, "")
	assert.Equal(t, "Flight Log ID is required", PublicMessage(err))
}
