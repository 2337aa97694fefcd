package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/repositories"
)

func newTestRepos(t *testing.T) *repositories.Repositories {
	t.Helper()
	return repositories.NewRepositories(NewStore(zap.NewNop()))
}

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	drone := &models.Drone{ID: "D001", Model: "Mavic 3", Serial: "SN-1", Make: "DJI", PurchaseDate: "2024-01-10"}
	require.NoError(t, repos.Drones.Create(ctx, drone.ID, drone))

	err := repos.Drones.Create(ctx, drone.ID, drone)
	assert.ErrorIs(t, err, repositories.ErrAlreadyExists)

	got, err := repos.Drones.Get(ctx, "D001")
	require.NoError(t, err)
	assert.Equal(t, "SN-1", got.Serial)

	got.Status = models.DroneStatusRetired
	require.NoError(t, repos.Drones.Set(ctx, got.ID, got))

	got, err = repos.Drones.Get(ctx, "D001")
	require.NoError(t, err)
	assert.Equal(t, models.DroneStatusRetired, got.Status)

	require.NoError(t, repos.Drones.Delete(ctx, "D001"))
	_, err = repos.Drones.Get(ctx, "D001")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, repos.Drones.Delete(ctx, "D001"), repositories.ErrNotFound)
}

func TestStore_ListFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	for _, n := range []models.Notification{
		{ID: "3", UserID: "u1", Type: models.NotificationInfo, Message: "c", Read: true},
		{ID: "1", UserID: "u1", Type: models.NotificationAlert, Message: "a"},
		{ID: "2", UserID: "u2", Type: models.NotificationAlert, Message: "b"},
	} {
		n := n
		require.NoError(t, repos.Notifications.Create(ctx, n.ID, &n))
	}

	all, err := repos.Notifications.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{all[0].ID, all[1].ID, all[2].ID})

	mine, err := repos.Notifications.List(ctx, repositories.Eq("userId", "u1"))
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	unread, err := repos.Notifications.List(ctx, repositories.Eq("userId", "u1"), repositories.Eq("read", "false"))
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "1", unread[0].ID)

	ids, err := repos.Notifications.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestStore_ListNumericAndNullFields(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	require.NoError(t, repos.FlightLogs.Create(ctx, "FL001", &models.FlightLog{ID: "FL001", PilotID: "P001", Duration: 90}))
	require.NoError(t, repos.Users.Create(ctx, "u1", models.NewUser("u1", "a@example.com", models.RoleViewer, nil)))

	logs, err := repos.FlightLogs.List(ctx, repositories.Eq("duration", "90"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	users, err := repos.Users.List(ctx, repositories.Eq("pilotId", ""))
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestStore_InTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	require.NoError(t, repos.Pilots.Create(ctx, "P001", &models.Pilot{ID: "P001", Name: "Before"}))

	boom := errors.New("boom")
	err := repos.InTransaction(ctx, func(ctx context.Context) error {
		p, err := repos.Pilots.Get(ctx, "P001")
		require.NoError(t, err)
		p.Name = "After"
		require.NoError(t, repos.Pilots.Set(ctx, "P001", p))
		require.NoError(t, repos.Pilots.Create(ctx, "P002", &models.Pilot{ID: "P002"}))
		require.NoError(t, repos.Pilots.Delete(ctx, "P001"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := repos.Pilots.Get(ctx, "P001")
	require.NoError(t, err)
	assert.Equal(t, "Before", p.Name)

	_, err = repos.Pilots.Get(ctx, "P002")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestStore_InTransactionCommits(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	err := repos.InTransaction(ctx, func(ctx context.Context) error {
		if err := repos.Pilots.Create(ctx, "P001", &models.Pilot{ID: "P001"}); err != nil {
			return err
		}
		// nested units of work join the outer transaction
		return repos.InTransaction(ctx, func(ctx context.Context) error {
			return repos.Users.Create(ctx, "u1", models.NewUser("u1", "a@example.com", models.RolePilot, models.StringPtr("P001")))
		})
	})
	require.NoError(t, err)

	u, err := repos.Users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "P001", u.LinkedPilotID())
	assert.NoError(t, repos.Store.HealthCheck(ctx))
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore(zap.NewNop())

	data := []byte(`{"id":"x"}`)
	require.NoError(t, store.Set(ctx, "things", repositories.Document{ID: "x", Data: data}))
	data[2] = 'X'

	doc, err := store.Get(ctx, "things", "x")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"x"}`, string(doc.Data))
}
