package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksync/models"
)

func worker(id uint, email string, teamID *uint) models.Worker {
	w := models.Worker{TeamID: teamID}
	w.ID = id
	w.User.Email = email
	return w
}

func TestCheckTeamConflict(t *testing.T) {
	teamX, teamY := uint(1), uint(2)

	tests := []struct {
		name      string
		workers   []models.Worker
		current   *uint
		conflicts []string
	}{
		{name: "empty set", workers: nil, current: nil},
		{name: "no teams", workers: []models.Worker{worker(1, "a@x.io", nil), worker(2, "b@x.io", nil)}},
		{
			name:      "member of any team on create",
			workers:   []models.Worker{worker(1, "a@x.io", nil), worker(2, "b@x.io", &teamY)},
			conflicts: []string{"b@x.io"},
		},
		{
			name:    "member of the team being updated",
			workers: []models.Worker{worker(1, "a@x.io", &teamX)},
			current: &teamX,
		},
		{
			name:      "member of another team on update",
			workers:   []models.Worker{worker(1, "a@x.io", &teamX), worker(2, "b@x.io", &teamY), worker(3, "c@x.io", &teamY)},
			current:   &teamX,
			conflicts: []string{"b@x.io", "c@x.io"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTeamConflict(tt.workers, tt.current)
			if tt.conflicts == nil {
				assert.NoError(t, err)
				return
			}

			var ce *ConflictError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, CodeTeamConflict, ce.Code)
			assert.Equal(t, tt.conflicts, ce.Workers)
		})
	}
}

func TestTeamService_Create(t *testing.T) {
	db := newTestDB(t)
	svc := NewTeamService(db, testLogger())
	ctx := context.Background()

	admin := createWorker(t, db, "admin@x.io", models.RoleAdminTeam)
	a := createWorker(t, db, "a@x.io", models.RoleNormal)
	b := createWorker(t, db, "b@x.io", models.RoleNormal)

	team, err := svc.Create(ctx, admin, TeamInput{Title: "X", WorkerIDs: []uint{a.ID, b.ID}})
	require.NoError(t, err)
	require.Len(t, team.Workers, 2)
	assert.Equal(t, "a@x.io", team.Workers[0].Email())
	assert.Equal(t, admin.ID, team.CreatorID)

	got := reloadWorker(t, db, a.ID)
	require.NotNil(t, got.TeamID)
	assert.Equal(t, team.ID, *got.TeamID)

	t.Run("worker already on a team", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, TeamInput{Title: "Y", WorkerIDs: []uint{b.ID}})
		var ce *ConflictError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, []string{"b@x.io"}, ce.Workers)

		var count int64
		db.Model(&models.Team{}).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("unknown worker", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, TeamInput{Title: "Z", WorkerIDs: []uint{999}})
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "workers", ve.Field)
	})
}

func TestTeamService_Update(t *testing.T) {
	db := newTestDB(t)
	svc := NewTeamService(db, testLogger())
	ctx := context.Background()

	a := createWorker(t, db, "a@x.io", models.RoleAdminTeam)
	b := createWorker(t, db, "b@x.io", models.RoleNormal)
	c := createWorker(t, db, "c@x.io", models.RoleNormal)

	teamX, err := svc.Create(ctx, a, TeamInput{Title: "X", WorkerIDs: []uint{a.ID}})
	require.NoError(t, err)
	teamY, err := svc.Create(ctx, a, TeamInput{Title: "Y", WorkerIDs: []uint{b.ID}})
	require.NoError(t, err)

	t.Run("re-adding own member is allowed", func(t *testing.T) {
		updated, err := svc.Update(ctx, teamX.ID, TeamInput{Title: "X2", WorkerIDs: []uint{a.ID, c.ID}})
		require.NoError(t, err)
		assert.Equal(t, "X2", updated.Title)
		require.Len(t, updated.Workers, 2)
	})

	t.Run("member of another team conflicts", func(t *testing.T) {
		_, err := svc.Update(ctx, teamX.ID, TeamInput{Title: "X3", WorkerIDs: []uint{a.ID, b.ID}})
		assert.True(t, IsConflict(err, CodeTeamConflict))

		var ce *ConflictError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, []string{"b@x.io"}, ce.Workers)

		got := reloadWorker(t, db, b.ID)
		assert.Equal(t, teamY.ID, *got.TeamID)
	})

	t.Run("dropped members leave the team", func(t *testing.T) {
		updated, err := svc.Update(ctx, teamX.ID, TeamInput{Title: "X", WorkerIDs: []uint{a.ID}})
		require.NoError(t, err)
		require.Len(t, updated.Workers, 1)
		assert.Nil(t, reloadWorker(t, db, c.ID).TeamID)
	})

	t.Run("missing team", func(t *testing.T) {
		_, err := svc.Update(ctx, 999, TeamInput{Title: "nope"})
		var nf *NotFoundError
		assert.True(t, errors.As(err, &nf))
	})
}

func TestTeamService_Delete(t *testing.T) {
	db := newTestDB(t)
	svc := NewTeamService(db, testLogger())
	ctx := context.Background()

	a := createWorker(t, db, "a@x.io", models.RoleAdminTeam)
	b := createWorker(t, db, "b@x.io", models.RoleNormal)

	team, err := svc.Create(ctx, a, TeamInput{Title: "X", WorkerIDs: []uint{a.ID, b.ID}})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, team.ID))
	assert.Nil(t, reloadWorker(t, db, a.ID).TeamID)
	assert.Nil(t, reloadWorker(t, db, b.ID).TeamID)

	var nf *NotFoundError
	assert.True(t, errors.As(svc.Delete(ctx, team.ID), &nf))

	// released workers can join a new team
	_, err = svc.Create(ctx, a, TeamInput{Title: "Y", WorkerIDs: []uint{b.ID}})
	assert.NoError(t, err)
}
