package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksync/models"
)

func statusPtr(s models.TaskStatus) *models.TaskStatus { return &s }

func TestAuthorizeTaskUpdate(t *testing.T) {
	unlocked := TaskSnapshot{ID: 1, ExecutorID: uintPtr(7), Status: models.TaskAtWork}
	locked := TaskSnapshot{ID: 1, Locked: true, ExecutorID: uintPtr(7), Status: models.TaskDone}
	lockedNoExecutor := TaskSnapshot{ID: 1, Locked: true, Status: models.TaskDone}

	tests := []struct {
		name     string
		task     TaskSnapshot
		executor OptionalID
		status   *models.TaskStatus
		reason   string
	}{
		{name: "unlocked accepts any change", task: unlocked, executor: SomeID(8), status: statusPtr(models.TaskOpen)},
		{name: "unlocked accepts clearing executor", task: unlocked, executor: NullID()},
		{name: "locked accepts no changes", task: locked},
		{name: "locked accepts same values", task: locked, executor: SomeID(7), status: statusPtr(models.TaskDone)},
		{name: "locked rejects new executor", task: locked, executor: SomeID(8), reason: ReasonExecutorFrozen},
		{name: "locked rejects clearing executor", task: locked, executor: NullID(), reason: ReasonExecutorFrozen},
		{name: "locked accepts null over null", task: lockedNoExecutor, executor: NullID()},
		{name: "locked rejects setting executor", task: lockedNoExecutor, executor: SomeID(7), reason: ReasonExecutorFrozen},
		{name: "locked rejects new status", task: locked, status: statusPtr(models.TaskAtWork), reason: ReasonStatusFrozen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorizeTaskUpdate(tt.task, tt.executor, tt.status)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}

			var ce *ConflictError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, CodeTaskUpdateConflict, ce.Code)
			assert.Equal(t, tt.reason, ce.Reason)
		})
	}
}

func TestValidateDeadline(t *testing.T) {
	assert.NoError(t, ValidateDeadline(fixedNow, fixedNow))
	assert.NoError(t, ValidateDeadline(fixedNow.Add(time.Minute), fixedNow))
	assert.Error(t, ValidateDeadline(fixedNow.Add(-time.Second), fixedNow))
}

func TestTaskService_Create(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db, testLogger(), fixedClock)
	ctx := context.Background()

	manager := createWorker(t, db, "m@x.io", models.RoleManager)
	executor := createWorker(t, db, "e@x.io", models.RoleNormal)

	task, err := svc.Create(ctx, manager, TaskInput{
		Title:      "Ship it",
		Deadline:   fixedNow.Add(24 * time.Hour),
		ExecutorID: &executor.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskOpen, task.Status)
	assert.Equal(t, manager.ID, task.CreatorID)
	assert.False(t, task.Locked)

	_, err = svc.Create(ctx, manager, TaskInput{Title: "Late", Deadline: fixedNow.Add(-time.Hour)})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "deadline", ve.Field)

	_, err = svc.Create(ctx, manager, TaskInput{Title: "Ghost", Deadline: fixedNow.Add(time.Hour), ExecutorID: uintPtr(999)})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "executor", ve.Field)
}

func TestTaskService_Update(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db, testLogger(), fixedClock)
	ctx := context.Background()

	manager := createWorker(t, db, "m@x.io", models.RoleManager)
	e1 := createWorker(t, db, "e1@x.io", models.RoleNormal)
	e2 := createWorker(t, db, "e2@x.io", models.RoleNormal)
	task := createTask(t, db, manager, &e1, models.TaskOpen)

	t.Run("unlocked task changes freely", func(t *testing.T) {
		title := "Renamed"
		updated, err := svc.Update(ctx, task.ID, TaskPatch{
			Title:    &title,
			Status:   statusPtr(models.TaskDone),
			Executor: SomeID(e2.ID),
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
		assert.Equal(t, models.TaskDone, updated.Status)
		assert.Equal(t, e2.ID, *updated.ExecutorID)
	})

	require.NoError(t, db.Model(&models.Task{}).Where("id = ?", task.ID).Update("locked", true).Error)

	t.Run("locked task keeps executor", func(t *testing.T) {
		_, err := svc.Update(ctx, task.ID, TaskPatch{Executor: SomeID(e1.ID)})
		assert.True(t, IsConflict(err, CodeTaskUpdateConflict))
	})

	t.Run("locked task keeps status", func(t *testing.T) {
		_, err := svc.Update(ctx, task.ID, TaskPatch{Status: statusPtr(models.TaskOpen)})
		assert.True(t, IsConflict(err, CodeTaskUpdateConflict))
	})

	t.Run("locked task accepts other fields", func(t *testing.T) {
		desc := "details"
		updated, err := svc.Update(ctx, task.ID, TaskPatch{
			Description: &desc,
			Status:      statusPtr(models.TaskDone),
			Executor:    SomeID(e2.ID),
		})
		require.NoError(t, err)
		assert.Equal(t, "details", updated.Description)
	})

	t.Run("past deadline", func(t *testing.T) {
		past := fixedNow.Add(-time.Hour)
		_, err := svc.Update(ctx, task.ID, TaskPatch{Deadline: &past})
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := svc.Update(ctx, task.ID, TaskPatch{Status: statusPtr("CLOSED")})
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("missing task", func(t *testing.T) {
		_, err := svc.Update(ctx, 999, TaskPatch{})
		var nf *NotFoundError
		assert.True(t, errors.As(err, &nf))
	})
}

func TestTaskService_Delete(t *testing.T) {
	db := newTestDB(t)
	tasks := NewTaskService(db, testLogger(), fixedClock)
	evaluations := NewEvaluationService(db, testLogger())
	ctx := context.Background()

	manager := createWorker(t, db, "m@x.io", models.RoleManager)
	executor := createWorker(t, db, "e@x.io", models.RoleNormal)
	task := createTask(t, db, manager, &executor, models.TaskDone)

	require.NoError(t, db.Omit("Creator").Create(&models.Comment{TaskID: task.ID, Text: "hi", CreatorID: executor.ID}).Error)
	_, err := evaluations.Create(ctx, manager, task.ID, 4)
	require.NoError(t, err)

	require.NoError(t, tasks.Delete(ctx, task.ID))

	var comments, scores int64
	db.Model(&models.Comment{}).Count(&comments)
	db.Model(&models.Evaluation{}).Count(&scores)
	assert.Zero(t, comments)
	assert.Zero(t, scores)

	var nf *NotFoundError
	assert.True(t, errors.As(tasks.Delete(ctx, task.ID), &nf))
}
