package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"worksync/models"
)

// TaskSnapshot is the state the lifecycle and evaluation guards decide on.
type TaskSnapshot struct {
	ID         uint
	Locked     bool
	ExecutorID *uint
	Status     models.TaskStatus
}

func SnapshotOf(t models.Task) TaskSnapshot {
	return TaskSnapshot{ID: t.ID, Locked: t.Locked, ExecutorID: t.ExecutorID, Status: t.Status}
}

// OptionalID distinguishes "not sent" from "sent as null".
type OptionalID struct {
	Set   bool
	Value *uint
}

func SomeID(id uint) OptionalID { return OptionalID{Set: true, Value: &id} }

func NullID() OptionalID { return OptionalID{Set: true} }

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// AuthorizeTaskUpdate rejects changing the executor or status of a task that
// has been evaluated. Values equal to the current ones are accepted.
func AuthorizeTaskUpdate(task TaskSnapshot, executor OptionalID, status *models.TaskStatus) error {
	if !task.Locked {
		return nil
	}
	if executor.Set && !sameID(executor.Value, task.ExecutorID) {
		return conflictErr(CodeTaskUpdateConflict, ReasonExecutorFrozen)
	}
	if status != nil && *status != task.Status {
		return conflictErr(CodeTaskUpdateConflict, ReasonStatusFrozen)
	}
	return nil
}

// ValidateDeadline rejects deadlines before now.
func ValidateDeadline(deadline, now time.Time) error {
	if deadline.Before(now) {
		return validationErr("deadline", "deadline cannot be in the past")
	}
	return nil
}

// TaskInput describes a new task.
type TaskInput struct {
	Title       string
	Description string
	Deadline    time.Time
	ExecutorID  *uint
}

// TaskPatch lists the fields to change; nil or unset fields stay as they are.
type TaskPatch struct {
	Title       *string
	Description *string
	Deadline    *time.Time
	Status      *models.TaskStatus
	Executor    OptionalID
}

// TaskService owns task writes guarded by the lifecycle rules.
type TaskService struct {
	DB     *gorm.DB
	Logger *logrus.Entry
	Now    Clock
}

func NewTaskService(db *gorm.DB, logger *logrus.Entry, now Clock) *TaskService {
	return &TaskService{DB: db, Logger: logger, Now: now}
}

// Create stores an OPEN task created by creator.
func (s *TaskService) Create(ctx context.Context, creator models.Worker, in TaskInput) (*models.Task, error) {
	if err := ValidateDeadline(in.Deadline, s.Now.now()); err != nil {
		return nil, err
	}

	task := models.Task{
		Title:       in.Title,
		Description: in.Description,
		Deadline:    in.Deadline.UTC(),
		Status:      models.TaskOpen,
		ExecutorID:  in.ExecutorID,
		CreatorID:   creator.ID,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.ExecutorID != nil {
			if _, err := loadWorkers(tx, "executor", []uint{*in.ExecutorID}); err != nil {
				return err
			}
		}
		if err := tx.Omit("Executor", "Creator", "Evaluation", "Comments").Create(&task).Error; err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithFields(logrus.Fields{"task_id": task.ID, "creator_id": creator.ID}).Info("task created")
	return &task, nil
}

// Update applies patch to the task after running the lifecycle guard against
// the locked row.
func (s *TaskService) Update(ctx context.Context, taskID uint, patch TaskPatch) (*models.Task, error) {
	if patch.Deadline != nil {
		if err := ValidateDeadline(*patch.Deadline, s.Now.now()); err != nil {
			return nil, err
		}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, validationErr("status", "unknown status "+string(*patch.Status))
	}

	var task models.Task
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&task, taskID).Error; err != nil {
			return notFoundOr(err, "task", taskID)
		}
		if err := AuthorizeTaskUpdate(SnapshotOf(task), patch.Executor, patch.Status); err != nil {
			return err
		}

		changes := map[string]interface{}{}
		if patch.Title != nil {
			changes["title"] = *patch.Title
		}
		if patch.Description != nil {
			changes["description"] = *patch.Description
		}
		if patch.Deadline != nil {
			changes["deadline"] = patch.Deadline.UTC()
		}
		if patch.Status != nil {
			changes["status"] = *patch.Status
		}
		if patch.Executor.Set {
			if patch.Executor.Value != nil {
				if _, err := loadWorkers(tx, "executor", []uint{*patch.Executor.Value}); err != nil {
					return err
				}
			}
			changes["executor_id"] = patch.Executor.Value
		}
		if len(changes) == 0 {
			return nil
		}

		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(changes).Error; err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return tx.First(&task, task.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithField("task_id", task.ID).Info("task updated")
	return &task, nil
}

// Delete removes a task with its comments and evaluation.
func (s *TaskService) Delete(ctx context.Context, taskID uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&models.Evaluation{}).Error; err != nil {
			return fmt.Errorf("delete evaluation: %w", err)
		}
		res := tx.Delete(&models.Task{}, taskID)
		if res.Error != nil {
			return fmt.Errorf("delete task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Entity: "task", ID: taskID}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.WithField("task_id", taskID).Info("task deleted")
	return nil
}
