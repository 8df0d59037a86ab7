package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"worksync/models"
)

const (
	MinScore = 1
	MaxScore = 5
)

// AuthorizeEvaluationCreation runs the creation checks in order: the task must
// not be scored yet, must have an executor and must be done.
func AuthorizeEvaluationCreation(task TaskSnapshot) error {
	switch {
	case task.Locked:
		return conflictErr(CodeEvaluationConflict, ReasonTaskAlreadyScored)
	case task.ExecutorID == nil:
		return conflictErr(CodeEvaluationConflict, ReasonTaskWithoutExecutor)
	case task.Status != models.TaskDone:
		return conflictErr(CodeEvaluationConflict, ReasonTaskNotDone)
	}
	return nil
}

func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return validationErr("score", fmt.Sprintf("score must be between %d and %d", MinScore, MaxScore))
	}
	return nil
}

// EvaluationService stores evaluations and keeps the task lock in step with
// them.
type EvaluationService struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewEvaluationService(db *gorm.DB, logger *logrus.Entry) *EvaluationService {
	return &EvaluationService{DB: db, Logger: logger}
}

// Create scores the executor of taskID on behalf of evaluator. A unique
// violation on task_id means a concurrent request won; the guard is re-run
// once and reports the task as already scored.
func (s *EvaluationService) Create(ctx context.Context, evaluator models.Worker, taskID uint, score int) (*models.Evaluation, error) {
	if err := ValidateScore(score); err != nil {
		return nil, err
	}

	var (
		evaluation *models.Evaluation
		err        error
	)
	for attempt := 0; attempt < 2; attempt++ {
		evaluation, err = s.create(ctx, evaluator, taskID, score)
		if !isUniqueViolation(err) {
			break
		}
		s.Logger.WithFields(logrus.Fields{"task_id": taskID, "attempt": attempt + 1}).
			Warn("evaluation insert lost a race, re-validating")
	}
	if isUniqueViolation(err) {
		return nil, conflictErr(CodeEvaluationConflict, ReasonTaskAlreadyScored)
	}
	if err != nil {
		return nil, err
	}

	s.Logger.WithFields(logrus.Fields{
		"evaluation_id": evaluation.ID,
		"task_id":       taskID,
		"score":         score,
	}).Info("task evaluated")
	return evaluation, nil
}

func (s *EvaluationService) create(ctx context.Context, evaluator models.Worker, taskID uint, score int) (*models.Evaluation, error) {
	var evaluation models.Evaluation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := forUpdate(tx).First(&task, taskID).Error; err != nil {
			return notFoundOr(err, "task", taskID)
		}
		if err := AuthorizeEvaluationCreation(SnapshotOf(task)); err != nil {
			return err
		}

		fromID := evaluator.ID
		executorID := *task.ExecutorID
		evaluation = models.Evaluation{
			TaskID:       task.ID,
			Score:        score,
			ToWorkerID:   &executorID,
			FromWorkerID: &fromID,
		}
		if err := tx.Omit("ToWorker", "FromWorker").Create(&evaluation).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Update("locked", true).Error; err != nil {
			return fmt.Errorf("lock task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &evaluation, nil
}

// Get returns the evaluation of taskID with the given id.
func (s *EvaluationService) Get(ctx context.Context, taskID, evaluationID uint) (*models.Evaluation, error) {
	var evaluation models.Evaluation
	err := s.DB.WithContext(ctx).Where("task_id = ?", taskID).First(&evaluation, evaluationID).Error
	if err != nil {
		return nil, notFoundOr(err, "evaluation", evaluationID)
	}
	return &evaluation, nil
}

// UpdateScore changes only the score; task, to_worker and from_worker stay.
func (s *EvaluationService) UpdateScore(ctx context.Context, taskID, evaluationID uint, score int) (*models.Evaluation, error) {
	if err := ValidateScore(score); err != nil {
		return nil, err
	}

	var evaluation models.Evaluation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("task_id = ?", taskID).First(&evaluation, evaluationID).Error; err != nil {
			return notFoundOr(err, "evaluation", evaluationID)
		}
		if err := tx.Model(&models.Evaluation{}).Where("id = ?", evaluation.ID).Update("score", score).Error; err != nil {
			return fmt.Errorf("update score: %w", err)
		}
		evaluation.Score = score
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithFields(logrus.Fields{"evaluation_id": evaluationID, "score": score}).Info("evaluation rescored")
	return &evaluation, nil
}

// Delete removes the evaluation and unlocks its task.
func (s *EvaluationService) Delete(ctx context.Context, taskID, evaluationID uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var evaluation models.Evaluation
		if err := forUpdate(tx).Where("task_id = ?", taskID).First(&evaluation, evaluationID).Error; err != nil {
			return notFoundOr(err, "evaluation", evaluationID)
		}
		if err := tx.Delete(&models.Evaluation{}, evaluation.ID).Error; err != nil {
			return fmt.Errorf("delete evaluation: %w", err)
		}
		if err := tx.Model(&models.Task{}).Where("id = ?", taskID).Update("locked", false).Error; err != nil {
			return fmt.Errorf("unlock task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.WithFields(logrus.Fields{"evaluation_id": evaluationID, "task_id": taskID}).Info("evaluation deleted")
	return nil
}
