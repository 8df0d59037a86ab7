package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"worksync/models"
	"worksync/permissions"
	"worksync/services"
	"worksync/utils"
)

type EvaluationRequest struct {
	Score *int `json:"score" validate:"required"`
}

type EvaluationController struct {
	DB      *gorm.DB
	Logger  *logrus.Entry
	Service *services.EvaluationService
}

func NewEvaluationController(db *gorm.DB, logger *logrus.Entry) *EvaluationController {
	return &EvaluationController{
		DB:      db,
		Logger:  logger,
		Service: services.NewEvaluationService(db, logger),
	}
}

// CreateEvaluation scores the executor of a done task and locks the task.
func (ec *EvaluationController) CreateEvaluation(c *fiber.Ctx) error {
	actor := currentWorker(c)
	if err := permissions.CreateEvaluation.Check(actor, 0); err != nil {
		return respondError(c, ec.Logger, "evaluate task", err)
	}
	taskID, err := pathID(c, "task_id")
	if err != nil {
		return respondError(c, ec.Logger, "evaluate task", err)
	}

	score, err := parseScore(c)
	if err != nil {
		return badRequest(c, "Validation failed", err)
	}

	evaluation, err := ec.Service.Create(c.UserContext(), actor, taskID, score)
	if err != nil {
		return respondError(c, ec.Logger, "evaluate task", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(evaluation))
}

// UpdateEvaluation changes the score only.
func (ec *EvaluationController) UpdateEvaluation(c *fiber.Ctx) error {
	evaluation, err := ec.authorize(c)
	if err != nil {
		return respondError(c, ec.Logger, "update evaluation", err)
	}

	score, err := parseScore(c)
	if err != nil {
		return badRequest(c, "Validation failed", err)
	}

	updated, err := ec.Service.UpdateScore(c.UserContext(), evaluation.TaskID, evaluation.ID, score)
	if err != nil {
		return respondError(c, ec.Logger, "update evaluation", err)
	}
	return c.JSON(utils.SuccessResponse(updated))
}

// DeleteEvaluation removes the score and unlocks the task.
func (ec *EvaluationController) DeleteEvaluation(c *fiber.Ctx) error {
	evaluation, err := ec.authorize(c)
	if err != nil {
		return respondError(c, ec.Logger, "delete evaluation", err)
	}

	if err := ec.Service.Delete(c.UserContext(), evaluation.TaskID, evaluation.ID); err != nil {
		return respondError(c, ec.Logger, "delete evaluation", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// authorize loads the evaluation and checks the caller is its author.
func (ec *EvaluationController) authorize(c *fiber.Ctx) (*models.Evaluation, error) {
	taskID, err := pathID(c, "task_id")
	if err != nil {
		return nil, err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}

	evaluation, err := ec.Service.Get(c.UserContext(), taskID, id)
	if err != nil {
		return nil, err
	}

	var author uint
	if evaluation.FromWorkerID != nil {
		author = *evaluation.FromWorkerID
	}
	if err := permissions.ChangeEvaluation.Check(currentWorker(c), author); err != nil {
		return nil, err
	}
	return evaluation, nil
}

func parseScore(c *fiber.Ctx) (int, error) {
	var req EvaluationRequest
	if err := c.BodyParser(&req); err != nil {
		return 0, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return 0, err
	}
	return *req.Score, nil
}
