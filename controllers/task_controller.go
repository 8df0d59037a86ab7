package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"worksync/models"
	"worksync/permissions"
	"worksync/services"
	"worksync/utils"
)

// TaskRequest carries the scalar task fields. The executor is read from the
// raw body so that an explicit null can be told apart from a missing key.
type TaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	Deadline    *string `json:"deadline" validate:"omitempty,datetime_input"`
	Status      *string `json:"status" validate:"omitempty,task_status"`
}

var fullTaskFields = []string{"title", "description", "deadline", "status", "executor"}

type TaskController struct {
	DB       *gorm.DB
	Logger   *logrus.Entry
	Location *time.Location
	Service  *services.TaskService
}

func NewTaskController(db *gorm.DB, logger *logrus.Entry, loc *time.Location, now services.Clock) *TaskController {
	return &TaskController{
		DB:       db,
		Logger:   logger,
		Location: loc,
		Service:  services.NewTaskService(db, logger, now),
	}
}

func (tc *TaskController) GetTasks(c *fiber.Ctx) error {
	return tc.list(c, tc.DB)
}

// GetMyTasks lists the tasks the caller executes.
func (tc *TaskController) GetMyTasks(c *fiber.Ctx) error {
	return tc.list(c, tc.DB.Where("executor_id = ?", currentWorker(c).ID))
}

func (tc *TaskController) list(c *fiber.Ctx, q *gorm.DB) error {
	var tasks []models.Task
	if err := q.Preload("Evaluation").Order("id").Find(&tasks).Error; err != nil {
		return respondError(c, tc.Logger, "fetch tasks", err)
	}

	actor := currentWorker(c)
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskResponseFor(actor, t))
	}
	return c.JSON(utils.SuccessResponse(out))
}

func (tc *TaskController) GetTask(c *fiber.Ctx) error {
	task, err := tc.find(c, true)
	if err != nil {
		return respondError(c, tc.Logger, "fetch task", err)
	}
	return c.JSON(utils.SuccessResponse(taskResponseFor(currentWorker(c), *task)))
}

func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	actor := currentWorker(c)
	if err := permissions.CreateTask.Check(actor, 0); err != nil {
		return respondError(c, tc.Logger, "create task", err)
	}

	req, executor, err := tc.parseBody(c)
	if err != nil {
		return badRequest(c, "Validation failed", err)
	}
	if req.Title == nil || *req.Title == "" {
		return badRequest(c, "Validation failed", errors.New("title is required"))
	}
	if req.Deadline == nil {
		return badRequest(c, "Validation failed", errors.New("deadline is required"))
	}

	deadline, err := utils.ParseDateTime(*req.Deadline, tc.Location)
	if err != nil {
		return badRequest(c, "Invalid deadline", err)
	}
	in := services.TaskInput{
		Title:      *req.Title,
		Deadline:   deadline,
		ExecutorID: executor.Value,
	}
	if req.Description != nil {
		in.Description = *req.Description
	}

	task, err := tc.Service.Create(c.UserContext(), actor, in)
	if err != nil {
		return respondError(c, tc.Logger, "create task", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(NewTaskResponse(*task)))
}

// ReplaceTask handles PUT: every field must be present, the executor may be null.
func (tc *TaskController) ReplaceTask(c *fiber.Ctx) error {
	return tc.update(c, true)
}

// UpdateTask handles PATCH: only the fields sent are changed.
func (tc *TaskController) UpdateTask(c *fiber.Ctx) error {
	return tc.update(c, false)
}

func (tc *TaskController) update(c *fiber.Ctx, full bool) error {
	task, err := tc.find(c, false)
	if err != nil {
		return respondError(c, tc.Logger, "update task", err)
	}
	if err := permissions.ChangeTask.Check(currentWorker(c), task.CreatorID); err != nil {
		return respondError(c, tc.Logger, "update task", err)
	}

	req, executor, err := tc.parseBody(c)
	if err != nil {
		return badRequest(c, "Validation failed", err)
	}
	if full {
		if missing := missingFields(c.Body()); len(missing) > 0 {
			return badRequest(c, "Validation failed", fmt.Errorf("missing fields: %v", missing))
		}
	}

	patch := services.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Executor:    executor,
	}
	if req.Deadline != nil {
		deadline, err := utils.ParseDateTime(*req.Deadline, tc.Location)
		if err != nil {
			return badRequest(c, "Invalid deadline", err)
		}
		patch.Deadline = &deadline
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		patch.Status = &status
	}

	updated, err := tc.Service.Update(c.UserContext(), task.ID, patch)
	if err != nil {
		return respondError(c, tc.Logger, "update task", err)
	}
	return c.JSON(utils.SuccessResponse(NewTaskResponse(*updated)))
}

func (tc *TaskController) DeleteTask(c *fiber.Ctx) error {
	task, err := tc.find(c, false)
	if err != nil {
		return respondError(c, tc.Logger, "delete task", err)
	}
	if err := permissions.ChangeTask.Check(currentWorker(c), task.CreatorID); err != nil {
		return respondError(c, tc.Logger, "delete task", err)
	}

	if err := tc.Service.Delete(c.UserContext(), task.ID); err != nil {
		return respondError(c, tc.Logger, "delete task", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (tc *TaskController) find(c *fiber.Ctx, withEvaluation bool) (*models.Task, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}

	q := tc.DB
	if withEvaluation {
		q = q.Preload("Evaluation")
	}
	var task models.Task
	if err := q.First(&task, id).Error; err != nil {
		return nil, notFoundOr(err, "task", id)
	}
	return &task, nil
}

// parseBody decodes the scalar fields and the tri-state executor.
func (tc *TaskController) parseBody(c *fiber.Ctx) (TaskRequest, services.OptionalID, error) {
	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		return req, services.OptionalID{}, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return req, services.OptionalID{}, err
	}

	executor, err := parseExecutor(c.Body())
	return req, executor, err
}

func parseExecutor(body []byte) (services.OptionalID, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return services.OptionalID{}, err
	}

	value, ok := raw["executor"]
	if !ok {
		return services.OptionalID{}, nil
	}
	if string(value) == "null" {
		return services.NullID(), nil
	}

	var id uint
	if err := json.Unmarshal(value, &id); err != nil || id == 0 {
		return services.OptionalID{}, errors.New("executor must be a worker id or null")
	}
	return services.SomeID(id), nil
}

func missingFields(body []byte) []string {
	var raw map[string]json.RawMessage
	_ = json.Unmarshal(body, &raw)

	var missing []string
	for _, f := range fullTaskFields {
		if _, ok := raw[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// taskResponseFor embeds the evaluation only for the task's creator or executor.
func taskResponseFor(actor models.Worker, t models.Task) TaskResponse {
	resp := NewTaskResponse(t)
	if t.Evaluation != nil && permissions.SeeEvaluation(t.ExecutorID).Allows(actor, t.CreatorID) {
		resp.Evaluation = t.Evaluation
	}
	return resp
}
