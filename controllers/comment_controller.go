package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"worksync/models"
	"worksync/permissions"
	"worksync/utils"
)

type CommentRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

type CommentController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewCommentController(db *gorm.DB, logger *logrus.Entry) *CommentController {
	return &CommentController{
		DB:     db,
		Logger: logger,
	}
}

func (cc *CommentController) GetComments(c *fiber.Ctx) error {
	taskID, err := cc.task(c)
	if err != nil {
		return respondError(c, cc.Logger, "fetch comments", err)
	}

	var comments []models.Comment
	if err := cc.DB.Where("task_id = ?", taskID).Order("id").Find(&comments).Error; err != nil {
		return respondError(c, cc.Logger, "fetch comments", err)
	}
	return c.JSON(utils.SuccessResponse(comments))
}

func (cc *CommentController) GetComment(c *fiber.Ctx) error {
	comment, err := cc.find(c)
	if err != nil {
		return respondError(c, cc.Logger, "fetch comment", err)
	}
	return c.JSON(utils.SuccessResponse(comment))
}

// CreateComment lets any worker leave a note on an existing task.
func (cc *CommentController) CreateComment(c *fiber.Ctx) error {
	taskID, err := cc.task(c)
	if err != nil {
		return respondError(c, cc.Logger, "create comment", err)
	}

	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return badRequest(c, "Validation failed", err)
	}

	comment := models.Comment{
		TaskID:    taskID,
		Text:      req.Text,
		CreatorID: currentWorker(c).ID,
	}
	if err := cc.DB.Omit("Creator").Create(&comment).Error; err != nil {
		return respondError(c, cc.Logger, "create comment", err)
	}

	cc.Logger.WithFields(logrus.Fields{"comment_id": comment.ID, "task_id": taskID}).Info("comment added")
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(comment))
}

func (cc *CommentController) UpdateComment(c *fiber.Ctx) error {
	comment, err := cc.find(c)
	if err != nil {
		return respondError(c, cc.Logger, "update comment", err)
	}
	if err := permissions.ChangeComment.Check(currentWorker(c), comment.CreatorID); err != nil {
		return respondError(c, cc.Logger, "update comment", err)
	}

	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return badRequest(c, "Validation failed", err)
	}

	if err := cc.DB.Model(comment).Update("text", req.Text).Error; err != nil {
		return respondError(c, cc.Logger, "update comment", err)
	}
	comment.Text = req.Text
	return c.JSON(utils.SuccessResponse(comment))
}

func (cc *CommentController) DeleteComment(c *fiber.Ctx) error {
	comment, err := cc.find(c)
	if err != nil {
		return respondError(c, cc.Logger, "delete comment", err)
	}
	if err := permissions.ChangeComment.Check(currentWorker(c), comment.CreatorID); err != nil {
		return respondError(c, cc.Logger, "delete comment", err)
	}

	if err := cc.DB.Delete(&models.Comment{}, comment.ID).Error; err != nil {
		return respondError(c, cc.Logger, "delete comment", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// task resolves :task_id to an existing task.
func (cc *CommentController) task(c *fiber.Ctx) (uint, error) {
	taskID, err := pathID(c, "task_id")
	if err != nil {
		return 0, err
	}
	var task models.Task
	if err := cc.DB.Select("id").First(&task, taskID).Error; err != nil {
		return 0, notFoundOr(err, "task", taskID)
	}
	return task.ID, nil
}

func (cc *CommentController) find(c *fiber.Ctx) (*models.Comment, error) {
	taskID, err := cc.task(c)
	if err != nil {
		return nil, err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}

	var comment models.Comment
	if err := cc.DB.Where("task_id = ?", taskID).First(&comment, id).Error; err != nil {
		return nil, notFoundOr(err, "comment", id)
	}
	return &comment, nil
}
