package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"worksync/middleware"
	"worksync/models"
	"worksync/services"
	"worksync/utils"
)

// respondError maps service errors onto HTTP responses. Anything that is not
// a domain error is logged, reported and answered with a 500.
func respondError(c *fiber.Ctx, logger *logrus.Entry, action string, err error) error {
	var (
		validation *services.ValidationError
		conflict   *services.ConflictError
		notFound   *services.NotFoundError
		forbidden  *services.ForbiddenError
	)

	switch {
	case errors.As(err, &validation):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", validation)
	case errors.As(err, &conflict):
		c.Locals(middleware.ConflictCodeKey, conflict.Code)
		logger.WithFields(logrus.Fields{
			"code":    conflict.Code,
			"reason":  conflict.Reason,
			"workers": conflict.Workers,
		}).Info(action + " rejected")
		return utils.CodedErrorResponse(c, fiber.StatusConflict, conflict.Code, conflict.Reason, conflictDetails(conflict))
	case errors.As(err, &notFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, notFound.Error(), nil)
	case errors.As(err, &forbidden):
		return utils.ErrorResponse(c, fiber.StatusForbidden, forbidden.Message, nil)
	}

	utils.LogError("controller_error", err, map[string]interface{}{
		"action": action,
		"method": c.Method(),
		"path":   c.Path(),
	})
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to "+action, nil)
}

func conflictDetails(conflict *services.ConflictError) interface{} {
	if len(conflict.Workers) == 0 {
		return nil
	}
	return fiber.Map{"workers": conflict.Workers}
}

// badRequest answers malformed path, query or body input.
func badRequest(c *fiber.Ctx, message string, err error) error {
	return utils.ErrorResponse(c, fiber.StatusBadRequest, message, err)
}

func currentWorker(c *fiber.Ctx) models.Worker {
	return *middleware.CurrentWorker(c)
}

// pathID parses a positive id parameter; a malformed one is a validation error.
func pathID(c *fiber.Ctx, name string) (uint, error) {
	id, err := utils.ParseID(c, name)
	if err != nil {
		return 0, &services.ValidationError{Field: name, Message: err.Error()}
	}
	return id, nil
}

func notFoundOr(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &services.NotFoundError{Entity: entity, ID: id}
	}
	return err
}
