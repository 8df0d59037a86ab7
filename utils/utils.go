package utils

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DateTimeLayout is the zone-less form accepted for meeting times and deadlines.
const DateTimeLayout = "2006-01-02T15:04"

const DateLayout = "2006-01-02"

const MonthLayout = "2006-01"

// ErrorResponse creates a standardized error response
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	response := fiber.Map{
		"success": false,
		"error":   message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	return c.Status(status).JSON(response)
}

// CodedErrorResponse is ErrorResponse for rule violations that clients branch on.
func CodedErrorResponse(c *fiber.Ctx, status int, code, message string, payload interface{}) error {
	response := fiber.Map{
		"success": false,
		"error":   message,
		"code":    code,
	}
	if payload != nil {
		response["details"] = payload
	}
	return c.Status(status).JSON(response)
}

// SuccessResponse creates a standardized success response
func SuccessResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    data,
	}
}

// ParseID parses a positive integer path parameter.
func ParseID(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return uint(id), nil
}

// ParseDateTime accepts RFC 3339 or DateTimeLayout read in loc.
func ParseDateTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(DateTimeLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected %s or RFC 3339, got %q", DateTimeLayout, value)
	}
	return t, nil
}
