package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"worksync/models"
	"worksync/permissions"
	"worksync/services"
	"worksync/utils"
)

type MeetingRequest struct {
	Description string `json:"description" validate:"max=5000"`
	Datetime    string `json:"datetime" validate:"required,datetime_input"`
	Workers     []uint `json:"workers"`
}

type MeetingController struct {
	DB       *gorm.DB
	Logger   *logrus.Entry
	Location *time.Location
	Now      services.Clock
	Service  *services.MeetingService
}

func NewMeetingController(db *gorm.DB, logger *logrus.Entry, loc *time.Location, now services.Clock) *MeetingController {
	return &MeetingController{
		DB:       db,
		Logger:   logger,
		Location: loc,
		Now:      now,
		Service:  services.NewMeetingService(db, logger, now),
	}
}

func (mc *MeetingController) GetMeetings(c *fiber.Ctx) error {
	var meetings []models.Meeting
	if err := withParticipants(mc.DB).Order("datetime, id").Find(&meetings).Error; err != nil {
		return respondError(c, mc.Logger, "fetch meetings", err)
	}
	return c.JSON(utils.SuccessResponse(newMeetingResponses(meetings)))
}

// GetMyMeetings lists the meetings the caller attends. done=0 (the default)
// keeps upcoming ones only, done=1 returns all of them.
func (mc *MeetingController) GetMyMeetings(c *fiber.Ctx) error {
	q := withParticipants(mc.DB).
		Joins("JOIN meeting_workers ON meeting_workers.meeting_id = meetings.id").
		Where("meeting_workers.worker_id = ?", currentWorker(c).ID)

	switch c.Query("done", "0") {
	case "0":
		q = q.Where("meetings.datetime > ?", mc.now().UTC())
	case "1":
	default:
		return badRequest(c, "done must be 0 or 1", nil)
	}

	var meetings []models.Meeting
	if err := q.Order("meetings.datetime, meetings.id").Find(&meetings).Error; err != nil {
		return respondError(c, mc.Logger, "fetch meetings", err)
	}
	return c.JSON(utils.SuccessResponse(newMeetingResponses(meetings)))
}

func (mc *MeetingController) GetMeeting(c *fiber.Ctx) error {
	meeting, err := mc.find(c)
	if err != nil {
		return respondError(c, mc.Logger, "fetch meeting", err)
	}
	return c.JSON(utils.SuccessResponse(NewMeetingResponse(*meeting)))
}

// CreateMeeting schedules a meeting for the caller and the invited workers.
func (mc *MeetingController) CreateMeeting(c *fiber.Ctx) error {
	in, err := mc.parseBody(c)
	if err != nil {
		return badRequest(c, "Validation failed", err)
	}

	meeting, err := mc.Service.Create(c.UserContext(), currentWorker(c), in)
	if err != nil {
		return respondError(c, mc.Logger, "schedule meeting", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(NewMeetingResponse(*meeting)))
}

func (mc *MeetingController) UpdateMeeting(c *fiber.Ctx) error {
	meeting, err := mc.find(c)
	if err != nil {
		return respondError(c, mc.Logger, "reschedule meeting", err)
	}
	if err := permissions.ChangeMeeting.Check(currentWorker(c), meeting.CreatorID); err != nil {
		return respondError(c, mc.Logger, "reschedule meeting", err)
	}

	in, err := mc.parseBody(c)
	if err != nil {
		return badRequest(c, "Validation failed", err)
	}

	updated, err := mc.Service.Update(c.UserContext(), meeting.ID, in)
	if err != nil {
		return respondError(c, mc.Logger, "reschedule meeting", err)
	}
	return c.JSON(utils.SuccessResponse(NewMeetingResponse(*updated)))
}

func (mc *MeetingController) DeleteMeeting(c *fiber.Ctx) error {
	meeting, err := mc.find(c)
	if err != nil {
		return respondError(c, mc.Logger, "cancel meeting", err)
	}
	if err := permissions.ChangeMeeting.Check(currentWorker(c), meeting.CreatorID); err != nil {
		return respondError(c, mc.Logger, "cancel meeting", err)
	}

	if err := mc.Service.Delete(c.UserContext(), meeting.ID); err != nil {
		return respondError(c, mc.Logger, "cancel meeting", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (mc *MeetingController) parseBody(c *fiber.Ctx) (services.MeetingInput, error) {
	var req MeetingRequest
	if err := c.BodyParser(&req); err != nil {
		return services.MeetingInput{}, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return services.MeetingInput{}, err
	}

	at, err := utils.ParseDateTime(req.Datetime, mc.Location)
	if err != nil {
		return services.MeetingInput{}, err
	}
	return services.MeetingInput{
		Description: req.Description,
		Datetime:    at,
		WorkerIDs:   req.Workers,
	}, nil
}

func (mc *MeetingController) find(c *fiber.Ctx) (*models.Meeting, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}

	var meeting models.Meeting
	if err := withParticipants(mc.DB).First(&meeting, id).Error; err != nil {
		return nil, notFoundOr(err, "meeting", id)
	}
	return &meeting, nil
}

func (mc *MeetingController) now() time.Time {
	if mc.Now == nil {
		return time.Now()
	}
	return mc.Now()
}

func withParticipants(db *gorm.DB) *gorm.DB {
	return db.Preload("Workers", func(db *gorm.DB) *gorm.DB {
		return db.Order("workers.id")
	})
}
