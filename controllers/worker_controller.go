package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"worksync/models"
	"worksync/services"
	"worksync/utils"
)

type WorkerController struct {
	DB       *gorm.DB
	Logger   *logrus.Entry
	Location *time.Location
	Now      services.Clock
}

func NewWorkerController(db *gorm.DB, logger *logrus.Entry, loc *time.Location, now services.Clock) *WorkerController {
	return &WorkerController{
		DB:       db,
		Logger:   logger,
		Location: loc,
		Now:      now,
	}
}

func (wc *WorkerController) GetWorkers(c *fiber.Ctx) error {
	var workers []models.Worker
	if err := wc.DB.Preload("User").Preload("Team").Order("id").Find(&workers).Error; err != nil {
		return respondError(c, wc.Logger, "fetch workers", err)
	}
	return c.JSON(utils.SuccessResponse(newWorkerResponses(workers)))
}

func (wc *WorkerController) GetMe(c *fiber.Ctx) error {
	return wc.respondWorker(c, currentWorker(c).ID)
}

func (wc *WorkerController) GetWorker(c *fiber.Ctx) error {
	id, err := utils.ParseID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid worker ID", err)
	}
	return wc.respondWorker(c, id)
}

func (wc *WorkerController) respondWorker(c *fiber.Ctx, id uint) error {
	var worker models.Worker
	if err := wc.DB.Preload("User").Preload("Team").First(&worker, id).Error; err != nil {
		return respondError(c, wc.Logger, "fetch worker", notFoundOr(err, "worker", id))
	}
	return c.JSON(utils.SuccessResponse(NewWorkerResponse(worker)))
}

// GetCalendar lists the caller's meetings and tasks for a day (the default),
// a month or an inclusive range of days.
func (wc *WorkerController) GetCalendar(c *fiber.Ctx) error {
	start, end, err := wc.period(c, periodDay)
	if err != nil {
		return respondError(c, wc.Logger, "read calendar", err)
	}

	calendar, err := services.CalendarEvents(c.UserContext(), wc.DB, currentWorker(c), start, end, wc.Location)
	if err != nil {
		return respondError(c, wc.Logger, "read calendar", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"start":    start,
		"end":      end,
		"meetings": newMeetingResponses(calendar.Meetings),
		"tasks":    newTaskResponses(calendar.Tasks),
		"table":    calendar.Table,
	}))
}

// GetEvaluationAverage averages the scores the caller received, by default
// over the current month.
func (wc *WorkerController) GetEvaluationAverage(c *fiber.Ctx) error {
	start, end, err := wc.period(c, periodMonth)
	if err != nil {
		return respondError(c, wc.Logger, "average evaluations", err)
	}

	avg, err := services.EvaluationAverage(c.UserContext(), wc.DB, currentWorker(c), start, end)
	if err != nil {
		return respondError(c, wc.Logger, "average evaluations", err)
	}
	return c.JSON(utils.SuccessResponse(avg))
}

type periodKind int

const (
	periodDay periodKind = iota
	periodMonth
)

// period reads exactly one of date, month or start+end from the query.
func (wc *WorkerController) period(c *fiber.Ctx, fallback periodKind) (time.Time, time.Time, error) {
	date, month := c.Query("date"), c.Query("month")
	from, to := c.Query("start"), c.Query("end")

	given := 0
	for _, v := range []bool{date != "", month != "", from != "" || to != ""} {
		if v {
			given++
		}
	}
	if given > 1 {
		return time.Time{}, time.Time{}, &services.ValidationError{Field: "period", Message: "use only one of date, month or start/end"}
	}

	switch {
	case date != "":
		day, err := time.ParseInLocation(utils.DateLayout, date, wc.Location)
		if err != nil {
			return time.Time{}, time.Time{}, &services.ValidationError{Field: "date", Message: "expected YYYY-MM-DD"}
		}
		start, end := services.DayBounds(day, wc.Location)
		return start, end, nil

	case month != "":
		first, err := time.ParseInLocation(utils.MonthLayout, month, wc.Location)
		if err != nil {
			return time.Time{}, time.Time{}, &services.ValidationError{Field: "month", Message: "expected YYYY-MM"}
		}
		start, end := services.MonthBounds(first, wc.Location)
		return start, end, nil

	case from != "" || to != "":
		if from == "" || to == "" {
			return time.Time{}, time.Time{}, &services.ValidationError{Field: "period", Message: "start and end go together"}
		}
		first, err := time.ParseInLocation(utils.DateLayout, from, wc.Location)
		if err != nil {
			return time.Time{}, time.Time{}, &services.ValidationError{Field: "start", Message: "expected YYYY-MM-DD"}
		}
		last, err := time.ParseInLocation(utils.DateLayout, to, wc.Location)
		if err != nil {
			return time.Time{}, time.Time{}, &services.ValidationError{Field: "end", Message: "expected YYYY-MM-DD"}
		}
		return services.RangeBounds(first, last, wc.Location)
	}

	now := wc.now()
	if fallback == periodMonth {
		start, end := services.MonthBounds(now, wc.Location)
		return start, end, nil
	}
	start, end := services.DayBounds(now, wc.Location)
	return start, end, nil
}

func (wc *WorkerController) now() time.Time {
	if wc.Now == nil {
		return time.Now()
	}
	return wc.Now()
}
