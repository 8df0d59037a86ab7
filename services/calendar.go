package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gorm.io/gorm"

	"worksync/models"
)

const calendarTimeLayout = "02.01.2006 15:04"

// Calendar is a worker's agenda for a period.
type Calendar struct {
	Meetings []models.Meeting `json:"meetings"`
	Tasks    []models.Task    `json:"tasks"`
	// Table is the rendered grid, one line per element.
	Table []string `json:"table"`
}

// CalendarEvents collects the meetings the worker attends and the tasks the
// worker executes that fall within [start, end].
func CalendarEvents(ctx context.Context, db *gorm.DB, worker models.Worker, start, end time.Time, loc *time.Location) (*Calendar, error) {
	db = db.WithContext(ctx)
	from, to := start.UTC(), end.UTC()

	var meetings []models.Meeting
	err := db.Joins("JOIN meeting_workers ON meeting_workers.meeting_id = meetings.id").
		Where("meeting_workers.worker_id = ?", worker.ID).
		Where("meetings.datetime BETWEEN ? AND ?", from, to).
		Preload("Workers", func(db *gorm.DB) *gorm.DB { return db.Order("workers.id") }).
		Preload("Workers.User").
		Order("meetings.datetime, meetings.id").
		Find(&meetings).Error
	if err != nil {
		return nil, fmt.Errorf("load calendar meetings: %w", err)
	}

	var tasks []models.Task
	err = db.Where("executor_id = ?", worker.ID).
		Where("deadline BETWEEN ? AND ?", from, to).
		Preload("Executor.User").
		Order("deadline, id").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("load calendar tasks: %w", err)
	}

	return &Calendar{
		Meetings: meetings,
		Tasks:    tasks,
		Table:    strings.Split(FormatCalendarTable(meetings, tasks, loc), "\n"),
	}, nil
}

// FormatCalendarTable renders meetings and tasks as a bordered text grid.
func FormatCalendarTable(meetings []models.Meeting, tasks []models.Task, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	rows := make([][]string, 0, len(meetings)+len(tasks))
	for _, m := range meetings {
		emails := make([]string, 0, len(m.Workers))
		for _, w := range m.Workers {
			emails = append(emails, w.Email())
		}
		rows = append(rows, []string{
			"Meeting",
			m.Datetime.In(loc).Format(calendarTimeLayout),
			m.Description,
			strings.Join(emails, ", "),
		})
	}
	for _, t := range tasks {
		executor := ""
		if t.Executor != nil {
			executor = t.Executor.Email()
		}
		rows = append(rows, []string{
			"Task",
			t.Deadline.In(loc).Format(calendarTimeLayout),
			t.Title,
			executor,
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(true).
		Headers("Type", "Date and time", "Description", "Participants").
		Rows(rows...).
		String()
}
