package controller

import (
	"time"

	"worksync/models"
)

type TeamRef struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

type WorkerResponse struct {
	ID        uint        `json:"id"`
	UserID    uint        `json:"user_id"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      models.Role `json:"role"`
	TeamID    *uint       `json:"team_id"`
	Team      *TeamRef    `json:"team"`
}

func NewWorkerResponse(w models.Worker) WorkerResponse {
	resp := WorkerResponse{
		ID:        w.ID,
		UserID:    w.UserID,
		Email:     w.User.Email,
		FirstName: w.User.FirstName,
		LastName:  w.User.LastName,
		Role:      w.Role,
		TeamID:    w.TeamID,
	}
	if w.Team != nil {
		resp.Team = &TeamRef{ID: w.Team.ID, Title: w.Team.Title}
	}
	return resp
}

func newWorkerResponses(workers []models.Worker) []WorkerResponse {
	out := make([]WorkerResponse, 0, len(workers))
	for _, w := range workers {
		out = append(out, NewWorkerResponse(w))
	}
	return out
}

type TeamResponse struct {
	ID          uint             `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	CreatorID   uint             `json:"creator"`
	Workers     []WorkerResponse `json:"workers"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func NewTeamResponse(t models.Team) TeamResponse {
	return TeamResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		CreatorID:   t.CreatorID,
		Workers:     newWorkerResponses(t.Workers),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type TaskResponse struct {
	ID          uint               `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Deadline    time.Time          `json:"deadline"`
	Status      models.TaskStatus  `json:"status"`
	ExecutorID  *uint              `json:"executor"`
	CreatorID   uint               `json:"creator"`
	Locked      bool               `json:"locked"`
	Evaluation  *models.Evaluation `json:"evaluation,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func NewTaskResponse(t models.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Deadline:    t.Deadline,
		Status:      t.Status,
		ExecutorID:  t.ExecutorID,
		CreatorID:   t.CreatorID,
		Locked:      t.Locked,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type MeetingResponse struct {
	ID          uint      `json:"id"`
	Datetime    time.Time `json:"datetime"`
	Description string    `json:"description"`
	CreatorID   uint      `json:"creator"`
	Workers     []uint    `json:"workers"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewMeetingResponse(m models.Meeting) MeetingResponse {
	return MeetingResponse{
		ID:          m.ID,
		Datetime:    m.Datetime,
		Description: m.Description,
		CreatorID:   m.CreatorID,
		Workers:     m.WorkerIDs(),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func newMeetingResponses(meetings []models.Meeting) []MeetingResponse {
	out := make([]MeetingResponse, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, NewMeetingResponse(m))
	}
	return out
}

func newTaskResponses(tasks []models.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, NewTaskResponse(t))
	}
	return out
}
