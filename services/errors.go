package services

import (
	"errors"
	"fmt"
	"strings"
)

// Conflict codes identify which rule rejected a mutation.
const (
	CodeTeamConflict       = "team_conflict"
	CodeMeetingConflict    = "meeting_conflict"
	CodeTaskUpdateConflict = "task_update_conflict"
	CodeEvaluationConflict = "evaluation_create_conflict"
)

// Conflict reasons carried next to the code.
const (
	ReasonWorkersInOtherTeam  = "workers already belong to another team"
	ReasonWorkerBusy          = "worker already has a meeting at this time"
	ReasonExecutorFrozen      = "executor cannot be changed for an evaluated task"
	ReasonStatusFrozen        = "status cannot be changed for an evaluated task"
	ReasonTaskAlreadyScored   = "task already has an evaluation"
	ReasonTaskWithoutExecutor = "task has no executor to evaluate"
	ReasonTaskNotDone         = "task must be done before it is evaluated"
)

// ValidationError reports input that is invalid regardless of stored state.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ConflictError reports a rule violated by the current persisted state.
type ConflictError struct {
	Code   string
	Reason string
	// Workers holds the e-mails of the workers involved, when any.
	Workers []string
}

func (e *ConflictError) Error() string {
	if len(e.Workers) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Reason, strings.Join(e.Workers, ", "))
}

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// ForbiddenError reports an actor lacking the role or ownership required.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

func validationErr(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func conflictErr(code, reason string, workers ...string) error {
	return &ConflictError{Code: code, Reason: reason, Workers: workers}
}

// IsConflict reports whether err is a ConflictError with the given code.
func IsConflict(err error, code string) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Code == code
}
