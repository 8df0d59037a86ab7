// Package permissions expresses who may change what as small predicates over
// the acting worker and the owner of the resource.
package permissions

import (
	"worksync/models"
	"worksync/services"
)

// Capability is something a role allows.
type Capability string

const (
	ManageTeams       Capability = "teams:manage"
	ManageTasks       Capability = "tasks:manage"
	ManageEvaluations Capability = "evaluations:manage"
)

var roleCapabilities = map[models.Role][]Capability{
	models.RoleAdminTeam: {ManageTeams, ManageTasks, ManageEvaluations},
	models.RoleManager:   {ManageTasks, ManageEvaluations},
	models.RoleNormal:    nil,
}

// Has reports whether role grants capability.
func Has(role models.Role, capability Capability) bool {
	for _, c := range roleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// Rule decides whether actor may act on a resource owned by ownerID. It
// returns an empty string when allowed and the reason otherwise.
type Rule func(actor models.Worker, ownerID uint) string

// Check returns a ForbiddenError when the rule does not allow actor.
func (r Rule) Check(actor models.Worker, ownerID uint) error {
	if reason := r(actor, ownerID); reason != "" {
		return &services.ForbiddenError{Message: reason}
	}
	return nil
}

func (r Rule) Allows(actor models.Worker, ownerID uint) bool {
	return r(actor, ownerID) == ""
}

// Because replaces the reason given when r denies.
func (r Rule) Because(reason string) Rule {
	return func(actor models.Worker, ownerID uint) string {
		if r(actor, ownerID) != "" {
			return reason
		}
		return ""
	}
}

func Can(capability Capability) Rule {
	return func(actor models.Worker, _ uint) string {
		if Has(actor.Role, capability) {
			return ""
		}
		return "your role does not allow this action"
	}
}

func IsOwner() Rule {
	return func(actor models.Worker, ownerID uint) string {
		if actor.ID == ownerID {
			return ""
		}
		return "only the creator can do this"
	}
}

// All denies with the reason of the first rule that fails.
func All(rules ...Rule) Rule {
	return func(actor models.Worker, ownerID uint) string {
		for _, r := range rules {
			if reason := r(actor, ownerID); reason != "" {
				return reason
			}
		}
		return ""
	}
}

// Any denies with the reason of the last rule when none passes.
func Any(rules ...Rule) Rule {
	return func(actor models.Worker, ownerID uint) string {
		reason := "forbidden"
		for _, r := range rules {
			if reason = r(actor, ownerID); reason == "" {
				return ""
			}
		}
		return reason
	}
}

var (
	CreateTeam = Can(ManageTeams).Because("only ADMIN_TEAM workers can create teams")
	ChangeTeam = All(
		Can(ManageTeams).Because("only ADMIN_TEAM workers can change teams"),
		IsOwner().Because("only the team creator can change it"),
	)
	DeleteTeam = IsOwner().Because("only the team creator can delete it")

	CreateTask = Can(ManageTasks).Because("only ADMIN_TEAM or MANAGER workers can create tasks")
	ChangeTask = All(
		Can(ManageTasks).Because("only ADMIN_TEAM or MANAGER workers can change tasks"),
		IsOwner().Because("only the task creator can change it"),
	)

	ChangeComment = IsOwner().Because("only the comment author can change it")

	CreateEvaluation = Can(ManageEvaluations).Because("only ADMIN_TEAM or MANAGER workers can evaluate tasks")
	ChangeEvaluation = All(
		Can(ManageEvaluations).Because("only ADMIN_TEAM or MANAGER workers can change evaluations"),
		IsOwner().Because("only the evaluation author can change it"),
	)

	ChangeMeeting = IsOwner().Because("only the meeting creator can change it")

	// SeeEvaluation lets the executor and the creator of a task read its score.
	SeeEvaluation = func(executorID *uint) Rule {
		return Any(IsOwner(), func(actor models.Worker, _ uint) string {
			if executorID != nil && *executorID == actor.ID {
				return ""
			}
			return "only the task executor or creator can see its evaluation"
		})
	}
)
