package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"worksync/models"
	"worksync/permissions"
	"worksync/services"
	"worksync/utils"
)

type TeamRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Workers     []uint `json:"workers"`
}

func (r TeamRequest) input() services.TeamInput {
	return services.TeamInput{
		Title:       r.Title,
		Description: r.Description,
		WorkerIDs:   r.Workers,
	}
}

type TeamController struct {
	DB      *gorm.DB
	Logger  *logrus.Entry
	Service *services.TeamService
}

func NewTeamController(db *gorm.DB, logger *logrus.Entry) *TeamController {
	return &TeamController{
		DB:      db,
		Logger:  logger,
		Service: services.NewTeamService(db, logger),
	}
}

func (tc *TeamController) GetTeams(c *fiber.Ctx) error {
	var teams []models.Team
	if err := tc.withMembers(tc.DB).Order("id").Find(&teams).Error; err != nil {
		return respondError(c, tc.Logger, "fetch teams", err)
	}

	out := make([]TeamResponse, 0, len(teams))
	for _, t := range teams {
		out = append(out, NewTeamResponse(t))
	}
	return c.JSON(utils.SuccessResponse(out))
}

func (tc *TeamController) GetTeam(c *fiber.Ctx) error {
	team, err := tc.find(c)
	if err != nil {
		return respondError(c, tc.Logger, "fetch team", err)
	}
	return c.JSON(utils.SuccessResponse(NewTeamResponse(*team)))
}

// CreateTeam stores a team owned by the caller. Listed workers must not
// belong to another team.
func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	actor := currentWorker(c)
	if err := permissions.CreateTeam.Check(actor, 0); err != nil {
		return respondError(c, tc.Logger, "create team", err)
	}

	var req TeamRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return badRequest(c, "Validation failed", err)
	}

	team, err := tc.Service.Create(c.UserContext(), actor, req.input())
	if err != nil {
		return respondError(c, tc.Logger, "create team", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(NewTeamResponse(*team)))
}

// UpdateTeam replaces title, description and the member set.
func (tc *TeamController) UpdateTeam(c *fiber.Ctx) error {
	team, err := tc.find(c)
	if err != nil {
		return respondError(c, tc.Logger, "update team", err)
	}
	if err := permissions.ChangeTeam.Check(currentWorker(c), team.CreatorID); err != nil {
		return respondError(c, tc.Logger, "update team", err)
	}

	var req TeamRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return badRequest(c, "Validation failed", err)
	}

	updated, err := tc.Service.Update(c.UserContext(), team.ID, req.input())
	if err != nil {
		return respondError(c, tc.Logger, "update team", err)
	}
	return c.JSON(utils.SuccessResponse(NewTeamResponse(*updated)))
}

func (tc *TeamController) DeleteTeam(c *fiber.Ctx) error {
	team, err := tc.find(c)
	if err != nil {
		return respondError(c, tc.Logger, "delete team", err)
	}
	if err := permissions.DeleteTeam.Check(currentWorker(c), team.CreatorID); err != nil {
		return respondError(c, tc.Logger, "delete team", err)
	}

	if err := tc.Service.Delete(c.UserContext(), team.ID); err != nil {
		return respondError(c, tc.Logger, "delete team", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// find loads the team named by the :id parameter.
func (tc *TeamController) find(c *fiber.Ctx) (*models.Team, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}

	var team models.Team
	if err := tc.withMembers(tc.DB).First(&team, id).Error; err != nil {
		return nil, notFoundOr(err, "team", id)
	}
	return &team, nil
}

func (tc *TeamController) withMembers(db *gorm.DB) *gorm.DB {
	return db.Preload("Workers", func(db *gorm.DB) *gorm.DB {
		return db.Order("workers.id")
	}).Preload("Workers.User")
}
