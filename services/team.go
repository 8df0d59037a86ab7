package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"worksync/models"
)

// CheckTeamConflict rejects candidates that already belong to a team other
// than currentTeamID. Workers without a team, or already on the team being
// updated, pass.
func CheckTeamConflict(candidates []models.Worker, currentTeamID *uint) error {
	if len(candidates) == 0 {
		return nil
	}

	var conflicting []string
	for _, w := range candidates {
		if !w.HasTeam() {
			continue
		}
		if currentTeamID != nil && *w.TeamID == *currentTeamID {
			continue
		}
		conflicting = append(conflicting, w.Email())
	}

	if len(conflicting) > 0 {
		return conflictErr(CodeTeamConflict, ReasonWorkersInOtherTeam, conflicting...)
	}
	return nil
}

// TeamInput is the full desired state of a team.
type TeamInput struct {
	Title       string
	Description string
	WorkerIDs   []uint
}

// TeamService creates, updates and removes teams together with the member
// assignments they imply.
type TeamService struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewTeamService(db *gorm.DB, logger *logrus.Entry) *TeamService {
	return &TeamService{DB: db, Logger: logger}
}

// Create stores a team owned by creator and assigns the given workers to it.
func (s *TeamService) Create(ctx context.Context, creator models.Worker, in TeamInput) (*models.Team, error) {
	var team models.Team
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		workers, err := loadWorkers(tx, "workers", in.WorkerIDs)
		if err != nil {
			return err
		}
		if err := CheckTeamConflict(workers, nil); err != nil {
			return err
		}

		team = models.Team{
			Title:       in.Title,
			Description: in.Description,
			CreatorID:   creator.ID,
		}
		if err := tx.Omit("Creator", "Workers").Create(&team).Error; err != nil {
			return fmt.Errorf("create team: %w", err)
		}

		if err := assignMembers(tx, team.ID, workers); err != nil {
			return err
		}
		return loadTeam(tx, &team, team.ID)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithFields(logrus.Fields{
		"team_id":    team.ID,
		"creator_id": creator.ID,
		"members":    len(team.Workers),
	}).Info("team created")
	return &team, nil
}

// Update replaces the team's title, description and member set. Workers that
// are no longer listed leave the team.
func (s *TeamService) Update(ctx context.Context, teamID uint, in TeamInput) (*models.Team, error) {
	var team models.Team
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&team, teamID).Error; err != nil {
			return notFoundOr(err, "team", teamID)
		}

		workers, err := loadWorkers(tx, "workers", in.WorkerIDs)
		if err != nil {
			return err
		}
		if err := CheckTeamConflict(workers, &team.ID); err != nil {
			return err
		}

		if err := tx.Model(&models.Team{}).Where("id = ?", team.ID).Updates(map[string]interface{}{
			"title":       in.Title,
			"description": in.Description,
		}).Error; err != nil {
			return fmt.Errorf("update team: %w", err)
		}

		if err := releaseMembers(tx, team.ID, workers); err != nil {
			return err
		}
		if err := assignMembers(tx, team.ID, workers); err != nil {
			return err
		}
		return loadTeam(tx, &team, team.ID)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithFields(logrus.Fields{"team_id": team.ID, "members": len(team.Workers)}).Info("team updated")
	return &team, nil
}

// Delete removes the team; its members end up without a team.
func (s *TeamService) Delete(ctx context.Context, teamID uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var team models.Team
		if err := forUpdate(tx).First(&team, teamID).Error; err != nil {
			return notFoundOr(err, "team", teamID)
		}
		if err := releaseMembers(tx, team.ID, nil); err != nil {
			return err
		}
		if err := tx.Delete(&models.Team{}, team.ID).Error; err != nil {
			return fmt.Errorf("delete team: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.WithField("team_id", teamID).Info("team deleted")
	return nil
}

func assignMembers(tx *gorm.DB, teamID uint, workers []models.Worker) error {
	if len(workers) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(workers))
	for _, w := range workers {
		ids = append(ids, w.ID)
	}
	if err := tx.Model(&models.Worker{}).Where("id IN ?", ids).Update("team_id", teamID).Error; err != nil {
		return fmt.Errorf("assign team members: %w", err)
	}
	return nil
}

// releaseMembers clears the team of every member not in keep.
func releaseMembers(tx *gorm.DB, teamID uint, keep []models.Worker) error {
	q := tx.Model(&models.Worker{}).Where("team_id = ?", teamID)
	if len(keep) > 0 {
		ids := make([]uint, 0, len(keep))
		for _, w := range keep {
			ids = append(ids, w.ID)
		}
		q = q.Where("id NOT IN ?", ids)
	}
	if err := q.Update("team_id", nil).Error; err != nil {
		return fmt.Errorf("release team members: %w", err)
	}
	return nil
}

func loadTeam(tx *gorm.DB, team *models.Team, id uint) error {
	return tx.Preload("Workers", func(db *gorm.DB) *gorm.DB {
		return db.Order("workers.id")
	}).Preload("Workers.User").First(team, id).Error
}
