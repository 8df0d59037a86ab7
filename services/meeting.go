package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"worksync/models"
)

// ValidateWorkersAndIncludeCreator finalises a meeting's participants: the
// invited list must not be empty, the creator is added when missing, and at
// least two distinct workers must remain.
func ValidateWorkersAndIncludeCreator(creator models.Worker, invited []models.Worker) ([]models.Worker, error) {
	if len(invited) == 0 {
		return nil, validationErr("workers", "invite at least one worker to the meeting")
	}

	seen := make(map[uint]struct{}, len(invited)+1)
	participants := make([]models.Worker, 0, len(invited)+1)
	for _, w := range invited {
		if _, ok := seen[w.ID]; ok {
			continue
		}
		seen[w.ID] = struct{}{}
		participants = append(participants, w)
	}
	if _, ok := seen[creator.ID]; !ok {
		participants = append(participants, creator)
	}

	if len(participants) < 2 {
		return nil, validationErr("workers", "a meeting needs at least two distinct participants")
	}
	return participants, nil
}

// IsDatetimeAvailable reports whether the worker has no meeting at exactly at.
// excludingMeetingID, when set, is ignored so a meeting can be saved in place.
func IsDatetimeAvailable(db *gorm.DB, workerID uint, at time.Time, excludingMeetingID *uint) (bool, error) {
	q := db.Model(&models.Meeting{}).
		Joins("JOIN meeting_workers ON meeting_workers.meeting_id = meetings.id").
		Where("meeting_workers.worker_id = ? AND meetings.datetime = ?", workerID, at.UTC())
	if excludingMeetingID != nil {
		q = q.Where("meetings.id <> ?", *excludingMeetingID)
	}

	var busy int64
	if err := q.Count(&busy).Error; err != nil {
		return false, fmt.Errorf("check availability: %w", err)
	}
	return busy == 0, nil
}

// MeetingInput is the full desired state of a meeting.
type MeetingInput struct {
	Description string
	Datetime    time.Time
	WorkerIDs   []uint
}

// MeetingService schedules meetings without double-booking any participant.
type MeetingService struct {
	DB     *gorm.DB
	Logger *logrus.Entry
	Now    Clock
}

func NewMeetingService(db *gorm.DB, logger *logrus.Entry, now Clock) *MeetingService {
	return &MeetingService{DB: db, Logger: logger, Now: now}
}

// ValidateDatetime rejects meeting times that are not strictly in the future.
func (s *MeetingService) ValidateDatetime(at time.Time) error {
	if !at.After(s.Now.now()) {
		return validationErr("datetime", "meeting time must be in the future")
	}
	return nil
}

// Create schedules a meeting for creator and the invited workers.
func (s *MeetingService) Create(ctx context.Context, creator models.Worker, in MeetingInput) (*models.Meeting, error) {
	if err := s.ValidateDatetime(in.Datetime); err != nil {
		return nil, err
	}

	var meeting models.Meeting
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		participants, err := s.participants(tx, creator.ID, in.WorkerIDs, nil, in.Datetime)
		if err != nil {
			return err
		}

		meeting = models.Meeting{
			Datetime:    in.Datetime.UTC(),
			Description: in.Description,
			CreatorID:   creator.ID,
		}
		if err := tx.Omit("Creator", "Workers").Create(&meeting).Error; err != nil {
			return fmt.Errorf("create meeting: %w", err)
		}
		if err := setParticipants(tx, meeting.ID, participants); err != nil {
			return err
		}
		return loadMeeting(tx, &meeting, meeting.ID)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithFields(logrus.Fields{
		"meeting_id":   meeting.ID,
		"creator_id":   creator.ID,
		"participants": len(meeting.Workers),
	}).Info("meeting scheduled")
	return &meeting, nil
}

// Update reschedules a meeting. The meeting itself is not counted as a
// conflict for its own participants.
func (s *MeetingService) Update(ctx context.Context, meetingID uint, in MeetingInput) (*models.Meeting, error) {
	if err := s.ValidateDatetime(in.Datetime); err != nil {
		return nil, err
	}

	var meeting models.Meeting
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&meeting, meetingID).Error; err != nil {
			return notFoundOr(err, "meeting", meetingID)
		}

		participants, err := s.participants(tx, meeting.CreatorID, in.WorkerIDs, &meeting.ID, in.Datetime)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Meeting{}).Where("id = ?", meeting.ID).Updates(map[string]interface{}{
			"datetime":    in.Datetime.UTC(),
			"description": in.Description,
		}).Error; err != nil {
			return fmt.Errorf("update meeting: %w", err)
		}
		if err := setParticipants(tx, meeting.ID, participants); err != nil {
			return err
		}
		return loadMeeting(tx, &meeting, meeting.ID)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithField("meeting_id", meeting.ID).Info("meeting rescheduled")
	return &meeting, nil
}

// Delete cancels a meeting.
func (s *MeetingService) Delete(ctx context.Context, meetingID uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM meeting_workers WHERE meeting_id = ?", meetingID).Error; err != nil {
			return fmt.Errorf("clear participants: %w", err)
		}
		res := tx.Delete(&models.Meeting{}, meetingID)
		if res.Error != nil {
			return fmt.Errorf("delete meeting: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Entity: "meeting", ID: meetingID}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.WithField("meeting_id", meetingID).Info("meeting cancelled")
	return nil
}

// participants locks creator and invited workers, finalises the set and checks
// each of them, in order, for a meeting at the same moment.
func (s *MeetingService) participants(tx *gorm.DB, creatorID uint, invitedIDs []uint, excluding *uint, at time.Time) ([]models.Worker, error) {
	locked, err := loadWorkers(tx, "workers", append(append([]uint{}, invitedIDs...), creatorID))
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Worker, len(locked))
	for _, w := range locked {
		byID[w.ID] = w
	}
	invited := make([]models.Worker, 0, len(invitedIDs))
	for _, id := range invitedIDs {
		invited = append(invited, byID[id])
	}

	participants, err := ValidateWorkersAndIncludeCreator(byID[creatorID], invited)
	if err != nil {
		return nil, err
	}

	for _, w := range participants {
		free, err := IsDatetimeAvailable(tx, w.ID, at, excluding)
		if err != nil {
			return nil, err
		}
		if !free {
			return nil, conflictErr(CodeMeetingConflict, ReasonWorkerBusy, w.Email())
		}
	}
	return participants, nil
}

func setParticipants(tx *gorm.DB, meetingID uint, workers []models.Worker) error {
	if err := tx.Exec("DELETE FROM meeting_workers WHERE meeting_id = ?", meetingID).Error; err != nil {
		return fmt.Errorf("clear participants: %w", err)
	}
	rows := make([]map[string]interface{}, 0, len(workers))
	for _, w := range workers {
		rows = append(rows, map[string]interface{}{"meeting_id": meetingID, "worker_id": w.ID})
	}
	if err := tx.Table("meeting_workers").Create(rows).Error; err != nil {
		return fmt.Errorf("store participants: %w", err)
	}
	return nil
}

func loadMeeting(tx *gorm.DB, meeting *models.Meeting, id uint) error {
	return tx.Preload("Workers", func(db *gorm.DB) *gorm.DB {
		return db.Order("workers.id")
	}).Preload("Workers.User").First(meeting, id).Error
}
