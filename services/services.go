// Package services holds the rules that guard mutations spanning several
// entities: team membership, meeting availability, the task lifecycle and
// evaluation creation. Each guarded mutation reads, decides and writes inside
// a single transaction.
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"worksync/models"
)

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// forUpdate adds a row lock on dialects that support one. SQLite serialises
// writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// loadWorkers fetches and locks the given workers with their users, keeping
// the order of ids. Unknown ids are a validation error on field.
func loadWorkers(tx *gorm.DB, field string, ids []uint) ([]models.Worker, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	var found []models.Worker
	if err := forUpdate(tx).Preload("User").Where("id IN ?", ids).Order("id").Find(&found).Error; err != nil {
		return nil, fmt.Errorf("load workers: %w", err)
	}

	byID := make(map[uint]models.Worker, len(found))
	for _, w := range found {
		byID[w.ID] = w
	}

	workers := make([]models.Worker, 0, len(ids))
	var missing []string
	for _, id := range ids {
		w, ok := byID[id]
		if !ok {
			missing = append(missing, fmt.Sprint(id))
			continue
		}
		workers = append(workers, w)
	}
	if len(missing) > 0 {
		return nil, validationErr(field, "unknown worker id "+strings.Join(missing, ", "))
	}
	return workers, nil
}

// isUniqueViolation covers drivers with and without gorm error translation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func notFoundOr(err error, entity string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return err
}
