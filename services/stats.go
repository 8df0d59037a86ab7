package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"worksync/models"
)

// ScoreAverage summarises the evaluations a worker received in a period.
// Average is nil when there are none.
type ScoreAverage struct {
	Average *float64  `json:"average"`
	Count   int64     `json:"count"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// EvaluationAverage averages the scores given to worker with created_at in
// [start, end].
func EvaluationAverage(ctx context.Context, db *gorm.DB, worker models.Worker, start, end time.Time) (*ScoreAverage, error) {
	var row struct {
		Average *float64
		Count   int64
	}
	err := db.WithContext(ctx).Model(&models.Evaluation{}).
		Select("AVG(CAST(score AS FLOAT)) AS average, COUNT(*) AS count").
		Where("to_worker_id = ?", worker.ID).
		Where("created_at BETWEEN ? AND ?", start.UTC(), end.UTC()).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("average evaluations: %w", err)
	}

	return &ScoreAverage{Average: row.Average, Count: row.Count, Start: start, End: end}, nil
}
