package models

import "time"

// TaskStatus tracks the progress of a task.
type TaskStatus string

const (
	TaskOpen   TaskStatus = "OPEN"
	TaskAtWork TaskStatus = "AT_WORK"
	TaskDone   TaskStatus = "DONE"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskOpen, TaskAtWork, TaskDone:
		return true
	}
	return false
}

// Task is a unit of work. Locked is set in the same transaction that stores
// the task's evaluation and freezes ExecutorID and Status.
type Task struct {
	Base
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Deadline    time.Time  `gorm:"not null;index" json:"deadline"`
	Status      TaskStatus `gorm:"type:varchar(16);not null;default:'OPEN'" json:"status"`
	ExecutorID  *uint      `gorm:"index" json:"executor_id"`
	CreatorID   uint       `gorm:"not null;index" json:"creator_id"`
	Locked      bool       `gorm:"not null;default:false" json:"locked"`

	// Relations
	Executor   *Worker     `gorm:"foreignKey:ExecutorID;constraint:OnDelete:SET NULL" json:"-"`
	Creator    Worker      `gorm:"foreignKey:CreatorID;constraint:OnDelete:RESTRICT" json:"-"`
	Evaluation *Evaluation `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	Comments   []Comment   `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}

// Evaluation scores the executor of a completed task. At most one per task.
type Evaluation struct {
	Base
	TaskID       uint  `gorm:"uniqueIndex;not null" json:"task"`
	Score        int   `gorm:"not null" json:"score"`
	ToWorkerID   *uint `gorm:"index" json:"to_worker"`
	FromWorkerID *uint `gorm:"index" json:"from_worker"`

	// Relations
	ToWorker   *Worker `gorm:"foreignKey:ToWorkerID;constraint:OnDelete:SET NULL" json:"-"`
	FromWorker *Worker `gorm:"foreignKey:FromWorkerID;constraint:OnDelete:SET NULL" json:"-"`
}

// Comment is a note left on a task.
type Comment struct {
	Base
	TaskID    uint   `gorm:"not null;index" json:"task"`
	Text      string `gorm:"type:text;not null" json:"text"`
	CreatorID uint   `gorm:"not null;index" json:"creator"`

	// Relations
	Creator Worker `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE" json:"-"`
}
