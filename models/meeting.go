package models

import "time"

// Meeting is scheduled at an exact moment. Workers always contains the creator.
type Meeting struct {
	Base
	Datetime    time.Time `gorm:"not null;index" json:"datetime"`
	Description string    `gorm:"type:text" json:"description"`
	CreatorID   uint      `gorm:"not null;index" json:"creator"`

	// Relations
	Creator Worker   `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE" json:"-"`
	Workers []Worker `gorm:"many2many:meeting_workers;constraint:OnDelete:CASCADE" json:"-"`
}

// WorkerIDs lists participant ids in stored order.
func (m Meeting) WorkerIDs() []uint {
	ids := make([]uint, 0, len(m.Workers))
	for _, w := range m.Workers {
		ids = append(ids, w.ID)
	}
	return ids
}
