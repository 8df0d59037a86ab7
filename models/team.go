package models

// Team represents a group of workers with a single owner.
type Team struct {
	Base
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	CreatorID   uint   `gorm:"not null;index" json:"creator_id"`

	// Relations
	Creator Worker   `gorm:"foreignKey:CreatorID;constraint:OnDelete:RESTRICT;-:migration" json:"-"`
	Workers []Worker `gorm:"foreignKey:TeamID;constraint:OnDelete:SET NULL" json:"workers,omitempty"`
}
