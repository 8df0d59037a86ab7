package models

import (
	"time"
)

// Base replaces gorm.Model for domain records. Rows are hard-deleted so that
// unique indexes (one evaluation per task) and member release on team
// deletion behave on the live data only.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents a login account. Every user owns exactly one Worker.
type User struct {
	Base

	// Authentication fields
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	TokenVersion int    `gorm:"not null;default:0" json:"-"`
	IsActive     bool   `gorm:"not null;default:true" json:"is_active"`

	// Profile information
	FirstName string `gorm:"size:150" json:"first_name"`
	LastName  string `gorm:"size:150" json:"last_name"`

	// Relations
	Worker *Worker `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"worker,omitempty"`
}

// FullName joins first and last name, skipping empty parts.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Role is the worker's position inside the company.
type Role string

const (
	RoleNormal    Role = "NORMAL"
	RoleManager   Role = "MANAGER"
	RoleAdminTeam Role = "ADMIN_TEAM"
)

func (r Role) Valid() bool {
	switch r {
	case RoleNormal, RoleManager, RoleAdminTeam:
		return true
	}
	return false
}

// Worker is the employee record every domain operation acts through.
// TeamID is the only place team membership is stored.
type Worker struct {
	Base
	UserID uint  `gorm:"uniqueIndex;not null" json:"user_id"`
	Role   Role  `gorm:"type:varchar(16);not null;default:'NORMAL'" json:"role"`
	TeamID *uint `gorm:"index" json:"team_id"`

	// Relations
	User User  `json:"-"`
	Team *Team `json:"team,omitempty"`
}

// Email returns the e-mail of the owning user when it has been loaded.
func (w Worker) Email() string {
	return w.User.Email
}

// HasTeam reports whether the worker currently belongs to any team.
func (w Worker) HasTeam() bool {
	return w.TeamID != nil
}
