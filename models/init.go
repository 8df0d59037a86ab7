package models

import "gorm.io/gorm"

// All lists every persisted model in dependency order for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Team{},
		&Worker{},
		&Task{},
		&Evaluation{},
		&Comment{},
		&Meeting{},
	}
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return err
	}

	// teams.creator_id and workers.team_id point at each other, so the creator
	// key can only be added once both tables exist.
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if m := db.Migrator(); !m.HasConstraint(&Team{}, "Creator") {
		return m.CreateConstraint(&Team{}, "Creator")
	}
	return nil
}
