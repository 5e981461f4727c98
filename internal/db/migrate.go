package db

import (
	"gorm.io/gorm"

	"leaguetrades/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}
	return MigrateGorm(db.Gorm)
}

// MigrateGorm creates the trade ledger tables. Season, team, player and pick
// tables belong to the league service; they are migrated here so a fresh
// database (dev, tests) has the ownership columns the engine writes to.
func MigrateGorm(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.Season{},
		&models.Team{},
		&models.Player{},
		&models.Pick{},
		&models.Trade{},
		&models.TradeParticipant{},
		&models.TradeAsset{},
		&models.TradeMovement{},
		&models.TradeEvent{},
	)
}
