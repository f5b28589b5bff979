package db

import (
	"github.com/upwatch-dev/upwatch/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDatabase(dsn string) error {
	return Connect(postgres.Open(dsn))
}

// Connect opens the store with an explicit dialector. Tests use this to run
// against an in-memory sqlite database.
func Connect(dialector gorm.Dialector) error {
	var err error

	DB, err = gorm.Open(dialector, &gorm.Config{})

	if err != nil {
		return err
	}

	return nil
}

func MigrateDatabase() error {
	tables := []interface{}{
		&models.Monitor{},
		&models.MonitorStatus{},
		&models.CheckEvent{},
		&models.Incident{},
		&models.NotificationChannel{},
		&models.AlertRule{},
		&models.AlertHistory{},
	}

	migrator := DB.Migrator()

	for _, table := range tables {
		if !migrator.HasTable(table) {
			if err := DB.AutoMigrate(table); err != nil {
				return err
			}
		}
	}

	return nil
}
