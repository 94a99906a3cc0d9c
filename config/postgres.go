package config

import (
	"errors"
	"time"

	"github.com/yoockh/speechrelay/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var PostgresDB *gorm.DB

func InitPostgres(s PostgresSettings) error {
	if s.URI == "" {
		return errors.New("postgres uri is not set")
	}
	// TranslateError maps unique violations to gorm.ErrDuplicatedKey.
	db, err := gorm.Open(postgres.Open(s.URI), &gorm.Config{TranslateError: true})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	// Connection Pooling settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if s.AutoMigrate {
		if err := db.AutoMigrate(&models.User{}, &models.Room{}, &models.RoomToken{}); err != nil {
			return err
		}
	}

	PostgresDB = db
	return nil
}
