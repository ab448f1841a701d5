package dbhelper

import (
	"fmt"

	"stylemateapi/config"
	"stylemateapi/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var allModels = []interface{}{
	&models.UserAccount{},
	&models.Category{},
	&models.WardrobeItem{},
	&models.Outfit{},
	&models.OutfitItem{},
	&models.SavedOutfit{},
	&models.WeatherPreference{},
}

func SetupDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := MigrateAll(db); err != nil {
		return nil, err
	}
	return db, nil
}

// SetupTestDB opens a private in-memory sqlite database. A single
// connection keeps every statement on the same memory database, so code
// running inside a transaction must only use the transaction handle.
func SetupTestDB() *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := MigrateAll(db); err != nil {
		panic(err)
	}
	return db
}

func MigrateAll(db *gorm.DB) error {
	for _, model := range allModels {
		if err := Migrate(db, model); err != nil {
			return err
		}
	}
	return SeedCategories(db)
}

// SeedCategories inserts the default categories, leaving existing rows alone.
func SeedCategories(db *gorm.DB) error {
	categories := make([]models.Category, 0, len(models.DefaultCategories))
	for _, name := range models.DefaultCategories {
		categories = append(categories, models.Category{Name: name})
	}
	return db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&categories).Error
}
