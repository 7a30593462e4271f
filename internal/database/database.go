package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DistrictList is a cached copy of one city's static district file
type DistrictList struct {
	City      string    `gorm:"primaryKey"`
	Districts []string  `gorm:"serializer:json"`
	FetchedAt time.Time `gorm:"index"`
}

type Database struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDatabase(dbPath string) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{db: db, now: time.Now}, nil
}

// GetDistricts returns the cached list for city when it is younger than maxAge.
// A zero maxAge accepts any age.
func (d *Database) GetDistricts(city string, maxAge time.Duration) ([]string, bool, error) {
	var entry DistrictList
	err := d.db.Where("city = ?", city).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read districts of %s: %w", city, err)
	}

	if maxAge > 0 && d.now().Sub(entry.FetchedAt) > maxAge {
		return nil, false, nil
	}
	if entry.Districts == nil {
		entry.Districts = []string{}
	}
	return entry.Districts, true, nil
}

// PutDistricts stores or replaces the list for city
func (d *Database) PutDistricts(city string, districts []string) error {
	entry := DistrictList{
		City:      city,
		Districts: districts,
		FetchedAt: d.now(),
	}
	if err := d.db.Save(&entry).Error; err != nil {
		return fmt.Errorf("failed to store districts of %s: %w", city, err)
	}
	return nil
}

// PurgeDistricts removes entries older than maxAge and returns how many were removed
func (d *Database) PurgeDistricts(maxAge time.Duration) (int64, error) {
	res := d.db.Where("fetched_at < ?", d.now().Add(-maxAge)).Delete(&DistrictList{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge districts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
