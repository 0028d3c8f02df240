// Package catalog keeps a SQLite record of conversion runs and the buildings each run
// produced.
package catalog

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Run is one invocation of the converter.
type Run struct {
	ID            string `gorm:"primaryKey;size:36"`
	StartedAt     time.Time
	FinishedAt    time.Time
	FootprintPath string
	MeshDir       string
	Document      string
	EPSG          int
	Buffer        float64
	Height        float64
	Footprints    int
	Rejected      int
	Merged        int
	NoMatch       int
	Failed        int
	CityObjects   int
	Status        string `gorm:"size:16"`
}

// BuildingRecord is the outcome for one footprint within a run.
type BuildingRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	RunID      string `gorm:"index;size:36"`
	BuildingID string `gorm:"index"`
	Status     string `gorm:"size:16"`
	Faces      int
	Vertices   int
	MergedFile string
	SharedWith string
	Message    string
	DurationMS float64
}

func (BuildingRecord) TableName() string { return "building_records" }

// Catalog is an open run catalog database.
type Catalog struct {
	db *gorm.DB
}

// Open opens (creating if needed) the catalog at path and migrates its tables.
func Open(path string) (*Catalog, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Run{}, &BuildingRecord{}); err != nil {
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

// RecordRun stores a run and its building records in one transaction. Records get
// their RunID set from run.
func (c *Catalog) RecordRun(run *Run, records []BuildingRecord) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		for i := range records {
			records[i].RunID = run.ID
		}
		if err := tx.CreateInBatches(records, 500).Error; err != nil {
			return fmt.Errorf("insert building records: %w", err)
		}
		return nil
	})
}

// Runs lists runs, newest first.
func (c *Catalog) Runs() ([]Run, error) {
	var runs []Run
	err := c.db.Order("started_at desc").Find(&runs).Error
	return runs, err
}

// Buildings returns the records of one run in insertion order.
func (c *Catalog) Buildings(runID string) ([]BuildingRecord, error) {
	var recs []BuildingRecord
	err := c.db.Where("run_id = ?", runID).Order("id").Find(&recs).Error
	return recs, err
}

func (c *Catalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
