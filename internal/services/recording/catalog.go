package recording

import (
	"context"
	"time"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"
)

// CatalogEntry indexes a saved recording's metadata so a caller can
// list/search recordings without opening every .dmxr file on disk.
type CatalogEntry struct {
	ID                string    `gorm:"column:id;primaryKey"`
	Name              string    `gorm:"column:name;index"`
	Universe          int       `gorm:"column:universe"`
	DurationMs        int64     `gorm:"column:duration_ms"`
	TrimStartMs       int64     `gorm:"column:trim_start_ms"`
	TrimEndMs         int64     `gorm:"column:trim_end_ms"`
	RecordedAt        string    `gorm:"column:recorded_at"`
	FilePath          string    `gorm:"column:file_path;uniqueIndex"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CatalogEntry) TableName() string { return "dmx_recording_catalog" }

// AutoMigrate creates or updates the catalog table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&CatalogEntry{})
}

// Catalog indexes recordings backed by a GORM connection.
type Catalog struct {
	db *gorm.DB
}

// NewCatalog wraps db as a recording catalog.
func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// Upsert inserts or updates the catalog entry for a recording that has
// just been saved to filePath.
func (c *Catalog) Upsert(ctx context.Context, r *Recording, filePath string) (*CatalogEntry, error) {
	var existing CatalogEntry
	result := c.db.WithContext(ctx).Where("file_path = ?", filePath).First(&existing)

	entry := CatalogEntry{
		Name:        r.Name,
		Universe:    r.Universe,
		DurationMs:  r.DurationMs,
		TrimStartMs: r.TrimStartMs,
		TrimEndMs:   r.TrimEndMs,
		RecordedAt:  r.RecordedAt,
		FilePath:    filePath,
	}

	if result.Error == gorm.ErrRecordNotFound {
		entry.ID = cuid.New()
		if err := c.db.WithContext(ctx).Create(&entry).Error; err != nil {
			return nil, err
		}
		return &entry, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	entry.ID = existing.ID
	if err := c.db.WithContext(ctx).Model(&existing).Updates(entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Remove deletes the catalog entry for filePath, if any.
func (c *Catalog) Remove(ctx context.Context, filePath string) error {
	return c.db.WithContext(ctx).Delete(&CatalogEntry{}, "file_path = ?", filePath).Error
}

// List returns every catalog entry, most recently recorded first.
func (c *Catalog) List(ctx context.Context) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	result := c.db.WithContext(ctx).Order("recorded_at DESC").Find(&entries)
	return entries, result.Error
}

// FindByName returns the catalog entries whose name matches exactly.
func (c *Catalog) FindByName(ctx context.Context, name string) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	result := c.db.WithContext(ctx).Where("name = ?", name).Find(&entries)
	return entries, result.Error
}
