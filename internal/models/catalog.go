package models

import "time"

// CatalogEntry is the shared shape of the reference catalogs.
type CatalogEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description *string   `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Entry gives generic code access to the embedded entry.
func (c *CatalogEntry) Entry() *CatalogEntry {
	return c
}

type Department struct {
	CatalogEntry
}

func (Department) TableName() string {
	return "departments"
}

type ExaminationType struct {
	CatalogEntry
}

func (ExaminationType) TableName() string {
	return "examination_types"
}

// HealthClassification holds the grades (I, II, III, IV...) used to derive a conclusion.
type HealthClassification struct {
	CatalogEntry
}

func (HealthClassification) TableName() string {
	return "health_classifications"
}
