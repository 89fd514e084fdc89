// Package gorm persists dataset generation history through GORM.
package gorm

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/goatcheese98/career-constellation/pkg/models"
)

// Generation status values.
const (
	StatusPublished = "published"
	StatusFailed    = "failed"
)

// Generation is one build of the dataset, published or failed.
type Generation struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	Source         string `gorm:"type:text;not null"`
	Strategy       string `gorm:"type:varchar(16);not null"`
	Status         string `gorm:"type:varchar(16);default:'published';index"`
	Error          sql.NullString
	ConfigJSON     string `gorm:"column:config_json;type:text"`
	TotalJobs      int    `gorm:"default:0"`
	NumClusters    int    `gorm:"default:0"`
	DuplicatePairs int    `gorm:"default:0"`
	DroppedRecords int    `gorm:"default:0"`
	EmbeddingDim   int    `gorm:"default:0"`
	Degraded       bool   `gorm:"default:false"`
	DurationMS     int64  `gorm:"default:0"`
	BuiltAt        string `gorm:"not null"`
	BuiltAtEpoch   int64  `gorm:"index:idx_generations_built,sort:desc;not null"`

	Clusters   []ClusterSnapshot   `gorm:"foreignKey:GenerationID;constraint:OnDelete:CASCADE"`
	Duplicates []DuplicateSnapshot `gorm:"foreignKey:GenerationID;constraint:OnDelete:CASCADE"`
}

func (Generation) TableName() string { return "generations" }

// BeforeCreate fills the build timestamps when unset.
func (g *Generation) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if g.BuiltAtEpoch == 0 {
		g.BuiltAtEpoch = now.UnixMilli()
	}
	if g.BuiltAt == "" {
		g.BuiltAt = time.UnixMilli(g.BuiltAtEpoch).UTC().Format(time.RFC3339)
	}
	return nil
}

// ClusterSnapshot is a cluster as it stood in one generation.
type ClusterSnapshot struct {
	ID            int64                  `gorm:"primaryKey;autoIncrement"`
	GenerationID  string                 `gorm:"type:varchar(36);index:idx_cluster_snapshots_gen,priority:1;not null"`
	ClusterID     int                    `gorm:"index:idx_cluster_snapshots_gen,priority:2;not null"`
	Label         string                 `gorm:"type:text"`
	Color         string                 `gorm:"type:varchar(16)"`
	Size          int                    `gorm:"not null"`
	Messiness     float64                `gorm:"type:real;default:0"`
	Keywords      models.JSONStringArray `gorm:"type:text"`
	ExampleTitles models.JSONStringArray `gorm:"type:text"`
	Candidates    models.JSONStringArray `gorm:"type:text"`
}

func (ClusterSnapshot) TableName() string { return "cluster_snapshots" }

// DuplicateSnapshot is a dataset-wide near-duplicate pair of one generation.
type DuplicateSnapshot struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	GenerationID string  `gorm:"type:varchar(36);index;not null"`
	JobA         int     `gorm:"not null"`
	JobB         int     `gorm:"not null"`
	TitleA       string  `gorm:"type:text"`
	TitleB       string  `gorm:"type:text"`
	Similarity   float64 `gorm:"type:real;index:idx_duplicate_snapshots_sim,sort:desc"`
}

func (DuplicateSnapshot) TableName() string { return "duplicate_snapshots" }

// Pair converts the row back to the domain type.
func (d *DuplicateSnapshot) Pair() models.DuplicatePair {
	return models.DuplicatePair{
		JobA:       d.JobA,
		JobB:       d.JobB,
		TitleA:     d.TitleA,
		TitleB:     d.TitleB,
		Similarity: d.Similarity,
	}
}
