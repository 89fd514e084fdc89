package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "001_generations",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Generation{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("generations")
			},
		},
		{
			ID: "002_cluster_snapshots",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&ClusterSnapshot{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("cluster_snapshots")
			},
		},
		{
			ID: "003_duplicate_snapshots",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&DuplicateSnapshot{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("duplicate_snapshots")
			},
		},
		// Lookups by pair identity when comparing generations.
		{
			ID: "004_duplicate_pair_index",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_duplicate_snapshots_pair
					ON duplicate_snapshots (generation_id, job_a, job_b)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP INDEX IF EXISTS idx_duplicate_snapshots_pair").Error
			},
		},
	})

	return m.Migrate()
}
