package db

import (
	"fmt"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"gorm.io/gorm"
)

// partialIndexes back the bid invariants at the database level where the dialect
// supports filtered unique indexes. MySQL relies on the transactional CAS in the services.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_bids_accepted_per_project ON bids (project_id) WHERE status = 'accepted'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_bids_open_per_maker ON bids (project_id, maker_uid) WHERE status <> 'rejected'`,
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	switch db.Dialector.Name() {
	case "postgres", "sqlite":
		for _, stmt := range partialIndexes {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("create partial index: %w", err)
			}
		}
	}
	return nil
}
