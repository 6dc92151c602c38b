package database

import (
	"errors"
	"slices"
	"time"

	"github.com/VaishnaviDS/Intern-dashboard-server/internal/donors"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	migrationRecomputeDonorRewards = "2025-01-20_recompute_donor_rewards"
	migrationBatchSize             = 200
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationRecomputeDonorRewards, apply: recomputeDonorRewards},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// recomputeDonorRewards realigns stored reward labels with the current reward tiers.
func recomputeDonorRewards(db *gorm.DB) error {
	writer := db.Session(&gorm.Session{NewDB: true})
	var records []donors.DonorRecord
	return db.Select("id", "donations", "rewards").
		FindInBatches(&records, migrationBatchSize, func(_ *gorm.DB, _ int) error {
			for _, record := range records {
				expected := donors.RewardsFor(record.Donations)
				if slices.Equal(expected, []string(record.Rewards)) {
					continue
				}
				if err := writer.Model(&donors.DonorRecord{}).
					Where("id = ?", record.ID).
					Update("rewards", datatypes.JSONSlice[string](expected)).Error; err != nil {
					return err
				}
			}
			return nil
		}).Error
}
