package database

import (
	"path/filepath"
	"testing"

	"github.com/VaishnaviDS/Intern-dashboard-server/internal/donors"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestApplyMigrationsRecomputesRewards(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&donors.DonorRecord{}, &donors.ContributionRecord{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	record := donors.DonorRecord{
		ID:              "donor-1",
		Name:            "Alice",
		Email:           "alice@example.com",
		ReferralCode:    "alice1234",
		Donations:       5200,
		Rewards:         datatypes.JSONSlice[string]{"No rewards"},
		Version:         1,
		CreatedAtMillis: 1700000000000,
		UpdatedAtMillis: 1700000000000,
	}
	if err := database.Create(&record).Error; err != nil {
		testContext.Fatalf("failed to insert donor: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored donors.DonorRecord
	if err := database.Where("id = ?", record.ID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload donor: %v", err)
	}
	if len(stored.Rewards) != 2 || stored.Rewards[0] != "Certificate" || stored.Rewards[1] != "Badge" {
		testContext.Fatalf("expected rewards to be recomputed, got %v", stored.Rewards)
	}

	var migration migrationRecord
	if err := database.Where("name = ?", migrationRecomputeDonorRewards).Take(&migration).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if migration.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("expected reapplying migrations to be a no-op: %v", err)
	}
}

func TestOpenSQLiteCreatesSchema(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "open.db")

	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("open sqlite failed: %v", err)
	}
	defer func() {
		if err := CloseSQLite(database); err != nil {
			testContext.Fatalf("close failed: %v", err)
		}
	}()

	for _, table := range []string{"donors", "donor_contributions", "db_migrations"} {
		if !database.Migrator().HasTable(table) {
			testContext.Fatalf("expected table %s", table)
		}
	}
	if _, err := OpenSQLite("", nil); err == nil {
		testContext.Fatalf("expected error for empty path")
	}
}
