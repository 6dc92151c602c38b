package donors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var errMissingDatabase = errors.New("database handle is required")

// DonorRecord is the relational row backing a donor.
type DonorRecord struct {
	ID              string                      `gorm:"column:id;primaryKey;size:64;not null"`
	Name            string                      `gorm:"column:name;size:320;not null;default:''"`
	Email           string                      `gorm:"column:email;size:320;not null;uniqueIndex:idx_donors_email"`
	ReferralCode    string                      `gorm:"column:referral_code;size:190;not null;uniqueIndex:idx_donors_referral_code"`
	Donations       float64                     `gorm:"column:donations;not null;default:0;index:idx_donors_leaderboard,priority:1,sort:desc"`
	Rewards         datatypes.JSONSlice[string] `gorm:"column:rewards;not null"`
	Version         int64                       `gorm:"column:version;not null;default:1"`
	CreatedAtMillis int64                       `gorm:"column:created_at_ms;not null;index:idx_donors_leaderboard,priority:2"`
	UpdatedAtMillis int64                       `gorm:"column:updated_at_ms;not null"`
}

// TableName provides the explicit table binding for GORM.
func (DonorRecord) TableName() string {
	return "donors"
}

// ContributionRecord stores one append-only history entry. Insertion order is the
// autoincrement id.
type ContributionRecord struct {
	ContributionID  int64   `gorm:"column:contribution_id;primaryKey;autoIncrement"`
	DonorID         string  `gorm:"column:donor_id;size:64;not null;index:idx_contributions_donor"`
	Amount          float64 `gorm:"column:amount;not null"`
	DonatedAtMillis int64   `gorm:"column:donated_at_ms;not null;index:idx_contributions_donated_at"`
}

// TableName provides the explicit table binding for GORM.
func (ContributionRecord) TableName() string {
	return "donor_contributions"
}

// SQLStore implements Store on SQLite through GORM.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore wraps an opened and migrated GORM handle.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) FindByEmail(ctx context.Context, email string) (Donor, error) {
	return s.findOne(ctx, "email", email)
}

func (s *SQLStore) FindByReferralCode(ctx context.Context, code string) (Donor, error) {
	return s.findOne(ctx, "referral_code", code)
}

func (s *SQLStore) findOne(ctx context.Context, column, value string) (Donor, error) {
	var record DonorRecord
	err := s.db.WithContext(ctx).Where(column+" = ?", value).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Donor{}, ErrDonorNotFound
	}
	if err != nil {
		return Donor{}, err
	}

	var contributions []ContributionRecord
	if err := s.db.WithContext(ctx).
		Where("donor_id = ?", record.ID).
		Order("contribution_id ASC").
		Find(&contributions).Error; err != nil {
		return Donor{}, err
	}

	donor := record.toDonor()
	donor.History = make([]Contribution, 0, len(contributions))
	for _, contribution := range contributions {
		donor.History = append(donor.History, Contribution{
			Amount:    contribution.Amount,
			DonatedAt: fromMillis(contribution.DonatedAtMillis),
		})
	}
	return donor, nil
}

func (s *SQLStore) ReferralCodeTaken(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&DonorRecord{}).
		Where("referral_code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SQLStore) Insert(ctx context.Context, donor Donor) error {
	record := DonorRecord{
		ID:              donor.ID,
		Name:            donor.Name,
		Email:           donor.Email,
		ReferralCode:    donor.ReferralCode,
		Donations:       donor.Donations,
		Rewards:         datatypes.JSONSlice[string](donor.Rewards),
		Version:         donor.Version,
		CreatedAtMillis: donor.CreatedAt.UnixMilli(),
		UpdatedAtMillis: donor.UpdatedAt.UnixMilli(),
	}
	contributions := make([]ContributionRecord, 0, len(donor.History))
	for _, entry := range donor.History {
		contributions = append(contributions, ContributionRecord{
			DonorID:         donor.ID,
			Amount:          entry.Amount,
			DonatedAtMillis: entry.DonatedAt.UnixMilli(),
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return classifyUniqueViolation(err)
		}
		if len(contributions) == 0 {
			return nil
		}
		return tx.Create(&contributions).Error
	})
}

func (s *SQLStore) ApplyDonation(ctx context.Context, update DonationUpdate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&DonorRecord{}).
			Where("id = ? AND version = ?", update.DonorID, update.ExpectedVersion).
			Updates(map[string]interface{}{
				"donations":     update.Donations,
				"rewards":       datatypes.JSONSlice[string](update.Rewards),
				"version":       gorm.Expr("version + ?", 1),
				"updated_at_ms": update.UpdatedAt.UnixMilli(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrVersionConflict
		}
		return tx.Create(&ContributionRecord{
			DonorID:         update.DonorID,
			Amount:          update.Entry.Amount,
			DonatedAtMillis: update.Entry.DonatedAt.UnixMilli(),
		}).Error
	})
}

func (s *SQLStore) ListByDonations(ctx context.Context) ([]Donor, error) {
	var records []DonorRecord
	if err := s.db.WithContext(ctx).
		Order("donations DESC, created_at_ms ASC, id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	donors := make([]Donor, 0, len(records))
	for _, record := range records {
		donors = append(donors, record.toDonor())
	}
	return donors, nil
}

type sqlBucketRow struct {
	Label string
	Total float64
}

func (s *SQLStore) SumByPeriod(ctx context.Context, query BucketQuery) ([]Bucket, error) {
	statement := s.db.WithContext(ctx).
		Model(&ContributionRecord{}).
		Select("strftime(?, donated_at_ms / 1000, 'unixepoch') AS label, SUM(amount) AS total", query.Range.dateFormat())
	if query.Window != nil {
		statement = statement.Where("donated_at_ms >= ? AND donated_at_ms < ?",
			query.Window.Start.UnixMilli(), query.Window.End.UnixMilli())
	}

	var rows []sqlBucketRow
	if err := statement.Group("label").Order("label ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	buckets := make([]Bucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, Bucket{Label: row.Label, Total: row.Total})
	}
	return buckets, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r DonorRecord) toDonor() Donor {
	return Donor{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		ReferralCode: r.ReferralCode,
		Donations:    r.Donations,
		Rewards:      append([]string(nil), r.Rewards...),
		Version:      r.Version,
		CreatedAt:    fromMillis(r.CreatedAtMillis),
		UpdatedAt:    fromMillis(r.UpdatedAtMillis),
	}
}

// classifyUniqueViolation maps SQLite unique index failures onto the store sentinels.
func classifyUniqueViolation(err error) error {
	message := err.Error()
	if !errors.Is(err, gorm.ErrDuplicatedKey) && !strings.Contains(message, "UNIQUE constraint failed") {
		return err
	}
	if strings.Contains(message, "referral_code") {
		return fmt.Errorf("%w: %v", ErrDuplicateReferralCode, err)
	}
	return fmt.Errorf("%w: %v", ErrDuplicateEmail, err)
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
