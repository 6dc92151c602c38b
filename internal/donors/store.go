package donors

import (
	"context"
	"time"
)

// DonationUpdate is the conditional write applied when an existing donor gives again.
// It succeeds only while the stored version still equals ExpectedVersion.
type DonationUpdate struct {
	DonorID         string
	ExpectedVersion int64
	Donations       float64
	Rewards         []string
	Entry           Contribution
	UpdatedAt       time.Time
}

// Store persists donor records. Implementations enforce unique email and referral code
// and translate driver errors into the package sentinels.
type Store interface {
	ReferralCodeChecker

	// FindByEmail returns the donor with its full history or ErrDonorNotFound.
	FindByEmail(ctx context.Context, email string) (Donor, error)
	// FindByReferralCode returns the donor with its full history or ErrDonorNotFound.
	FindByReferralCode(ctx context.Context, code string) (Donor, error)
	// Insert creates a donor and its history. Returns ErrDuplicateEmail or
	// ErrDuplicateReferralCode on unique key collisions.
	Insert(ctx context.Context, donor Donor) error
	// ApplyDonation appends a contribution and replaces total and rewards in one write.
	// Returns ErrVersionConflict when the donor changed since it was read.
	ApplyDonation(ctx context.Context, update DonationUpdate) error
	// ListByDonations returns every donor without history, ordered by donations descending,
	// then creation time ascending, then id ascending.
	ListByDonations(ctx context.Context) ([]Donor, error)
	// SumByPeriod groups contributions by the query's range label, sorted ascending.
	SumByPeriod(ctx context.Context, query BucketQuery) ([]Bucket, error)
	// Ping checks connectivity.
	Ping(ctx context.Context) error
}
