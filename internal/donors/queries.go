package donors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// History returns the donor holding referralCode, including its donation history.
func (s *Service) History(ctx context.Context, referralCode string) (donor Donor, err error) {
	ctx, span := s.startSpan(ctx, opHistory)
	defer func() { finishSpan(span, err) }()

	if s.store == nil {
		return Donor{}, newServiceError(opHistory, errReasonMissingStore, errMissingStore)
	}
	code := strings.TrimSpace(referralCode)
	if code == "" {
		return Donor{}, ErrDonorNotFound
	}

	donor, err = s.store.FindByReferralCode(ctx, code)
	if errors.Is(err, ErrDonorNotFound) {
		return Donor{}, fmt.Errorf("%w: referral code %q", ErrDonorNotFound, code)
	}
	if err != nil {
		s.logError(opHistory, errReasonQueryFailed, err, zap.String("referral_code", code))
		return Donor{}, newServiceError(opHistory, errReasonQueryFailed, err)
	}
	return donor, nil
}

// PlatformStats counts donors, sums their totals and tallies every reward label held.
func (s *Service) PlatformStats(ctx context.Context) (stats PlatformStats, err error) {
	ctx, span := s.startSpan(ctx, opPlatformStats)
	defer func() { finishSpan(span, err) }()

	if s.store == nil {
		return PlatformStats{}, newServiceError(opPlatformStats, errReasonMissingStore, errMissingStore)
	}
	donors, err := s.store.ListByDonations(ctx)
	if err != nil {
		s.logError(opPlatformStats, errReasonQueryFailed, err)
		return PlatformStats{}, newServiceError(opPlatformStats, errReasonQueryFailed, err)
	}

	total := decimal.Zero
	rewards := make(map[string]int)
	for _, donor := range donors {
		total = total.Add(decimal.NewFromFloat(donor.Donations))
		for _, label := range donor.Rewards {
			rewards[label]++
		}
	}
	span.SetAttributes(attribute.Int("donor.count", len(donors)))
	return PlatformStats{
		TotalUsers:         len(donors),
		TotalDonations:     total.InexactFloat64(),
		RewardsDistributed: rewards,
	}, nil
}

// Leaderboard ranks every donor by total donations, highest first. Ties keep the
// earlier donor first.
func (s *Service) Leaderboard(ctx context.Context) (entries []LeaderboardEntry, err error) {
	ctx, span := s.startSpan(ctx, opLeaderboard)
	defer func() { finishSpan(span, err) }()

	if s.store == nil {
		return nil, newServiceError(opLeaderboard, errReasonMissingStore, errMissingStore)
	}
	donors, err := s.store.ListByDonations(ctx)
	if err != nil {
		s.logError(opLeaderboard, errReasonQueryFailed, err)
		return nil, newServiceError(opLeaderboard, errReasonQueryFailed, err)
	}

	entries = make([]LeaderboardEntry, 0, len(donors))
	for index, donor := range donors {
		entries = append(entries, LeaderboardEntry{Rank: index + 1, Donor: donor})
	}
	return entries, nil
}

// AggregatedDonations sums every contribution by day, month or year label.
func (s *Service) AggregatedDonations(ctx context.Context, query AggregateQuery) (buckets []Bucket, err error) {
	ctx, span := s.startSpan(ctx, opAggregatedDonations)
	defer func() { finishSpan(span, err) }()

	bucketQuery, err := buildBucketQuery(query)
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, newServiceError(opAggregatedDonations, errReasonMissingStore, errMissingStore)
	}
	span.SetAttributes(attribute.String("donor.range", string(bucketQuery.Range)))

	buckets, err = s.store.SumByPeriod(ctx, bucketQuery)
	if err != nil {
		s.logError(opAggregatedDonations, errReasonQueryFailed, err, zap.String("range", string(bucketQuery.Range)))
		return nil, newServiceError(opAggregatedDonations, errReasonQueryFailed, err)
	}
	return buckets, nil
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if s.store == nil {
		return errMissingStore
	}
	return s.store.Ping(ctx)
}
