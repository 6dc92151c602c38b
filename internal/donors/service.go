package donors

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	instrumentationName = "github.com/VaishnaviDS/Intern-dashboard-server/internal/donors"

	// maxSubmitAttempts bounds the read-then-write cycles of one submission when
	// concurrent writers collide on email, referral code or version.
	maxSubmitAttempts = 3
)

const (
	opServiceNew           = "donors.service.new"
	opSubmitDonation       = "donors.submit_donation"
	opHistory              = "donors.history"
	opPlatformStats        = "donors.platform_stats"
	opLeaderboard          = "donors.leaderboard"
	opAggregatedDonations  = "donors.aggregated_donations"
	errReasonMissingStore  = "missing_store"
	errReasonLookupFailed  = "lookup_failed"
	errReasonQueryFailed   = "query_failed"
	errReasonRetryExceeded = "conflict_retries_exhausted"
)

var (
	errMissingStore       = errors.New("donor store is required")
	errConflictsExhausted = errors.New("concurrent writers kept conflicting")
	noOpLogger            = zap.NewNop()
)

// ReferralCodeGenerator produces referral codes not assigned to any donor.
type ReferralCodeGenerator interface {
	Generate(ctx context.Context, name string) (string, error)
}

// ServiceConfig describes the dependencies of the donor service.
type ServiceConfig struct {
	Store Store
	// Codes defaults to a ReferralGenerator checking Store with ReferralAttempts per phase.
	Codes            ReferralCodeGenerator
	ReferralAttempts int
	Clock            func() time.Time
	IDProvider       IDProvider
	Logger           *zap.Logger
	TracerProvider   trace.TracerProvider
	Observers        []DonationObserver
}

// Service records donations and answers donor queries.
type Service struct {
	store      Store
	codes      ReferralCodeGenerator
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
	tracer     trace.Tracer
	observers  []DonationObserver
}

// NewService validates the configuration and applies defaults.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, errReasonMissingStore, errMissingStore)
	}

	codes := cfg.Codes
	if codes == nil {
		generator, err := NewReferralGenerator(ReferralGeneratorConfig{
			Checker:  cfg.Store,
			Attempts: cfg.ReferralAttempts,
		})
		if err != nil {
			return nil, newServiceError(opServiceNew, "referral_generator", err)
		}
		codes = generator
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = NewUUIDProvider()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	tracerProvider := cfg.TracerProvider
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}

	return &Service{
		store:      cfg.Store,
		codes:      codes,
		clock:      clock,
		idProvider: idProvider,
		logger:     logger,
		tracer:     tracerProvider.Tracer(instrumentationName),
		observers:  append([]DonationObserver(nil), cfg.Observers...),
	}, nil
}

// SubmitDonation creates the donor on first donation for an email or appends to it.
// Unique key and version conflicts are retried from a fresh read up to maxSubmitAttempts.
func (s *Service) SubmitDonation(ctx context.Context, request DonationRequest) (result DonationResult, err error) {
	ctx, span := s.startSpan(ctx, opSubmitDonation)
	defer func() { finishSpan(span, err) }()

	if s.store == nil {
		return DonationResult{}, newServiceError(opSubmitDonation, errReasonMissingStore, errMissingStore)
	}

	email := NormalizeEmail(request.Email)
	if email == "" {
		return DonationResult{}, newValidationError("missing_email", msgMissingDetails)
	}
	amount, err := parseAmount(request.Amount)
	if err != nil {
		return DonationResult{}, err
	}

	for attempt := 1; attempt <= maxSubmitAttempts; attempt++ {
		existing, lookupErr := s.store.FindByEmail(ctx, email)
		if lookupErr != nil && !errors.Is(lookupErr, ErrDonorNotFound) {
			s.logError(opSubmitDonation, errReasonLookupFailed, lookupErr)
			return DonationResult{}, newServiceError(opSubmitDonation, errReasonLookupFailed, lookupErr)
		}

		if errors.Is(lookupErr, ErrDonorNotFound) {
			result, err = s.createDonor(ctx, request.Name, email, amount)
		} else {
			result, err = s.appendDonation(ctx, existing, amount)
		}

		switch {
		case err == nil:
			span.SetAttributes(
				attribute.String("donor.outcome", string(result.Outcome)),
				attribute.Int("donor.attempts", attempt),
			)
			s.notify(result, amount.InexactFloat64())
			return result, nil
		case errors.Is(err, ErrDuplicateEmail), errors.Is(err, ErrDuplicateReferralCode), errors.Is(err, ErrVersionConflict):
			s.logger.Info("donation write conflicted, retrying",
				zap.String("operation", opSubmitDonation),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		default:
			return DonationResult{}, err
		}
	}

	s.logError(opSubmitDonation, errReasonRetryExceeded, errConflictsExhausted)
	return DonationResult{}, newServiceError(opSubmitDonation, errReasonRetryExceeded, errConflictsExhausted)
}

// createDonor returns store conflicts unwrapped so SubmitDonation can retry them.
func (s *Service) createDonor(ctx context.Context, rawName, email string, amount decimal.Decimal) (DonationResult, error) {
	name := strings.TrimSpace(rawName)
	if name == "" {
		return DonationResult{}, newValidationError("missing_name", msgMissingDetails)
	}

	code, err := s.codes.Generate(ctx, name)
	if err != nil {
		s.logError(opSubmitDonation, "referral_code_failed", err, zap.String("email", email))
		return DonationResult{}, newServiceError(opSubmitDonation, "referral_code_failed", err)
	}
	donorID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opSubmitDonation, "id_generation_failed", err, zap.String("email", email))
		return DonationResult{}, newServiceError(opSubmitDonation, "id_generation_failed", err)
	}

	now := s.now()
	total := amount.InexactFloat64()
	donor := Donor{
		ID:           donorID,
		Name:         name,
		Email:        email,
		ReferralCode: code,
		Donations:    total,
		Rewards:      RewardsFor(total),
		History:      []Contribution{{Amount: total, DonatedAt: now}},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Insert(ctx, donor); err != nil {
		if errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateReferralCode) {
			return DonationResult{}, err
		}
		s.logError(opSubmitDonation, "insert_failed", err, zap.String("email", email))
		return DonationResult{}, newServiceError(opSubmitDonation, "insert_failed", err)
	}
	return DonationResult{Donor: donor, Outcome: OutcomeCreated}, nil
}

func (s *Service) appendDonation(ctx context.Context, existing Donor, amount decimal.Decimal) (DonationResult, error) {
	total, ok := finitePositive(decimal.NewFromFloat(existing.Donations).Add(amount))
	if !ok {
		return DonationResult{}, newValidationError("total_out_of_range", msgMissingDetails)
	}
	now := s.now()
	entry := Contribution{Amount: amount.InexactFloat64(), DonatedAt: now}
	update := DonationUpdate{
		DonorID:         existing.ID,
		ExpectedVersion: existing.Version,
		Donations:       total,
		Rewards:         RewardsFor(total),
		Entry:           entry,
		UpdatedAt:       now,
	}
	if err := s.store.ApplyDonation(ctx, update); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return DonationResult{}, err
		}
		s.logError(opSubmitDonation, "update_failed", err, zap.String("donor_id", existing.ID))
		return DonationResult{}, newServiceError(opSubmitDonation, "update_failed", err)
	}

	updated := existing
	updated.Donations = update.Donations
	updated.Rewards = update.Rewards
	updated.History = append(cloneHistory(existing.History), entry)
	updated.Version = existing.Version + 1
	updated.UpdatedAt = now
	return DonationResult{Donor: updated, Outcome: OutcomeUpdated}, nil
}

func (s *Service) notify(result DonationResult, amount float64) {
	if len(s.observers) == 0 {
		return
	}
	event := DonationEvent{
		ReferralCode:   result.Donor.ReferralCode,
		Name:           result.Donor.Name,
		Amount:         amount,
		TotalDonations: result.Donor.Donations,
		Outcome:        result.Outcome,
		Timestamp:      result.Donor.UpdatedAt,
	}
	for _, observer := range s.observers {
		observer.DonationRecorded(event)
	}
}

// now truncates to milliseconds, the precision both stores keep.
func (s *Service) now() time.Time {
	return s.clock().UTC().Truncate(time.Millisecond)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return decimal.Zero, newValidationError("missing_amount", msgMissingDetails)
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, newValidationError("invalid_amount", msgMissingDetails)
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, newValidationError("non_positive_amount", msgMissingDetails)
	}
	if _, ok := finitePositive(amount); !ok {
		return decimal.Zero, newValidationError("amount_out_of_range", msgMissingDetails)
	}
	return amount, nil
}

// finitePositive converts value to the float64 both stores persist, rejecting values that
// overflow to infinity or underflow to zero.
func finitePositive(value decimal.Decimal) (float64, bool) {
	converted, _ := value.Float64()
	if math.IsInf(converted, 0) || math.IsNaN(converted) || converted <= 0 {
		return 0, false
	}
	return converted, true
}

func (s *Service) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	tracer := s.tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	return tracer.Start(ctx, operation)
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("donor service error", attrs...)
}
