package donors

import (
	"errors"
	"fmt"
)

var (
	// ErrDonorNotFound indicates no donor matched the lookup key.
	ErrDonorNotFound = errors.New("donors: donor not found")
	// ErrDuplicateEmail indicates an insert collided with an existing email.
	ErrDuplicateEmail = errors.New("donors: email already registered")
	// ErrDuplicateReferralCode indicates an insert collided with an assigned referral code.
	ErrDuplicateReferralCode = errors.New("donors: referral code already assigned")
	// ErrVersionConflict indicates the donor changed between read and conditional write.
	ErrVersionConflict = errors.New("donors: donor modified concurrently")
	// ErrReferralCodeExhausted indicates every referral code candidate was already taken.
	ErrReferralCodeExhausted = errors.New("donors: referral code candidates exhausted")
	// ErrValidation is the sentinel wrapped by every ValidationError.
	ErrValidation = errors.New("donors: validation failed")
)

const (
	msgMissingDetails = "Please fill all details"
	msgInvalidRange   = "Invalid range. Use days, months, or years."
	msgInvalidPeriod  = "Invalid month or year."
)

// ValidationError reports malformed or missing client input. Message is safe to show to callers.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("donors: invalid input: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func newValidationError(reason, message string) error {
	return &ValidationError{Reason: reason, Message: message}
}

// ServiceError wraps unexpected failures with a dotted operation code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the operation code, e.g. donors.submit_donation.insert_failed.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}
