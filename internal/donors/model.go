package donors

import (
	"strings"
	"time"
)

// Outcome reports whether a donation submission created a donor or updated one.
type Outcome string

const (
	// OutcomeCreated marks the first donation for a previously unseen email.
	OutcomeCreated Outcome = "created"
	// OutcomeUpdated marks a donation appended to an existing donor.
	OutcomeUpdated Outcome = "updated"
)

// Contribution is one accepted donation in a donor's history.
type Contribution struct {
	Amount    float64
	DonatedAt time.Time
}

// Donor is the record kept per email address.
type Donor struct {
	ID           string
	Name         string
	Email        string
	ReferralCode string
	Donations    float64
	Rewards      []string
	History      []Contribution
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DonationRequest carries a submission as received from a client. Amount is the raw
// textual value so that both JSON numbers and numeric strings are accepted.
type DonationRequest struct {
	Name   string
	Email  string
	Amount string
}

// DonationResult is the donor state after a submission was applied.
type DonationResult struct {
	Donor   Donor
	Outcome Outcome
}

// DonationEvent is emitted to observers after a donation has been persisted.
type DonationEvent struct {
	ReferralCode   string
	Name           string
	Amount         float64
	TotalDonations float64
	Outcome        Outcome
	Timestamp      time.Time
}

// DonationObserver receives accepted donations. Implementations must not block.
type DonationObserver interface {
	DonationRecorded(event DonationEvent)
}

// PlatformStats summarizes every donor record.
type PlatformStats struct {
	TotalUsers         int
	TotalDonations     float64
	RewardsDistributed map[string]int
}

// LeaderboardEntry is a donor annotated with its 1-based position.
type LeaderboardEntry struct {
	Rank  int
	Donor Donor
}

// NormalizeEmail trims and lower-cases an email so lookups and writes agree on the key.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func cloneHistory(history []Contribution) []Contribution {
	cloned := make([]Contribution, len(history))
	copy(cloned, history)
	return cloned
}
