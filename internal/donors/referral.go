package donors

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode"
)

const (
	defaultReferralAttempts = 10
	fallbackReferralPrefix  = "donor"
)

var errMissingCodeChecker = errors.New("referral code checker is required")

// ReferralCodeChecker reports whether a referral code is already assigned.
type ReferralCodeChecker interface {
	ReferralCodeTaken(ctx context.Context, code string) (bool, error)
}

// ReferralGeneratorConfig configures a ReferralGenerator.
type ReferralGeneratorConfig struct {
	Checker ReferralCodeChecker
	// Attempts bounds the candidates tried per suffix width.
	Attempts int
	// RandomInt returns a uniform integer in [0, n). Defaults to math/rand/v2.
	RandomInt func(n int) int
}

// ReferralGenerator derives unique referral codes from donor names.
type ReferralGenerator struct {
	checker   ReferralCodeChecker
	attempts  int
	randomInt func(n int) int
}

type suffixRange struct {
	min int
	max int
}

// Four digit suffixes first, then a wider six digit space when a name prefix is crowded.
var referralSuffixRanges = []suffixRange{
	{min: 1000, max: 9999},
	{min: 100000, max: 999999},
}

// NewReferralGenerator validates the configuration and applies defaults.
func NewReferralGenerator(cfg ReferralGeneratorConfig) (*ReferralGenerator, error) {
	if cfg.Checker == nil {
		return nil, errMissingCodeChecker
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = defaultReferralAttempts
	}
	randomInt := cfg.RandomInt
	if randomInt == nil {
		randomInt = rand.IntN
	}
	return &ReferralGenerator{
		checker:   cfg.Checker,
		attempts:  attempts,
		randomInt: randomInt,
	}, nil
}

// Generate returns a referral code that no donor currently holds.
func (g *ReferralGenerator) Generate(ctx context.Context, name string) (string, error) {
	prefix := referralPrefix(name)
	for _, suffixes := range referralSuffixRanges {
		for attempt := 0; attempt < g.attempts; attempt++ {
			candidate := prefix + strconv.Itoa(suffixes.pick(g.randomInt))
			taken, err := g.checker.ReferralCodeTaken(ctx, candidate)
			if err != nil {
				return "", err
			}
			if !taken {
				return candidate, nil
			}
		}
	}
	return "", ErrReferralCodeExhausted
}

func (r suffixRange) pick(randomInt func(n int) int) int {
	return r.min + randomInt(r.max-r.min+1)
}

// referralPrefix lower-cases the first token of the name and keeps letters and digits only.
func referralPrefix(name string) string {
	tokens := strings.Fields(name)
	if len(tokens) == 0 {
		return fallbackReferralPrefix
	}
	prefix := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, tokens[0])
	if prefix == "" {
		return fallbackReferralPrefix
	}
	return prefix
}
