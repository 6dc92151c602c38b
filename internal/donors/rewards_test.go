package donors

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRewardsForThresholds(testContext *testing.T) {
	testCases := []struct {
		name     string
		total    float64
		expected []string
	}{
		{name: "below silver", total: 999.99, expected: []string{"No rewards"}},
		{name: "silver boundary", total: 1000, expected: []string{"Appreciation Email"}},
		{name: "below gold", total: 4999, expected: []string{"Appreciation Email"}},
		{name: "gold boundary", total: 5000, expected: []string{"Certificate", "Badge"}},
		{name: "platinum boundary", total: 10000, expected: []string{"T-Shirt", "Certificate", "Gift Voucher"}},
		{name: "zero", total: 0, expected: []string{"No rewards"}},
	}

	for _, testCase := range testCases {
		testContext.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expected, RewardsFor(testCase.total))
		})
	}
}

func TestRewardsForIsNeverEmptyAndMonotonic(testContext *testing.T) {
	tierOf := func(labels []string) int {
		switch labels[0] {
		case "T-Shirt":
			return 3
		case "Certificate":
			return 2
		case "Appreciation Email":
			return 1
		default:
			return 0
		}
	}

	rapid.Check(testContext, func(t *rapid.T) {
		lower := rapid.Float64Range(0, 20000).Draw(t, "lower")
		delta := rapid.Float64Range(0, 20000).Draw(t, "delta")

		lowerRewards := RewardsFor(lower)
		higherRewards := RewardsFor(lower + delta)
		if len(lowerRewards) == 0 || len(higherRewards) == 0 {
			t.Fatalf("expected reward labels for every total")
		}
		if tierOf(higherRewards) < tierOf(lowerRewards) {
			t.Fatalf("rewards decreased from %v to %v", lowerRewards, higherRewards)
		}
	})
}
