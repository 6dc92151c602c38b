package donors

const (
	tierPlatinumThreshold = 10000
	tierGoldThreshold     = 5000
	tierSilverThreshold   = 1000
)

// RewardsFor returns the reward labels implied by a cumulative donation total.
// Thresholds are inclusive lower bounds checked highest first.
func RewardsFor(total float64) []string {
	switch {
	case total >= tierPlatinumThreshold:
		return []string{"T-Shirt", "Certificate", "Gift Voucher"}
	case total >= tierGoldThreshold:
		return []string{"Certificate", "Badge"}
	case total >= tierSilverThreshold:
		return []string{"Appreciation Email"}
	default:
		return []string{"No rewards"}
	}
}
