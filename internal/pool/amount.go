package pool

import (
	"fmt"
	"math"
	"strings"
)

// Amount is a coin value in integer satoshis. All pool accounting runs on
// integer satoshis so distribution and payout sums are exact.
type Amount int64

// SatoshisPerCoin is the satoshi denomination of one CPS.
const SatoshisPerCoin = 100_000_000

// FromCoins converts a whole-coin value, as reported by the node RPC, to
// satoshis. Values are rounded to the nearest satoshi to absorb float noise
// in the JSON decoding.
func FromCoins(coins float64) Amount {
	return Amount(math.Round(coins * SatoshisPerCoin))
}

// Coins converts the amount back to whole coins for RPC parameters.
func (a Amount) Coins() float64 {
	return float64(a) / SatoshisPerCoin
}

// Percent returns the given percentage of the amount, truncated toward zero.
// The percentage is resolved to basis points first so configured values like
// 3.25 stay exact.
func (a Amount) Percent(pct float64) Amount {
	bps := int64(math.Round(pct * 100))
	if bps <= 0 || a <= 0 {
		return 0
	}
	v := int64(a)
	return Amount(v/10000*bps + v%10000*bps/10000)
}

// String renders the amount as a decimal coin value with trailing zeros
// trimmed, matching the node's own formatting.
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / SatoshisPerCoin
	frac := v % SatoshisPerCoin
	if frac == 0 {
		return fmt.Sprintf("%s%d", sign, whole)
	}
	text := strings.TrimRight(fmt.Sprintf("%08d", frac), "0")
	return fmt.Sprintf("%s%d.%s", sign, whole, text)
}
