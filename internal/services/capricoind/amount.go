package capricoind

import (
	"encoding/json"
	"strconv"
)

// coinNumber renders a whole-coin value with 8 decimal places so the node
// parses the exact satoshi amount rather than a floating approximation.
func coinNumber(value float64) json.Number {
	return json.Number(strconv.FormatFloat(value, 'f', 8, 64))
}
