package pos

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// money renders a monetary value with two decimals. This is the only place
// amounts are rounded; the engine keeps full precision.
func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseDelta(s string) (int, error) {
	delta, err := strconv.Atoi(s)
	if err != nil || delta == 0 {
		return 0, fmt.Errorf("invalid delta %q", s)
	}
	return delta, nil
}
