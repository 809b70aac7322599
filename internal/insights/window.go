package insights

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultWindowSeconds is used when a window string cannot be parsed.
const DefaultWindowSeconds int64 = 24 * 3600

var windowPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

var unitSeconds = map[string]int64{
	"s": 1,
	"m": 60,
	"h": 3600,
	"d": 86400,
}

// ParseWindow converts "<integer><s|m|h|d>" into seconds.
func ParseWindow(window string) (int64, bool) {
	m := windowPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(window)))
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseInt(m[1], 10, 64)
	unit := unitSeconds[m[2]]
	if err != nil || value > math.MaxInt64/unit {
		return 0, false
	}
	return value * unit, true
}

// WindowSeconds is ParseWindow with the 24h fallback applied.
func WindowSeconds(window string) int64 {
	if s, ok := ParseWindow(window); ok {
		return s
	}
	return DefaultWindowSeconds
}
