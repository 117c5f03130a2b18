package cache

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ttlPattern matches TTL strings like "30m", "6h", "2d", "1w"
var ttlPattern = regexp.MustCompile(`^(\d+)([mhdw])$`)

// ParseTTL parses a cache TTL string like "30m", "6h", "2d", "1w".
// Returns the duration or an error if the format is invalid.
//
// Supported units:
//   - m: minutes
//   - h: hours
//   - d: days
//   - w: weeks (7 days)
func ParseTTL(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("TTL string is empty")
	}

	matches := ttlPattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid TTL format: %s (expected format: <number><unit>, e.g., 30m, 6h, 2d, 1w)", s)
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil || num <= 0 {
		return 0, fmt.Errorf("invalid number in TTL: %s", matches[1])
	}

	unit := matches[2]

	var ttl time.Duration
	switch unit {
	case "m":
		ttl = time.Duration(num) * time.Minute
	case "h":
		ttl = time.Duration(num) * time.Hour
	case "d":
		ttl = time.Duration(num) * 24 * time.Hour
	case "w":
		ttl = time.Duration(num) * 7 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("invalid TTL unit: %s (expected m, h, d, or w)", unit)
	}

	return ttl, nil
}
