package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationRegex = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseDurationString converts strings like "5m", "3600s", "1h", "1d",
// "1h30m" or a bare number of seconds ("3600") into a time.Duration.
// An empty string is zero.
func ParseDurationString(durationStr string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(durationStr))
	if s == "" {
		return 0, nil
	}

	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("invalid duration %q: must not be negative", durationStr)
		}
		return time.Duration(secs) * time.Second, nil
	}

	if matches := durationRegex.FindStringSubmatch(s); len(matches) == 3 {
		value, err := strconv.Atoi(matches[1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration numeric value: %s", matches[1])
		}
		var unit time.Duration
		switch matches[2] {
		case "s":
			unit = time.Second
		case "m":
			unit = time.Minute
		case "h":
			unit = time.Hour
		case "d":
			unit = 24 * time.Hour
		}
		return time.Duration(value) * unit, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration string format: %s. Use '3600', '10s', '5m', '1h' or '1h30m'", durationStr)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", durationStr)
	}
	return d, nil
}

// ParseList splits a comma-separated value, trimming every item and
// dropping empty ones.
func ParseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
