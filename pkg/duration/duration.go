// Package duration parses and validates session durations against the STS
// AssumeRole limits.
package duration

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// Min is the shortest session STS will issue
	Min = 15 * time.Minute
	// Max is the longest session STS will issue
	Max = 12 * time.Hour
)

// Parse accepts "3600" (seconds), "30m", "1h" and other Go duration forms.
// An empty string falls back to one hour.
func Parse(s string) (time.Duration, error) {
	if s == "" {
		return time.Hour, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	if seconds, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	return 0, fmt.Errorf("invalid duration %q (use forms like '3600', '30m' or '1h')", s)
}

// Validate enforces the STS session duration window
func Validate(d time.Duration) error {
	if d < Min {
		return fmt.Errorf("duration must be at least 900 seconds (15 minutes), got %s", Format(d))
	}
	if d > Max {
		return fmt.Errorf("duration must be at most 43200 seconds (12 hours), got %s", Format(d))
	}
	return nil
}

// Seconds returns the duration as whole seconds for the AssumeRole request
func Seconds(d time.Duration) int {
	return int(d / time.Second)
}

// Format renders a duration in a compact human-readable form
func Format(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	case minutes > 0 && seconds > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
