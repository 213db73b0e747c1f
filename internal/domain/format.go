package domain

import "fmt"

// FormatDuration renders seconds as "2 hours and 30 minutes", "1 hour",
// "45 minutes". Sub-minute amounts collapse to "0 minutes".
func FormatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%d %s and %d %s", hours, plural(hours, "hour"), minutes, plural(minutes, "minute"))
	case hours > 0:
		return fmt.Sprintf("%d %s", hours, plural(hours, "hour"))
	default:
		return fmt.Sprintf("%d %s", minutes, plural(minutes, "minute"))
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
