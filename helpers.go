package main

import (
	"fmt"
	"time"
)

// formatDuration renders how long ago t was, like "2 hours ago".
func formatDuration(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < 90*time.Second:
		return "just now"
	case d < 2*time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	}
}
