package main

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	now := time.Now()
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{10 * time.Minute, "10 minutes ago"},
		{5 * time.Hour, "5 hours ago"},
		{72 * time.Hour, "3 days ago"},
	}
	for _, tc := range cases {
		if got := formatDuration(now.Add(-tc.ago)); got != tc.want {
			t.Errorf("formatDuration(-%v) = %q, want %q", tc.ago, got, tc.want)
		}
	}
}
