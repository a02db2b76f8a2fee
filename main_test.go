package main

import (
	"testing"
	"time"
)

func TestScoreboardHoldParsesPlainSeconds(t *testing.T) {
	cases := []struct {
		name string
		env  string
		want time.Duration
	}{
		{"unset defaults to 7s", "", 7 * time.Second},
		{"plain integer", "9", 9 * time.Second},
		{"clamped to lower bound", "3", 7 * time.Second},
		{"clamped to upper bound", "20", 10 * time.Second},
		{"unparseable falls back to default", "8s", 7 * time.Second},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("SCOREBOARD_HOLD_SECONDS", tc.env)
			if got := scoreboardHold(); got != tc.want {
				t.Errorf("scoreboardHold() with %q = %v, want %v", tc.env, got, tc.want)
			}
		})
	}
}
