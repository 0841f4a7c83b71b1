package models

import (
	"fmt"
	"slices"
	"time"
)

var NuclearDurations = []int{1, 4, 8, 24}

type NuclearMode struct {
	Active         bool   `json:"active"`
	ExpiresAt      int64  `json:"expiresAt"`
	StartedAt      int64  `json:"startedAt"`
	DurationHours  int    `json:"durationHours"`
	PassphraseHash string `json:"passphraseHash"`
}

func DefaultNuclearMode() NuclearMode {
	return NuclearMode{DurationHours: 1}
}

func ValidNuclearDuration(hours int) bool {
	return slices.Contains(NuclearDurations, hours)
}

// Expired is true for an active record whose deadline has passed.
func (n NuclearMode) Expired(nowMs int64) bool {
	return n.Active && n.ExpiresAt <= nowMs
}

func (n NuclearMode) Remaining(nowMs int64) time.Duration {
	if !n.Active || n.ExpiresAt <= nowMs {
		return 0
	}
	return time.Duration(n.ExpiresAt-nowMs) * time.Millisecond
}

// FormatRemaining renders a countdown as zero padded "hh:mm:ss".
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
