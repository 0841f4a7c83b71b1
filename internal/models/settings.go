package models

import (
	"net/url"

	"github.com/spf13/cast"
)

type MathDifficulty string

const (
	DifficultyEasy   MathDifficulty = "easy"
	DifficultyMedium MathDifficulty = "medium"
	DifficultyHard   MathDifficulty = "hard"
)

func (d MathDifficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type AutoRedirectMode string

const (
	ModeGlobal AutoRedirectMode = "global"
	ModeAlways AutoRedirectMode = "always"
	ModeNever  AutoRedirectMode = "never"
)

func (m AutoRedirectMode) Valid() bool {
	switch m {
	case ModeGlobal, ModeAlways, ModeNever:
		return true
	}
	return false
}

// IsHTTPURL reports whether raw is an absolute http or https URL.
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type Settings struct {
	Enabled                    bool           `json:"enabled"`
	DefaultRedirectURL         string         `json:"defaultRedirectUrl"`
	BypassDurationMinutes      int            `json:"bypassDurationMinutes"`
	ShowBypassOption           bool           `json:"showBypassOption"`
	MathDifficulty             MathDifficulty `json:"mathDifficulty"`
	AutoRedirect               bool           `json:"autoRedirect"`
	RequirePassphraseToDisable bool           `json:"requirePassphraseToDisable"`
}

func DefaultSettings() Settings {
	return Settings{
		Enabled:                    true,
		DefaultRedirectURL:         "https://notion.so",
		BypassDurationMinutes:      15,
		ShowBypassOption:           true,
		MathDifficulty:             DifficultyMedium,
		AutoRedirect:               false,
		RequirePassphraseToDisable: false,
	}
}

// SettingsPatch is a partial update; nil fields keep their current value.
type SettingsPatch struct {
	Enabled                    *bool           `json:"enabled,omitempty"`
	DefaultRedirectURL         *string         `json:"defaultRedirectUrl,omitempty"`
	BypassDurationMinutes      *int            `json:"bypassDurationMinutes,omitempty"`
	ShowBypassOption           *bool           `json:"showBypassOption,omitempty"`
	MathDifficulty             *MathDifficulty `json:"mathDifficulty,omitempty"`
	AutoRedirect               *bool           `json:"autoRedirect,omitempty"`
	RequirePassphraseToDisable *bool           `json:"requirePassphraseToDisable,omitempty"`
}

func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	if p.DefaultRedirectURL != nil {
		s.DefaultRedirectURL = *p.DefaultRedirectURL
	}
	if p.BypassDurationMinutes != nil {
		s.BypassDurationMinutes = *p.BypassDurationMinutes
	}
	if p.ShowBypassOption != nil {
		s.ShowBypassOption = *p.ShowBypassOption
	}
	if p.MathDifficulty != nil {
		s.MathDifficulty = *p.MathDifficulty
	}
	if p.AutoRedirect != nil {
		s.AutoRedirect = *p.AutoRedirect
	}
	if p.RequirePassphraseToDisable != nil {
		s.RequirePassphraseToDisable = *p.RequirePassphraseToDisable
	}
	return s
}

// MigrateSettings builds a canonical Settings from a loosely typed record.
// Fields that are missing, carry the wrong type or hold an unusable value
// fall back to defaults.
func MigrateSettings(raw map[string]any) Settings {
	s := DefaultSettings()
	if raw == nil {
		return s
	}
	if v, ok := raw["enabled"].(bool); ok {
		s.Enabled = v
	}
	if v, ok := raw["defaultRedirectUrl"].(string); ok && IsHTTPURL(v) {
		s.DefaultRedirectURL = v
	}
	if v, ok := raw["bypassDurationMinutes"]; ok && isNumber(v) {
		if minutes := cast.ToInt(v); minutes > 0 {
			s.BypassDurationMinutes = minutes
		}
	}
	if v, ok := raw["showBypassOption"].(bool); ok {
		s.ShowBypassOption = v
	}
	if v, ok := raw["mathDifficulty"].(string); ok && MathDifficulty(v).Valid() {
		s.MathDifficulty = MathDifficulty(v)
	}
	if v, ok := raw["autoRedirect"].(bool); ok {
		s.AutoRedirect = v
	}
	if v, ok := raw["requirePassphraseToDisable"].(bool); ok {
		s.RequirePassphraseToDisable = v
	}
	return s
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, int32, uint64, uint32:
		return true
	}
	return false
}
