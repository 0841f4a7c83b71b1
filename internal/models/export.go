package models

const ExportVersion = 1

// ExportData is the backup file layout. Nuclear mode is never part of it.
type ExportData struct {
	Version      int           `json:"version"`
	ExportedAt   string        `json:"exportedAt"`
	BlockedSites []BlockedSite `json:"blockedSites"`
	Settings     *Settings     `json:"settings,omitempty"`
	Stats        *UsageStats   `json:"stats,omitempty"`
}
