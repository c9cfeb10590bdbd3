package events

import "time"

// Event types
const (
	TypeDataUpdated     = "data:updated"
	TypeDataFailed      = "data:failed"
	TypeUpdateAvailable = "update:available"
	TypeSettingsUpdated = "settings:updated"
)

// DataUpdatedEvent is the payload for data:updated events.
// Sent after a refresh published a new ranking.
type DataUpdatedEvent struct {
	RunID        string    `json:"runId"`
	LastModified time.Time `json:"lastModified"`
	Recipes      int       `json:"recipes"`
	Auctions     int       `json:"auctions"` // items with auction history
}

// DataFailedEvent is the payload for data:failed events.
// The previous ranking stays in place.
type DataFailedEvent struct {
	Error string `json:"error"`
}

// UpdateAvailableEvent is the payload for update:available events.
type UpdateAvailableEvent struct {
	LastModified time.Time `json:"lastModified"`
	Automatic    bool      `json:"automatic"` // a refresh was started automatically
}

// SettingsUpdatedEvent is the payload for settings:updated events.
type SettingsUpdatedEvent struct {
	CraftsPrice      string `json:"craftsPrice"`
	CostPrice        string `json:"costPrice"`
	Theme            string `json:"theme"`
	AutomaticRefresh bool   `json:"automaticRefresh"`
}
