package models

// Network represents a Blink network, the grouping a sync module manages.
// Classic camera commands are addressed by network ID.
type Network struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	TimeZone string `json:"time_zone"`
	Armed    bool   `json:"armed"`
}

// SyncModule represents the bridge device that owns a network's cameras.
// Minis and doorbells can exist without one.
type SyncModule struct {
	ID        int    `json:"id"`
	NetworkID int    `json:"network_id"`
	Name      string `json:"name"`
	Serial    string `json:"serial"`
	FWVersion string `json:"fw_version"`
	Status    string `json:"status"` // "online"/"offline"
}
