package models

// Device kinds, named after the homescreen array a device arrives in.
// The kind decides which thumbnail endpoint a capture has to hit.
const (
	KindCamera   = "camera"
	KindOwl      = "owl"
	KindDoorbell = "doorbell"
)

// Camera represents a single Blink device. Classic cameras, Minis ("owls")
// and doorbells live in separate homescreen arrays but share this shape.
type Camera struct {
	ID        int    `json:"id"`
	NetworkID int    `json:"network_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`      // hardware type, e.g. "xt2", "owl", "lotus"
	Thumbnail string `json:"thumbnail"` // path fragment; image fetch appends ".jpg"
	Status    string `json:"status"`
	Battery   string `json:"battery,omitempty"` // "ok"/"low"; absent on wired devices
	Enabled   bool   `json:"enabled"`
	UpdatedAt string `json:"updated_at"`

	// Kind records which homescreen array the device came from.
	// Set during the merge, not part of the wire format.
	Kind string `json:"-"`
}

// Homescreen represents the account-wide device document. One GET returns
// every network, sync module and camera the account can see.
type Homescreen struct {
	Networks    []Network    `json:"networks"`
	SyncModules []SyncModule `json:"sync_modules"`
	Cameras     []Camera     `json:"cameras"`
	Owls        []Camera     `json:"owls"`
	Doorbells   []Camera     `json:"doorbells"`
}
