package domain

// Settings are portal-wide switches controlled by administrators.
type Settings struct {
	MaintenanceMode    bool `json:"maintenanceMode"`
	AllowRegistrations bool `json:"allowRegistrations"`
}

// DefaultSettings applies when no settings document has been saved yet.
func DefaultSettings() Settings {
	return Settings{MaintenanceMode: false, AllowRegistrations: true}
}
