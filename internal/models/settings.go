package models

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Sort keys accepted by the defaultSort setting.
const (
	SortExpiryDate = "expiry-date"
	SortName       = "name"
	SortPriority   = "priority"
	SortCreated    = "created"
)

// Settings is the process-wide configuration that affects engine behaviour
// and display.
type Settings struct {
	Theme                string `json:"theme"`
	ItemsPerPage         int    `json:"itemsPerPage"`
	DefaultSort          string `json:"defaultSort"`
	ShowExpiryWarnings   bool   `json:"showExpiryWarnings"`
	SoundNotifications   bool   `json:"soundNotifications"`
	DesktopNotifications bool   `json:"desktopNotifications"`
	NotificationTime     string `json:"notificationTime"`
	EnableNotifications  bool   `json:"enableNotifications"`
	ReminderDays         int    `json:"reminderDays"`
	WeeklyDigest         bool   `json:"weeklyDigest"`
	AutoBackup           int    `json:"autoBackup"`
	EnableAnalytics      bool   `json:"enableAnalytics"`
}

// DefaultSettings returns the settings used on first start and after a reset.
func DefaultSettings() Settings {
	return Settings{
		Theme:                ThemeLight,
		ItemsPerPage:         25,
		DefaultSort:          SortExpiryDate,
		ShowExpiryWarnings:   true,
		SoundNotifications:   true,
		DesktopNotifications: false,
		NotificationTime:     "09:00",
		EnableNotifications:  true,
		ReminderDays:         30,
		WeeklyDigest:         false,
		AutoBackup:           7,
		EnableAnalytics:      true,
	}
}
