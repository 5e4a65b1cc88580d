package cache

import "time"

const (
	KeyMenuAvailable = "menu:available"
	KeyMenuAll       = "menu:all"
	KeyStoreSettings = "settings:store"
)

// KeyMenu returns the menu list key for the given visibility.
func KeyMenu(includeUnavailable bool) string {
	if includeUnavailable {
		return KeyMenuAll
	}
	return KeyMenuAvailable
}

// KeyDashboard returns the sales dashboard key for a local calendar day.
func KeyDashboard(day time.Time) string {
	return "dashboard:" + day.Format("2006-01-02")
}
