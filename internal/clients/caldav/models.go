package caldav

import "time"

// Calendar represents a remote calendar collection
type Calendar struct {
	Path        string
	DisplayName string
	Description string
}

// Event represents a calendar event in one language
type Event struct {
	UID         string // Unique ID in CalDAV
	Summary     string // Title
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
}
