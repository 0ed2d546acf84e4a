package config

import "time"

const (
	// Tickets
	TicketPrefix     = "CF"
	TicketSeqWidth   = 4
	CommentAuthor    = "Admin"
	CommentPreview   = 80
	NotificationPage = 20

	// Auth
	DefaultJWTSecret     = "change-me-in-production"
	DefaultTokenTTL      = 7 * 24 * time.Hour
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
	AdminDisplayName     = "Administrator"

	// Uploads
	DefaultMaxUploadBytes = 10 << 20
	DefaultUploadBaseURL  = "/uploads"
)

var DefaultStaffRoster = []string{
	"John Smith",
	"Maria Garcia",
	"David Lee",
	"Sarah Wilson",
	"James Brown",
}

var DefaultCampusBuildings = []string{
	"Xavier Block",
	"Alphonso Block",
	"Administration Block",
	"Canteen",
	"Hostel",
}

var DefaultImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
