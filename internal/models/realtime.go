package models

import "time"

// Notification is a message for a student about one of their complaints.
// Only IsRead ever changes after insert.
type Notification struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index:idx_notification_user" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ComplaintID *uint     `gorm:"index" json:"complaint_id"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	IsRead      bool      `gorm:"not null;default:false;index:idx_notification_user" json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// NotificationEvent is what the hub pushes to connected clients and across instances.
type NotificationEvent struct {
	Type         string       `json:"type"` // "notification"
	UserID       uint         `json:"user_id"`
	Notification Notification `json:"notification"`
}

// All returns every model managed by AutoMigrate, parents first.
func All() []any {
	return []any{
		&User{},
		&Complaint{},
		&Comment{},
		&Notification{},
		&TicketSequence{},
	}
}
