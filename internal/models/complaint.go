package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
)

// Statuses lists every complaint status in lifecycle order.
var Statuses = []string{StatusPending, StatusInProgress, StatusResolved}

// Complaint is a ticket raised by a student.
// Rows are never deleted; admins mutate Status, AssignedTo and AdminComment.
type Complaint struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TicketID     string    `gorm:"size:32;uniqueIndex;not null" json:"ticket_id"`
	StudentID    uint      `gorm:"not null;index" json:"student_id"`
	Student      User      `gorm:"foreignKey:StudentID;constraint:OnDelete:RESTRICT" json:"-"`
	Category     string    `gorm:"size:100;not null;index" json:"category"`
	Building     string    `gorm:"size:100;not null" json:"building"`
	RoomNumber   string    `gorm:"size:50;not null" json:"room_number"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	ImageURL     *string   `gorm:"size:500" json:"image_url"`
	Status       string    `gorm:"size:32;not null;index;default:Pending" json:"status"`
	AssignedTo   *string   `gorm:"size:255" json:"assigned_to"`
	AdminComment *string   `gorm:"type:text" json:"admin_comment"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Comments     []Comment `gorm:"foreignKey:ComplaintID;constraint:OnDelete:CASCADE" json:"comments"`
}

// BeforeCreate defaults new complaints to Pending.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.Status == "" {
		c.Status = StatusPending
	}
	return
}

// ParseStatus returns the canonical status for s, ignoring case.
// "in_progress" and "inprogress" are accepted for In Progress.
func ParseStatus(s string) (string, bool) {
	key := strings.TrimSpace(s)
	for _, status := range Statuses {
		if strings.EqualFold(key, status) {
			return status, true
		}
	}
	switch strings.ToLower(key) {
	case "in_progress", "inprogress":
		return StatusInProgress, true
	}
	return "", false
}

// Comment is an append-only admin remark on a complaint.
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ComplaintID uint      `gorm:"not null;index" json:"complaint_id"`
	Author      string    `gorm:"size:100;not null" json:"author"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// TicketSequence holds the last ticket number handed out for a year.
type TicketSequence struct {
	Year      int `gorm:"primaryKey;autoIncrement:false"`
	LastValue int `gorm:"not null"`
}
