package handler

import (
	"time"

	"scms/backend/internal/auth"
	"scms/backend/internal/models"
)

type userResponse struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email,omitempty"`
	StudentID *string `json:"student_id,omitempty"`
	Role      string  `json:"role"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func newSessionResponse(s *auth.Session) sessionResponse {
	return sessionResponse{
		Token: s.Token,
		User: userResponse{
			ID:        s.User.ID,
			Name:      s.User.Name,
			Email:     s.User.Email,
			StudentID: s.User.StudentID,
			Role:      s.User.Role,
		},
	}
}

type commentResponse struct {
	ID        uint      `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type complaintResponse struct {
	ID           uint              `json:"id"`
	TicketID     string            `json:"ticket_id"`
	StudentID    uint              `json:"student_id"`
	StudentName  string            `json:"student_name"`
	StudentEmail string            `json:"student_email"`
	Category     string            `json:"category"`
	Building     string            `json:"building"`
	RoomNumber   string            `json:"room_number"`
	Description  string            `json:"description"`
	ImageURL     *string           `json:"image_url"`
	Status       string            `json:"status"`
	AssignedTo   *string           `json:"assigned_to"`
	AdminComment *string           `json:"admin_comment"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Comments     []commentResponse `json:"comments"`
}

func newComplaintResponse(c *models.Complaint) complaintResponse {
	name := c.Student.Name
	if name == "" {
		name = "Unknown"
	}
	out := complaintResponse{
		ID:           c.ID,
		TicketID:     c.TicketID,
		StudentID:    c.StudentID,
		StudentName:  name,
		StudentEmail: c.Student.Email,
		Category:     c.Category,
		Building:     c.Building,
		RoomNumber:   c.RoomNumber,
		Description:  c.Description,
		ImageURL:     c.ImageURL,
		Status:       c.Status,
		AssignedTo:   c.AssignedTo,
		AdminComment: c.AdminComment,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Comments:     make([]commentResponse, 0, len(c.Comments)),
	}
	for _, cm := range c.Comments {
		out.Comments = append(out.Comments, commentResponse{
			ID:        cm.ID,
			Author:    cm.Author,
			Text:      cm.Text,
			CreatedAt: cm.CreatedAt,
		})
	}
	return out
}

func newComplaintList(list []models.Complaint) []complaintResponse {
	out := make([]complaintResponse, 0, len(list))
	for i := range list {
		out = append(out, newComplaintResponse(&list[i]))
	}
	return out
}
