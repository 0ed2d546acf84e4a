// Package complaint provides the core logic of the complaint lifecycle:
// submission with ticket numbering, listing, and the admin transitions
// (status, assignment, comments) that notify the owning student.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"scms/backend/internal/analysis"
	"scms/backend/internal/apperr"
	"scms/backend/internal/auth"
	"scms/backend/internal/blob"
	"scms/backend/internal/config"
	"scms/backend/internal/models"
	"scms/backend/internal/notification"
	"scms/backend/internal/storage"
	"scms/backend/internal/ticket"
)

var (
	errNotFound     = apperr.New(apperr.ErrNotFound, "Complaint not found.")
	errAccessDenied = apperr.New(apperr.ErrForbidden, "Access denied.")
	errBadStatus    = apperr.New(apperr.ErrInvalidInput, "Invalid status. Use Pending, In Progress or Resolved.")
)

// Service handles the business logic for complaints.
type Service struct {
	Storage       storage.Storage
	Blobs         blob.Store
	Notifications *notification.Service

	Staff           []string
	Buildings       []string
	ImageExtensions []string
	MaxImageBytes   int64

	Now func() time.Time
}

// NewService creates a complaint service with the default roster, buildings and upload limits.
func NewService(s storage.Storage, blobs blob.Store, notes *notification.Service) *Service {
	return &Service{
		Storage:         s,
		Blobs:           blobs,
		Notifications:   notes,
		Staff:           config.DefaultStaffRoster,
		Buildings:       config.DefaultCampusBuildings,
		ImageExtensions: config.DefaultImageExtensions,
		MaxImageBytes:   config.DefaultMaxUploadBytes,
		Now:             time.Now,
	}
}

// Upload is an image attached to a new complaint.
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

type SubmitInput struct {
	Category    string
	Building    string
	RoomNumber  string
	Description string
	Image       *Upload
}

// Filter narrows List. Search is only honoured for the admin.
type Filter struct {
	Category string
	Status   string
	Search   string
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Submit files a new complaint for a student and returns it with its ticket id.
func (s *Service) Submit(ctx context.Context, caller auth.Identity, in SubmitInput) (*models.Complaint, error) {
	if caller.IsAdmin() {
		return nil, apperr.New(apperr.ErrForbidden, "Admins cannot submit complaints.")
	}
	c := &models.Complaint{
		StudentID:   caller.ID,
		Category:    strings.TrimSpace(in.Category),
		Building:    strings.TrimSpace(in.Building),
		RoomNumber:  strings.TrimSpace(in.RoomNumber),
		Description: strings.TrimSpace(in.Description),
		Status:      models.StatusPending,
	}
	if c.Category == "" || c.Building == "" || c.RoomNumber == "" || c.Description == "" {
		return nil, apperr.New(apperr.ErrInvalidInput, "Category, building, room number and description are required.")
	}

	now := s.now()
	if in.Image != nil && in.Image.Name != "" {
		url, err := s.saveImage(ctx, in.Image, now)
		if err != nil {
			return nil, err
		}
		c.ImageURL = &url
	}

	err := s.Storage.Transaction(ctx, func(tx storage.Storage) error {
		id, err := ticket.Next(ctx, tx, now.Year())
		if err != nil {
			return fmt.Errorf("allocate ticket id: %w", err)
		}
		c.TicketID = id
		return tx.CreateComplaint(ctx, c)
	})
	if err != nil {
		if c.ImageURL != nil {
			slog.Warn("complaint insert failed, uploaded image left behind", "image_url", *c.ImageURL)
		}
		return nil, fmt.Errorf("create complaint: %w", err)
	}

	slog.Info("complaint submitted", "ticket_id", c.TicketID, "student_id", caller.ID)
	return s.load(ctx, c.ID)
}

func (s *Service) saveImage(ctx context.Context, up *Upload, now time.Time) (string, error) {
	if !blob.AllowedExtension(up.Name, s.ImageExtensions) {
		return "", apperr.New(apperr.ErrInvalidInput, "Unsupported image type.")
	}
	if s.MaxImageBytes > 0 && up.Size > s.MaxImageBytes {
		return "", apperr.New(apperr.ErrInvalidInput, "Image is too large.")
	}
	if s.Blobs == nil {
		return "", errors.New("image uploads are not configured")
	}
	url, err := s.Blobs.Save(ctx, blob.NewName(up.Name, now), up.Body, up.Size, up.ContentType)
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return url, nil
}

// List returns complaints visible to the caller, newest first.
// Students only ever see their own complaints.
func (s *Service) List(ctx context.Context, caller auth.Identity, f Filter) ([]models.Complaint, error) {
	filter := storage.ComplaintFilter{Category: strings.TrimSpace(f.Category)}
	if raw := strings.TrimSpace(f.Status); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			return nil, errBadStatus
		}
		filter.Status = status
	}
	if caller.IsAdmin() {
		filter.Search = strings.TrimSpace(f.Search)
	} else {
		id := caller.ID
		filter.StudentID = &id
	}

	list, err := s.Storage.ListComplaints(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return list, nil
}

// Get returns one complaint if the caller owns it or is the admin.
func (s *Service) Get(ctx context.Context, caller auth.Identity, id uint) (*models.Complaint, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !caller.Owns(c) {
		return nil, errAccessDenied
	}
	return c, nil
}

func (s *Service) load(ctx context.Context, id uint) (*models.Complaint, error) {
	c, err := s.Storage.GetComplaint(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get complaint: %w", err)
	}
	if c == nil {
		return nil, errNotFound
	}
	return c, nil
}

// UpdateStatus sets a new status. The student is notified only when the value changes.
func (s *Service) UpdateStatus(ctx context.Context, caller auth.Identity, id uint, status string) (*models.Complaint, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	next, ok := models.ParseStatus(status)
	if !ok {
		return nil, errBadStatus
	}
	return s.mutate(ctx, caller, id, func(tx storage.Storage, c *models.Complaint) (*models.Notification, error) {
		changed := c.Status != next
		if err := tx.UpdateComplaint(ctx, c.ID, map[string]any{"status": next, "updated_at": s.now()}); err != nil {
			return nil, err
		}
		if !changed {
			return nil, nil
		}
		c.Status = next
		return s.Notifications.Notify(ctx, tx, c, s.Notifications.StatusMessage(c))
	})
}

// Assign hands the complaint to a staff member and always notifies the student.
func (s *Service) Assign(ctx context.Context, caller auth.Identity, id uint, staff string) (*models.Complaint, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	staff = strings.TrimSpace(staff)
	if staff == "" {
		return nil, apperr.New(apperr.ErrInvalidInput, "Staff name is required.")
	}
	return s.mutate(ctx, caller, id, func(tx storage.Storage, c *models.Complaint) (*models.Notification, error) {
		if err := tx.UpdateComplaint(ctx, c.ID, map[string]any{"assigned_to": staff, "updated_at": s.now()}); err != nil {
			return nil, err
		}
		return s.Notifications.Notify(ctx, tx, c, s.Notifications.AssignedMessage(c, staff))
	})
}

// AddComment appends an admin comment, makes it the latest admin_comment and notifies the student.
func (s *Service) AddComment(ctx context.Context, caller auth.Identity, id uint, text string) (*models.Complaint, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.New(apperr.ErrInvalidInput, "Comment text is required.")
	}
	return s.mutate(ctx, caller, id, func(tx storage.Storage, c *models.Complaint) (*models.Notification, error) {
		if err := tx.AddComment(ctx, &models.Comment{ComplaintID: c.ID, Author: config.CommentAuthor, Text: text}); err != nil {
			return nil, fmt.Errorf("add comment: %w", err)
		}
		if err := tx.UpdateComplaint(ctx, c.ID, map[string]any{"admin_comment": text, "updated_at": s.now()}); err != nil {
			return nil, err
		}
		return s.Notifications.Notify(ctx, tx, c, s.Notifications.CommentMessage(c, text))
	})
}

// mutate runs fn against the locked complaint row in one transaction and
// publishes the resulting notification once it has committed.
func (s *Service) mutate(ctx context.Context, caller auth.Identity, id uint,
	fn func(tx storage.Storage, c *models.Complaint) (*models.Notification, error)) (*models.Complaint, error) {
	var note *models.Notification
	err := s.Storage.Transaction(ctx, func(tx storage.Storage) error {
		c, err := tx.GetComplaintForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("lock complaint: %w", err)
		}
		if c == nil {
			return errNotFound
		}
		note, err = fn(tx, c)
		return err
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update complaint %d: %w", id, err)
	}

	s.Notifications.Publish(ctx, note)
	slog.Info("complaint updated", "complaint_id", id, "admin", caller.Username, "notified", note != nil)
	return s.load(ctx, id)
}

// Stats summarizes every complaint for the admin dashboard.
func (s *Service) Stats(ctx context.Context, caller auth.Identity) (analysis.Stats, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return analysis.Stats{}, err
	}
	byStatus, err := s.Storage.CountComplaintsBy(ctx, storage.GroupByStatus)
	if err != nil {
		return analysis.Stats{}, fmt.Errorf("count by status: %w", err)
	}
	byCategory, err := s.Storage.CountComplaintsBy(ctx, storage.GroupByCategory)
	if err != nil {
		return analysis.Stats{}, fmt.Errorf("count by category: %w", err)
	}
	return analysis.Summarize(byStatus, byCategory), nil
}

// StaffRoster lists the staff members complaints can be assigned to.
func (s *Service) StaffRoster(caller auth.Identity) ([]string, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	return append([]string(nil), s.Staff...), nil
}

func (s *Service) CampusBuildings() []string {
	return append([]string(nil), s.Buildings...)
}
