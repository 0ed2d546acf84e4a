package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"scms/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("storage: duplicate key")

// Storage is the persistence boundary used by every service.
// Lookups return (nil, nil) when the row does not exist.
type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	NextTicketSeq(ctx context.Context, year int, prefix string) (int, error)
	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	GetComplaint(ctx context.Context, id uint) (*models.Complaint, error)
	GetComplaintForUpdate(ctx context.Context, id uint) (*models.Complaint, error)
	UpdateComplaint(ctx context.Context, id uint, fields map[string]any) error
	ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error)
	CountComplaintsBy(ctx context.Context, column string) (map[string]int64, error)
	AddComment(ctx context.Context, comment *models.Comment) error

	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)

	// Transaction runs fn against a Storage bound to one database transaction.
	// fn returning an error rolls everything back.
	Transaction(ctx context.Context, fn func(tx Storage) error) error
}

// ComplaintFilter narrows ListComplaints. Zero values mean "any".
type ComplaintFilter struct {
	StudentID *uint
	Category  string
	Status    string
	Search    string
}

// Grouping columns accepted by CountComplaintsBy.
const (
	GroupByStatus   = "status"
	GroupByCategory = "category"
)

type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

// Migrate creates or updates every table.
func (s *Service) Migrate(ctx context.Context) error {
	return s.db(ctx).AutoMigrate(models.All()...)
}

func (s *Service) Transaction(ctx context.Context, fn func(tx Storage) error) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Service{DB: tx})
	})
}

func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	err := s.db(ctx).Omit(clause.Associations).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (s *Service) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

const nextTicketSeqSQL = `INSERT INTO ticket_sequences (year, last_value)
VALUES (?, (SELECT COUNT(*) FROM complaints WHERE ticket_id LIKE ?) + 1)
ON CONFLICT (year) DO UPDATE SET last_value = ticket_sequences.last_value + 1
RETURNING last_value`

// NextTicketSeq atomically advances the counter for year.
// The first call of a year seeds it from the complaints already carrying prefix.
func (s *Service) NextTicketSeq(ctx context.Context, year int, prefix string) (int, error) {
	var seq int
	if err := s.db(ctx).Raw(nextTicketSeqSQL, year, prefix+"%").Scan(&seq).Error; err != nil {
		return 0, fmt.Errorf("advance ticket sequence: %w", err)
	}
	return seq, nil
}

func (s *Service) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	err := s.db(ctx).Omit(clause.Associations).Create(complaint).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	if err != nil {
		slog.Error("failed to save complaint", "ticket_id", complaint.TicketID, "err", err)
	}
	return err
}

func (s *Service) withRelations(ctx context.Context) *gorm.DB {
	return s.db(ctx).
		Preload("Student").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC, comments.id ASC")
		})
}

func (s *Service) GetComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	var c models.Complaint
	err := s.withRelations(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetComplaintForUpdate reads the bare row with SELECT ... FOR UPDATE.
// Only meaningful inside Transaction.
func (s *Service) GetComplaintForUpdate(ctx context.Context, id uint) (*models.Complaint, error) {
	var c models.Complaint
	err := s.db(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) UpdateComplaint(ctx context.Context, id uint, fields map[string]any) error {
	res := s.db(ctx).Model(&models.Complaint{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// escapeLike escapes the LIKE wildcards in a user supplied term.
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

func (s *Service) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	q := s.withRelations(ctx).
		Model(&models.Complaint{}).
		Select("complaints.*").
		Joins("JOIN users ON users.id = complaints.student_id")

	if filter.StudentID != nil {
		q = q.Where("complaints.student_id = ?", *filter.StudentID)
	}
	if filter.Category != "" {
		q = q.Where("complaints.category = ?", filter.Category)
	}
	if filter.Status != "" {
		q = q.Where("complaints.status = ?", filter.Status)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		q = q.Where("LOWER(complaints.ticket_id) LIKE ? OR LOWER(users.name) LIKE ? OR LOWER(users.email) LIKE ?", like, like, like)
	}

	var out []models.Complaint
	if err := q.Order("complaints.created_at DESC, complaints.id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type groupCount struct {
	GroupKey string
	Count    int64
}

func (s *Service) CountComplaintsBy(ctx context.Context, column string) (map[string]int64, error) {
	if column != GroupByStatus && column != GroupByCategory {
		return nil, fmt.Errorf("unsupported grouping column %q", column)
	}
	var rows []groupCount
	err := s.db(ctx).Model(&models.Complaint{}).
		Select(column + " AS group_key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.GroupKey] = r.Count
	}
	return out, nil
}

func (s *Service) AddComment(ctx context.Context, comment *models.Comment) error {
	return s.db(ctx).Create(comment).Error
}

func (s *Service) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.db(ctx).Omit(clause.Associations).Create(n).Error
}

func (s *Service) ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	var out []models.Notification
	err := s.db(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

func (s *Service) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
