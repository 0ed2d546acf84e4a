package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"scms/backend/internal/models"
)

// MemoryStore is an in-process Storage used by tests and the "memory" driver.
// Transactions hold the store lock and restore a snapshot on error.
type MemoryStore struct {
	mu  sync.Mutex
	st  memState
	now func() time.Time
}

type memState struct {
	users         map[uint]models.User
	complaints    map[uint]models.Complaint
	comments      []models.Comment
	notifications []models.Notification
	sequences     map[int]int

	nextUserID, nextComplaintID, nextCommentID, nextNotificationID uint
}

func (s memState) clone() memState {
	out := s
	out.users = make(map[uint]models.User, len(s.users))
	for k, v := range s.users {
		out.users[k] = v
	}
	out.complaints = make(map[uint]models.Complaint, len(s.complaints))
	for k, v := range s.complaints {
		out.complaints[k] = v
	}
	out.sequences = make(map[int]int, len(s.sequences))
	for k, v := range s.sequences {
		out.sequences[k] = v
	}
	out.comments = append([]models.Comment(nil), s.comments...)
	out.notifications = append([]models.Notification(nil), s.notifications...)
	return out
}

// NewMemoryStore returns an empty store stamping rows with time.Now.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock lets tests control created_at ordering.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		st: memState{
			users:      make(map[uint]models.User),
			complaints: make(map[uint]models.Complaint),
			sequences:  make(map[int]int),
		},
		now: now,
	}
}

func (m *MemoryStore) ops() *memOps {
	return &memOps{st: &m.st, now: m.now}
}

func (m *MemoryStore) Transaction(ctx context.Context, fn func(tx Storage) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.st.clone()
	if err := fn(m.ops()); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops().CreateUser(ctx, user)
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops().GetUserByID(ctx, id)
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops().GetUserByEmail(ctx, email)
}

func (m *MemoryStore) NextTicketSeq(ctx context.Context, year int, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops().NextTicketSeq(ctx, year, prefix)
}

func (m *MemoryStore) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops().CreateComplaint(ctx, c)
}

func (m *MemoryStore) GetComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops().GetComplaint(ctx, id)
}

func (m *MemoryStore) GetComplaintForUpdate(ctx context.Context, id uint) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops().GetComplaintForUpdate(ctx, id)
}

func (m *MemoryStore) UpdateComplaint(ctx context.Context, id uint, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops().UpdateComplaint(ctx, id, fields)
}

func (m *MemoryStore) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops().ListComplaints(ctx, filter)
}

func (m *MemoryStore) CountComplaintsBy(ctx context.Context, column string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops().CountComplaintsBy(ctx, column)
}

func (m *MemoryStore) AddComment(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops().AddComment(ctx, comment)
}

func (m *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops().CreateNotification(ctx, n)
}

func (m *MemoryStore) ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops().ListNotifications(ctx, userID, limit)
}

func (m *MemoryStore) CountUnread(ctx context.Context, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops().CountUnread(ctx, userID)
}

func (m *MemoryStore) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops().MarkAllRead(ctx, userID)
}

// memOps implements Storage on a state the caller has already locked.
type memOps struct {
	st  *memState
	now func() time.Time
}

func (o *memOps) Transaction(ctx context.Context, fn func(tx Storage) error) error {
	return fn(o)
}

func (o *memOps) CreateUser(ctx context.Context, user *models.User) error {
	if err := user.BeforeCreate(nil); err != nil {
		return err
	}
	for _, u := range o.st.users {
		if u.Email == user.Email {
			return ErrDuplicate
		}
	}
	o.st.nextUserID++
	user.ID = o.st.nextUserID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = o.now()
	}
	o.st.users[user.ID] = *user
	return nil
}

func (o *memOps) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	u, ok := o.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (o *memOps) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	for _, u := range o.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (o *memOps) NextTicketSeq(ctx context.Context, year int, prefix string) (int, error) {
	last, ok := o.st.sequences[year]
	if !ok {
		for _, c := range o.st.complaints {
			if strings.HasPrefix(c.TicketID, prefix) {
				last++
			}
		}
	}
	last++
	o.st.sequences[year] = last
	return last, nil
}

func (o *memOps) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	if err := c.BeforeCreate(nil); err != nil {
		return err
	}
	for _, existing := range o.st.complaints {
		if existing.TicketID == c.TicketID {
			return ErrDuplicate
		}
	}
	if _, ok := o.st.users[c.StudentID]; !ok {
		return fmt.Errorf("complaint references unknown student %d", c.StudentID)
	}
	o.st.nextComplaintID++
	c.ID = o.st.nextComplaintID
	now := o.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	row := *c
	row.Student = models.User{}
	row.Comments = nil
	o.st.complaints[c.ID] = row
	return nil
}

func (o *memOps) hydrate(c models.Complaint) models.Complaint {
	c.Student = o.st.users[c.StudentID]
	c.Comments = nil
	for _, cm := range o.st.comments {
		if cm.ComplaintID == c.ID {
			c.Comments = append(c.Comments, cm)
		}
	}
	return c
}

func (o *memOps) GetComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	c, ok := o.st.complaints[id]
	if !ok {
		return nil, nil
	}
	c = o.hydrate(c)
	return &c, nil
}

func (o *memOps) GetComplaintForUpdate(ctx context.Context, id uint) (*models.Complaint, error) {
	c, ok := o.st.complaints[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (o *memOps) UpdateComplaint(ctx context.Context, id uint, fields map[string]any) error {
	c, ok := o.st.complaints[id]
	if !ok {
		return fmt.Errorf("complaint %d not found", id)
	}
	for k, v := range fields {
		switch k {
		case "status":
			c.Status = v.(string)
		case "assigned_to":
			s := v.(string)
			c.AssignedTo = &s
		case "admin_comment":
			s := v.(string)
			c.AdminComment = &s
		case "image_url":
			s := v.(string)
			c.ImageURL = &s
		case "updated_at":
			c.UpdatedAt = v.(time.Time)
		default:
			return fmt.Errorf("memory store cannot update column %q", k)
		}
	}
	if _, ok := fields["updated_at"]; !ok {
		c.UpdatedAt = o.now()
	}
	o.st.complaints[id] = c
	return nil
}

func (o *memOps) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]models.Complaint, 0)
	for _, c := range o.st.complaints {
		if filter.StudentID != nil && c.StudentID != *filter.StudentID {
			continue
		}
		if filter.Category != "" && c.Category != filter.Category {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		c = o.hydrate(c)
		if term != "" &&
			!strings.Contains(strings.ToLower(c.TicketID), term) &&
			!strings.Contains(strings.ToLower(c.Student.Name), term) &&
			!strings.Contains(strings.ToLower(c.Student.Email), term) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (o *memOps) CountComplaintsBy(ctx context.Context, column string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, c := range o.st.complaints {
		switch column {
		case GroupByStatus:
			out[c.Status]++
		case GroupByCategory:
			out[c.Category]++
		default:
			return nil, fmt.Errorf("unsupported grouping column %q", column)
		}
	}
	return out, nil
}

func (o *memOps) AddComment(ctx context.Context, comment *models.Comment) error {
	if _, ok := o.st.complaints[comment.ComplaintID]; !ok {
		return fmt.Errorf("comment references unknown complaint %d", comment.ComplaintID)
	}
	o.st.nextCommentID++
	comment.ID = o.st.nextCommentID
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = o.now()
	}
	o.st.comments = append(o.st.comments, *comment)
	return nil
}

func (o *memOps) CreateNotification(ctx context.Context, n *models.Notification) error {
	if _, ok := o.st.users[n.UserID]; !ok {
		return fmt.Errorf("notification references unknown user %d", n.UserID)
	}
	o.st.nextNotificationID++
	n.ID = o.st.nextNotificationID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = o.now()
	}
	row := *n
	row.User = models.User{}
	o.st.notifications = append(o.st.notifications, row)
	return nil
}

func (o *memOps) ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	out := make([]models.Notification, 0)
	for _, n := range o.st.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (o *memOps) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var n int64
	for _, row := range o.st.notifications {
		if row.UserID == userID && !row.IsRead {
			n++
		}
	}
	return n, nil
}

func (o *memOps) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	var n int64
	for i := range o.st.notifications {
		if o.st.notifications[i].UserID == userID && !o.st.notifications[i].IsRead {
			o.st.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}
