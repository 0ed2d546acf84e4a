package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"scms/backend/internal/models"
	"scms/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickingClock returns a clock that advances one second per call so created_at is strictly ordered.
func tickingClock() func() time.Time {
	t := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func seedUser(t *testing.T, s storage.Storage, name, email string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: email, PasswordHash: "x"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedComplaint(t *testing.T, s storage.Storage, studentID uint, ticket, category string) *models.Complaint {
	t.Helper()
	c := &models.Complaint{
		TicketID:    ticket,
		StudentID:   studentID,
		Category:    category,
		Building:    "Hostel",
		RoomNumber:  "12A",
		Description: "Leaking tap",
	}
	require.NoError(t, s.CreateComplaint(context.Background(), c))
	return c
}

func TestMemoryStore_CreateUser_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()

	seedUser(t, s, "Ann", "ann@x.com")
	err := s.CreateUser(ctx, &models.User{Name: "Other", Email: " ANN@x.com", PasswordHash: "y"})

	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestMemoryStore_GetUser(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	u := seedUser(t, s, "Ann", "Ann@X.com")

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", byID.Email)

	byEmail, err := s.GetUserByEmail(ctx, "ANN@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	missing, err := s.GetUserByID(ctx, 999)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStore_NextTicketSeq(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	u := seedUser(t, s, "Ann", "ann@x.com")

	// Legacy rows seed the counter on first use of a year.
	seedComplaint(t, s, u.ID, "CF-2025-0001", "Plumbing")
	seedComplaint(t, s, u.ID, "CF-2025-0002", "Plumbing")

	seq, err := s.NextTicketSeq(ctx, 2025, "CF-2025-")
	require.NoError(t, err)
	assert.Equal(t, 3, seq)

	seq, err = s.NextTicketSeq(ctx, 2025, "CF-2025-")
	require.NoError(t, err)
	assert.Equal(t, 4, seq)

	seq, err = s.NextTicketSeq(ctx, 2026, "CF-2026-")
	require.NoError(t, err)
	assert.Equal(t, 1, seq, "each year has its own counter")
}

func TestMemoryStore_ListComplaints_Filters(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStoreWithClock(tickingClock())
	ann := seedUser(t, s, "Ann Lee", "ann@x.com")
	bob := seedUser(t, s, "Bob Stone", "bob@y.org")

	c1 := seedComplaint(t, s, ann.ID, "CF-2026-0001", "Plumbing")
	c2 := seedComplaint(t, s, bob.ID, "CF-2026-0002", "Electrical")
	c3 := seedComplaint(t, s, ann.ID, "CF-2026-0003", "Electrical")

	tests := []struct {
		name   string
		filter storage.ComplaintFilter
		want   []uint
	}{
		{name: "all newest first", filter: storage.ComplaintFilter{}, want: []uint{c3.ID, c2.ID, c1.ID}},
		{name: "owner only", filter: storage.ComplaintFilter{StudentID: &ann.ID}, want: []uint{c3.ID, c1.ID}},
		{name: "category", filter: storage.ComplaintFilter{Category: "Electrical"}, want: []uint{c3.ID, c2.ID}},
		{name: "status", filter: storage.ComplaintFilter{Status: models.StatusPending}, want: []uint{c3.ID, c2.ID, c1.ID}},
		{name: "search ticket", filter: storage.ComplaintFilter{Search: "cf-2026-0002"}, want: []uint{c2.ID}},
		{name: "search name", filter: storage.ComplaintFilter{Search: "STONE"}, want: []uint{c2.ID}},
		{name: "search email", filter: storage.ComplaintFilter{Search: "@x.com"}, want: []uint{c3.ID, c1.ID}},
		{name: "owner and search", filter: storage.ComplaintFilter{StudentID: &ann.ID, Search: "bob"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListComplaints(ctx, tt.filter)
			require.NoError(t, err)

			var ids []uint
			for _, c := range got {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMemoryStore_GetComplaint_Hydrates(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStoreWithClock(tickingClock())
	ann := seedUser(t, s, "Ann Lee", "ann@x.com")
	c := seedComplaint(t, s, ann.ID, "CF-2026-0001", "Plumbing")

	require.NoError(t, s.AddComment(ctx, &models.Comment{ComplaintID: c.ID, Author: "Admin", Text: "first"}))
	require.NoError(t, s.AddComment(ctx, &models.Comment{ComplaintID: c.ID, Author: "Admin", Text: "second"}))

	got, err := s.GetComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", got.Student.Name)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "first", got.Comments[0].Text)
	assert.Equal(t, "second", got.Comments[1].Text)
	assert.Equal(t, models.StatusPending, got.Status)

	missing, err := s.GetComplaint(ctx, 42)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStore_UpdateComplaint(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStoreWithClock(tickingClock())
	ann := seedUser(t, s, "Ann", "ann@x.com")
	c := seedComplaint(t, s, ann.ID, "CF-2026-0001", "Plumbing")

	later := c.CreatedAt.Add(time.Hour)
	err := s.UpdateComplaint(ctx, c.ID, map[string]any{
		"status":      models.StatusResolved,
		"assigned_to": "David Lee",
		"updated_at":  later,
	})
	require.NoError(t, err)

	got, err := s.GetComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status)
	assert.Equal(t, "David Lee", *got.AssignedTo)
	assert.Equal(t, later, got.UpdatedAt)

	assert.Error(t, s.UpdateComplaint(ctx, c.ID, map[string]any{"ticket_id": "CF-1"}))
	assert.Error(t, s.UpdateComplaint(ctx, 99, map[string]any{"status": models.StatusPending}))
}

func TestMemoryStore_CountComplaintsBy(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	ann := seedUser(t, s, "Ann", "ann@x.com")
	seedComplaint(t, s, ann.ID, "CF-2026-0001", "Plumbing")
	c := seedComplaint(t, s, ann.ID, "CF-2026-0002", "Plumbing")
	seedComplaint(t, s, ann.ID, "CF-2026-0003", "Electrical")
	require.NoError(t, s.UpdateComplaint(ctx, c.ID, map[string]any{"status": models.StatusResolved}))

	byStatus, err := s.CountComplaintsBy(ctx, storage.GroupByStatus)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{models.StatusPending: 2, models.StatusResolved: 1}, byStatus)

	byCategory, err := s.CountComplaintsBy(ctx, storage.GroupByCategory)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Plumbing": 2, "Electrical": 1}, byCategory)
}

func TestMemoryStore_Notifications(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStoreWithClock(tickingClock())
	ann := seedUser(t, s, "Ann", "ann@x.com")
	bob := seedUser(t, s, "Bob", "bob@x.com")

	for i := 0; i < 25; i++ {
		require.NoError(t, s.CreateNotification(ctx, &models.Notification{UserID: ann.ID, Message: "m"}))
	}
	require.NoError(t, s.CreateNotification(ctx, &models.Notification{UserID: bob.ID, Message: "other"}))

	list, err := s.ListNotifications(ctx, ann.ID, 20)
	require.NoError(t, err)
	require.Len(t, list, 20)
	assert.True(t, list[0].CreatedAt.After(list[19].CreatedAt), "newest first")

	unread, err := s.CountUnread(ctx, ann.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 25, unread)

	flipped, err := s.MarkAllRead(ctx, ann.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 25, flipped)

	flipped, err = s.MarkAllRead(ctx, ann.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, flipped, "second call flips nothing")

	bobUnread, err := s.CountUnread(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, bobUnread, "other users are untouched")
}

func TestMemoryStore_TransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	ann := seedUser(t, s, "Ann", "ann@x.com")
	c := seedComplaint(t, s, ann.ID, "CF-2026-0001", "Plumbing")

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx storage.Storage) error {
		require.NoError(t, tx.UpdateComplaint(ctx, c.ID, map[string]any{"status": models.StatusResolved}))
		require.NoError(t, tx.AddComment(ctx, &models.Comment{ComplaintID: c.ID, Author: "Admin", Text: "x"}))
		require.NoError(t, tx.CreateNotification(ctx, &models.Notification{UserID: ann.ID, Message: "x"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Empty(t, got.Comments)

	unread, err := s.CountUnread(ctx, ann.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestMemoryStore_TransactionCommits(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	ann := seedUser(t, s, "Ann", "ann@x.com")

	err := s.Transaction(ctx, func(tx storage.Storage) error {
		return tx.CreateNotification(ctx, &models.Notification{UserID: ann.ID, Message: "x"})
	})
	require.NoError(t, err)

	unread, err := s.CountUnread(ctx, ann.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}
