package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"scms/backend/internal/auth"
	"scms/backend/internal/complaint"
	"scms/backend/internal/models"
	"scms/backend/internal/notification"
	"scms/backend/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCLI(t *testing.T) (*cli, *storage.MemoryStore, *models.Complaint) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	student := &models.User{Name: "Ann", Email: "ann@uni.edu", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, student))

	svc := complaint.NewService(store, nil, notification.NewService(store, nil, nil))
	c, err := svc.Submit(ctx, auth.FromUser(student), complaint.SubmitInput{
		Category: "Electrical", Building: "Canteen", RoomNumber: "G1", Description: "Lights flicker",
	})
	require.NoError(t, err)

	return &cli{
		complaints: svc,
		admin:      auth.AdminAccount{Username: "admin"}.Identity(),
	}, store, c
}

func run(t *testing.T, a *cli, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(a)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatusCommand(t *testing.T) {
	a, store, c := newTestCLI(t)

	out, err := run(t, a, "status", "1", "in", "progress")
	require.NoError(t, err)
	assert.Contains(t, out, c.TicketID)
	assert.Contains(t, out, "In Progress")

	notes, err := store.ListNotifications(context.Background(), c.StudentID, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
}

func TestAssignAndCommentCommands(t *testing.T) {
	a, store, c := newTestCLI(t)

	out, err := run(t, a, "assign", "1", "Maria", "Garcia")
	require.NoError(t, err)
	assert.Contains(t, out, "assigned to Maria Garcia")

	_, err = run(t, a, "comment", "1", "Electrician", "booked")
	require.NoError(t, err)

	got, err := store.GetComplaint(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AdminComment)
	assert.Equal(t, "Electrician booked", *got.AdminComment)
}

func TestListAndStatsCommands(t *testing.T) {
	a, _, c := newTestCLI(t)

	out, err := run(t, a, "list", "--category", "Electrical")
	require.NoError(t, err)
	assert.Contains(t, out, c.TicketID)
	assert.Contains(t, out, "ann@uni.edu")

	out, err = run(t, a, "stats", "--json")
	require.NoError(t, err)
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.EqualValues(t, 1, stats["total"])
	assert.EqualValues(t, 1, stats["pending"])
}

func TestStaffCommand(t *testing.T) {
	a, _, _ := newTestCLI(t)

	out, err := run(t, a, "staff")

	require.NoError(t, err)
	assert.Contains(t, out, "John Smith")
	assert.Contains(t, out, "James Brown")
}

func TestCommandErrors(t *testing.T) {
	a, _, _ := newTestCLI(t)

	_, err := run(t, a, "status", "abc", "Resolved")
	assert.EqualError(t, err, `invalid complaint id "abc"`)

	_, err = run(t, a, "status", "99", "Resolved")
	assert.Error(t, err)

	_, err = run(t, a, "status", "1", "Closed")
	assert.Error(t, err)

	_, err = run(t, a, "assign", "1")
	assert.Error(t, err)
}

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()
	sub := rdb.Subscribe(ctx, "test:notifications")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	redisPublisher{rdb: rdb, channel: "test:notifications"}.Publish(ctx, models.Notification{UserID: 4, Message: "hi"})

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var ev models.NotificationEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
	assert.Equal(t, "notification", ev.Type)
	assert.EqualValues(t, 4, ev.UserID)
	assert.Equal(t, "hi", ev.Notification.Message)
}
