package monitor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hort-presence-backend/config"
	"hort-presence-backend/internal/model"
	"hort-presence-backend/internal/notification"
	"hort-presence-backend/internal/session"
	"hort-presence-backend/internal/store"
)

// mockStore is a mock implementation of the store.Store interface.
type mockStore struct {
	UpsertGroupsAndStudentsFunc func(ctx context.Context, rows []session.StudentLocation) error
	UpdatePresenceFunc          func(ctx context.Context, now time.Time, rows []session.StudentLocation) ([]string, error)
	SyncUnclaimedFunc           func(ctx context.Context, now time.Time, unclaimed []session.ActiveGroup) ([]string, error)
	DBFunc                      func() *gorm.DB
}

func (m *mockStore) UpsertGroupsAndStudents(ctx context.Context, rows []session.StudentLocation) error {
	return m.UpsertGroupsAndStudentsFunc(ctx, rows)
}

func (m *mockStore) UpdatePresence(ctx context.Context, now time.Time, rows []session.StudentLocation) ([]string, error) {
	return m.UpdatePresenceFunc(ctx, now, rows)
}

func (m *mockStore) SyncUnclaimed(ctx context.Context, now time.Time, unclaimed []session.ActiveGroup) ([]string, error) {
	return m.SyncUnclaimedFunc(ctx, now, unclaimed)
}

func (m *mockStore) DB() *gorm.DB {
	return m.DBFunc()
}

func TestMonitor_Integration(t *testing.T) {
	// --- Setup ---
	var wg sync.WaitGroup
	wg.Add(1) // We expect one unclaimed session to be dispatched

	// Mock session backend
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/active/groups" && strings.Contains(r.URL.RawQuery, "page="):
			fmt.Fprint(w, `{"data": [
				{"id": 11, "group_id": 2, "group_name": "Igel", "room_id": 5, "start_time": "2026-08-23T08:00:00Z"}
			]}`)
		case r.URL.Path == "/active/groups/11/visits/display":
			fmt.Fprint(w, `[
				{"student_id": 42, "display_name": "Mia K.", "group_id": 2, "group_name": "Igel", "current_location": "Anwesend - Raum 101", "sick": false},
				{"student_id": 43, "display_name": "Tom B.", "group_id": 2, "group_name": "Igel", "current_location": "Zuhause", "sick": false}
			]`)
		case r.URL.Path == "/active/groups/unclaimed":
			fmt.Fprint(w, `{"data": [
				{"id": 11, "group_id": 2, "group_name": "Igel", "room_id": 5, "start_time": "2026-08-23T08:00:00Z"}
			]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	// Mock store
	var persistedRows []session.StudentLocation
	mockStore := &mockStore{
		UpsertGroupsAndStudentsFunc: func(ctx context.Context, rows []session.StudentLocation) error {
			return nil // Do nothing
		},
		UpdatePresenceFunc: func(ctx context.Context, now time.Time, rows []session.StudentLocation) ([]string, error) {
			persistedRows = rows
			return []string{"42"}, nil
		},
		SyncUnclaimedFunc: func(ctx context.Context, now time.Time, unclaimed []session.ActiveGroup) ([]string, error) {
			// Simulate that session 11 is newly unclaimed and needs an alert
			assert.Len(t, unclaimed, 1)
			return []string{"11"}, nil
		},
		DBFunc: func() *gorm.DB {
			return nil // Not needed for this test
		},
	}

	cfg := &config.Config{
		Backend: config.BackendConfig{
			BaseURL:  server.URL,
			Timezone: "Europe/Berlin",
			PageSize: 10,
		},
		WorkerPool: config.WorkerPoolConfig{
			Size: 1,
		},
	}

	backend := session.NewClient(&cfg.Backend, server.Client())
	service := NewService(cfg, mockStore, backend)

	// Replace the real worker pool with a mock one
	mockWorkerPool := notification.NewWorkerPool(1, nil, nil)
	service.workerPool = mockWorkerPool

	// Listen for dispatched jobs without starting the workers
	var dispatched notification.Job
	go func() {
		for job := range mockWorkerPool.Jobs() {
			dispatched = job
			wg.Done()
		}
	}()

	// --- Execution ---
	service.PollOnce(context.Background())

	// --- Verification ---
	wg.Wait() // Wait for the job to be dispatched
	assert.Equal(t, notification.Job{ActiveGroupID: "11", GroupID: "2"}, dispatched,
		"the newly unclaimed session should be dispatched to the worker pool")
	assert.Len(t, persistedRows, 2, "all display rows should reach the store")
	assert.Equal(t, "42", persistedRows[0].StudentID)
}

// One group's display feed failing must not close out that group's presence
// spans: the partial snapshot is discarded and the open rows survive.
func TestMonitor_PartialFetchFailureKeepsPresence(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Group{},
		&model.Student{},
		&model.PresenceOpen{},
		&model.PresenceHistory{},
		&model.UnclaimedAlert{},
	))

	// Student 99 belongs to group 12, whose feed will fail this cycle.
	require.NoError(t, db.Create(&model.PresenceOpen{
		StudentID: "99", ObservedAt: time.Now().UTC().Add(-10 * time.Minute),
		RawLocation: "Anwesend - Raum 202", Kind: "present_in_room", RoomName: "Raum 202",
	}).Error)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/active/groups" && strings.Contains(r.URL.RawQuery, "page="):
			fmt.Fprint(w, `{"data": [
				{"id": 11, "group_id": 2, "group_name": "Igel", "room_id": 5, "start_time": "2026-08-23T08:00:00Z"},
				{"id": 12, "group_id": 3, "group_name": "Fuchs", "room_id": 6, "start_time": "2026-08-23T08:00:00Z"}
			]}`)
		case r.URL.Path == "/active/groups/11/visits/display":
			fmt.Fprint(w, `[
				{"student_id": 42, "display_name": "Mia K.", "group_id": 2, "group_name": "Igel", "current_location": "Anwesend - Raum 101", "sick": false}
			]`)
		case r.URL.Path == "/active/groups/12/visits/display":
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
		case r.URL.Path == "/active/groups/unclaimed":
			fmt.Fprint(w, `{"data": []}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := &config.Config{
		Backend:    config.BackendConfig{BaseURL: server.URL, Timezone: "Europe/Berlin"},
		WorkerPool: config.WorkerPoolConfig{Size: 1},
	}

	appStore := store.NewGormStore(db)
	service := NewService(cfg, appStore, session.NewClient(&cfg.Backend, server.Client()))
	service.PollOnce(context.Background())

	var openCount int64
	db.Model(&model.PresenceOpen{}).Where("student_id = ?", "99").Count(&openCount)
	assert.Equal(t, int64(1), openCount, "student of the failed group must stay tracked")

	var archivedCount int64
	db.Model(&model.PresenceHistory{}).Count(&archivedCount)
	assert.Zero(t, archivedCount, "no span may be archived from a partial snapshot")
}

func TestMonitor_AbortsWhenListingFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	storeCalled := false
	mockStore := &mockStore{
		UpsertGroupsAndStudentsFunc: func(ctx context.Context, rows []session.StudentLocation) error {
			storeCalled = true
			return nil
		},
		UpdatePresenceFunc: func(ctx context.Context, now time.Time, rows []session.StudentLocation) ([]string, error) {
			storeCalled = true
			return nil, nil
		},
		SyncUnclaimedFunc: func(ctx context.Context, now time.Time, unclaimed []session.ActiveGroup) ([]string, error) {
			storeCalled = true
			return nil, nil
		},
		DBFunc: func() *gorm.DB { return nil },
	}

	cfg := &config.Config{
		Backend:    config.BackendConfig{BaseURL: server.URL, Timezone: "Europe/Berlin"},
		WorkerPool: config.WorkerPoolConfig{Size: 1},
	}

	service := NewService(cfg, mockStore, session.NewClient(&cfg.Backend, server.Client()))
	service.PollOnce(context.Background())

	assert.False(t, storeCalled, "a failed fetch must not touch stored presence data")
}
