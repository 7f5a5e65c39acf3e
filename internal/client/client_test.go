package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chepyr/taskboard/internal/auth"
	"github.com/chepyr/taskboard/internal/db"
	"github.com/chepyr/taskboard/internal/handlers"
	"github.com/chepyr/taskboard/internal/logging"
	"github.com/chepyr/taskboard/internal/models"
	"github.com/chepyr/taskboard/internal/realtime"
	"github.com/chepyr/taskboard/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// startServer runs the full API over an in-memory SQLite store.
func startServer(t *testing.T) (*httptest.Server, *realtime.Hub) {
	t.Helper()
	dbx, err := db.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)

	log := logging.Discard()
	users := db.NewUserRepository(dbx)
	tokens := auth.NewTokenManager("client-test-secret", 0)
	hub := realtime.NewHub(log, nil)
	h := &handlers.Handler{
		Auth:    services.NewAuthService(users, auth.NewPasswordHasher(bcrypt.MinCost), tokens, log),
		Tasks:   services.NewTaskService(db.NewTaskRepository(dbx), users, hub, log),
		Tokens:  tokens,
		Hub:     hub,
		Origins: handlers.NewOriginPolicy(nil),
		Log:     log,
	}
	server := httptest.NewServer(handlers.NewRouter(h))
	t.Cleanup(func() {
		hub.Shutdown()
		server.Close()
		dbx.Close()
	})
	return server, hub
}

func TestClient_EndToEnd(t *testing.T) {
	server, _ := startServer(t)
	ctx := context.Background()

	alice := New(server.URL, WithLogger(logging.Discard()))
	bob := New(server.URL, WithLogger(logging.Discard()))

	_, err := alice.Register(ctx, "Alice", "a@x.com", "pw")
	require.NoError(t, err)
	bobUser, err := bob.Register(ctx, "Bob", "b@x.com", "pw")
	require.NoError(t, err)

	_, err = alice.Register(ctx, "Alice", "a@x.com", "pw")
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))

	res, err := alice.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, res.Token, alice.Token())
	_, err = bob.Login(ctx, "b@x.com", "pw")
	require.NoError(t, err)

	users, err := alice.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	task, err := alice.CreateTask(ctx, services.CreateTaskInput{
		Title: "T1", Description: "d", DueDate: "2099-01-01", AssignedToID: bobUser.ID,
	})
	require.NoError(t, err)

	_, err = bob.UpdateTask(ctx, task.ID, services.UpdateTaskInput{Title: ptr("mine")})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "Not allowed", apiErr.Message)

	toggled, err := bob.ToggleStatus(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, toggled.Status)

	got, err := bob.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.AssignedTo.Name)

	updated, err := alice.UpdateTask(ctx, task.ID, services.UpdateTaskInput{Priority: ptr("Urgent")})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPriorityUrgent, updated.Priority)
	assert.Equal(t, bobUser.ID, updated.AssigneeID(), "assignee untouched when not sent")

	list, err := bob.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, alice.DeleteTask(ctx, task.ID))
	_, err = alice.GetTask(ctx, task.ID)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestClient_Subscribe(t *testing.T) {
	server, hub := startServer(t)
	c := New(server.URL, WithLogger(logging.Discard()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var signals atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- c.Subscribe(ctx, "user-1", func() { signals.Add(1) })
	}()

	require.Eventually(t, func() bool { return hub.RoomSize("user-1") == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.BroadcastTasksChanged()
	require.Eventually(t, func() bool { return signals.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"Server error"}`))
	}))
	defer server.Close()

	c := New(server.URL, WithLogger(logging.Discard()))
	for range 4 {
		_, err := c.ListTasks(context.Background())
		assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	}

	_, err := c.ListTasks(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(4), hits.Load())
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Not authorized"}`))
	}))
	defer server.Close()

	c := New(server.URL, WithLogger(logging.Discard()))
	for range 6 {
		_, err := c.ListTasks(context.Background())
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "Not authorized", apiErr.Message)
	}
	assert.Equal(t, int32(6), hits.Load())
}

func TestClient_SendsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := New(server.URL+"/", WithToken("abc"), WithLogger(logging.Discard()))
	tasks, err := c.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, "Bearer abc", gotAuth)
}

func TestSocketURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:5000/socket", New("http://localhost:5000").socketURL())
	assert.Equal(t, "wss://tasks.example/socket", New("https://tasks.example/").socketURL())
}

func TestSession_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	_, err := LoadSession(path)
	require.Error(t, err)

	s := &Session{Token: "tok", UserID: "u1", Name: "Alice", Email: "a@x.com"}
	require.NoError(t, s.Save(path))

	loaded, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)

	require.NoError(t, ClearSession(path))
	require.NoError(t, ClearSession(path))
	_, err = LoadSession(path)
	assert.Error(t, err)
}

func ptr(s string) *string { return &s }
