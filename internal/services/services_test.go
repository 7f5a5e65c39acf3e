package services

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/chepyr/taskboard/internal/auth"
	"github.com/chepyr/taskboard/internal/db"
	"github.com/chepyr/taskboard/internal/logging"
	"github.com/chepyr/taskboard/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type countingBroadcaster struct {
	calls atomic.Int32
}

func (b *countingBroadcaster) BroadcastTasksChanged() {
	b.calls.Add(1)
}

func (b *countingBroadcaster) count() int {
	return int(b.calls.Load())
}

type fixture struct {
	auth        *AuthService
	tasks       *TaskService
	users       *db.UserRepository
	taskRepo    *db.TaskRepository
	broadcaster *countingBroadcaster
}

func newFixture(t *testing.T, secret string) *fixture {
	t.Helper()
	conn, err := db.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	users := db.NewUserRepository(conn)
	taskRepo := db.NewTaskRepository(conn)
	b := &countingBroadcaster{}
	log := logging.Discard()
	return &fixture{
		auth:        NewAuthService(users, auth.NewPasswordHasher(bcrypt.MinCost), auth.NewTokenManager(secret, 0), log),
		tasks:       NewTaskService(taskRepo, users, b, log),
		users:       users,
		taskRepo:    taskRepo,
		broadcaster: b,
	}
}

func (f *fixture) register(t *testing.T, name, email string) models.PublicUser {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: "pw-" + name})
	require.NoError(t, err)
	return u
}

func (f *fixture) createTask(t *testing.T, creator, title, assignee string) models.TaskView {
	t.Helper()
	view, err := f.tasks.Create(context.Background(), creator, CreateTaskInput{
		Title:        title,
		Description:  "d",
		DueDate:      "2099-01-01",
		AssignedToID: assignee,
	})
	require.NoError(t, err)
	return view
}

func strPtr(s string) *string { return &s }
