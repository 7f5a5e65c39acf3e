package dashboard

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chepyr/taskboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func task(id string, status models.TaskStatus, priority models.TaskPriority, due time.Time) models.TaskView {
	return models.TaskView{ID: id, Title: "task " + id, Status: status, Priority: priority, DueDate: due, CreatedBy: "alice"}
}

func ids(tasks []models.TaskView) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestFilter_Apply(t *testing.T) {
	tasks := []models.TaskView{
		task("a", models.TaskStatusPending, models.TaskPriorityHigh, day(2024, 3, 5)),
		task("b", models.TaskStatusCompleted, models.TaskPriorityLow, day(2024, 3, 1)),
		task("c", models.TaskStatusPending, models.TaskPriorityLow, day(2024, 3, 1)),
		task("d", models.TaskStatusReview, models.TaskPriorityHigh, day(2024, 2, 1)),
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all keeps fetch order", Filter{Status: All, Priority: All}, []string{"a", "b", "c", "d"}},
		{"empty means all", Filter{}, []string{"a", "b", "c", "d"}},
		{"status", Filter{Status: "Pending", Priority: All}, []string{"a", "c"}},
		{"priority", Filter{Status: All, Priority: "High"}, []string{"a", "d"}},
		{"both", Filter{Status: "Pending", Priority: "Low"}, []string{"c"}},
		{"sorted stable", Filter{SortByDueDate: true}, []string{"d", "b", "c", "a"}},
		{"no match", Filter{Status: "In Progress"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.filter.Apply(tasks)))
		})
	}
	assert.Equal(t, "a", tasks[0].ID, "input must not be reordered")
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		task models.TaskView
		want bool
	}{
		{"yesterday pending", task("1", models.TaskStatusPending, models.TaskPriorityLow, day(2024, 3, 9)), true},
		{"yesterday in progress", task("2", models.TaskStatusInProgress, models.TaskPriorityLow, day(2024, 3, 9)), true},
		{"today is not overdue", task("3", models.TaskStatusPending, models.TaskPriorityLow, day(2024, 3, 10)), false},
		{"tomorrow", task("4", models.TaskStatusPending, models.TaskPriorityLow, day(2024, 3, 11)), false},
		{"completed never overdue", task("5", models.TaskStatusCompleted, models.TaskPriorityLow, day(2020, 1, 1)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOverdue(tt.task, now))
		})
	}
}

func TestControls(t *testing.T) {
	assigned := task("1", models.TaskStatusPending, models.TaskPriorityLow, day(2024, 3, 9))
	assigned.AssignedTo = &models.UserRef{ID: "bob", Name: "Bob"}
	unassigned := task("2", models.TaskStatusPending, models.TaskPriorityLow, day(2024, 3, 9))

	assert.Equal(t, Actions{CanEdit: true, CanDelete: true}, Controls(assigned, "alice"))
	assert.Equal(t, Actions{CanToggle: true}, Controls(assigned, "bob"))
	assert.Equal(t, Actions{}, Controls(assigned, "carol"))
	assert.Equal(t, Actions{}, Controls(unassigned, ""))
	assert.False(t, Controls(unassigned, "bob").CanToggle)
}

type fakeSource struct {
	calls int
	tasks []models.TaskView
	err   error
}

func (f *fakeSource) ListTasks(ctx context.Context) ([]models.TaskView, error) {
	f.calls++
	return f.tasks, f.err
}

func TestBoard_RefetchesOnlyAfterInvalidate(t *testing.T) {
	src := &fakeSource{tasks: []models.TaskView{{ID: "1"}}}
	board := NewBoard(src)
	ctx := context.Background()

	got, err := board.Tasks(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	_, err = board.Tasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	src.tasks = append(src.tasks, models.TaskView{ID: "2"})
	board.Invalidate()
	got, err = board.Tasks(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, src.calls)
}

func TestBoard_FetchErrorStaysStale(t *testing.T) {
	src := &fakeSource{err: errors.New("offline")}
	board := NewBoard(src)

	_, err := board.Tasks(context.Background())
	require.Error(t, err)

	src.err = nil
	src.tasks = []models.TaskView{{ID: "1"}}
	got, err := board.Tasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 2, src.calls)
}

func TestCreateForm(t *testing.T) {
	form := NewCreateForm()
	assert.Equal(t, "Low", form.Priority)

	form.Title = "T"
	form.Priority = "High"
	form.AssignedToID = "bob"
	in := form.Input()
	assert.Equal(t, "T", in.Title)
	assert.Equal(t, "High", in.Priority)
	assert.Equal(t, "bob", in.AssignedToID)

	form.Reset()
	assert.Equal(t, NewCreateForm(), form)
}

func TestRender(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	overdue := task("t1", models.TaskStatusPending, models.TaskPriorityHigh, day(2024, 3, 1))
	assigned := task("t2", models.TaskStatusCompleted, models.TaskPriorityLow, day(2024, 3, 1))
	assigned.AssignedTo = &models.UserRef{ID: "bob", Name: "Bob"}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, []models.TaskView{overdue, assigned}, "bob", now))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	assert.Contains(t, lines[1], "NA")
	assert.Contains(t, lines[1], "OVERDUE")
	assert.Contains(t, lines[1], "2024-03-01")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[1]), "-"))

	assert.Contains(t, lines[2], "Bob")
	assert.NotContains(t, lines[2], "OVERDUE")
	assert.Contains(t, lines[2], "toggle")
	assert.NotContains(t, lines[2], "edit")
}

func TestRender_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, nil, "alice", time.Now()))
	assert.Equal(t, "No tasks found\n", buf.String())
}
