// Package dashboard is the view model behind the task list: filtering,
// sorting, overdue marking, per-task actions and a refetching cache.
package dashboard

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/chepyr/taskboard/internal/models"
	"github.com/chepyr/taskboard/internal/services"
)

// All disables a filter.
const All = "All"

type Filter struct {
	Status        string
	Priority      string
	SortByDueDate bool
}

// Apply returns the matching tasks. Fetch order is kept unless SortByDueDate
// is set, in which case tasks are stably sorted by ascending due date.
func (f Filter) Apply(tasks []models.TaskView) []models.TaskView {
	out := make([]models.TaskView, 0, len(tasks))
	for _, t := range tasks {
		if f.matches(t) {
			out = append(out, t)
		}
	}
	if f.SortByDueDate {
		slices.SortStableFunc(out, func(a, b models.TaskView) int {
			return a.DueDate.Compare(b.DueDate)
		})
	}
	return out
}

func (f Filter) matches(t models.TaskView) bool {
	if f.Status != "" && f.Status != All && string(t.Status) != f.Status {
		return false
	}
	if f.Priority != "" && f.Priority != All && string(t.Priority) != f.Priority {
		return false
	}
	return true
}

// IsOverdue compares calendar dates only, in now's location. Completed tasks
// are never overdue.
func IsOverdue(t models.TaskView, now time.Time) bool {
	if t.Status == models.TaskStatusCompleted {
		return false
	}
	return startOfDay(t.DueDate.In(now.Location())).Before(startOfDay(now))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type Actions struct {
	CanEdit   bool
	CanDelete bool
	CanToggle bool
}

// Controls reports what userID may do with t: the creator edits and
// deletes, the assignee toggles.
func Controls(t models.TaskView, userID string) Actions {
	isCreator := userID != "" && t.CreatedBy == userID
	return Actions{
		CanEdit:   isCreator,
		CanDelete: isCreator,
		CanToggle: userID != "" && t.AssigneeID() == userID,
	}
}

type TaskSource interface {
	ListTasks(ctx context.Context) ([]models.TaskView, error)
}

// Board caches the task list. A change signal calls Invalidate and the next
// Tasks call refetches.
type Board struct {
	source TaskSource

	mu    sync.Mutex
	tasks []models.TaskView
	stale bool
}

func NewBoard(source TaskSource) *Board {
	return &Board{source: source, stale: true}
}

func (b *Board) Invalidate() {
	b.mu.Lock()
	b.stale = true
	b.mu.Unlock()
}

func (b *Board) Tasks(ctx context.Context) ([]models.TaskView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stale {
		tasks, err := b.source.ListTasks(ctx)
		if err != nil {
			return nil, err
		}
		b.tasks = tasks
		b.stale = false
	}
	return slices.Clone(b.tasks), nil
}

// CreateForm holds the new-task inputs. Priority starts at Low.
type CreateForm struct {
	Title        string
	Description  string
	DueDate      string
	Priority     string
	AssignedToID string
}

func NewCreateForm() CreateForm {
	return CreateForm{Priority: string(models.TaskPriorityLow)}
}

func (f *CreateForm) Reset() {
	*f = NewCreateForm()
}

func (f CreateForm) Input() services.CreateTaskInput {
	return services.CreateTaskInput{
		Title:        f.Title,
		Description:  f.Description,
		DueDate:      f.DueDate,
		Priority:     f.Priority,
		AssignedToID: f.AssignedToID,
	}
}
