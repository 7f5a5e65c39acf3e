package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/chepyr/taskboard/internal/apperr"
	"github.com/chepyr/taskboard/internal/db"
	"github.com/chepyr/taskboard/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	msgTaskFieldsRequired = "Title, description and due date are required"
	msgTaskNotFound       = "Task not found"
	msgNotAllowed         = "Not allowed"
	msgAssigneeNotFound   = "Assigned user not found"
	msgTaskDeleted        = "Task deleted"
	msgInvalidPriority    = "Invalid priority"
	msgInvalidStatus      = "Invalid status"
	msgInvalidDueDate     = "Invalid due date"
)

// OptionalID is a JSON field that tells "absent" apart from "present".
// A present null or "" means clear.
type OptionalID struct {
	Set   bool
	Value string
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = ""
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o OptionalID) MarshalJSON() ([]byte, error) {
	if o.Value == "" {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func SetID(id string) OptionalID { return OptionalID{Set: true, Value: id} }

type CreateTaskInput struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	DueDate      string `json:"dueDate"`
	Priority     string `json:"priority,omitempty"`
	AssignedToID string `json:"assignedToId,omitempty"`
}

// UpdateTaskInput holds the fields to overwrite. Nil or empty strings leave
// the stored value alone. There is no way to change the creator.
type UpdateTaskInput struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	DueDate      *string    `json:"dueDate,omitempty"`
	Priority     *string    `json:"priority,omitempty"`
	Status       *string    `json:"status,omitempty"`
	AssignedToID OptionalID `json:"assignedToId,omitzero"`
}

type DeleteResult struct {
	Message string `json:"message"`
}

type TaskService struct {
	tasks       db.TaskRepositoryInterface
	users       db.UserRepositoryInterface
	broadcaster Broadcaster
	log         logrus.FieldLogger
}

func NewTaskService(tasks db.TaskRepositoryInterface, users db.UserRepositoryInterface,
	broadcaster Broadcaster, log logrus.FieldLogger) *TaskService {
	return &TaskService{tasks: tasks, users: users, broadcaster: broadcaster, log: log}
}

func (s *TaskService) Create(ctx context.Context, callerID string, in CreateTaskInput) (models.TaskView, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" || strings.TrimSpace(in.DueDate) == "" {
		return models.TaskView{}, apperr.Validation(msgTaskFieldsRequired)
	}
	dueDate, err := models.ParseDueDate(in.DueDate)
	if err != nil {
		return models.TaskView{}, apperr.Validation(msgInvalidDueDate)
	}
	priority := models.TaskPriorityLow
	if p := strings.TrimSpace(in.Priority); p != "" {
		priority = models.TaskPriority(p)
		if !priority.Valid() {
			return models.TaskView{}, apperr.Validation(msgInvalidPriority)
		}
	}

	task := &models.Task{
		Title:       title,
		Description: description,
		DueDate:     dueDate,
		Priority:    priority,
		Status:      models.TaskStatusPending,
		CreatedBy:   callerID,
	}
	var assigneeName string
	if id := strings.TrimSpace(in.AssignedToID); id != "" {
		if assigneeName, err = s.assigneeName(ctx, id); err != nil {
			return models.TaskView{}, err
		}
		task.AssignedTo = &id
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return models.TaskView{}, translate(err, msgTaskNotFound)
	}
	s.changed("task_created", task.ID, callerID)
	return models.NewTaskView(task, assigneeName), nil
}

// ListMine returns the tasks the caller created or is assigned to, newest
// first, with assignee names resolved in one lookup.
func (s *TaskService) ListMine(ctx context.Context, callerID string) ([]models.TaskView, error) {
	tasks, err := s.tasks.ListByUser(ctx, callerID)
	if err != nil {
		return nil, translate(err, msgTaskNotFound)
	}
	names, err := s.assigneeNames(ctx, tasks)
	if err != nil {
		return nil, err
	}
	views := make([]models.TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, models.NewTaskView(t, lookupName(names, t.AssignedTo)))
	}
	return views, nil
}

// Get returns one task to its creator or assignee.
func (s *TaskService) Get(ctx context.Context, taskID, callerID string) (models.TaskView, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return models.TaskView{}, err
	}
	if !task.IsCreatedBy(callerID) && !task.IsAssignedTo(callerID) {
		return models.TaskView{}, apperr.Forbidden(msgNotAllowed)
	}
	names, err := s.assigneeNames(ctx, []*models.Task{task})
	if err != nil {
		return models.TaskView{}, err
	}
	return models.NewTaskView(task, lookupName(names, task.AssignedTo)), nil
}

// Update lets the creator overwrite the supplied fields.
func (s *TaskService) Update(ctx context.Context, taskID, callerID string, in UpdateTaskInput) (models.TaskView, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return models.TaskView{}, err
	}
	if !task.IsCreatedBy(callerID) {
		return models.TaskView{}, apperr.Forbidden(msgNotAllowed)
	}

	if v := trimmed(in.Title); v != "" {
		task.Title = v
	}
	if v := trimmed(in.Description); v != "" {
		task.Description = v
	}
	if v := trimmed(in.DueDate); v != "" {
		if task.DueDate, err = models.ParseDueDate(v); err != nil {
			return models.TaskView{}, apperr.Validation(msgInvalidDueDate)
		}
	}
	if v := trimmed(in.Priority); v != "" {
		p := models.TaskPriority(v)
		if !p.Valid() {
			return models.TaskView{}, apperr.Validation(msgInvalidPriority)
		}
		task.Priority = p
	}
	if v := trimmed(in.Status); v != "" {
		st := models.TaskStatus(v)
		if !st.Valid() {
			return models.TaskView{}, apperr.Validation(msgInvalidStatus)
		}
		task.Status = st
	}

	var assigneeName string
	if in.AssignedToID.Set {
		id := strings.TrimSpace(in.AssignedToID.Value)
		if id == "" {
			task.AssignedTo = nil
		} else {
			if assigneeName, err = s.assigneeName(ctx, id); err != nil {
				return models.TaskView{}, err
			}
			task.AssignedTo = &id
		}
	} else if task.AssignedTo != nil {
		names, err := s.assigneeNames(ctx, []*models.Task{task})
		if err != nil {
			return models.TaskView{}, err
		}
		assigneeName = lookupName(names, task.AssignedTo)
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return models.TaskView{}, translate(err, msgTaskNotFound)
	}
	s.changed("task_updated", task.ID, callerID)
	return models.NewTaskView(task, assigneeName), nil
}

func (s *TaskService) Delete(ctx context.Context, taskID, callerID string) (DeleteResult, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return DeleteResult{}, err
	}
	if !task.IsCreatedBy(callerID) {
		return DeleteResult{}, apperr.Forbidden(msgNotAllowed)
	}
	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		return DeleteResult{}, translate(err, msgTaskNotFound)
	}
	s.changed("task_deleted", task.ID, callerID)
	return DeleteResult{Message: msgTaskDeleted}, nil
}

// ToggleStatus flips the status for the assignee: Completed goes back to
// Pending, anything else becomes Completed.
func (s *TaskService) ToggleStatus(ctx context.Context, taskID, callerID string) (models.TaskView, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return models.TaskView{}, err
	}
	if !task.IsAssignedTo(callerID) {
		return models.TaskView{}, apperr.Forbidden(msgNotAllowed)
	}
	task.Status = task.Status.Toggled()

	names, err := s.assigneeNames(ctx, []*models.Task{task})
	if err != nil {
		return models.TaskView{}, err
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return models.TaskView{}, translate(err, msgTaskNotFound)
	}
	s.changed("task_status_toggled", task.ID, callerID)
	return models.NewTaskView(task, lookupName(names, task.AssignedTo)), nil
}

func (s *TaskService) load(ctx context.Context, taskID string) (*models.Task, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, apperr.NotFound(msgTaskNotFound)
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, translate(err, msgTaskNotFound)
	}
	return task, nil
}

// assigneeName checks that the user exists and returns its name.
func (s *TaskService) assigneeName(ctx context.Context, id string) (string, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", apperr.Validation(msgAssigneeNotFound)
		}
		return "", translate(err, msgAssigneeNotFound)
	}
	return user.Name, nil
}

func (s *TaskService) assigneeNames(ctx context.Context, tasks []*models.Task) (map[string]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, t := range tasks {
		if t.AssignedTo != nil && !seen[*t.AssignedTo] {
			seen[*t.AssignedTo] = true
			ids = append(ids, *t.AssignedTo)
		}
	}
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, translate(err, msgUserNotFound)
	}
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}

func (s *TaskService) changed(event, taskID, callerID string) {
	s.log.WithFields(logrus.Fields{"event": event, "task_id": taskID, "user_id": callerID}).Info("task changed")
	if s.broadcaster != nil {
		s.broadcaster.BroadcastTasksChanged()
	}
}

func lookupName(names map[string]string, id *string) string {
	if id == nil {
		return ""
	}
	return names[*id]
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
