package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/chepyr/taskboard/internal/models"
	"github.com/google/uuid"
)

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, title, description, due_date, priority, status, assigned_to, created_by, created_at, updated_at`

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = task.CreatedAt

	query := `INSERT INTO tasks (` + taskColumns + `)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(
		ctx, query, task.ID, task.Title, task.Description, task.DueDate.UTC(),
		string(task.Priority), string(task.Status), nullableString(task.AssignedTo),
		task.CreatedBy, task.CreatedAt, task.UpdatedAt)
	return err
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.db.QueryRowContext(ctx, query, id))
}

// Update overwrites every mutable field. created_by and created_at are never written.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()

	query := `UPDATE tasks SET title = $1, description = $2, due_date = $3, priority = $4,
	 status = $5, assigned_to = $6, updated_at = $7 WHERE id = $8`
	res, err := r.db.ExecContext(
		ctx, query, task.Title, task.Description, task.DueDate.UTC(), string(task.Priority),
		string(task.Status), nullableString(task.AssignedTo), task.UpdatedAt, task.ID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
	 WHERE created_by = $1 OR assigned_to = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var (
		priority, status string
		assignedTo       sql.NullString
	)
	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &task.DueDate, &priority, &status,
		&assignedTo, &task.CreatedBy, &task.CreatedAt, &task.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	task.Priority = models.TaskPriority(priority)
	task.Status = models.TaskStatus(status)
	if assignedTo.Valid {
		id := assignedTo.String
		task.AssignedTo = &id
	}
	task.DueDate = task.DueDate.UTC()
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	return task, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
