package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/chepyr/taskboard/internal/models"
	"github.com/chepyr/taskboard/internal/services"
)

type LoginResult struct {
	Message string            `json:"message"`
	Token   string            `json:"token"`
	User    models.PublicUser `json:"user"`
}

func (c *Client) Register(ctx context.Context, name, email, password string) (models.PublicUser, error) {
	var out struct {
		User models.PublicUser `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/register", services.RegisterInput{
		Name: name, Email: email, Password: password,
	}, &out)
	return out.User, err
}

// Login stores the returned token on the client for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", services.LoginInput{
		Email: email, Password: password,
	}, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	var out []models.UserSummary
	err := c.do(ctx, http.MethodGet, "/api/users", nil, &out)
	return out, err
}

func (c *Client) ListTasks(ctx context.Context) ([]models.TaskView, error) {
	var out []models.TaskView
	err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &out)
	return out, err
}

func (c *Client) GetTask(ctx context.Context, id string) (models.TaskView, error) {
	var out models.TaskView
	err := c.do(ctx, http.MethodGet, taskPath(id), nil, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, in services.CreateTaskInput) (models.TaskView, error) {
	var out models.TaskView
	err := c.do(ctx, http.MethodPost, "/api/tasks", in, &out)
	return out, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, in services.UpdateTaskInput) (models.TaskView, error) {
	var out models.TaskView
	err := c.do(ctx, http.MethodPut, taskPath(id), in, &out)
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func (c *Client) ToggleStatus(ctx context.Context, id string) (models.TaskView, error) {
	var out models.TaskView
	err := c.do(ctx, http.MethodPatch, taskPath(id)+"/toggle-status", nil, &out)
	return out, err
}

func taskPath(id string) string {
	return "/api/tasks/" + url.PathEscape(id)
}
