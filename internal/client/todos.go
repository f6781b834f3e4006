package client

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"tasksync/internal/apperr"
	"tasksync/internal/models"
)

// ListTasks memanggil GET /todos. Server yang memfilter owner/assignee.
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	env, err := c.call(ctx, "list", fiber.MethodGet, "/todos", nil)
	if err != nil {
		return nil, err
	}

	var wire []wireTask
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &wire); err != nil {
			return nil, apperr.Protocol("list", err)
		}
	}

	tasks := make([]models.Task, 0, len(wire))
	for _, w := range wire {
		tasks = append(tasks, w.toModel())
	}
	return tasks, nil
}

// CreateTask memanggil POST /todos dan mengembalikan record hasil server
// (id, timestamp dan owner diisi server).
func (c *Client) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	env, err := c.call(ctx, "create", fiber.MethodPost, "/todos", newCreatePayload(t))
	if err != nil {
		return models.Task{}, err
	}
	return decodeTask("create", env)
}

// UpdateTask memanggil PATCH /todos/:id dengan field yang berubah saja.
func (c *Client) UpdateTask(ctx context.Context, id string, p models.TaskPatch) (models.Task, error) {
	env, err := c.call(ctx, "update", fiber.MethodPatch, "/todos/"+url.PathEscape(id), patchPayload(p))
	if err != nil {
		return models.Task{}, err
	}
	return decodeTask("update", env)
}

// DeleteTask memanggil DELETE /todos/:id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.call(ctx, "delete", fiber.MethodDelete, "/todos/"+url.PathEscape(id), nil)
	return err
}

func decodeTask(op string, env envelope) (models.Task, error) {
	var w wireTask
	if err := json.Unmarshal(env.Data, &w); err != nil {
		return models.Task{}, apperr.Protocol(op, err)
	}
	if w.ID == "" {
		return models.Task{}, apperr.Protocol(op, nil)
	}
	return w.toModel(), nil
}
