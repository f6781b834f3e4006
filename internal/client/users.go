package client

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"tasksync/internal/apperr"
	"tasksync/internal/models"
)

type wireUser struct {
	ID             flexString  `json:"id"`
	Email          string      `json:"email"`
	Role           models.Role `json:"role"`
	PendingRequest bool        `json:"pendingRequest"`
	ProfileImage   string      `json:"profileImage,omitempty"`
}

func (w wireUser) toModel() models.User {
	return models.User{
		ID:             string(w.ID),
		Email:          w.Email,
		Role:           w.Role,
		PendingRequest: w.PendingRequest,
		ProfileImage:   w.ProfileImage,
	}
}

// ListUsers memanggil GET /users (khusus superadmin).
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	env, err := c.call(ctx, "list users", fiber.MethodGet, "/users", nil)
	if err != nil {
		return nil, err
	}
	var wire []wireUser
	if err := json.Unmarshal(env.Data, &wire); err != nil {
		return nil, apperr.Protocol("list users", err)
	}
	users := make([]models.User, 0, len(wire))
	for _, w := range wire {
		users = append(users, w.toModel())
	}
	return users, nil
}

// RequestPromotion memanggil POST /users/promotion untuk user yang login.
func (c *Client) RequestPromotion(ctx context.Context) (models.User, error) {
	env, err := c.call(ctx, "request promotion", fiber.MethodPost, "/users/promotion", nil)
	if err != nil {
		return models.User{}, err
	}
	return decodeUser("request promotion", env)
}

// SetRole memanggil PATCH /users/:id/role (khusus superadmin).
func (c *Client) SetRole(ctx context.Context, userID string, role models.Role) (models.User, error) {
	body := map[string]string{"role": string(role)}
	env, err := c.call(ctx, "set role", fiber.MethodPatch, "/users/"+url.PathEscape(userID)+"/role", body)
	if err != nil {
		return models.User{}, err
	}
	return decodeUser("set role", env)
}

func decodeUser(op string, env envelope) (models.User, error) {
	var w wireUser
	if err := json.Unmarshal(env.Data, &w); err != nil {
		return models.User{}, apperr.Protocol(op, err)
	}
	return w.toModel(), nil
}
