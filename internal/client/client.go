// Package client berbicara dengan remote store lewat kontrak REST
// (auth, todos, images, users). Semua panggilan dibatasi timeout tetap dan
// membawa header Authorization: Bearer <token> bila ada sesi.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"tasksync/internal/apperr"
	"tasksync/internal/models"
	"tasksync/pkg/logger"
)

// DefaultTimeout adalah batas waktu per panggilan.
const DefaultTimeout = 30 * time.Second

// TokenSource memberi token bearer untuk setiap panggilan.
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL string
	timeout time.Duration
	tokens  TokenSource
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

// SetTokenSource memasang penyedia token (biasanya session store).
func (c *Client) SetTokenSource(ts TokenSource) { c.tokens = ts }

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// envelope adalah bentuk respons remote store.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// errorMessage mengambil pesan dari field error yang bisa berupa string
// atau object {message} / {error}.
func (e envelope) errorMessage() string {
	if len(e.Error) > 0 {
		var s string
		if err := json.Unmarshal(e.Error, &s); err == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(e.Error, &obj); err == nil {
			if obj.Message != "" {
				return obj.Message
			}
			if obj.Error != "" {
				return obj.Error
			}
		}
	}
	return e.Message
}

// prepare menyiapkan agent dengan method, URL, timeout dan header auth.
func (c *Client) prepare(method, path string) *fiber.Agent {
	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	a.Timeout(c.timeout)
	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if tok := c.token(); tok != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+tok)
	}
	return a
}

// send mengeksekusi agent dan menormalkan hasilnya ke taksonomi apperr.
// Agent fasthttp tidak bisa dibatalkan di tengah jalan: ctx hanya dicek
// sebelum request dikirim, dan deadline ctx yang lebih dekat memperpendek
// timeout.
func (c *Client) send(ctx context.Context, op string, a *fiber.Agent) (envelope, error) {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(a)
		return envelope{}, apperr.Transport(op, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < c.timeout {
			a.Timeout(left)
		}
	}
	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return envelope{}, apperr.Transport(op, err)
	}

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		logger.ErrorLogger.Error("Remote call failed", zap.String("op", op), zap.Errors("errors", errs))
		return envelope{}, apperr.Transport(op, errors.Join(errs...))
	}
	logger.ContextLogger.Debug("Remote call", zap.String("op", op), zap.Int("status", code))

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return envelope{}, apperr.Protocol(op, err)
	}
	if !env.Success {
		return env, apperr.Application(op, env.errorMessage())
	}
	return env, nil
}

func (c *Client) call(ctx context.Context, op, method, path string, body any) (envelope, error) {
	a := c.prepare(method, path)
	if body != nil {
		a.JSON(body)
	}
	return c.send(ctx, op, a)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authData struct {
	Token string `json:"token"`
	User  struct {
		ID    flexString  `json:"id"`
		Email string      `json:"email"`
		Role  models.Role `json:"role"`
	} `json:"user"`
}

// Login memanggil POST /auth/login.
func (c *Client) Login(ctx context.Context, email, password string) (models.User, string, error) {
	return c.auth(ctx, "login", "/auth/login", email, password)
}

// Register memanggil POST /auth/register. Bentuk respons sama dengan login.
func (c *Client) Register(ctx context.Context, email, password string) (models.User, string, error) {
	return c.auth(ctx, "register", "/auth/register", email, password)
}

func (c *Client) auth(ctx context.Context, op, path, email, password string) (models.User, string, error) {
	env, err := c.call(ctx, op, fiber.MethodPost, path, credentials{Email: email, Password: password})
	if err != nil {
		return models.User{}, "", err
	}

	var data authData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		return models.User{}, "", apperr.Protocol(op, err)
	}

	user := models.User{
		ID:    string(data.User.ID),
		Email: data.User.Email,
		Role:  data.User.Role,
	}
	if user.Email == "" {
		user.Email = email
	}
	// API publik tidak selalu mengirim role; default collaborator.
	if !user.Role.Valid() {
		user.Role = models.RoleCollaborator
	}
	return user, data.Token, nil
}
