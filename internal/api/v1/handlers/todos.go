package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"tasksync/internal/config"
	"tasksync/internal/models"
	"tasksync/internal/policy"
	"tasksync/internal/repository"
	"tasksync/internal/upload"
	"tasksync/pkg/logger"
)

// todoRequest adalah body POST dan PATCH /todos. Pointer nil berarti field
// tidak dikirim.
type todoRequest struct {
	Title              *string         `json:"title"`
	Description        *string         `json:"description"`
	Location           json.RawMessage `json:"location"`
	PhotoURI           *string         `json:"photoUri"`
	AssignedTo         *string         `json:"assignedTo"`
	Completed          *bool           `json:"completed"`
	Note               *string         `json:"note"`
	CompletionImageURI *string         `json:"completionImageUri"`
}

// patch menerjemahkan body ke TaskPatch.
func (r todoRequest) patch() (models.TaskPatch, error) {
	p := models.TaskPatch{
		Title:              r.Title,
		Description:        r.Description,
		ImageURI:           r.PhotoURI,
		AssignedTo:         r.AssignedTo,
		Note:               r.Note,
		CompletionImageURI: r.CompletionImageURI,
	}
	if r.Completed != nil {
		p.Status = models.StatusPtr(models.StatusFromBool(*r.Completed))
	}
	if len(r.Location) > 0 {
		loc, err := parseLocation(r.Location)
		if err != nil {
			return p, err
		}
		if loc == nil {
			loc = &models.Location{}
		}
		p.Location = loc
	}
	return p, nil
}

// durableImages memastikan URI gambar sudah berupa URL hasil upload.
func durableImages(uris ...string) bool {
	for _, u := range uris {
		if u != "" && !upload.IsDurable(u) {
			return false
		}
	}
	return true
}

func assigneeExists(c *fiber.Ctx, id string) bool {
	if !numericID(id) {
		return false
	}
	_, err := repository.UserByID(c.UserContext(), config.DB, id)
	return err == nil
}

func todoCacheKey(userID string) string { return "todos:user:" + userID }

// invalidateTodoCache menghapus cache daftar semua user yang terdampak.
func invalidateTodoCache(c *fiber.Ctx, userIDs ...string) {
	if config.RedisClient == nil {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			keys = append(keys, todoCacheKey(id))
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := config.RedisClient.Del(c.UserContext(), keys...).Err(); err != nil {
		logger.ErrorLogger.Error("Failed to invalidate todo cache", zap.Strings("keys", keys), zap.Error(err))
	}
}

// invalidateAllTodoCaches dipakai saat role user berubah, karena ownerRole
// ikut tersimpan di cache daftar user lain.
func invalidateAllTodoCaches(c *fiber.Ctx) {
	if config.RedisClient == nil {
		return
	}
	keys, err := config.RedisClient.Keys(c.UserContext(), todoCacheKey("*")).Result()
	if err == nil && len(keys) > 0 {
		err = config.RedisClient.Del(c.UserContext(), keys...).Err()
	}
	if err != nil {
		logger.ErrorLogger.Error("Failed to flush todo caches", zap.Error(err))
	}
}

// todoForUser memuat todo yang terlihat oleh user. Todo milik orang lain
// yang tidak di-assign ke user dilaporkan sebagai tidak ada.
func todoForUser(c *fiber.Ctx, user models.User) (models.Task, bool) {
	id := c.Params("id")
	if !numericID(id) {
		_ = fail(c, fiber.StatusNotFound, "Todo not found")
		return models.Task{}, false
	}
	todo, err := repository.TodoByID(c.UserContext(), config.DB, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = fail(c, fiber.StatusNotFound, "Todo not found")
			return models.Task{}, false
		}
		logger.ErrorLogger.Error("Error fetching todo", zap.String("todo_id", id), zap.Error(err))
		_ = fail(c, fiber.StatusInternalServerError, "Error fetching todo")
		return models.Task{}, false
	}
	if !todo.VisibleTo(user.ID) {
		logger.SecurityLogger.Warn("Hidden todo requested", zap.String("todo_id", id), zap.String("user_id", user.ID))
		_ = fail(c, fiber.StatusNotFound, "Todo not found")
		return models.Task{}, false
	}
	return todo, true
}

// GetTodos mengembalikan todo milik user dan yang di-assign ke user.
// Hasil di-cache di Redis per user.
func GetTodos(c *fiber.Ctx) error {
	user := currentUser(c)
	cacheKey := todoCacheKey(user.ID)

	if config.RedisClient != nil {
		cached, err := config.RedisClient.Get(c.UserContext(), cacheKey).Result()
		if err == nil {
			var todos []todoResponse
			if err := json.Unmarshal([]byte(cached), &todos); err == nil {
				logger.ContextLogger.Debug("Todo cache hit", zap.String("user_id", user.ID))
				return c.JSON(fiber.Map{"success": true, "data": todos, "count": len(todos)})
			}
		} else if !errors.Is(err, redis.Nil) {
			logger.ErrorLogger.Error("Failed to read todo cache", zap.Error(err))
		}
	}

	tasks, err := repository.ListTodosFor(c.UserContext(), config.DB, user.ID)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching todos", zap.String("user_id", user.ID), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error fetching todos")
	}
	todos := make([]todoResponse, 0, len(tasks))
	for _, t := range tasks {
		todos = append(todos, newTodoResponse(t))
	}

	if config.RedisClient != nil {
		if raw, err := json.Marshal(todos); err == nil {
			if err := config.RedisClient.SetEX(c.UserContext(), cacheKey, raw, config.TodoCacheTTL).Err(); err != nil {
				logger.ErrorLogger.Error("Failed to cache todos", zap.Error(err))
			}
		}
	}
	return c.JSON(fiber.Map{"success": true, "data": todos, "count": len(todos)})
}

// CreateTodo membuat todo baru milik user yang login.
func CreateTodo(c *fiber.Ctx) error {
	user := currentUser(c)

	var req todoRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create todo", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "Bad request")
	}
	p, err := req.patch()
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	todo := p.Apply(models.Task{OwnerID: user.ID, OwnerRole: user.Role, Status: models.StatusPending})
	todo.Title = strings.TrimSpace(todo.Title)
	if todo.Title == "" {
		return fail(c, fiber.StatusBadRequest, "Title is required")
	}
	if !durableImages(todo.ImageURI, todo.CompletionImageURI) {
		return fail(c, fiber.StatusBadRequest, "Image must be uploaded before saving")
	}
	if todo.AssignedTo != "" {
		if !policy.CanAssign(user.Role) {
			logger.SecurityLogger.Warn("Assign denied", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
			return fail(c, fiber.StatusForbidden, "Only admins can assign tasks")
		}
		if !assigneeExists(c, todo.AssignedTo) {
			return fail(c, fiber.StatusBadRequest, "Assignee not found")
		}
	}

	created, err := repository.CreateTodo(c.UserContext(), config.DB, todo)
	if err != nil {
		logger.ErrorLogger.Error("Error creating todo", zap.String("user_id", user.ID), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error creating todo")
	}
	invalidateTodoCache(c, user.ID, created.AssignedTo)

	logger.AuditLogger.Info("Todo created", zap.String("todo_id", created.ID), zap.String("user_id", user.ID))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Todo created successfully",
		"success": true,
		"status":  fiber.StatusCreated,
		"data":    newTodoResponse(created),
	})
}

// UpdateTodo menerapkan update parsial. Field yang dikirim harus termasuk
// field yang boleh ditulis user menurut policy.
func UpdateTodo(c *fiber.Ctx) error {
	user := currentUser(c)

	var req todoRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update todo", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "Bad request")
	}
	p, err := req.patch()
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	current, ok := todoForUser(c, user)
	if !ok {
		return nil
	}
	if p.Empty() {
		return c.JSON(fiber.Map{"success": true, "data": newTodoResponse(current)})
	}
	if err := policy.EvaluateFor(user, current).Check(p.Fields()); err != nil {
		logger.SecurityLogger.Warn("Todo update denied",
			zap.String("todo_id", current.ID),
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return fail(c, fiber.StatusForbidden, "You are not allowed to edit these fields")
	}

	next := p.Apply(current)
	next.Title = strings.TrimSpace(next.Title)
	if next.Title == "" {
		return fail(c, fiber.StatusBadRequest, "Title is required")
	}
	if !durableImages(next.ImageURI, next.CompletionImageURI) {
		return fail(c, fiber.StatusBadRequest, "Image must be uploaded before saving")
	}
	if p.AssignedTo != nil && next.AssignedTo != "" {
		if !assigneeExists(c, next.AssignedTo) {
			return fail(c, fiber.StatusBadRequest, "Assignee not found")
		}
	}

	updated, err := repository.UpdateTodo(c.UserContext(), config.DB, next)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, fiber.StatusNotFound, "Todo not found")
		}
		logger.ErrorLogger.Error("Error updating todo", zap.String("todo_id", current.ID), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error updating todo")
	}
	invalidateTodoCache(c, updated.OwnerID, current.AssignedTo, updated.AssignedTo)

	logger.AuditLogger.Info("Todo updated",
		zap.String("todo_id", updated.ID),
		zap.String("user_id", user.ID),
		zap.Any("fields", p.Fields()),
	)
	return c.JSON(fiber.Map{
		"message": "Todo updated successfully",
		"success": true,
		"status":  fiber.StatusOK,
		"data":    newTodoResponse(updated),
	})
}

// DeleteTodo menghapus todo. Hanya pemilik yang boleh.
func DeleteTodo(c *fiber.Ctx) error {
	user := currentUser(c)

	current, ok := todoForUser(c, user)
	if !ok {
		return nil
	}
	if !policy.CanDelete(user, current) {
		logger.SecurityLogger.Warn("Todo delete denied", zap.String("todo_id", current.ID), zap.String("user_id", user.ID))
		return fail(c, fiber.StatusForbidden, "Only the owner can delete this task")
	}

	if err := repository.DeleteTodo(c.UserContext(), config.DB, current.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, fiber.StatusNotFound, "Todo not found")
		}
		logger.ErrorLogger.Error("Error deleting todo", zap.String("todo_id", current.ID), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error deleting todo")
	}
	invalidateTodoCache(c, current.OwnerID, current.AssignedTo)

	logger.AuditLogger.Info("Todo deleted", zap.String("todo_id", current.ID), zap.String("user_id", user.ID))
	return c.JSON(fiber.Map{
		"message": "Todo deleted successfully",
		"success": true,
		"status":  fiber.StatusOK,
	})
}
