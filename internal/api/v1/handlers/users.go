package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"tasksync/internal/config"
	"tasksync/internal/models"
	"tasksync/internal/policy"
	"tasksync/internal/repository"
	"tasksync/pkg/logger"
)

// GetUsers mengembalikan semua user tanpa password. Khusus superadmin.
func GetUsers(c *fiber.Ctx) error {
	user := currentUser(c)
	if user.Role != models.RoleSuperadmin {
		logger.SecurityLogger.Warn("Forbidden user list", zap.String("user_id", user.ID))
		return fail(c, fiber.StatusForbidden, "Forbidden")
	}

	users, err := repository.ListUsers(c.UserContext(), config.DB)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching users", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error fetching users")
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, newUserResponse(u))
	}
	return c.JSON(fiber.Map{"success": true, "data": out, "count": len(out)})
}

// RequestPromotion menandai permintaan naik role untuk user yang login.
func RequestPromotion(c *fiber.Ctx) error {
	actor := currentUser(c)

	user, err := repository.UserByID(c.UserContext(), config.DB, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, fiber.StatusNotFound, "User not found")
		}
		logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error fetching user")
	}

	next, requested, err := policy.RequestPromotion(user)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	saved, err := repository.SaveUserRole(c.UserContext(), config.DB, next)
	if err != nil {
		logger.ErrorLogger.Error("Error saving promotion request", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error saving promotion request")
	}

	logger.AuditLogger.Info("Promotion requested", zap.String("user_id", saved.ID), zap.String("requested_role", string(requested)))
	return c.JSON(fiber.Map{
		"message": "Promotion request sent",
		"success": true,
		"status":  fiber.StatusOK,
		"data":    newUserResponse(saved),
	})
}

type roleRequest struct {
	Role models.Role `json:"role" validate:"required"`
}

// SetUserRole mengganti role user lain. Khusus superadmin; permintaan
// promosi yang tertunda ikut dihapus.
func SetUserRole(c *fiber.Ctx) error {
	actor := currentUser(c)
	if actor.Role != models.RoleSuperadmin {
		logger.SecurityLogger.Warn("Forbidden role change", zap.String("user_id", actor.ID), zap.String("target", c.Params("id")))
		return fail(c, fiber.StatusForbidden, "Forbidden")
	}

	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Bad request")
	}
	if err := config.Validate.Struct(req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Validation error")
	}

	if !numericID(c.Params("id")) {
		return fail(c, fiber.StatusNotFound, "User not found")
	}
	target, err := repository.UserByID(c.UserContext(), config.DB, c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, fiber.StatusNotFound, "User not found")
		}
		logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error fetching user")
	}

	next, err := policy.SetRole(actor, target, req.Role)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	saved, err := repository.SaveUserRole(c.UserContext(), config.DB, next)
	if err != nil {
		logger.ErrorLogger.Error("Error saving role", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error saving role")
	}
	invalidateAllTodoCaches(c)

	logger.AuditLogger.Info("Role changed",
		zap.String("actor_id", actor.ID),
		zap.String("user_id", saved.ID),
		zap.String("role", string(saved.Role)),
	)
	return c.JSON(fiber.Map{
		"message": "Role updated successfully",
		"success": true,
		"status":  fiber.StatusOK,
		"data":    newUserResponse(saved),
	})
}
