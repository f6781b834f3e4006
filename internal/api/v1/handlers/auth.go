package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tasksync/internal/config"
	"tasksync/internal/models"
	"tasksync/internal/repository"
	"tasksync/pkg/logger"
	"tasksync/pkg/token"
)

// credentialsRequest menerima email dan password untuk register/login
type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// parseCredentials menulis respons 400 dan mengembalikan ok false bila body
// tidak valid.
func parseCredentials(c *fiber.Ctx, op string) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in "+op, zap.Error(err))
		_ = fail(c, fiber.StatusBadRequest, "Bad request")
		return req, false
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during "+op, zap.Error(err))
		_ = fail(c, fiber.StatusBadRequest, "Validation error")
		return req, false
	}
	return req, true
}

// authSuccess mengirim token beserta user, bentuk yang sama untuk register
// dan login.
func authSuccess(c *fiber.Ctx, status int, message string, u models.User) error {
	tokenString, err := token.Issue(config.SecretKey, u.ID, u.Email, string(u.Role), config.TokenTTL)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error generating token")
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"success": true,
		"status":  status,
		"data": fiber.Map{
			"token": tokenString,
			"user": fiber.Map{
				"id":    u.ID,
				"email": u.Email,
				"role":  u.Role,
			},
		},
	})
}

// Register membuat user baru dengan role collaborator, kecuali email yang
// dikonfigurasi sebagai SUPERADMIN_EMAIL.
func Register(c *fiber.Ctx) error {
	req, ok := parseCredentials(c, "register")
	if !ok {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.ErrorLogger.Error("Error hashing password", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error hashing password")
	}

	role := models.RoleCollaborator
	if config.SuperadminEmail != "" && strings.EqualFold(req.Email, config.SuperadminEmail) {
		role = models.RoleSuperadmin
	}

	user, err := repository.CreateUser(c.UserContext(), config.DB, req.Email, string(hashedPassword), role)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			logger.SecurityLogger.Warn("Duplicate email", zap.String("email", req.Email))
			return fail(c, fiber.StatusConflict, "Email already registered")
		}
		logger.ErrorLogger.Error("Error creating user", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error creating user")
	}

	logger.AuditLogger.Info("User registered successfully", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return authSuccess(c, fiber.StatusCreated, "User created successfully", user)
}

// Login memeriksa password dengan bcrypt lalu menerbitkan JWT.
func Login(c *fiber.Ctx) error {
	req, ok := parseCredentials(c, "login")
	if !ok {
		return nil
	}

	user, err := repository.UserByEmail(c.UserContext(), config.DB, req.Email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
			return fail(c, fiber.StatusInternalServerError, "Error fetching user")
		}
		logger.SecurityLogger.Warn("User not found", zap.String("email", req.Email))
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.SecurityLogger.Warn("Invalid password", zap.String("email", req.Email))
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	logger.AuditLogger.Info("Login success", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return authSuccess(c, fiber.StatusOK, "Login success", user)
}
