package handlers

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"tasksync/internal/config"
	"tasksync/internal/upload"
	"tasksync/pkg/logger"
)

// UploadImage menerima multipart field "file", menyimpannya di UploadDir
// dengan nama acak dan mengembalikan URL publiknya sebagai data.
func UploadImage(c *fiber.Ctx) error {
	user := currentUser(c)

	file, err := c.FormFile("file")
	if err != nil {
		logger.ErrorLogger.Error("Missing upload file", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "File is required")
	}
	if err := upload.CheckImage(file.Filename, file.Size); err != nil {
		logger.SecurityLogger.Warn("Rejected upload",
			zap.String("user_id", user.ID),
			zap.String("filename", file.Filename),
			zap.Int64("size", file.Size),
			zap.Error(err),
		)
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	if err := os.MkdirAll(config.UploadDir, 0o755); err != nil {
		logger.ErrorLogger.Error("Error preparing upload dir", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error saving file")
	}
	name := upload.StoredName(file.Filename)
	if err := c.SaveFile(file, filepath.Join(config.UploadDir, name)); err != nil {
		logger.ErrorLogger.Error("Error saving file", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error saving file")
	}

	url := upload.PublicURL(config.PublicURL, name)
	logger.AuditLogger.Info("Image uploaded", zap.String("user_id", user.ID), zap.String("url", url))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "File uploaded successfully",
		"success": true,
		"status":  fiber.StatusCreated,
		"data":    url,
	})
}

// ServeImage mengirim file hasil upload. Nama file dipotong ke basename
// agar tidak bisa keluar dari UploadDir.
func ServeImage(c *fiber.Ctx) error {
	name := filepath.Base(c.Params("filename"))
	if name == "." || name == "/" || name == ".." {
		return fail(c, fiber.StatusNotFound, "File not found")
	}
	path := filepath.Join(config.UploadDir, name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return fail(c, fiber.StatusNotFound, "File not found")
	}
	return c.SendFile(path)
}
