package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"tasksync/configs"
	v1 "tasksync/internal/api/v1"
	"tasksync/internal/config"
	"tasksync/internal/repository"
	"tasksync/pkg/database"
	"tasksync/pkg/logger"
)

func main() {
	// Load config
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Inisialisasi logger
	if err := logger.InitLoggers(cfg.LogDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	config.Apply(cfg)

	// Inisialisasi database
	config.DB, err = database.ConnectDB(cfg)
	if err != nil {
		logger.ErrorLogger.Fatal("Database connection failed", zap.Error(err))
	}
	defer config.DB.Close()
	logger.SystemLogger.Info("Database Connected")

	// Buat tabel jika belum ada
	if err := repository.CreateTableIfNotExists(config.Ctx, config.DB); err != nil {
		logger.ErrorLogger.Fatal("Schema setup failed", zap.Error(err))
	}

	config.RedisClient, err = database.ConnectRedis(config.Ctx, cfg)
	if err != nil {
		logger.ErrorLogger.Fatal("Redis connection failed", zap.Error(err))
	}
	defer config.RedisClient.Close()

	if err := os.MkdirAll(config.UploadDir, 0o755); err != nil {
		logger.ErrorLogger.Fatal("Upload dir setup failed", zap.Error(err))
	}

	app := v1.NewApp()

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.SystemLogger.Info("Application ready", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
	}
}
