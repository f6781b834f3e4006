package config

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"

	"tasksync/configs"
)

var (
	// Global dependency yang akan digunakan di seluruh handler server
	DB          *sql.DB
	RedisClient *redis.Client
	SecretKey   = []byte("secret")
	TokenTTL    = time.Hour
	Validate    = validator.New()
	Ctx         = context.Background()

	UploadDir       = "uploads"
	PublicURL       = "http://localhost:3004"
	SuperadminEmail string

	// TodoCacheTTL adalah umur cache daftar todo per user di Redis.
	TodoCacheTTL = time.Hour
)

// Apply mengisi dependency yang berasal dari konfigurasi.
func Apply(cfg configs.Config) {
	SecretKey = []byte(cfg.SecretKey)
	TokenTTL = cfg.TokenTTL
	UploadDir = cfg.UploadDir
	PublicURL = cfg.PublicURL
	SuperadminEmail = cfg.SuperadminEmail
}
