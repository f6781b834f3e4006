package configs

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// StorageMode memilih sumber kebenaran task: REST API atau Redis lokal.
type StorageMode string

const (
	ModeAPI   StorageMode = "api"
	ModeLocal StorageMode = "local"
)

type Config struct {
	// Client
	APIURL         string        `env:"API_URL" envDefault:"http://localhost:3004/api/v1"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	Mode           StorageMode   `env:"STORAGE_MODE" envDefault:"api"`
	CredentialKey  string        `env:"CREDENTIAL_KEY" envDefault:"MySecretEncryptionKey!"`

	// Database
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"10501"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`
	DBNameTest string `env:"DB_NAME_TEST"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Server
	Port            int           `env:"PORT" envDefault:"3004"`
	SecretKey       string        `env:"JWT_SECRET" envDefault:"secret"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
	UploadDir       string        `env:"UPLOAD_DIR" envDefault:"uploads"`
	PublicURL       string        `env:"PUBLIC_URL" envDefault:"http://localhost:3004"`
	SuperadminEmail string        `env:"SUPERADMIN_EMAIL"`

	LogDir string `env:"LOG_DIR" envDefault:"logs"`
}

// RedisAddr mengembalikan host:port Redis.
func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// LoadConfig memuat .env (jika ada) lalu mem-parse environment.
func LoadConfig() (Config, error) {
	// Muat file .env
	if err := godotenv.Load(); err != nil {
		// Hanya log jika tidak dalam mode test
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Mode != ModeAPI && cfg.Mode != ModeLocal {
		return Config{}, fmt.Errorf("invalid STORAGE_MODE %q", cfg.Mode)
	}
	return cfg, nil
}
