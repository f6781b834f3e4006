package main

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"tasksync/configs"
	"tasksync/internal/client"
	"tasksync/internal/localstore"
	"tasksync/internal/models"
	"tasksync/internal/session"
	"tasksync/internal/tasks"
	"tasksync/internal/upload"
	"tasksync/pkg/database"
	"tasksync/pkg/logger"
)

// directory adalah operasi user yang tersedia di kedua mode.
type directory interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	RequestPromotion(ctx context.Context) (models.User, error)
	SetRole(ctx context.Context, userID string, role models.Role) (models.User, error)
}

// app merangkai komponen client untuk satu pemanggilan perintah.
type app struct {
	mode   configs.StorageMode
	sess   *session.Store
	tasks  *tasks.Synchronizer
	users  directory
	places *localstore.Locations
	close  func()
}

type builder func(ctx context.Context) (*app, error)

// fromEnv membaca konfigurasi, logger dan Redis dari environment.
func fromEnv(ctx context.Context) (*app, error) {
	cfg, err := configs.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := logger.InitLoggers(cfg.LogDir); err != nil {
		return nil, err
	}
	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a, err := newApp(ctx, cfg, rdb)
	if err != nil {
		rdb.Close()
		return nil, err
	}
	a.close = func() {
		rdb.Close()
		logger.SyncLoggers()
	}
	return a, nil
}

// newApp memilih backend sesuai mode. Kredensial dan daftar lokasi selalu
// disimpan di Redis lokal.
func newApp(ctx context.Context, cfg configs.Config, rdb *redis.Client) (*app, error) {
	store := localstore.New(rdb)
	if err := store.Load(ctx); err != nil {
		// key yang rusak tidak menghalangi key lain
		logger.SystemLogger.Warn("Local data partially loaded", zap.Error(err))
	}
	creds := localstore.NewCredentials(rdb, cfg.CredentialKey)

	a := &app{mode: cfg.Mode, close: func() {}}
	switch cfg.Mode {
	case configs.ModeLocal:
		backend := localstore.NewBackend(store, []byte(cfg.SecretKey), cfg.TokenTTL, cfg.SuperadminEmail)
		a.sess = session.New(backend, creds)
		backend.SetTokenSource(a.sess)
		uploader := upload.New(localstore.NewImages(cfg.UploadDir, cfg.PublicURL))
		a.tasks = tasks.New(backend, uploader, a.sess, nil)
		a.users = localstore.NewDirectory(backend, uploader)
	default:
		c := client.New(cfg.APIURL, cfg.RequestTimeout)
		a.sess = session.New(c, creds)
		c.SetTokenSource(a.sess)
		a.tasks = tasks.New(c, upload.New(c), a.sess, nil)
		a.users = c
	}
	a.places = localstore.NewLocations(store, a.sess)

	if _, err := a.sess.Restore(ctx); err != nil {
		logger.SystemLogger.Warn("Failed to restore session", zap.Error(err))
	}
	return a, nil
}
