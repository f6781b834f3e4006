// Package localstore adalah mode penyimpanan tanpa REST API: user, task dan
// lokasi disimpan di Redis sebagai tiga key JSON yang berdiri sendiri.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"tasksync/internal/apperr"
	"tasksync/internal/models"
	"tasksync/pkg/logger"
)

const (
	KeyUsers     = "tasksync:users"
	KeyTasks     = "tasksync:tasks"
	KeyLocations = "tasksync:locations"
	KeySession   = "tasksync:session"
)

// Store memegang salinan di memori dari ketiga key. Setiap perubahan
// ditulis ke Redis dulu; salinan di memori baru diganti bila tulis berhasil.
type Store struct {
	rdb *redis.Client

	mu     sync.Mutex
	users  map[string]models.User // key: email
	tasks  []models.Task
	places []models.NamedPlace
	lastID int64
	now    func() time.Time
}

func New(rdb *redis.Client) *Store {
	return &Store{
		rdb:   rdb,
		users: make(map[string]models.User),
		now:   time.Now,
	}
}

// Load memuat ketiga key secara terpisah. Key yang rusak atau gagal dibaca
// dibiarkan kosong tanpa menghalangi key lain; semua kegagalan digabung di
// error yang dikembalikan.
func (s *Store) Load(ctx context.Context) error {
	var (
		users  map[string]models.User
		tasks  []models.Task
		places []models.NamedPlace
		errs   []error
	)
	if err := s.load(ctx, KeyUsers, &users); err != nil {
		errs = append(errs, err)
		users = nil
	}
	if err := s.load(ctx, KeyTasks, &tasks); err != nil {
		errs = append(errs, err)
		tasks = nil
	}
	if err := s.load(ctx, KeyLocations, &places); err != nil {
		errs = append(errs, err)
		places = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]models.User, len(users))
	for email, u := range users {
		s.users[email] = u
		s.observeID(u.ID)
	}
	s.tasks = tasks
	for _, t := range tasks {
		s.observeID(t.ID)
	}
	s.places = places
	return errors.Join(errs...)
}

func (s *Store) load(ctx context.Context, key string, dst any) error {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		logger.ErrorLogger.Error("Failed to read local state", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.ErrorLogger.Error("Corrupt local state", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperr.Protocol("save "+key, err)
	}
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		logger.ErrorLogger.Error("Failed to write local state", zap.String("key", key), zap.Error(err))
		return apperr.Transport("save "+key, err)
	}
	return nil
}

// nextID menghasilkan id berbasis timestamp milidetik yang selalu naik.
// Harus dipanggil dengan s.mu dipegang.
func (s *Store) nextID() string {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

func (s *Store) observeID(id string) {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > s.lastID {
		s.lastID = n
	}
}

// userByID harus dipanggil dengan s.mu dipegang.
func (s *Store) userByID(id string) (models.User, bool) {
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

// withOwnerRole mengisi OwnerRole dari role pemilik saat ini, bukan role
// saat task dibuat. Harus dipanggil dengan s.mu dipegang.
func (s *Store) withOwnerRole(t models.Task) models.Task {
	if u, ok := s.userByID(t.OwnerID); ok {
		t.OwnerRole = u.Role
	}
	return t
}

// putUser menyimpan satu user. Harus dipanggil dengan s.mu dipegang.
func (s *Store) putUser(ctx context.Context, u models.User) error {
	next := make(map[string]models.User, len(s.users)+1)
	for k, v := range s.users {
		next[k] = v
	}
	next[u.Email] = u
	if err := s.save(ctx, KeyUsers, next); err != nil {
		return err
	}
	s.users = next
	return nil
}

// putTasks mengganti daftar task. Harus dipanggil dengan s.mu dipegang.
func (s *Store) putTasks(ctx context.Context, tasks []models.Task) error {
	if err := s.save(ctx, KeyTasks, tasks); err != nil {
		return err
	}
	s.tasks = tasks
	return nil
}

// putPlaces mengganti daftar lokasi. Harus dipanggil dengan s.mu dipegang.
func (s *Store) putPlaces(ctx context.Context, places []models.NamedPlace) error {
	if err := s.save(ctx, KeyLocations, places); err != nil {
		return err
	}
	s.places = places
	return nil
}

func (s *Store) cloneTasks() []models.Task {
	out := make([]models.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// public mengembalikan user tanpa hash password.
func public(u models.User) models.User {
	u.Password = ""
	return u
}
