// Package session menyimpan identitas user yang login beserta token
// bearer-nya, dari login sampai logout. Store adalah satu-satunya jalur
// tulis untuk kredensial.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"tasksync/internal/apperr"
	"tasksync/internal/models"
	"tasksync/pkg/logger"
	"tasksync/pkg/token"
)

// Authenticator menukar email/password dengan user dan token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (models.User, string, error)
	Register(ctx context.Context, email, password string) (models.User, string, error)
}

// Credentials adalah data sesi yang dipersist.
type Credentials struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// CredentialStore menyimpan kredensial di antara proses.
type CredentialStore interface {
	Load(ctx context.Context) (Credentials, bool, error)
	Save(ctx context.Context, c Credentials) error
	Clear(ctx context.Context) error
}

type credentialsInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

var validate = validator.New()

type Store struct {
	mu    sync.RWMutex
	auth  Authenticator
	creds CredentialStore
	user  *models.User
	token string
	hooks []func()
	now   func() time.Time
}

// New membuat Store. creds boleh nil (sesi hanya di memori).
func New(auth Authenticator, creds CredentialStore) *Store {
	return &Store{auth: auth, creds: creds, now: time.Now}
}

func (s *Store) Login(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, "login", email, password, s.auth.Login)
}

func (s *Store) Register(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, "register", email, password, s.auth.Register)
}

type authFunc func(ctx context.Context, email, password string) (models.User, string, error)

func (s *Store) authenticate(ctx context.Context, op, email, password string, fn authFunc) error {
	if err := validate.Struct(credentialsInput{Email: email, Password: password}); err != nil {
		return apperr.Validation(op, err)
	}

	user, tok, err := fn(ctx, email, password)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindApplication {
			logger.SecurityLogger.Warn("Authentication rejected", zap.String("op", op), zap.String("email", email))
		} else {
			logger.ErrorLogger.Error("Authentication failed", zap.String("op", op), zap.Error(err))
		}
		return err
	}

	s.mu.Lock()
	s.user = &user
	s.token = tok
	s.mu.Unlock()

	if s.creds != nil {
		if err := s.creds.Save(ctx, Credentials{Token: tok, User: user}); err != nil {
			// sesi tetap berlaku di memori
			logger.ErrorLogger.Error("Failed to persist credentials", zap.Error(err))
		}
	}
	logger.AuditLogger.Info("Session started", zap.String("op", op), zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return nil
}

// Restore memuat kredensial yang tersimpan. Token JWT yang exp-nya sudah
// lewat dibuang. Token yang bukan JWT dipertahankan; request pertama yang
// ditolak server akan menjadi penentu.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	if s.creds == nil {
		return false, nil
	}
	c, ok, err := s.creds.Load(ctx)
	if err != nil || !ok || c.Token == "" {
		return false, err
	}
	if claims, err := token.ParseUnverified(c.Token); err == nil && claims.Expired(s.now()) {
		logger.AuditLogger.Info("Stored session expired", zap.String("user_id", c.User.ID))
		return false, s.creds.Clear(ctx)
	}
	if !c.User.Role.Valid() {
		c.User.Role = models.RoleCollaborator
	}

	s.mu.Lock()
	s.user = &c.User
	s.token = c.Token
	s.mu.Unlock()
	return true, nil
}

// Logout menghapus kredensial tersimpan, identitas di memori, lalu
// menjalankan hook teardown (mis. mengosongkan task).
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	var userID string
	if s.user != nil {
		userID = s.user.ID
	}
	s.user = nil
	s.token = ""
	hooks := append([]func(){}, s.hooks...)
	s.mu.Unlock()

	for _, h := range hooks {
		h()
	}

	var err error
	if s.creds != nil {
		err = s.creds.Clear(ctx)
	}
	logger.AuditLogger.Info("Session ended", zap.String("user_id", userID))
	return err
}

// OnLogout mendaftarkan hook yang dijalankan setiap logout.
func (s *Store) OnLogout(fn func()) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// User mengembalikan user yang login.
func (s *Store) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// UpdateUser mengganti data user di sesi (mis. setelah perubahan role atau
// foto profil) dan mempersistnya.
func (s *Store) UpdateUser(ctx context.Context, u models.User) error {
	s.mu.Lock()
	if s.user == nil || s.user.ID != u.ID {
		s.mu.Unlock()
		return apperr.Unauthenticated("update session")
	}
	s.user = &u
	tok := s.token
	s.mu.Unlock()

	if s.creds == nil {
		return nil
	}
	return s.creds.Save(ctx, Credentials{Token: tok, User: u})
}

// Token dipakai client sebagai penyedia header Authorization.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}
