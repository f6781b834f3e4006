package localstore

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tasksync/internal/apperr"
	"tasksync/internal/models"
	"tasksync/internal/policy"
	"tasksync/internal/upload"
	"tasksync/pkg/logger"
	"tasksync/pkg/token"
)

// TokenSource menyediakan token bearer sesi saat ini.
type TokenSource interface {
	Token() string
}

// Backend berperan sebagai store remote di mode lokal: ia memenuhi
// kontrak Backend milik Synchronizer dan Authenticator milik Session Store.
// Identitas pemanggil dibaca dari token, sama seperti server.
type Backend struct {
	store           *Store
	secret          []byte
	ttl             time.Duration
	superadminEmail string
	tokens          TokenSource
}

func NewBackend(store *Store, secret []byte, ttl time.Duration, superadminEmail string) *Backend {
	return &Backend{
		store:           store,
		secret:          secret,
		ttl:             ttl,
		superadminEmail: normalizeEmail(superadminEmail),
	}
}

func (b *Backend) SetTokenSource(ts TokenSource) { b.tokens = ts }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (b *Backend) Register(ctx context.Context, email, password string) (models.User, string, error) {
	email = normalizeEmail(email)
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, "", apperr.Application("register", "Failed to hash password")
	}

	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		return models.User{}, "", apperr.Application("register", "Email already registered")
	}

	role := models.RoleCollaborator
	if b.superadminEmail != "" && email == b.superadminEmail {
		role = models.RoleSuperadmin
	}
	user := models.User{ID: s.nextID(), Email: email, Password: string(hashed), Role: role}
	if err := s.putUser(ctx, user); err != nil {
		return models.User{}, "", err
	}

	tok, err := b.issue(user)
	if err != nil {
		return models.User{}, "", err
	}
	logger.AuditLogger.Info("Local user registered", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return public(user), tok, nil
}

func (b *Backend) Login(_ context.Context, email, password string) (models.User, string, error) {
	email = normalizeEmail(email)

	b.store.mu.Lock()
	user, ok := b.store.users[email]
	b.store.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		logger.SecurityLogger.Warn("Local login failed", zap.String("email", email))
		return models.User{}, "", apperr.Application("login", apperr.InvalidCredentials)
	}
	tok, err := b.issue(user)
	if err != nil {
		return models.User{}, "", err
	}
	return public(user), tok, nil
}

func (b *Backend) issue(u models.User) (string, error) {
	tok, err := token.Issue(b.secret, u.ID, u.Email, string(u.Role), b.ttl)
	if err != nil {
		return "", apperr.Application("issue token", "Failed to generate token")
	}
	return tok, nil
}

// actor membaca user dari token. Role selalu diambil dari data tersimpan
// sehingga perubahan role langsung berlaku. Harus dipanggil dengan
// store.mu dipegang.
func (b *Backend) actor(op string) (models.User, error) {
	if b.tokens == nil {
		return models.User{}, apperr.Unauthenticated(op)
	}
	claims, err := token.Parse(b.secret, b.tokens.Token())
	if err != nil {
		logger.SecurityLogger.Warn("Invalid local token", zap.String("op", op), zap.Error(err))
		return models.User{}, apperr.Application(op, "Invalid or expired token")
	}
	u, ok := b.store.users[claims.Email]
	if !ok || u.ID != claims.UserID {
		return models.User{}, apperr.Application(op, "User not found")
	}
	return u, nil
}

// ListTasks mengembalikan task milik atau yang di-assign ke pemanggil.
func (b *Backend) ListTasks(_ context.Context) ([]models.Task, error) {
	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()
	user, err := b.actor("list")
	if err != nil {
		return nil, err
	}
	out := []models.Task{}
	for _, t := range s.tasks {
		if t.VisibleTo(user.ID) {
			out = append(out, s.withOwnerRole(t.Clone()))
		}
	}
	return out, nil
}

func checkDurable(op string, refs ...string) error {
	for _, ref := range refs {
		if ref != "" && !upload.IsDurable(ref) {
			return apperr.Application(op, "Image must be uploaded before saving")
		}
	}
	return nil
}

func (b *Backend) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()
	user, err := b.actor("create")
	if err != nil {
		return models.Task{}, err
	}
	if strings.TrimSpace(t.Title) == "" {
		return models.Task{}, apperr.Application("create", "Title is required")
	}
	if err := checkDurable("create", t.ImageURI, t.CompletionImageURI); err != nil {
		return models.Task{}, err
	}
	if t.AssignedTo != "" && !policy.CanAssign(user.Role) {
		return models.Task{}, apperr.Application("create", "Only admins can assign tasks")
	}

	now := s.now().UTC()
	t = t.Clone()
	t.ID = s.nextID()
	t.OwnerID = user.ID
	t.OwnerRole = user.Role
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = models.StatusPending
	}

	next := append(s.cloneTasks(), t)
	if err := s.putTasks(ctx, next); err != nil {
		return models.Task{}, err
	}
	return t.Clone(), nil
}

func (b *Backend) UpdateTask(ctx context.Context, id string, p models.TaskPatch) (models.Task, error) {
	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()
	user, err := b.actor("update")
	if err != nil {
		return models.Task{}, err
	}

	next := s.cloneTasks()
	i := indexOf(next, id)
	if i < 0 || !next[i].VisibleTo(user.ID) {
		return models.Task{}, apperr.Application("update", "Todo not found")
	}
	next[i] = s.withOwnerRole(next[i])
	if err := policy.EvaluateFor(user, next[i]).Check(p.Fields()); err != nil {
		logger.SecurityLogger.Warn("Local update denied", zap.String("task_id", id), zap.Error(err))
		return models.Task{}, apperr.Application("update", "You are not allowed to edit these fields")
	}
	var refs []string
	if p.ImageURI != nil {
		refs = append(refs, *p.ImageURI)
	}
	if p.CompletionImageURI != nil {
		refs = append(refs, *p.CompletionImageURI)
	}
	if err := checkDurable("update", refs...); err != nil {
		return models.Task{}, err
	}

	next[i] = p.Apply(next[i])
	next[i].UpdatedAt = s.now().UTC()
	if err := s.putTasks(ctx, next); err != nil {
		return models.Task{}, err
	}
	return next[i].Clone(), nil
}

// DeleteTask hanya boleh dilakukan oleh pemilik task.
func (b *Backend) DeleteTask(ctx context.Context, id string) error {
	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()
	user, err := b.actor("delete")
	if err != nil {
		return err
	}

	next := s.cloneTasks()
	i := indexOf(next, id)
	if i < 0 || !next[i].VisibleTo(user.ID) {
		return apperr.Application("delete", "Todo not found")
	}
	if next[i].OwnerID != user.ID {
		return apperr.Application("delete", "Only the owner can delete this task")
	}
	return s.putTasks(ctx, append(next[:i], next[i+1:]...))
}

func indexOf(tasks []models.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
