package localstore

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"tasksync/internal/apperr"
	"tasksync/internal/models"
	"tasksync/internal/policy"
	"tasksync/pkg/logger"
)

// Uploader mengubah referensi gambar lokal menjadi URL durable.
type Uploader interface {
	Upload(ctx context.Context, ref string) (string, error)
}

// Directory mengelola data user di mode lokal: daftar user, permintaan
// promosi, perubahan role dan foto profil.
type Directory struct {
	backend  *Backend
	uploader Uploader
}

func NewDirectory(b *Backend, up Uploader) *Directory {
	return &Directory{backend: b, uploader: up}
}

func roleError(op string, err error) error {
	if errors.Is(err, policy.ErrNotSuperadmin) {
		return apperr.Permission(op, err)
	}
	return apperr.Application(op, err.Error())
}

// ListUsers mengembalikan semua user terurut email, tanpa hash password.
// Khusus superadmin.
func (d *Directory) ListUsers(_ context.Context) ([]models.User, error) {
	s := d.backend.store
	s.mu.Lock()
	defer s.mu.Unlock()
	actor, err := d.backend.actor("list users")
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleSuperadmin {
		return nil, apperr.Permission("list users", policy.ErrNotSuperadmin)
	}
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, public(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// RequestPromotion meminta role satu tingkat di atas role pemanggil.
func (d *Directory) RequestPromotion(ctx context.Context) (models.User, error) {
	s := d.backend.store
	s.mu.Lock()
	defer s.mu.Unlock()
	user, err := d.backend.actor("request promotion")
	if err != nil {
		return models.User{}, err
	}
	updated, next, err := policy.RequestPromotion(user)
	if err != nil {
		return models.User{}, roleError("request promotion", err)
	}
	if err := s.putUser(ctx, updated); err != nil {
		return models.User{}, err
	}
	logger.AuditLogger.Info("Promotion requested", zap.String("user_id", user.ID), zap.String("requested_role", string(next)))
	return public(updated), nil
}

// SetRole mengganti role user lain. Hanya superadmin.
func (d *Directory) SetRole(ctx context.Context, userID string, role models.Role) (models.User, error) {
	s := d.backend.store
	s.mu.Lock()
	defer s.mu.Unlock()
	actor, err := d.backend.actor("set role")
	if err != nil {
		return models.User{}, err
	}
	target, ok := s.userByID(userID)
	if !ok {
		return models.User{}, apperr.NotFound("set role", "User not found")
	}
	updated, err := policy.SetRole(actor, target, role)
	if err != nil {
		logger.SecurityLogger.Warn("Role change rejected", zap.String("actor_id", actor.ID), zap.String("target_id", userID), zap.Error(err))
		return models.User{}, roleError("set role", err)
	}
	if err := s.putUser(ctx, updated); err != nil {
		return models.User{}, err
	}
	logger.AuditLogger.Info("Role changed", zap.String("actor_id", actor.ID), zap.String("target_id", userID), zap.String("role", string(role)))
	return public(updated), nil
}

// SetProfileImage mengupload gambar lebih dulu lalu menyimpan URL-nya di
// profil pemanggil.
func (d *Directory) SetProfileImage(ctx context.Context, ref string) (models.User, error) {
	url, err := d.uploader.Upload(ctx, ref)
	if err != nil {
		return models.User{}, err
	}

	s := d.backend.store
	s.mu.Lock()
	defer s.mu.Unlock()
	user, err := d.backend.actor("set profile image")
	if err != nil {
		return models.User{}, err
	}
	user.ProfileImage = url
	if err := s.putUser(ctx, user); err != nil {
		return models.User{}, err
	}
	return public(user), nil
}
