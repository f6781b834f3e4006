package localstore

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tasksync/internal/apperr"
	"tasksync/internal/models"
	"tasksync/internal/policy"
	"tasksync/pkg/logger"
)

// Actor menyediakan user yang sedang login.
type Actor interface {
	User() (models.User, bool)
}

// Locations adalah daftar tempat bernama yang dikelola superadmin. Task
// merujuk tempat lewat nama, bukan id.
type Locations struct {
	store *Store
	actor Actor
}

func NewLocations(store *Store, actor Actor) *Locations {
	return &Locations{store: store, actor: actor}
}

func (l *Locations) manager(op string) (models.User, error) {
	user, ok := l.actor.User()
	if !ok {
		return models.User{}, apperr.Unauthenticated(op)
	}
	if !policy.CanManageLocations(user) {
		return models.User{}, apperr.Permission(op, policy.ErrLocationsForbidden)
	}
	return user, nil
}

func (l *Locations) List() []models.NamedPlace {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return append([]models.NamedPlace{}, l.store.places...)
}

// Add menambah tempat baru. Nama harus unik (pencocokan persis).
func (l *Locations) Add(ctx context.Context, name, mapsURL string) (models.NamedPlace, error) {
	user, err := l.manager("add location")
	if err != nil {
		return models.NamedPlace{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.NamedPlace{}, apperr.Application("add location", "Name is required")
	}
	if mapsURL != "" {
		if u, err := url.Parse(mapsURL); err != nil || u.Scheme == "" {
			return models.NamedPlace{}, apperr.Application("add location", "Invalid maps URL")
		}
	}

	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.places {
		if p.Name == name {
			return models.NamedPlace{}, apperr.Application("add location", "Location already exists")
		}
	}
	place := models.NamedPlace{ID: uuid.NewString(), Name: name, MapsURL: mapsURL}
	next := append(append([]models.NamedPlace{}, s.places...), place)
	if err := s.putPlaces(ctx, next); err != nil {
		return models.NamedPlace{}, err
	}
	logger.AuditLogger.Info("Location added", zap.String("location_id", place.ID), zap.String("user_id", user.ID))
	return place, nil
}

func (l *Locations) Remove(ctx context.Context, id string) error {
	user, err := l.manager("remove location")
	if err != nil {
		return err
	}

	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]models.NamedPlace, 0, len(s.places))
	for _, p := range s.places {
		if p.ID != id {
			next = append(next, p)
		}
	}
	if len(next) == len(s.places) {
		return apperr.NotFound("remove location", "Location not found")
	}
	if err := s.putPlaces(ctx, next); err != nil {
		return err
	}
	logger.AuditLogger.Info("Location removed", zap.String("location_id", id), zap.String("user_id", user.ID))
	return nil
}

// Resolve mengembalikan deeplink peta untuk nama lokasi task. Tanpa tempat
// tersimpan yang namanya sama persis, hasilnya pencarian geo: generik.
func (l *Locations) Resolve(name string) string {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	for _, p := range l.store.places {
		if p.Name == name && p.MapsURL != "" {
			return p.MapsURL
		}
	}
	return "geo:0,0?q=" + strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}
