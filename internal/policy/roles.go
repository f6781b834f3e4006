package policy

import (
	"errors"

	"tasksync/internal/models"
)

var (
	ErrPromotionPending   = errors.New("promotion request already pending")
	ErrNoHigherRole       = errors.New("no higher role to request")
	ErrNotSuperadmin      = errors.New("only superadmin can change roles")
	ErrInvalidRole        = errors.New("invalid role")
	ErrLocationsForbidden = errors.New("only superadmin can manage locations")
)

// NextRole mengembalikan role yang boleh diminta oleh role saat ini.
func NextRole(current models.Role) (models.Role, bool) {
	switch current {
	case models.RoleCollaborator:
		return models.RoleAdmin, true
	case models.RoleAdmin:
		return models.RoleSuperadmin, true
	default:
		return "", false
	}
}

// RequestPromotion menandai permintaan promosi. Permintaan yang masih
// tertunda memblokir permintaan baru.
func RequestPromotion(u models.User) (models.User, models.Role, error) {
	if u.PendingRequest {
		return u, "", ErrPromotionPending
	}
	next, ok := NextRole(u.Role)
	if !ok {
		return u, "", ErrNoHigherRole
	}
	u.PendingRequest = true
	return u, next, nil
}

// SetRole mengganti role target. Hanya superadmin yang boleh, dan
// perubahan role selalu menghapus flag permintaan promosi.
func SetRole(actor, target models.User, role models.Role) (models.User, error) {
	if actor.Role != models.RoleSuperadmin {
		return target, ErrNotSuperadmin
	}
	if !role.Valid() {
		return target, ErrInvalidRole
	}
	target.Role = role
	target.PendingRequest = false
	return target, nil
}

// CanManageLocations: lokasi bernama hanya dikelola superadmin.
func CanManageLocations(u models.User) bool {
	return u.Role == models.RoleSuperadmin
}
