package upload

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxImageSize adalah batas ukuran satu gambar (5MB).
const MaxImageSize = 5 << 20

var (
	ErrImageTooLarge  = errors.New("file size exceeds 5MB")
	ErrImageType      = errors.New("only jpg, jpeg, png, gif and webp are allowed")
	allowedExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}
)

// CheckImage memeriksa ekstensi dan ukuran file gambar.
func CheckImage(name string, size int64) error {
	if size > MaxImageSize {
		return ErrImageTooLarge
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(name))] {
		return ErrImageType
	}
	return nil
}

// StoredName membuat nama file acak dengan ekstensi asli (huruf kecil).
func StoredName(original string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(original))
}

// PublicURL menggabungkan base URL publik dengan path /uploads/<name>.
func PublicURL(base, name string) string {
	return fmt.Sprintf("%s/uploads/%s", strings.TrimRight(base, "/"), name)
}
