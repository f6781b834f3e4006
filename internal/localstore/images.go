package localstore

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"tasksync/internal/apperr"
	"tasksync/internal/upload"
)

// Images menyalin gambar ke direktori upload dan mengembalikan URL publik
// yang dilayani server dari direktori yang sama (GET /uploads/:filename).
type Images struct {
	dir     string
	baseURL string
}

func NewImages(dir, baseURL string) *Images {
	return &Images{dir: dir, baseURL: baseURL}
}

// UploadImage memenuhi upload.Transport.
func (i *Images) UploadImage(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperr.Transport("upload image", err)
	}
	src, err := os.Open(path)
	if err != nil {
		return "", apperr.Application("upload image", "File not found")
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", apperr.Application("upload image", "File not found")
	}
	if err := upload.CheckImage(path, info.Size()); err != nil {
		return "", apperr.Application("upload image", err.Error())
	}

	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return "", apperr.Transport("upload image", err)
	}
	name := upload.StoredName(path)
	dst, err := os.Create(filepath.Join(i.dir, name))
	if err != nil {
		return "", apperr.Transport("upload image", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", apperr.Transport("upload image", err)
	}
	if err := dst.Close(); err != nil {
		return "", apperr.Transport("upload image", err)
	}
	return upload.PublicURL(i.baseURL, name), nil
}
