// Package upload mengubah referensi gambar lokal menjadi URL remote yang
// durable sebelum gambar boleh disimpan di sebuah record.
package upload

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"tasksync/internal/apperr"
	"tasksync/pkg/logger"
)

var ErrEmptyRef = errors.New("empty image reference")

// Transport adalah endpoint upload gambar (client.Client memenuhinya).
type Transport interface {
	UploadImage(ctx context.Context, path string) (string, error)
}

type Uploader struct {
	transport Transport
}

func New(t Transport) *Uploader {
	return &Uploader{transport: t}
}

// IsDurable melaporkan apakah ref sudah berupa URL http(s) absolut.
func IsDurable(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// LocalPath mengubah ref lokal (path atau file://) menjadi path filesystem.
func LocalPath(ref string) string {
	if strings.HasPrefix(ref, "file://") {
		if u, err := url.Parse(ref); err == nil && u.Path != "" {
			return u.Path
		}
		return strings.TrimPrefix(ref, "file://")
	}
	return ref
}

// Upload mengembalikan URL durable untuk ref. Ref yang sudah durable
// dikembalikan apa adanya tanpa panggilan jaringan. Semua kegagalan
// dinormalkan menjadi apperr dengan KindUpload; tidak ada deduplikasi,
// upload ulang ref yang sama bisa menghasilkan URL berbeda.
func (u *Uploader) Upload(ctx context.Context, ref string) (durable string, err error) {
	if ref == "" {
		return "", apperr.Upload("upload", ErrEmptyRef)
	}
	if IsDurable(ref) {
		return ref, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = apperr.Upload("upload", fmt.Errorf("recovered: %v", r))
		}
		if err != nil {
			logger.ErrorLogger.Error("Image upload failed", zap.String("ref", ref), zap.Error(err))
		}
	}()

	durable, err = u.transport.UploadImage(ctx, LocalPath(ref))
	if err != nil {
		return "", apperr.Upload("upload", err)
	}
	if !IsDurable(durable) {
		return "", apperr.Upload("upload", fmt.Errorf("server returned non-durable url %q", durable))
	}
	return durable, nil
}
