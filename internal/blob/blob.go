// Package blob stores uploaded complaint images and returns the URL clients use to fetch them.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scms/backend/internal/config"

	"github.com/google/uuid"
)

// Store persists an uploaded file under name and returns its public URL.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

// NewName builds a collision-free file name: UTC timestamp with microseconds,
// a short random suffix and the lower-cased original extension.
func NewName(original string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	stamp := now.UTC().Format("20060102150405.000000")
	stamp = strings.Replace(stamp, ".", "", 1)
	return fmt.Sprintf("%s-%s%s", stamp, uuid.NewString()[:8], ext)
}

// AllowedExtension reports whether the extension of name is in allowed (case-insensitive).
func AllowedExtension(name string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if !strings.HasPrefix(a, ".") {
			a = "." + a
		}
		if a == ext {
			return true
		}
	}
	return false
}

// FileStore writes uploads into a local directory served under BaseURL.
type FileStore struct {
	Dir     string
	BaseURL string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (f *FileStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	path := filepath.Join(f.Dir, name)
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close blob: %w", err)
	}
	return f.BaseURL + "/" + name, nil
}

// Open returns the blob backend selected by cfg.Upload.Driver.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Upload.Driver {
	case "minio":
		s, err := NewMinioStore(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey,
			cfg.Minio.Bucket, cfg.Minio.UseSSL, cfg.Minio.PublicURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "file", "":
		s, err := NewFileStore(cfg.Upload.Dir, cfg.Upload.BaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.Upload.Driver)
	}
}
