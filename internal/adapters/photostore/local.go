package photostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dienynas/attendapi/internal/core/domain"
	"github.com/google/uuid"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Local stores profile photos on the local filesystem. It stands in for an
// external blob provider behind ports.PhotoStore; the stored reference is
// the generated file name.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create photo dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Save(_ context.Context, userID int64, filename string, data io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", domain.ErrUnsupportedPhoto
	}

	ref := fmt.Sprintf("%d-%s%s", userID, uuid.NewString(), ext)
	f, err := os.Create(filepath.Join(l.dir, ref))
	if err != nil {
		return "", fmt.Errorf("create photo file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write photo file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close photo file: %w", err)
	}
	return ref, nil
}

func (l *Local) Remove(_ context.Context, ref string) error {
	// Refs are bare file names; reject anything path-like.
	if ref == "" || ref != filepath.Base(ref) {
		return fmt.Errorf("invalid photo ref %q", ref)
	}
	if err := os.Remove(filepath.Join(l.dir, ref)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove photo file: %w", err)
	}
	return nil
}
