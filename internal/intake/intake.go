// Package intake accepts raw photo uploads and returns stable reference
// strings. The core never inspects photo contents; it only stores the
// references the intake hands back.
package intake

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store saves one photo blob and returns its stable reference.
type Store interface {
	Save(ctx context.Context, r io.Reader, filename string) (string, error)
}

// Remover is implemented by backends that can discard a stored photo by
// its reference, so a rejected registration does not leave orphans.
type Remover interface {
	Remove(ctx context.Context, ref string) error
}

// Disk writes photos under a local directory, served statically by the
// API under baseURL. References are timestamped uuid paths, so they are
// stable and never collide.
type Disk struct {
	dir     string
	baseURL string
}

// NewDisk creates the media directory if needed.
func NewDisk(dir, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Disk{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (d *Disk) Save(_ context.Context, r io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	name := time.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString() + ext
	f, err := os.Create(filepath.Join(d.dir, name))
	if err != nil {
		return "", fmt.Errorf("create photo file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write photo file: %w", err)
	}
	return path.Join("/", strings.TrimPrefix(d.baseURL, "/")) + "/" + name, nil
}

// Remove deletes the photo the reference points at. Only the final path
// element is honored, so a reference can never escape the media dir.
func (d *Disk) Remove(_ context.Context, ref string) error {
	name := path.Base(ref)
	if name == "." || name == "/" || name == "" {
		return nil
	}
	return os.Remove(filepath.Join(d.dir, name))
}
