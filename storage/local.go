package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local keeps objects as plain files in a single directory
type Local struct {
	Dir string
}

// NewLocal creates dir when it doesn't exist yet
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		dir = "gpx_uploads"
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory, %w", err)
	}

	return &Local{Dir: dir}, nil
}

func (l *Local) path(key string) string {
	return filepath.Join(l.Dir, key)
}

func (l *Local) Location(key string) string {
	return l.path(key)
}

func (l *Local) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := validKey(key); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// O_EXCL so an existing object is never overwritten
	f, err := os.OpenFile(l.path(key), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file, %w", err)
	}

	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		os.Remove(l.path(key))
		return fmt.Errorf("failed to write file, %w", err)
	}

	return nil
}

func (l *Local) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	f, err := os.Open(l.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, key)
		}

		return nil, fmt.Errorf("failed to open file, %w", err)
	}

	return f, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}

	err := os.Remove(l.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove file, %w", err)
	}

	return nil
}

func (l *Local) Stat(_ context.Context, key string) (Object, error) {
	if err := validKey(key); err != nil {
		return Object{}, err
	}

	info, err := os.Stat(l.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Object{}, fmt.Errorf("%w: %s", ErrNotExist, key)
		}

		return Object{}, fmt.Errorf("failed to stat file, %w", err)
	}

	return Object{Key: key, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (l *Local) List(_ context.Context) ([]Object, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload directory, %w", err)
	}

	out := make([]Object, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}

		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}

		out = append(out, Object{Key: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}

	return out, nil
}
