// Package storage holds the raw uploaded GPX files. Tracks reference their
// file by key, the stored_filename column.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrNotExist is returned when a key has no object behind it
var ErrNotExist = errors.New("object does not exist")

const contentType = "application/gpx+xml"

type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Store is implemented by every blob backend. Delete of a missing key is
// not an error.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Stat(ctx context.Context, key string) (Object, error)
	List(ctx context.Context) ([]Object, error)
	// Location describes where a key lives, a file path or a bucket URI
	Location(key string) string
}

// New builds the backend selected by storage.type
func New(ctx context.Context) (Store, error) {
	switch t := viper.GetString("storage.type"); t {
	case "local", "":
		return NewLocal(viper.GetString("storage.local.dir"))
	case "s3":
		return NewS3(ctx)
	case "minio":
		return NewMinio(ctx)
	default:
		return nil, fmt.Errorf("unknown storage type %q", t)
	}
}

// ReadAll fetches a whole object into memory
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid object key %q", key)
	}

	return nil
}
