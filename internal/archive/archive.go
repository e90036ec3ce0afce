// Package archive keeps a copy of every acquired zip in S3-compatible
// object storage so that runs can be replayed after staging is cleaned up.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/JonMunkholm/gathernomics/internal/acquire"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known, or -1 if unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is an S3-compatible object store.
type Storage interface {
	// Put uploads an object under key, streaming from r.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
}

// Key returns the object key for an acquired archive:
// <safe table name>/<timestamp>.zip
func Key(ac *acquire.Context) string {
	return path.Join(acquire.SafeName(ac.Name), ac.Timestamp+".zip")
}

// Archiver uploads acquired zips to a Storage.
type Archiver struct {
	storage Storage
	timeout time.Duration
}

// New returns an Archiver writing to storage. A positive timeout bounds
// each upload.
func New(storage Storage, timeout time.Duration) *Archiver {
	return &Archiver{storage: storage, timeout: timeout}
}

// Store uploads the zip referenced by ac.
func (a *Archiver) Store(ctx context.Context, ac *acquire.Context) (ObjectInfo, error) {
	f, err := os.Open(ac.ZipPath)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("open archive %s: %w", ac.ZipPath, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat archive %s: %w", ac.ZipPath, err)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	key := Key(ac)
	info, err := a.storage.Put(ctx, key, f, PutObjectOptions{
		Size:        st.Size(),
		ContentType: "application/zip",
		Metadata: map[string]string{
			"table":     ac.Name,
			"source":    ac.URL,
			"timestamp": ac.Timestamp,
		},
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put %s: %w", key, err)
	}
	return info, nil
}
