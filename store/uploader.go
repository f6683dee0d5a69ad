package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"affirmation-pipeline/types"
)

// ObjectStore is one durable destination for artifact bytes. Keys are the
// artifact's date-stamped names, so a re-upload after a transient failure
// overwrites the same object instead of duplicating it.
type ObjectStore interface {
	Name() string
	Put(ctx context.Context, key, path, contentType string) (*types.RemoteReference, error)
}

// PermanentError marks a destination failure that retrying cannot fix
// (bad credentials, missing permission)
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Uploader pushes an artifact to every configured destination with a
// bounded retry on transient failures. On any failure the local artifact
// stays on disk for manual recovery.
type Uploader struct {
	stores   []ObjectStore
	attempts int
}

func NewUploader(stores ...ObjectStore) *Uploader {
	return &Uploader{stores: stores, attempts: 3}
}

// Upload sends the artifact (every card, for carousels) to each store and
// merges the resulting references
func (u *Uploader) Upload(ctx context.Context, artifact *types.VideoArtifact) (*types.RemoteReference, error) {
	ref := &types.RemoteReference{}
	for _, st := range u.stores {
		log.Printf("[store] Uploading %s to %s...", artifact.Name, st.Name())

		if artifact.Mode == types.RenderModeCarousel {
			base := strings.TrimSuffix(artifact.Name, filepath.Ext(artifact.Name))
			for i, card := range artifact.Cards {
				key := fmt.Sprintf("%s_card_%02d.jpg", base, i+1)
				r, err := u.putWithRetry(ctx, st, key, card, "image/jpeg")
				if err != nil {
					return nil, err
				}
				if r.URL != "" {
					ref.CardURLs = append(ref.CardURLs, r.URL)
				}
				if r.DriveFileID != "" && ref.DriveFileID == "" {
					ref.DriveFileID = r.DriveFileID
				}
			}
			continue
		}

		r, err := u.putWithRetry(ctx, st, artifact.Name, artifact.Path, "video/mp4")
		if err != nil {
			return nil, err
		}
		if r.URL != "" {
			ref.Key = r.Key
			ref.URL = r.URL
		}
		if r.DriveFileID != "" {
			ref.DriveFileID = r.DriveFileID
		}
	}
	log.Printf("[store] ✅ Upload complete (url=%s drive=%s cards=%d)", ref.URL, ref.DriveFileID, len(ref.CardURLs))
	return ref, nil
}

func (u *Uploader) putWithRetry(ctx context.Context, st ObjectStore, key, path, contentType string) (*types.RemoteReference, error) {
	var lastErr error
	for attempt := 1; attempt <= u.attempts; attempt++ {
		r, err := st.Put(ctx, key, path, contentType)
		if err == nil {
			return r, nil
		}
		var perm *PermanentError
		if errors.As(err, &perm) {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrUpload, st.Name(), perm.Err)
		}
		lastErr = err
		if attempt < u.attempts {
			wait := time.Duration(attempt) * 2 * time.Second
			log.Printf("[store] %s attempt %d failed: %v — retrying in %s", st.Name(), attempt, err, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %s: %v", types.ErrUpload, st.Name(), ctx.Err())
			}
		}
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %v", types.ErrUpload, st.Name(), u.attempts, lastErr)
}
