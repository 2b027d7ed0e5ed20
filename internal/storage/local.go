package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	pkgerrors "github.com/modehaus/lookbook-backend/internal/pkg/errors"
	"github.com/modehaus/lookbook-backend/internal/pkg/logger"
)

// LocalStore keeps artifacts as files under a single directory.
type LocalStore struct {
	log *logger.Logger
	dir string
}

func NewLocalStore(log *logger.Logger, dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir %s: %w", dir, err)
	}
	if log != nil {
		log = log.With("service", "LocalArtifactStore")
	}
	return &LocalStore{log: log, dir: dir}, nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key))
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat artifact %s: %w", key, err)
}

// Put writes to a temp file in the same directory and renames it into place,
// so a failed write never leaves a partial artifact behind. If the key
// already exists the stored artifact wins and the new bytes are discarded.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	final := s.path(key)
	if _, err := os.Stat(final); err == nil {
		if s.log != nil {
			s.log.Debug("Artifact already stored, keeping existing", "key", key)
		}
		return nil
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(key)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close artifact %s: %w", key, err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("finalize artifact %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact %s: %w", key, pkgerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("open artifact %s: %w", key, err)
	}
	return f, nil
}

func (s *LocalStore) Dir() string { return s.dir }
