package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dl-alexandre/driveshelf/internal/logging"
	"github.com/dl-alexandre/driveshelf/internal/utils"
)

const (
	filePerm = 0644
	dirPerm  = 0755
)

// Store reads and writes the cache file
type Store struct {
	path   string
	logger logging.Logger
}

// NewStore creates a store for the cache file at path
func NewStore(path string, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the cache file path
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted cache. A missing, unreadable or malformed file
// yields an empty cache; the latter two are logged.
func (s *Store) Load() Cache {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Cache file unreadable, starting empty",
				logging.F("path", s.path),
				logging.F("error", err.Error()),
			)
		}
		return Cache{}
	}

	c := Cache{}
	if err := json.Unmarshal(data, &c); err != nil {
		s.logger.Warn("Cache file malformed, starting empty",
			logging.F("path", s.path),
			logging.F("error", err.Error()),
		)
		return Cache{}
	}
	if c == nil {
		// the file held a JSON null
		return Cache{}
	}
	return c
}

// Save writes c as 4-space indented JSON. The data goes to a temp file in
// the same directory which is then renamed over the cache file, so readers
// see either the old or the new content.
func (s *Store) Save(c Cache) error {
	if c == nil {
		c = Cache{}
	}
	data, err := encode(c)
	if err != nil {
		return s.writeError("failed to encode cache", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return s.writeError("failed to create cache directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return s.writeError("failed to create temp cache file", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return s.writeError("failed to write cache", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return s.writeError("failed to flush cache", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return s.writeError("failed to close cache", err)
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		cleanup()
		return s.writeError("failed to set cache permissions", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		cleanup()
		return s.writeError("failed to replace cache file", err)
	}

	s.logger.Debug("Cache saved",
		logging.F("path", s.path),
		logging.F("folders", len(c)),
		logging.F("bytes", len(data)),
	)
	return nil
}

// ReadRaw returns the cache file bytes unchanged, or "{}" when the file
// does not exist
func (s *Store) ReadRaw() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []byte("{}"), nil
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	return data, nil
}

// encode renders links with '&' unescaped so the file stays readable
func encode(c Cache) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Store) writeError(message string, cause error) error {
	return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeCacheWriteFailed, message).
		WithContext("path", s.path).
		WithContext("cause", cause.Error()).
		Build(), cause)
}
