// Package settings persists calculator inputs between runs as a YAML file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/d-led/iiwsit/pkg/decision"
)

// Key identifies the stored settings. The file is Key + ".yaml".
const Key = "iiwsit-calculator-settings"

// DefaultDebounce is how long Watch waits for a burst of writes to settle.
const DefaultDebounce = 300 * time.Millisecond

const errorKey = "error"

// Store reads and writes calculator settings in a directory.
type Store struct {
	logger   *slog.Logger
	dir      string
	debounce time.Duration
	mu       sync.Mutex // serializes read-modify-write in Update
}

// New creates a store rooted at dir. The directory is created on first save.
func New(dir string) *Store {
	return &Store{
		logger:   slog.Default().With("component", "settings"),
		dir:      dir,
		debounce: DefaultDebounce,
	}
}

// DefaultDir returns the per-user settings directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	return filepath.Join(base, "iiwsit"), nil
}

// SetLogger replaces the store's logger.
func (s *Store) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// SetDebounce sets the quiet period Watch waits for before reloading.
func (s *Store) SetDebounce(d time.Duration) {
	s.debounce = d
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, Key+".yaml")
}

// Load returns the stored settings merged over the defaults, so fields
// missing from the file keep their default values. A missing file yields
// the defaults. An unreadable or corrupt file is logged and also yields the
// defaults: loading never fails.
func (s *Store) Load() decision.Params {
	p, err := s.read()
	if err != nil {
		s.logger.Warn("Failed to load settings, using defaults", "path", s.Path(), errorKey, err)
		return decision.DefaultParams()
	}
	return p
}

// read is Load without the fallback for corrupt files.
func (s *Store) read() (decision.Params, error) {
	p := decision.DefaultParams()

	data, err := os.ReadFile(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read settings: %w", err)
	}

	// yaml.v3 leaves fields absent from the document untouched.
	if err := yaml.Unmarshal(data, &p); err != nil {
		return decision.DefaultParams(), fmt.Errorf("parse settings: %w", err)
	}
	return p, nil
}

// Save writes p, replacing any stored settings. The file is replaced
// atomically so a concurrent Load or Watch never sees a partial write.
func (s *Store) Save(p decision.Params) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := ensureDir(s.dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, Key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}

	s.logger.Debug("Saved settings", "path", s.Path())
	return nil
}

// Reset deletes the stored settings and returns the defaults.
func (s *Store) Reset() (decision.Params, error) {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return decision.DefaultParams(), fmt.Errorf("remove settings: %w", err)
	}
	return decision.DefaultParams(), nil
}

// HasStored reports whether a settings file exists.
func (s *Store) HasStored() bool {
	_, err := os.Stat(s.Path())
	return err == nil
}

// Update loads the settings, applies fn, and saves the result.
// fn may change a single field or several.
func (s *Store) Update(fn func(*decision.Params)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.Load()
	fn(&p)
	return s.Save(p)
}
