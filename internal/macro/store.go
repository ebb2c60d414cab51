package macro

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists macros as a JSON array in a single file.
type Store struct {
	path string
	log  *zap.Logger
}

// NewStore returns a store backed by path. A nil logger discards output.
func NewStore(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log.With(zap.String("component", "store"))}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored macros. A missing file yields an empty list; read
// and decode failures are logged and also yield an empty list.
func (s *Store) Load() []Macro {
	macros, err := ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Macro{}
		}
		s.log.Error("failed to load macros", zap.String("path", s.path), zap.Error(err))
		return []Macro{}
	}
	s.log.Debug("loaded macros", zap.String("path", s.path), zap.Int("count", len(macros)))
	return macros
}

// Save writes macros atomically and returns the bytes written.
func (s *Store) Save(macros []Macro) ([]byte, error) {
	data, err := Encode(macros)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Import reads macros from path and assigns every macro a fresh id so they
// cannot collide with local ones.
func Import(path string) ([]Macro, error) {
	macros, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	for i := range macros {
		macros[i].ID = uuid.NewString()
	}
	return macros, nil
}

// Export writes macros verbatim, ids included, to path.
func Export(path string, macros []Macro) error {
	data, err := Encode(macros)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// ReadFile reads and decodes a macro file.
func ReadFile(path string) ([]Macro, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()      //nolint:errcheck
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()      //nolint:errcheck
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
