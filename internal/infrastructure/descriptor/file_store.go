// Package descriptor persists project descriptors on the local file system.
package descriptor

import (
	"errors"
	"os"

	"go.uber.org/zap"

	"foresight.thundra.io/cli/internal/core/instrument"
	"foresight.thundra.io/cli/internal/core/pom"
)

// FileStore loads descriptors from and writes them back to their own path.
// Writes are full rewrites that keep the file's permission bits.
type FileStore struct {
	logger *zap.Logger
}

// NewFileStore creates a file-backed descriptor store.
func NewFileStore(logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{logger: logger}
}

// Load reads and parses the descriptor at path.
func (s *FileStore) Load(path string) (*pom.Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pom.NewParseError(path, err)
	}
	defer f.Close()

	d, err := pom.Parse(f)
	if err != nil {
		var de *pom.DescriptorError
		if errors.As(err, &de) {
			de.Path = path
			return nil, de
		}
		return nil, pom.NewParseError(path, err)
	}
	s.logger.Debug("Loaded descriptor", zap.String("pom", path))
	return d, nil
}

// Save serializes d and overwrites path.
func (s *FileStore) Save(path string, d *pom.Descriptor) error {
	data, err := d.Bytes()
	if err != nil {
		return pom.NewWriteError(path, err)
	}

	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	if err := os.WriteFile(path, data, perm); err != nil {
		return pom.NewWriteError(path, err)
	}
	s.logger.Debug("Wrote descriptor", zap.String("pom", path), zap.Int("bytes", len(data)))
	return nil
}

var _ instrument.DescriptorStore = (*FileStore)(nil)
