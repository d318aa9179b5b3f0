package instrument

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"foresight.thundra.io/cli/internal/core/pom"
)

// memoryStore keeps descriptors as bytes, so every Load re-parses exactly
// what the previous Save wrote.
type memoryStore struct {
	files   map[string][]byte
	writes  map[string]int
	saveErr error
}

func newMemoryStore(files map[string]string) *memoryStore {
	s := &memoryStore{files: make(map[string][]byte), writes: make(map[string]int)}
	for path, content := range files {
		s.files[path] = []byte(content)
	}
	return s
}

func (s *memoryStore) Load(path string) (*pom.Descriptor, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	return pom.ParseBytes(data)
}

func (s *memoryStore) Save(path string, d *pom.Descriptor) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	s.files[path] = data
	s.writes[path]++
	return nil
}

func (s *memoryStore) descriptor(t *testing.T, path string) *pom.Descriptor {
	t.Helper()
	d, err := pom.ParseBytes(s.files[path])
	require.NoError(t, err)
	return d
}
