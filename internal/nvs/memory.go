package nvs

import (
	"errors"
	"sync"
)

var errWriteFailed = errors.New("nvs: write failed")

type memoryEntry struct {
	kind  string
	value []byte
}

// MemoryStore is an in-memory Store used in tests and early bring-up.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]map[string]memoryEntry

	// FailWrites makes every write return an error, for exercising the
	// commit failure paths.
	FailWrites bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]map[string]memoryEntry)}
}

func (s *MemoryStore) get(namespace, key, wantKind string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.entries[namespace]
	if !ok {
		return nil, ErrNotFound
	}
	entry, ok := ns[key]
	if !ok {
		return nil, ErrNotFound
	}
	if entry.kind != wantKind {
		return nil, ErrTypeMismatch
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (s *MemoryStore) set(namespace, key, kind string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return errWriteFailed
	}

	ns, ok := s.entries[namespace]
	if !ok {
		ns = make(map[string]memoryEntry)
		s.entries[namespace] = ns
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	ns[key] = memoryEntry{kind: kind, value: stored}
	return nil
}

// GetInt64 reads a signed integer value.
func (s *MemoryStore) GetInt64(namespace, key string) (int64, error) {
	raw, err := s.get(namespace, key, kindInt64)
	if err != nil {
		return 0, err
	}
	var v int64
	for i := 7; i >= 0; i-- {
		v = v<<8 | int64(raw[i])
	}
	return v, nil
}

// SetInt64 writes a signed integer value.
func (s *MemoryStore) SetInt64(namespace, key string, value int64) error {
	raw := make([]byte, 8)
	for i := 0; i < 8; i++ {
		raw[i] = byte(value >> (8 * i))
	}
	return s.set(namespace, key, kindInt64, raw)
}

// GetBool reads a boolean value.
func (s *MemoryStore) GetBool(namespace, key string) (bool, error) {
	raw, err := s.get(namespace, key, kindBool)
	if err != nil {
		return false, err
	}
	return len(raw) == 1 && raw[0] != 0, nil
}

// SetBool writes a boolean value.
func (s *MemoryStore) SetBool(namespace, key string, value bool) error {
	raw := []byte{0}
	if value {
		raw[0] = 1
	}
	return s.set(namespace, key, kindBool, raw)
}

// GetString reads a string value.
func (s *MemoryStore) GetString(namespace, key string) (string, error) {
	raw, err := s.get(namespace, key, kindString)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SetString writes a string value.
func (s *MemoryStore) SetString(namespace, key, value string) error {
	return s.set(namespace, key, kindString, []byte(value))
}

// GetBlob reads an opaque blob value.
func (s *MemoryStore) GetBlob(namespace, key string) ([]byte, error) {
	return s.get(namespace, key, kindBlob)
}

// SetBlob writes an opaque blob value.
func (s *MemoryStore) SetBlob(namespace, key string, value []byte) error {
	return s.set(namespace, key, kindBlob, value)
}

// EraseNamespace removes every key under the namespace.
func (s *MemoryStore) EraseNamespace(namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, namespace)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
