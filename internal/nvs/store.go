package nvs

import (
	"errors"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrNotFound indicates the (namespace, key) pair does not exist.
	ErrNotFound = errors.New("nvs: key not found")

	// ErrTypeMismatch indicates the stored value has a different type
	// than the accessor used to read it.
	ErrTypeMismatch = errors.New("nvs: type mismatch")
)

// Store is the persistent key-value engine the settings layer writes
// through. Implementations must be safe for use from a single caller at
// a time; concurrent callers serialize in the owning component.
type Store interface {
	GetInt64(namespace, key string) (int64, error)
	SetInt64(namespace, key string, value int64) error

	GetBool(namespace, key string) (bool, error)
	SetBool(namespace, key string, value bool) error

	GetString(namespace, key string) (string, error)
	SetString(namespace, key, value string) error

	GetBlob(namespace, key string) ([]byte, error)
	SetBlob(namespace, key string, value []byte) error

	// EraseNamespace removes every key under the namespace.
	EraseNamespace(namespace string) error

	Close() error
}

// Value kinds recorded alongside each entry.
const (
	kindInt64  = "i64"
	kindBool   = "bool"
	kindString = "str"
	kindBlob   = "blob"
)
