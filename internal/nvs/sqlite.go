package nvs

import (
	"database/sql"
	"encoding/binary"
	"fmt"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists key-value entries in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if necessary) the store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}

	schema := `CREATE TABLE IF NOT EXISTS kv (
		namespace TEXT NOT NULL,
		key       TEXT NOT NULL,
		kind      TEXT NOT NULL,
		value     BLOB,
		PRIMARY KEY (namespace, key)
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) get(namespace, key, wantKind string) ([]byte, error) {
	var kind string
	var value []byte

	row := s.db.QueryRow(
		`SELECT kind, value FROM kv WHERE namespace = ? AND key = ?`,
		namespace, key)
	if err := row.Scan(&kind, &value); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s/%s: %w", namespace, key, err)
	}

	if kind != wantKind {
		return nil, ErrTypeMismatch
	}
	return value, nil
}

func (s *SQLiteStore) set(namespace, key, kind string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (namespace, key, kind, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET kind = excluded.kind, value = excluded.value`,
		namespace, key, kind, value)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", namespace, key, err)
	}
	return nil
}

// GetInt64 reads a signed integer value.
func (s *SQLiteStore) GetInt64(namespace, key string) (int64, error) {
	raw, err := s.get(namespace, key, kindInt64)
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, ErrTypeMismatch
	}
	return int64(binary.LittleEndian.Uint64(raw)), nil
}

// SetInt64 writes a signed integer value.
func (s *SQLiteStore) SetInt64(namespace, key string, value int64) error {
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint64(raw, uint64(value))
	return s.set(namespace, key, kindInt64, raw)
}

// GetBool reads a boolean value.
func (s *SQLiteStore) GetBool(namespace, key string) (bool, error) {
	raw, err := s.get(namespace, key, kindBool)
	if err != nil {
		return false, err
	}
	return len(raw) == 1 && raw[0] != 0, nil
}

// SetBool writes a boolean value.
func (s *SQLiteStore) SetBool(namespace, key string, value bool) error {
	raw := []byte{0}
	if value {
		raw[0] = 1
	}
	return s.set(namespace, key, kindBool, raw)
}

// GetString reads a string value.
func (s *SQLiteStore) GetString(namespace, key string) (string, error) {
	raw, err := s.get(namespace, key, kindString)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SetString writes a string value.
func (s *SQLiteStore) SetString(namespace, key, value string) error {
	return s.set(namespace, key, kindString, []byte(value))
}

// GetBlob reads an opaque blob value.
func (s *SQLiteStore) GetBlob(namespace, key string) ([]byte, error) {
	raw, err := s.get(namespace, key, kindBlob)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// SetBlob writes an opaque blob value.
func (s *SQLiteStore) SetBlob(namespace, key string, value []byte) error {
	return s.set(namespace, key, kindBlob, value)
}

// EraseNamespace removes every key under the namespace.
func (s *SQLiteStore) EraseNamespace(namespace string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE namespace = ?`, namespace); err != nil {
		return fmt.Errorf("failed to erase namespace %s: %w", namespace, err)
	}
	return nil
}
