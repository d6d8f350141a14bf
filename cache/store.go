// Package cache stores inferred signatures in SQLite, keyed by the content
// hash of a program and the fingerprint of the namespace it was checked
// against.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chazu/stackfx/effect"
)

// ErrNotFound indicates no signature is cached for a key.
var ErrNotFound = errors.New("signature not cached")

// Key identifies one cached signature.
type Key struct {
	Program   [32]byte // compiler/hash content hash
	Namespace [32]byte // namespace fingerprint
}

// Store is a SQLite-backed signature cache.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens or creates the cache database at dbPath. The special path
// ":memory:" keeps the cache in memory.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// an in-memory database exists per connection
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS signatures (
		program    BLOB NOT NULL,
		namespace  BLOB NOT NULL,
		sig        BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (program, namespace)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// DefaultPath returns the cache location used when none is configured.
func DefaultPath() (string, error) {
	if p := os.Getenv("STACKFX_CACHE"); p != "" {
		return p, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("getting cache dir: %w", err)
	}
	return filepath.Join(dir, "stackfx", "signatures.db"), nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.dbPath
}

// Put stores sig under k, replacing any previous entry.
func (s *Store) Put(k Key, sig effect.Signature) error {
	data, err := effect.MarshalSignature(sig)
	if err != nil {
		return fmt.Errorf("encoding signature: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO signatures (program, namespace, sig, created_at) VALUES (?, ?, ?, ?)",
		k.Program[:], k.Namespace[:], data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving signature: %w", err)
	}
	return nil
}

// Get returns the signature stored under k, or ErrNotFound.
func (s *Store) Get(k Key) (effect.Signature, error) {
	var data []byte
	err := s.db.QueryRow(
		"SELECT sig FROM signatures WHERE program = ? AND namespace = ?",
		k.Program[:], k.Namespace[:],
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return effect.Signature{}, ErrNotFound
		}
		return effect.Signature{}, fmt.Errorf("querying signature: %w", err)
	}

	sig, err := effect.UnmarshalSignature(data)
	if err != nil {
		return effect.Signature{}, err
	}
	return sig, nil
}

// Len returns the number of cached signatures.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM signatures").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting signatures: %w", err)
	}
	return n, nil
}

// Prune deletes entries created before cutoff and entries checked against
// any namespace other than keep. It returns the number of rows deleted.
func (s *Store) Prune(keep [32]byte, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"DELETE FROM signatures WHERE namespace != ? OR created_at < ?",
		keep[:], cutoff.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning signatures: %w", err)
	}
	return res.RowsAffected()
}
