// Package store keeps encoded annotation databases as named, versioned
// snapshots in SQLite.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested snapshot does not exist.
var ErrNotFound = errors.New("not found")

// Driver names accepted in Config.
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go
	DriverCgo     = "sqlite3" // github.com/mattn/go-sqlite3
)

// Config selects the database driver and file.
type Config struct {
	Driver string // DriverModernc (default) or DriverCgo
	Path   string
}

// Snapshot describes one stored encoding of a database. Body is only
// populated by Get.
type Snapshot struct {
	ID        string
	Name      string
	Digest    string // hex sha256 of Body
	Format    string // version marker of Body, e.g. "#2"
	Columns   int
	Cells     int
	CreatedAt time.Time
	Body      []byte
}

// Digest returns the lowercase hex sha256 of an encoded body.
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
