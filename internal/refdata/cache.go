package refdata

import (
	"database/sql"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Cache stores parsed reference datasets in SQLite, keyed by source path
// and invalidated by source modification time.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (or creates) the cache database at path and runs the
// schema migration.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "refcache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "refcache: exec %s", pragma)
		}
	}

	const migration = `
CREATE TABLE IF NOT EXISTS ref_cache (
	source_path TEXT PRIMARY KEY,
	source_mtime INTEGER NOT NULL,
	payload TEXT NOT NULL
);`
	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "refcache: migrate")
	}

	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get loads a cached payload into dst. It returns false when the entry is
// missing or stale relative to the source file's modification time.
func (c *Cache) Get(sourcePath string, dst any) (bool, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return false, eris.Wrap(err, "refcache: stat source")
	}

	var mtime int64
	var payload string
	err = c.db.QueryRow(
		`SELECT source_mtime, payload FROM ref_cache WHERE source_path = ?`,
		sourcePath,
	).Scan(&mtime, &payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "refcache: query")
	}

	if mtime < info.ModTime().Unix() {
		return false, nil
	}

	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return false, eris.Wrap(err, "refcache: decode payload")
	}
	return true, nil
}

// Put stores a payload for the given source file.
func (c *Cache) Put(sourcePath string, payload any) error {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return eris.Wrap(err, "refcache: stat source")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "refcache: encode payload")
	}

	_, err = c.db.Exec(
		`INSERT INTO ref_cache (source_path, source_mtime, payload) VALUES (?, ?, ?)
		 ON CONFLICT(source_path) DO UPDATE SET source_mtime = excluded.source_mtime, payload = excluded.payload`,
		sourcePath, info.ModTime().Unix(), string(data),
	)
	return eris.Wrap(err, "refcache: upsert")
}

// Purge removes every cached entry.
func (c *Cache) Purge() (int, error) {
	res, err := c.db.Exec(`DELETE FROM ref_cache`)
	if err != nil {
		return 0, eris.Wrap(err, "refcache: purge")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
