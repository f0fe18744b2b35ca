package basemap

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// DiskCache persists fetched tiles in a local SQLite database so the
// in-memory cache survives restarts. Optional: a nil *DiskCache is a no-op
// layer in the proxy.
type DiskCache struct {
	db  *sql.DB
	ttl time.Duration
}

const diskCacheMigration = `
CREATE TABLE IF NOT EXISTS tiles (
	style      TEXT NOT NULL,
	z          INTEGER NOT NULL,
	x          INTEGER NOT NULL,
	y          INTEGER NOT NULL,
	data       BLOB NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (style, z, x, y)
);

CREATE INDEX IF NOT EXISTS idx_tiles_created_at ON tiles(created_at);
`

// NewDiskCache opens (or creates) the tile database at path and configures
// WAL mode.
func NewDiskCache(path string, ttl time.Duration) (*DiskCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "basemap: open tile cache db")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "basemap: exec %s", pragma)
		}
	}
	if _, err := db.Exec(diskCacheMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "basemap: migrate tile cache db")
	}
	return &DiskCache{db: db, ttl: ttl}, nil
}

func (c *DiskCache) Close() error {
	return c.db.Close()
}

// Get returns the cached tile bytes, or nil when missing or expired.
func (c *DiskCache) Get(ctx context.Context, style string, z, x, y int) ([]byte, error) {
	var data []byte
	var createdAt time.Time
	err := c.db.QueryRowContext(ctx,
		`SELECT data, created_at FROM tiles WHERE style = ? AND z = ? AND x = ? AND y = ?`,
		style, z, x, y,
	).Scan(&data, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "basemap: query tile")
	}
	if time.Since(createdAt) > c.ttl {
		_, _ = c.db.ExecContext(ctx,
			`DELETE FROM tiles WHERE style = ? AND z = ? AND x = ? AND y = ?`,
			style, z, x, y)
		return nil, nil
	}
	return data, nil
}

// Put upserts a tile.
func (c *DiskCache) Put(ctx context.Context, style string, z, x, y int, data []byte) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO tiles (style, z, x, y, data, created_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (style, z, x, y) DO UPDATE SET data = excluded.data, created_at = excluded.created_at`,
		style, z, x, y, data, time.Now().UTC())
	return eris.Wrap(err, "basemap: upsert tile")
}

// Prune deletes expired tiles. Returns the number removed.
func (c *DiskCache) Prune(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM tiles WHERE created_at < ?`, time.Now().UTC().Add(-c.ttl))
	if err != nil {
		return 0, eris.Wrap(err, "basemap: prune tiles")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
