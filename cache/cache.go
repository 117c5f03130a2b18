// Package cache provides the SQLite-backed offline store for storycache:
// expiry-aware story records, bookmark marks, and the pending-sync queue.
//
// The cache is advisory. When the underlying store cannot be opened, or a
// statement fails mid-flight, every operation degrades to a no-op or an
// empty result instead of returning an error; the network remains the
// ground truth for the feed either way.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/newsgenie/storycache/model"
	_ "modernc.org/sqlite"
)

// DefaultTTL is how long a cached story stays live unless a caller
// chooses otherwise.
const DefaultTTL = time.Hour

// Sync queue operations replayed against the remote source.
const (
	SyncOpBookmark   = "bookmark"
	SyncOpUnbookmark = "unbookmark"
)

// PendingSync is one queued remote mutation awaiting replay.
type PendingSync struct {
	ID        int64  `json:"id"`
	StoryID   string `json:"storyId"`
	Op        string `json:"op"`
	CreatedAt int64  `json:"createdAt"` // epoch millis
}

// Cache manages the on-device story store. A disabled instance (nil db)
// behaves as an always-empty, always-successful cache.
type Cache struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (or creates) the store at dbPath and ensures the schema.
// Use ":memory:" for an in-memory store (useful for testing).
func Open(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open story cache: %w", err)
	}

	c := &Cache{db: db, logger: slog.Default(), now: time.Now}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return c, nil
}

// OpenOrDegrade opens the store at dbPath, falling back to a disabled
// no-op cache when the platform store is unavailable. The failure is
// logged once here, never again per call.
func OpenOrDegrade(dbPath string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}

	c, err := Open(dbPath)
	if err != nil {
		logger.Warn("story cache unavailable, running without offline storage", "path", dbPath, "err", err)
		return Disabled()
	}

	c.logger = logger
	return c
}

// Disabled returns a cache with no backing store. Every read is empty,
// every write a no-op.
func Disabled() *Cache {
	return &Cache{logger: slog.Default(), now: time.Now}
}

// Available reports whether a backing store was opened.
func (c *Cache) Available() bool {
	return c.db != nil
}

// Close closes the backing store. Safe on a disabled cache.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Cache) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cached_stories (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		cached_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bookmarks (
		story_id TEXT PRIMARY KEY,
		bookmarked_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pending_syncs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		story_id TEXT NOT NULL,
		op TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cached_stories_expires ON cached_stories(expires_at);
	CREATE INDEX IF NOT EXISTS idx_cached_stories_cached ON cached_stories(cached_at DESC);
	`

	_, err := c.db.Exec(schema)
	return err
}

// Put upserts the given stories, each with cached_at = now and
// expires_at = now + ttl. A later Put for the same ID fully replaces the
// prior record, even if the new ttl is shorter. Empty input is a no-op.
func (c *Cache) Put(stories []model.StoryCard, ttl time.Duration) {
	if c.db == nil || len(stories) == 0 {
		return
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := c.now().UnixMilli()
	expiresAt := now + ttl.Milliseconds()

	for _, story := range stories {
		data, err := json.Marshal(story)
		if err != nil {
			c.logger.Warn("failed to encode story for cache", "id", story.ID, "err", err)
			continue
		}

		_, err = c.db.Exec(
			"INSERT OR REPLACE INTO cached_stories (id, data, cached_at, expires_at) VALUES (?, ?, ?, ?)",
			story.ID, string(data), now, expiresAt,
		)
		if err != nil {
			c.logger.Warn("failed to cache story", "id", story.ID, "err", err)
		}
	}
}

// Get returns the cached story for the given ID, or nil if it was never
// cached or has expired. Callers cannot distinguish the two cases; the
// fallback (fetch remote) is the same either way.
func (c *Cache) Get(storyID string) *model.StoryCard {
	if c.db == nil {
		return nil
	}

	var data string
	err := c.db.QueryRow(
		"SELECT data FROM cached_stories WHERE id = ? AND expires_at > ?",
		storyID, c.now().UnixMilli(),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		c.logger.Warn("failed to read cached story", "id", storyID, "err", err)
		return nil
	}

	var story model.StoryCard
	if err := json.Unmarshal([]byte(data), &story); err != nil {
		c.logger.Warn("failed to decode cached story", "id", storyID, "err", err)
		return nil
	}
	return &story
}

// GetAllLive returns live cached stories, most recently cached first,
// truncated to limit. Expired rows are excluded without a sweep.
func (c *Cache) GetAllLive(limit int) []model.StoryCard {
	if c.db == nil {
		return nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := c.db.Query(
		"SELECT data FROM cached_stories WHERE expires_at > ? ORDER BY cached_at DESC, id LIMIT ?",
		c.now().UnixMilli(), limit,
	)
	if err != nil {
		c.logger.Warn("failed to query cached stories", "err", err)
		return nil
	}
	defer rows.Close()

	var stories []model.StoryCard
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			c.logger.Warn("failed to scan cached story", "err", err)
			return stories
		}

		var story model.StoryCard
		if err := json.Unmarshal([]byte(data), &story); err != nil {
			continue
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		c.logger.Warn("failed to iterate cached stories", "err", err)
	}
	return stories
}

// EvictExpired deletes every record whose expiry has passed and returns
// the number of rows removed. Idempotent, and safe to run concurrently
// with Put: only rows already expired at call time are removed.
func (c *Cache) EvictExpired() int {
	if c.db == nil {
		return 0
	}

	res, err := c.db.Exec("DELETE FROM cached_stories WHERE expires_at <= ?", c.now().UnixMilli())
	if err != nil {
		c.logger.Warn("failed to evict expired stories", "err", err)
		return 0
	}
	evicted, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(evicted)
}

// CountCached returns the number of live cached stories.
func (c *Cache) CountCached() int {
	if c.db == nil {
		return 0
	}

	var count int
	err := c.db.QueryRow(
		"SELECT COUNT(*) FROM cached_stories WHERE expires_at > ?",
		c.now().UnixMilli(),
	).Scan(&count)
	if err != nil {
		c.logger.Warn("failed to count cached stories", "err", err)
		return 0
	}
	return count
}

// SetBookmark upserts a bookmark mark for the story (bookmarked=true) or
// deletes any existing mark (bookmarked=false). Idempotent.
func (c *Cache) SetBookmark(storyID string, bookmarked bool) {
	if c.db == nil {
		return
	}

	var err error
	if bookmarked {
		_, err = c.db.Exec(
			"INSERT OR REPLACE INTO bookmarks (story_id, bookmarked_at) VALUES (?, ?)",
			storyID, c.now().UnixMilli(),
		)
	} else {
		_, err = c.db.Exec("DELETE FROM bookmarks WHERE story_id = ?", storyID)
	}
	if err != nil {
		c.logger.Warn("failed to update bookmark", "id", storyID, "err", err)
	}
}

// IsBookmarked reports whether a mark exists for the story.
func (c *Cache) IsBookmarked(storyID string) bool {
	if c.db == nil {
		return false
	}

	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM bookmarks WHERE story_id = ?", storyID).Scan(&count)
	if err != nil {
		c.logger.Warn("failed to check bookmark", "id", storyID, "err", err)
		return false
	}
	return count > 0
}

// ListBookmarkIDs returns bookmarked story IDs, most recently
// bookmarked first. Bookmarks are not TTL'd; a mark can outlive the
// story's cached payload.
func (c *Cache) ListBookmarkIDs() []string {
	if c.db == nil {
		return nil
	}

	rows, err := c.db.Query("SELECT story_id FROM bookmarks ORDER BY bookmarked_at DESC, story_id")
	if err != nil {
		c.logger.Warn("failed to list bookmarks", "err", err)
		return nil
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			c.logger.Warn("failed to scan bookmark", "err", err)
			return ids
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		c.logger.Warn("failed to iterate bookmarks", "err", err)
	}
	return ids
}

// EnqueueSync appends a remote mutation to the pending-sync queue.
func (c *Cache) EnqueueSync(storyID, op string) {
	if c.db == nil {
		return
	}

	_, err := c.db.Exec(
		"INSERT INTO pending_syncs (story_id, op, created_at) VALUES (?, ?, ?)",
		storyID, op, c.now().UnixMilli(),
	)
	if err != nil {
		c.logger.Warn("failed to enqueue sync op", "id", storyID, "op", op, "err", err)
	}
}

// PendingSyncs returns queued remote mutations in submission order.
func (c *Cache) PendingSyncs() []PendingSync {
	if c.db == nil {
		return nil
	}

	rows, err := c.db.Query("SELECT id, story_id, op, created_at FROM pending_syncs ORDER BY id")
	if err != nil {
		c.logger.Warn("failed to list pending syncs", "err", err)
		return nil
	}
	defer rows.Close()

	var pending []PendingSync
	for rows.Next() {
		var p PendingSync
		if err := rows.Scan(&p.ID, &p.StoryID, &p.Op, &p.CreatedAt); err != nil {
			c.logger.Warn("failed to scan pending sync", "err", err)
			return pending
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		c.logger.Warn("failed to iterate pending syncs", "err", err)
	}
	return pending
}

// DeleteSync removes a replayed mutation from the queue.
func (c *Cache) DeleteSync(id int64) {
	if c.db == nil {
		return
	}

	if _, err := c.db.Exec("DELETE FROM pending_syncs WHERE id = ?", id); err != nil {
		c.logger.Warn("failed to delete pending sync", "id", id, "err", err)
	}
}

// Clear deletes all cached stories, bookmarks, and pending syncs. Used
// on logout/reset.
func (c *Cache) Clear() {
	if c.db == nil {
		return
	}

	for _, table := range []string{"cached_stories", "bookmarks", "pending_syncs"} {
		if _, err := c.db.Exec("DELETE FROM " + table); err != nil {
			c.logger.Warn("failed to clear table", "table", table, "err", err)
		}
	}
}
