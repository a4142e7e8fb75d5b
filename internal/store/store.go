package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store is the durable local metadata store the worker reads every cycle
// and writes on every mutation (spec §4.1).
type Store interface {
	Get(path string) (*FileRecord, bool, error)
	GetByID(id string) (*FileRecord, bool, error)
	GetByHash(hash string) (*FileRecord, bool, error)
	Upsert(record *FileRecord) error
	Delete(path string) error
	ListAll() ([]*FileRecord, error)
	Cursor() (uint64, error)
	SetCursor(cursor uint64) error
	Close() error
}

const (
	sqlLoadAll = `SELECT path, id, hash, modified_at, server_version,
		group_folder_id, is_group_root FROM files`

	sqlUpsert = `INSERT INTO files
		(path, id, hash, modified_at, server_version, group_folder_id, is_group_root)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
		 id = excluded.id,
		 hash = excluded.hash,
		 modified_at = excluded.modified_at,
		 server_version = excluded.server_version,
		 group_folder_id = excluded.group_folder_id,
		 is_group_root = excluded.is_group_root`

	sqlDelete = `DELETE FROM files WHERE path = ?`

	sqlGetCursor = `SELECT value FROM cursor WHERE id = 0`

	sqlSetCursor = `UPDATE cursor SET value = ? WHERE id = 0 AND value < ?`
)

// sqliteStore is the sole writer to the sync database. It mirrors the
// teacher's BaselineManager: a single mutex-serialized connection
// (SetMaxOpenConns(1)) backed by an in-memory cache that is patched
// incrementally on every write rather than reloaded (spec §4.1: "each
// operation is atomic with respect to concurrent callers").
type sqliteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *slog.Logger

	byPath map[string]*FileRecord
	byID   map[string]*FileRecord
	byHash map[string]*FileRecord
}

// Open opens the SQLite database at dbPath, runs migrations, loads the
// existing rows into memory, and returns a ready-to-use Store. The database
// uses WAL mode for crash-safe durability without blocking readers.
func Open(dbPath string, logger *slog.Logger) (Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database %s: %w", dbPath, err)
	}

	// Sole-writer pattern: only one connection is ever open, so SQLite's
	// own locking never contends with itself across goroutines.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &sqliteStore{
		db:     db,
		logger: logger,
		byPath: make(map[string]*FileRecord),
		byID:   make(map[string]*FileRecord),
		byHash: make(map[string]*FileRecord),
	}

	if err := s.load(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("local store opened", slog.String("db_path", dbPath), slog.Int("records", len(s.byPath)))

	return s, nil
}

func (s *sqliteStore) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, sqlLoadAll)
	if err != nil {
		return fmt.Errorf("store: loading records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return err
		}

		s.index(r)
	}

	return rows.Err()
}

func scanRecord(rows *sql.Rows) (*FileRecord, error) {
	var (
		r             FileRecord
		id            sql.NullString
		groupFolderID sql.NullString
		isGroupRoot   int
	)

	if err := rows.Scan(&r.Path, &id, &r.Hash, &r.ModifiedAt, &r.ServerVersion,
		&groupFolderID, &isGroupRoot); err != nil {
		return nil, fmt.Errorf("store: scanning record row: %w", err)
	}

	if id.Valid {
		r.ID = &id.String
	}

	if groupFolderID.Valid {
		r.GroupFolderID = &groupFolderID.String
	}

	r.IsGroupRoot = isGroupRoot != 0

	return &r, nil
}

// index inserts/replaces r in every in-memory map, keeping ByID/ByHash
// consistent with ByPath.
func (s *sqliteStore) index(r *FileRecord) {
	s.byPath[r.Path] = r

	if r.ID != nil {
		s.byID[*r.ID] = r
	}

	if r.Hash != "" && r.Hash != DirectorySentinel {
		s.byHash[r.Hash] = r
	}
}

// unindex removes path from every in-memory map.
func (s *sqliteStore) unindex(path string) {
	existing, ok := s.byPath[path]
	if !ok {
		return
	}

	delete(s.byPath, path)

	if existing.ID != nil {
		if cur, ok := s.byID[*existing.ID]; ok && cur.Path == path {
			delete(s.byID, *existing.ID)
		}
	}

	if existing.Hash != "" {
		if cur, ok := s.byHash[existing.Hash]; ok && cur.Path == path {
			delete(s.byHash, existing.Hash)
		}
	}
}

func (s *sqliteStore) Get(path string) (*FileRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byPath[path]

	return r, ok, nil
}

func (s *sqliteStore) GetByID(id string) (*FileRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]

	return r, ok, nil
}

func (s *sqliteStore) GetByHash(hash string) (*FileRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byHash[hash]

	return r, ok, nil
}

// Upsert is idempotent (spec §4.1).
func (s *sqliteStore) Upsert(record *FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id, groupFolderID sql.NullString
	if record.ID != nil {
		id = sql.NullString{String: *record.ID, Valid: true}
	}

	if record.GroupFolderID != nil {
		groupFolderID = sql.NullString{String: *record.GroupFolderID, Valid: true}
	}

	isGroupRoot := 0
	if record.IsGroupRoot {
		isGroupRoot = 1
	}

	_, err := s.db.Exec(sqlUpsert, record.Path, id, record.Hash, record.ModifiedAt,
		record.ServerVersion, groupFolderID, isGroupRoot)
	if err != nil {
		return fmt.Errorf("store: upserting %s: %w", record.Path, err)
	}

	s.unindex(record.Path)
	s.index(record)

	return nil
}

func (s *sqliteStore) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(sqlDelete, path); err != nil {
		return fmt.Errorf("store: deleting %s: %w", path, err)
	}

	s.unindex(path)

	return nil
}

// ListAll is a point-in-time snapshot; ordering is not guaranteed (spec
// §4.1).
func (s *sqliteStore) ListAll() ([]*FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*FileRecord, 0, len(s.byPath))
	for _, r := range s.byPath {
		out = append(out, r)
	}

	return out, nil
}

func (s *sqliteStore) Cursor() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value int64
	if err := s.db.QueryRow(sqlGetCursor).Scan(&value); err != nil {
		return 0, fmt.Errorf("store: reading cursor: %w", err)
	}

	return uint64(value), nil
}

// SetCursor persists cursor only when strictly greater than the stored
// value, keeping the cursor non-decreasing across the process lifetime
// (spec §3 invariant, §4.7 "cursor monotonicity").
func (s *sqliteStore) SetCursor(cursor uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(sqlSetCursor, int64(cursor), int64(cursor)); err != nil {
		return fmt.Errorf("store: advancing cursor to %d: %w", cursor, err)
	}

	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
