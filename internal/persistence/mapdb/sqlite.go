package mapdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SavedMap is one row of the saved-map index. The snapshot file on disk
// is the source of truth; the index only exists for listing and lookup.
type SavedMap struct {
	Name    string
	Path    string
	Tick    uint64
	Tiles   int
	SavedAt time.Time
}

// SQLiteIndex records saved maps in a local sqlite database. Writes go
// through a single writer goroutine so a save never blocks on the db.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type req struct {
	row  SavedMap
	done chan struct{} // barrier request when row.Name is empty
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 64),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			name TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			tick INTEGER NOT NULL,
			tiles INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_saves_saved_at ON saves(saved_at);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordSave queues an index row for a written snapshot. Dropped when
// the writer is backed up; the snapshot file remains the source of truth.
func (s *SQLiteIndex) RecordSave(name, path string, tick uint64, tiles int) {
	if s == nil || s.closed.Load() {
		return
	}
	row := SavedMap{
		Name:    name,
		Path:    path,
		Tick:    tick,
		Tiles:   tiles,
		SavedAt: time.Now().UTC(),
	}
	select {
	case s.ch <- req{row: row}:
	default:
	}
}

// Sync blocks until every previously queued row is committed.
func (s *SQLiteIndex) Sync() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{done: done}
	<-done
}

// List returns all saved maps, most recent first.
func (s *SQLiteIndex) List() ([]SavedMap, error) {
	rows, err := s.db.Query(`SELECT name, path, tick, tiles, saved_at FROM saves ORDER BY saved_at DESC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SavedMap
	for rows.Next() {
		m, err := scanSave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Get looks up one saved map by name.
func (s *SQLiteIndex) Get(name string) (SavedMap, bool, error) {
	rows, err := s.db.Query(`SELECT name, path, tick, tiles, saved_at FROM saves WHERE name = ?`, name)
	if err != nil {
		return SavedMap{}, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return SavedMap{}, false, rows.Err()
	}
	m, err := scanSave(rows)
	if err != nil {
		return SavedMap{}, false, err
	}
	return m, true, nil
}

// Delete removes a saved map's index row. The snapshot file is left alone.
func (s *SQLiteIndex) Delete(name string) error {
	_, err := s.db.Exec(`DELETE FROM saves WHERE name = ?`, name)
	return err
}

func scanSave(rows *sql.Rows) (SavedMap, error) {
	var m SavedMap
	var tick int64
	var savedAt string
	if err := rows.Scan(&m.Name, &m.Path, &tick, &m.Tiles, &savedAt); err != nil {
		return SavedMap{}, err
	}
	m.Tick = uint64(tick)
	if t, err := time.Parse(time.RFC3339Nano, savedAt); err == nil {
		m.SavedAt = t
	}
	return m, nil
}

func (s *SQLiteIndex) loop() {
	insert, err := s.db.Prepare(`INSERT OR REPLACE INTO saves(name,path,tick,tiles,saved_at) VALUES(?,?,?,?,?)`)
	if err != nil {
		// Drain so senders never block on a dead writer.
		for r := range s.ch {
			if r.done != nil {
				close(r.done)
			}
		}
		return
	}
	defer insert.Close()

	for r := range s.ch {
		if r.done != nil {
			close(r.done)
			continue
		}
		_, _ = insert.Exec(
			r.row.Name,
			r.row.Path,
			int64(r.row.Tick),
			r.row.Tiles,
			r.row.SavedAt.Format(time.RFC3339Nano),
		)
	}
}
