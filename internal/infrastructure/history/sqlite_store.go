package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/ports"
)

// SQLiteStore persists turn history in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSQLiteStore creates (or opens) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history db: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		prompt TEXT,
		intent TEXT,
		state TEXT,
		commands TEXT,
		files_changed TEXT,
		error TEXT,
		working_dir TEXT
	);`)
	return err
}

// Save inserts a new record.
func (s *SQLiteStore) Save(record domain.HistoryRecord) error {
	record = normalize(record)
	commands, err := json.Marshal(record.Commands)
	if err != nil {
		return err
	}
	files, err := json.Marshal(record.FilesChanged)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`INSERT INTO turns
		(id, created_at, prompt, intent, state, commands, files_changed, error, working_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Timestamp.UnixNano(),
		record.Prompt,
		record.Intent,
		string(record.State),
		string(commands),
		string(files),
		record.Error,
		record.WorkingDir,
	)
	return err
}

// Records returns history entries newest first (limit/search optional).
func (s *SQLiteStore) Records(limit int, search string) ([]domain.HistoryRecord, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT id, created_at, prompt, intent, state, commands, files_changed, error, working_dir FROM turns")
	var args []interface{}
	if search != "" {
		builder.WriteString(" WHERE prompt LIKE ? OR intent LIKE ? OR commands LIKE ?")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	builder.WriteString(" ORDER BY created_at DESC, rowid DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		var rec domain.HistoryRecord
		var createdAt int64
		var state, commands, files string
		if err := rows.Scan(&rec.ID, &createdAt, &rec.Prompt, &rec.Intent, &state, &commands, &files, &rec.Error, &rec.WorkingDir); err != nil {
			return nil, err
		}
		rec.Timestamp = time.Unix(0, createdAt).UTC()
		rec.State = domain.TurnState(state)
		_ = json.Unmarshal([]byte(commands), &rec.Commands)
		_ = json.Unmarshal([]byte(files), &rec.FilesChanged)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM turns")
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)
