package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Driver is DriverModernc (default) or DriverMattn.
	Driver string

	// Path is the database file path, or ":memory:".
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 1 for ":memory:", 4 otherwise.
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging.
	WALMode bool

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default configuration.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Driver:       DriverModernc,
		Path:         "data/journal.db",
		MaxOpenConns: 4,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	cfg    SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the database and creates the schema.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.Driver != DriverModernc && cfg.Driver != DriverMattn {
		return nil, fmt.Errorf("journal: unsupported sqlite driver %q", cfg.Driver)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("journal: path is required")
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.Path == ":memory:" {
		// Each connection to ":memory:" is a separate database.
		cfg.MaxOpenConns = 1
		cfg.WALMode = false
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "journal.sqlite")

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, &StorageError{Backend: cfg.Driver, Operation: "open", Cause: err}
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	s := &SQLiteStore{db: db, cfg: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("journal storage initialized",
		"driver", cfg.Driver,
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
	)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.cfg.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return s.storageErr("enable_wal", err)
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.cfg.BusyTimeout.Milliseconds())); err != nil {
		return s.storageErr("set_busy_timeout", err)
	}
	if _, err := s.db.Exec(Schema); err != nil {
		return s.storageErr("create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return s.storageErr("insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return s.storageErr("get_schema_version", err)
	}
	if version != SchemaVersion {
		return s.storageErr("schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Append adds a record.
func (s *SQLiteStore) Append(ctx context.Context, r Record) error {
	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return s.storageErr("append", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rejections (id, ts, message, http_code, code, cause, uri, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		r.ID, r.Timestamp.UnixNano(), r.Message, r.HTTPCode, r.Code, r.Cause, r.URI, string(tags),
	)
	if err != nil {
		return s.storageErr("append", err)
	}
	return nil
}

// List returns matching records, newest first.
func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]Record, error) {
	where, args := buildWhere(f)
	query := "SELECT id, ts, message, http_code, code, cause, uri, tags FROM rejections" +
		where + " ORDER BY ts DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.storageErr("list", err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var (
			r                Record
			ts               int64
			cause, uri, tags sql.NullString
		)
		if err := rows.Scan(&r.ID, &ts, &r.Message, &r.HTTPCode, &r.Code, &cause, &uri, &tags); err != nil {
			return nil, s.storageErr("scan", err)
		}
		r.Timestamp = time.Unix(0, ts).UTC()
		r.Cause = cause.String
		r.URI = uri.String
		if tags.Valid && tags.String != "" && tags.String != "null" {
			if err := json.Unmarshal([]byte(tags.String), &r.Tags); err != nil {
				return nil, s.storageErr("decode_tags", err)
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageErr("list", err)
	}
	return out, nil
}

// Count returns the number of matching records.
func (s *SQLiteStore) Count(ctx context.Context, f Filter) (int64, error) {
	where, args := buildWhere(f)
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rejections"+where, args...).Scan(&n); err != nil {
		return 0, s.storageErr("count", err)
	}
	return n, nil
}

// Prune deletes records older than before.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM rejections WHERE ts < ?", before.UnixNano())
	if err != nil {
		return 0, s.storageErr("prune", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.storageErr("prune", err)
	}
	if n > 0 {
		s.logger.Info("pruned rejection records", "deleted", n, "before", before)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) storageErr(op string, err error) error {
	return &StorageError{Backend: s.cfg.Driver, Operation: op, Cause: err}
}

func buildWhere(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !f.Since.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, f.Since.UnixNano())
	}
	if !f.Until.IsZero() {
		conds = append(conds, "ts < ?")
		args = append(args, f.Until.UnixNano())
	}
	if f.Code != 0 {
		conds = append(conds, "code = ?")
		args = append(args, f.Code)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
