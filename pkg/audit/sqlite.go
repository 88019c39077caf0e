package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore persists audit records in a SQLite database. It is suitable
// for single-instance deployments that need the audit trail to survive
// restarts.
//
// The store uses a write-ahead log (WAL) for better concurrent read
// performance and prepared statements for the hot paths.
type SQLiteStore struct {
	db        *sql.DB
	dbPath    string
	closeOnce sync.Once

	saveStmt *sql.Stmt
	getStmt  *sql.Stmt
}

// SQLiteStoreConfig configures the SQLite store.
type SQLiteStoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a SQLite store with default settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{DBPath: dbPath})
}

// NewSQLiteStoreWithConfig creates a SQLite store with custom configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:     db,
		dbPath: cfg.DBPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		rule_name TEXT NOT NULL,
		jurisdiction TEXT NOT NULL,
		inputs TEXT NOT NULL,
		outputs TEXT,
		liability REAL NOT NULL,
		duration_ns INTEGER NOT NULL,
		evaluated_at INTEGER NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_rule ON evaluations(rule_name);
	CREATE INDEX IF NOT EXISTS idx_evaluations_time ON evaluations(evaluated_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO evaluations (id, rule_name, jurisdiction, inputs, outputs, liability, duration_ns, evaluated_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			outputs = excluded.outputs,
			liability = excluded.liability,
			duration_ns = excluded.duration_ns,
			error = excluded.error
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT id, rule_name, jurisdiction, inputs, outputs, liability, duration_ns, evaluated_at, error
		FROM evaluations
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	return nil
}

// Save persists one record.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if record.ID == "" {
		return fmt.Errorf("record ID cannot be empty")
	}

	inputs, err := json.Marshal(record.Inputs)
	if err != nil {
		return fmt.Errorf("failed to encode inputs: %w", err)
	}

	var outputs sql.NullString
	if record.Outputs != nil {
		data, err := json.Marshal(record.Outputs)
		if err != nil {
			return fmt.Errorf("failed to encode outputs: %w", err)
		}
		outputs = sql.NullString{String: string(data), Valid: true}
	}

	var errText sql.NullString
	if record.Error != "" {
		errText = sql.NullString{String: record.Error, Valid: true}
	}

	_, err = s.saveStmt.ExecContext(ctx,
		record.ID,
		record.RuleName,
		record.Jurisdiction,
		string(inputs),
		outputs,
		record.Liability,
		record.Duration.Nanoseconds(),
		record.EvaluatedAt.UnixNano(),
		errText,
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Get returns the record with the given evaluation ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	record, err := scanRecord(s.getStmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return record, nil
}

// List returns records matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	query := `
		SELECT id, rule_name, jurisdiction, inputs, outputs, liability, duration_ns, evaluated_at, error
		FROM evaluations
		WHERE 1 = 1
	`
	var args []interface{}

	if filter.RuleName != "" {
		query += " AND rule_name = ?"
		args = append(args, filter.RuleName)
	}
	if !filter.Since.IsZero() {
		query += " AND evaluated_at >= ?"
		args = append(args, filter.Since.UnixNano())
	}
	query += " ORDER BY evaluated_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

// Close closes the database. It is safe to call more than once.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.saveStmt != nil {
			s.saveStmt.Close()
		}
		if s.getStmt != nil {
			s.getStmt.Close()
		}
		err = s.db.Close()
	})
	return err
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		record      Record
		inputs      string
		outputs     sql.NullString
		durationNS  int64
		evaluatedAt int64
		errText     sql.NullString
	)

	err := row.Scan(
		&record.ID,
		&record.RuleName,
		&record.Jurisdiction,
		&inputs,
		&outputs,
		&record.Liability,
		&durationNS,
		&evaluatedAt,
		&errText,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(inputs), &record.Inputs); err != nil {
		return nil, fmt.Errorf("failed to decode inputs: %w", err)
	}
	if outputs.Valid {
		if err := json.Unmarshal([]byte(outputs.String), &record.Outputs); err != nil {
			return nil, fmt.Errorf("failed to decode outputs: %w", err)
		}
	}
	record.Duration = time.Duration(durationNS)
	record.EvaluatedAt = time.Unix(0, evaluatedAt).UTC()
	if errText.Valid {
		record.Error = errText.String
	}
	return &record, nil
}
