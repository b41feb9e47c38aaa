package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/openfroyo/plangraph/pkg/estimator"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when an estimate does not exist.
var ErrNotFound = errors.New("estimate not found")

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	config Config
}

var _ Store = (*SQLiteStore)(nil)

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	// Every connection to :memory: opens a separate database.
	if isMemory(cfg.Path) {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	return &SQLiteStore{config: cfg}, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := s.config.Path
	if !isMemory(dsn) {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate", dsn)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.config.MaxOpenConns)
	db.SetMaxIdleConns(s.config.MaxIdleConns)
	db.SetConnMaxLifetime(s.config.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Open creates, initializes and migrates a store in one call.
func Open(ctx context.Context, cfg Config) (*SQLiteStore, error) {
	store, err := NewSQLiteStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

const estimateColumns = `id, problem, digest, state, kind, serialize, ignore_mutexes, max_levels,
		value, reachable, levels, leveled, duration_ns, created_at`

// Get implements estimator.Cache.
func (s *SQLiteStore) Get(ctx context.Context, key estimator.Key) (*estimator.Estimate, bool, error) {
	query := `
		SELECT ` + estimateColumns + `
		FROM estimates
		WHERE digest = ? AND state = ? AND kind = ?
		  AND serialize = ? AND ignore_mutexes = ? AND max_levels = ?
	`

	rec, err := scanEstimate(s.db.QueryRowContext(ctx, query,
		key.Digest,
		key.State,
		key.Kind,
		key.Serialize,
		key.IgnoreMutexes,
		key.MaxLevels,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get estimate: %w", err)
	}

	return rec.Estimate(), true, nil
}

// Put implements estimator.Cache.
func (s *SQLiteStore) Put(ctx context.Context, key estimator.Key, est *estimator.Estimate) error {
	if est == nil {
		return fmt.Errorf("estimate is nil")
	}
	return s.SaveEstimate(ctx, NewEstimateRecord(key, est))
}

// SaveEstimate inserts rec, replacing any row with the same key.
func (s *SQLiteStore) SaveEstimate(ctx context.Context, rec *EstimateRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("estimate ID is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO estimates (` + estimateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (digest, state, kind, serialize, ignore_mutexes, max_levels) DO UPDATE SET
			id = excluded.id,
			problem = excluded.problem,
			value = excluded.value,
			reachable = excluded.reachable,
			levels = excluded.levels,
			leveled = excluded.leveled,
			duration_ns = excluded.duration_ns,
			created_at = excluded.created_at
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Problem,
		rec.Digest,
		rec.State,
		rec.Kind,
		rec.Serialize,
		rec.IgnoreMutexes,
		rec.MaxLevels,
		rec.Value,
		rec.Reachable,
		rec.Levels,
		rec.Leveled,
		int64(rec.Duration),
		rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save estimate: %w", err)
	}

	return nil
}

// GetEstimate retrieves an estimate by ID
func (s *SQLiteStore) GetEstimate(ctx context.Context, id string) (*EstimateRecord, error) {
	query := `SELECT ` + estimateColumns + ` FROM estimates WHERE id = ?`

	rec, err := scanEstimate(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get estimate: %w", err)
	}

	return rec, nil
}

// ListEstimates lists estimates, newest first, with optional filters and pagination.
func (s *SQLiteStore) ListEstimates(ctx context.Context, filter ListFilter) ([]*EstimateRecord, error) {
	query := `
		SELECT ` + estimateColumns + `
		FROM estimates
		WHERE (? IS NULL OR digest = ?)
		  AND (? IS NULL OR kind = ?)
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}

	var kind *string
	if filter.Kind != nil {
		k := filter.Kind.String()
		kind = &k
	}

	rows, err := s.db.QueryContext(ctx, query,
		filter.Digest, filter.Digest,
		kind, kind,
		limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list estimates: %w", err)
	}
	defer rows.Close()

	records := []*EstimateRecord{}
	for rows.Next() {
		rec, err := scanEstimate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan estimate: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating estimates: %w", err)
	}

	return records, nil
}

// CountEstimates counts stored estimates, optionally for one problem digest.
func (s *SQLiteStore) CountEstimates(ctx context.Context, digest *string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM estimates WHERE (? IS NULL OR digest = ?)`,
		digest, digest,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count estimates: %w", err)
	}
	return count, nil
}

// DeleteEstimates removes every estimate for a problem digest.
func (s *SQLiteStore) DeleteEstimates(ctx context.Context, digest string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM estimates WHERE digest = ?`, digest)
	if err != nil {
		return 0, fmt.Errorf("failed to delete estimates: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// PruneBefore removes estimates created before cutoff.
func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM estimates WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune estimates: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEstimate(row rowScanner) (*EstimateRecord, error) {
	rec := &EstimateRecord{}
	var (
		kind       string
		durationNS int64
		createdAt  int64
	)

	err := row.Scan(
		&rec.ID,
		&rec.Problem,
		&rec.Digest,
		&rec.State,
		&kind,
		&rec.Serialize,
		&rec.IgnoreMutexes,
		&rec.MaxLevels,
		&rec.Value,
		&rec.Reachable,
		&rec.Levels,
		&rec.Leveled,
		&durationNS,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Kind = estimator.Kind(kind)
	rec.Duration = time.Duration(durationNS)
	rec.CreatedAt = time.Unix(0, createdAt)
	return rec, nil
}
