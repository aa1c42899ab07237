// Package sqlctx wraps a single DuckDB connection as the per-run SQL
// session context described in the data model: register_table,
// sql(query) -> rows, deregister_table, scoped to exactly one pipeline
// run so table namespaces never leak across runs.
package sqlctx

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

// TableKind distinguishes a registered table's provenance, used by the
// runner to report (kind, name) in its teardown ledger.
type TableKind string

const (
	KindSourceTable TableKind = "source"
	KindStageTable  TableKind = "stage"
)

// Registration is one entry in the LIFO teardown ledger.
type Registration struct {
	Kind TableKind
	Name string
}

// Session owns one DuckDB connection for the lifetime of a single
// pipeline run. It is not safe for concurrent schema-mutating use by
// multiple runs; the executor constructs a fresh Session per run.
type Session struct {
	db *sql.DB

	mu            sync.Mutex
	registrations []Registration

	logger *slog.Logger
}

// Config configures a new Session.
type Config struct {
	// MemoryLimitBytes, when non-zero, pins DuckDB's memory_limit pragma
	// so that operators exceeding the budget fail with
	// DataProcessing::MemoryExhausted instead of exhausting the host.
	MemoryLimitBytes int64
	Logger           *slog.Logger
}

// Open starts a fresh in-memory DuckDB database for one run.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("opening duckdb session: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging duckdb session: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{db: db, logger: logger}

	if cfg.MemoryLimitBytes > 0 {
		stmt := fmt.Sprintf("SET memory_limit='%dB'", cfg.MemoryLimitBytes)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting memory_limit: %w", err)
		}
	}

	return s, nil
}

// Close releases the underlying connection. Callers should have already
// deregistered every table via DeregisterAll; Close does not perform
// teardown itself.
func (s *Session) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for callers (source registrar,
// destination writer) that need direct access to execute DDL/DML beyond
// the register/query/deregister contract.
func (s *Session) DB() *sql.DB { return s.db }

// Exec runs a statement that does not return rows.
func (s *Session) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// Query runs a statement that returns rows.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// RegisterView registers name as a view over selectQuery, e.g. reading
// a file/directory via DuckDB's table functions.
func (s *Session) RegisterView(ctx context.Context, kind TableKind, name, selectQuery string) error {
	stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s", quoteIdent(name), selectQuery)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("registering view %q: %w", name, err)
	}
	s.record(kind, name)
	return nil
}

// RegisterTableAs materialises selectQuery's result into a physical
// table named name (used for stage outputs, which must be frozen so
// downstream stages observe a stable value even if upstream sources
// change during a long run).
func (s *Session) RegisterTableAs(ctx context.Context, kind TableKind, name, selectQuery string) error {
	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS %s", quoteIdent(name), selectQuery)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("materialising table %q: %w", name, err)
	}
	s.record(kind, name)
	return nil
}

// HasTable reports whether name is registered as a table or view in the
// current session (used by the InMemory source registrar to assert a
// caller-registered table already exists).
func (s *Session) HasTable(ctx context.Context, name string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM information_schema.tables WHERE table_name = ?`, name)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Deregister drops name, tolerating a name that was never registered
// (idempotent, so TTL eviction racing with final teardown is safe).
func (s *Session) Deregister(ctx context.Context, name string) error {
	// DROP VIEW fails when name is a table, so fall back to DROP TABLE.
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP VIEW IF EXISTS %s", quoteIdent(name))); err != nil {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(name))); err != nil {
			return fmt.Errorf("deregistering %q: %w", name, err)
		}
	}
	s.forget(name)
	return nil
}

// DeregisterAll tears down every remaining registration in LIFO order,
// the scoped-acquisition guarantee required on every exit path.
func (s *Session) DeregisterAll(ctx context.Context) []error {
	s.mu.Lock()
	regs := make([]Registration, len(s.registrations))
	copy(regs, s.registrations)
	s.mu.Unlock()

	var errs []error
	for i := len(regs) - 1; i >= 0; i-- {
		if err := s.Deregister(ctx, regs[i].Name); err != nil {
			s.logger.Warn("deregister failed during teardown", "name", regs[i].Name, "error", err)
			errs = append(errs, err)
		}
	}
	return errs
}

// Registrations returns a snapshot of the current teardown ledger.
func (s *Session) Registrations() []Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Registration, len(s.registrations))
	copy(out, s.registrations)
	return out
}

// MarkRegistered records an externally-created table (one the caller
// populated directly via s.DB(), such as the ODBC registrar's bulk
// INSERT) in the teardown ledger, without issuing any DDL itself.
func (s *Session) MarkRegistered(kind TableKind, name string) {
	s.record(kind, name)
}

func (s *Session) record(kind TableKind, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.registrations {
		if r.Name == name {
			return
		}
	}
	s.registrations = append(s.registrations, Registration{Kind: kind, Name: name})
}

func (s *Session) forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.registrations[:0]
	for _, r := range s.registrations {
		if r.Name != name {
			out = append(out, r)
		}
	}
	s.registrations = out
}

func quoteIdent(name string) string {
	escaped := ""
	for _, r := range name {
		if r == '"' {
			escaped += `""`
		} else {
			escaped += string(r)
		}
	}
	return `"` + escaped + `"`
}
