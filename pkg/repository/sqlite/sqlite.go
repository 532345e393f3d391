package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store is the SQLite-backed implementation of interfaces.Repository.
// One file holds the whole corpus; WAL mode keeps the single writer
// from blocking readers.
type Store struct {
	db   *sql.DB
	path string

	source       *sourceRepository
	segment      *segmentRepository
	person       *personRepository
	deal         *dealRepository
	meddpicc     *meddpiccRepository
	prospect     *prospectRepository
	outreach     *outreachRepository
	outcome      *outcomeRepository
	insight      *insightRepository
	signalWeight *signalWeightRepository
	queryHistory *queryHistoryRepository
	section      *sectionRepository
	metrics      *metricsRepository
}

var _ interfaces.Repository = &Store{}

// Open initializes or connects to the database file and applies
// migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, goerr.Wrap(err, "failed to create data directory", goerr.V("dir", dir))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite db", goerr.V("path", path))
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, goerr.Wrap(execErr, "failed to apply pragma", goerr.V("pragma", pragma))
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	store.source = &sourceRepository{db: db}
	store.segment = &segmentRepository{db: db}
	store.person = &personRepository{db: db}
	store.deal = &dealRepository{db: db}
	store.meddpicc = &meddpiccRepository{db: db}
	store.prospect = &prospectRepository{db: db}
	store.outreach = &outreachRepository{db: db}
	store.outcome = &outcomeRepository{db: db}
	store.insight = &insightRepository{db: db}
	store.signalWeight = &signalWeightRepository{db: db}
	store.queryHistory = &queryHistoryRepository{db: db}
	store.section = &sectionRepository{db: db}
	store.metrics = &metricsRepository{db: db}

	return store, nil
}

func (s *Store) applyMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return goerr.Wrap(err, "failed to create schema_migrations")
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return goerr.Wrap(err, "failed to read migrations dir")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		version, err := strconv.Atoi(strings.SplitN(name, "_", 2)[0])
		if err != nil {
			return goerr.Wrap(err, "invalid migration filename", goerr.V("name", name))
		}

		var applied int
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&applied)
		if err != nil {
			return goerr.Wrap(err, "failed to check migration state")
		}
		if applied > 0 {
			continue
		}

		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return goerr.Wrap(err, "failed to read migration", goerr.V("name", name))
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return goerr.Wrap(err, "failed to begin migration tx")
		}
		if _, err := tx.ExecContext(ctx, string(data)); err != nil {
			_ = tx.Rollback()
			return goerr.Wrap(err, "failed to apply migration", goerr.V("name", name))
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			_ = tx.Rollback()
			return goerr.Wrap(err, "failed to record migration", goerr.V("name", name))
		}
		if err := tx.Commit(); err != nil {
			return goerr.Wrap(err, "failed to commit migration", goerr.V("name", name))
		}
	}

	return nil
}

func (s *Store) Source() interfaces.SourceRepository { return s.source }

func (s *Store) Segment() interfaces.SegmentRepository { return s.segment }

func (s *Store) Person() interfaces.PersonRepository { return s.person }

func (s *Store) Deal() interfaces.DealRepository { return s.deal }

func (s *Store) Meddpicc() interfaces.MeddpiccRepository { return s.meddpicc }

func (s *Store) Prospect() interfaces.ProspectRepository { return s.prospect }

func (s *Store) Outreach() interfaces.OutreachRepository { return s.outreach }

func (s *Store) Outcome() interfaces.OutcomeRepository { return s.outcome }

func (s *Store) Insight() interfaces.InsightRepository { return s.insight }

func (s *Store) SignalWeight() interfaces.SignalWeightRepository { return s.signalWeight }

func (s *Store) QueryHistory() interfaces.QueryHistoryRepository { return s.queryHistory }

func (s *Store) Section() interfaces.SectionRepository { return s.section }

func (s *Store) Metrics() interfaces.MetricsRepository { return s.metrics }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// formatTime renders a timestamp for storage
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime reads a stored timestamp, tolerating an empty column
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func scanNullableTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}
