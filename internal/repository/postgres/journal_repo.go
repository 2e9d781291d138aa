package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/xela07ax/underscore-apis/internal/journal"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS request_journal (
	trace_id    TEXT        NOT NULL,
	route_id    BIGINT      NOT NULL,
	method      TEXT        NOT NULL,
	path        TEXT        NOT NULL,
	status      INTEGER     NOT NULL,
	preempted   BOOLEAN     NOT NULL DEFAULT FALSE,
	duration_ms DOUBLE PRECISION NOT NULL,
	timestamp   TIMESTAMPTZ NOT NULL
)`

// journalColumns - порядок колонок в пакетной вставке
var journalColumns = []string{"trace_id", "route_id", "method", "path", "status", "preempted", "duration_ms", "timestamp"}

type JournalRepo struct {
	db *sql.DB
}

// NewJournalRepo открывает пул соединений; доступность БД проверяется через Ping
func NewJournalRepo(connString string, maxConns, minConns int) (*JournalRepo, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(minConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &JournalRepo{db: db}, nil
}

func (r *JournalRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EnsureSchema создает таблицу журнала, если ее еще нет
func (r *JournalRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, journalSchema); err != nil {
		return fmt.Errorf("postgres: failed to create request_journal: %w", err)
	}
	return nil
}

func (r *JournalRepo) Close() error {
	return r.db.Close()
}

func (r *JournalRepo) WriteBatch(ctx context.Context, records []journal.Record) error {
	if len(records) == 0 {
		return nil
	}

	query, vals := buildJournalInsert(records)
	if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: journal insert of %d records: %w", len(records), err)
	}
	return nil
}

// buildJournalInsert динамически строит запрос для пакетной вставки
func buildJournalInsert(records []journal.Record) (string, []any) {
	numFields := len(journalColumns)
	rows := make([]string, 0, len(records))
	vals := make([]any, 0, len(records)*numFields)

	for i, rec := range records {
		p := i * numFields
		placeholders := make([]string, numFields)
		for k := range placeholders {
			placeholders[k] = fmt.Sprintf("$%d", p+k+1)
		}
		rows = append(rows, "("+strings.Join(placeholders, ", ")+")")

		vals = append(vals,
			rec.TraceID, rec.RouteID, rec.Method, rec.Path, rec.Status, rec.Preempted,
			float64(rec.Duration)/float64(time.Millisecond), rec.Timestamp,
		)
	}

	query := fmt.Sprintf("INSERT INTO request_journal (%s) VALUES %s",
		strings.Join(journalColumns, ", "), strings.Join(rows, ", "))
	return query, vals
}
