package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/xela07ax/ftx-attest/internal/audit"
)

// AttestationRepo пишет журнал аттестаций в таблицу attestation_log.
//
//	CREATE TABLE attestation_log (
//	    id             UUID PRIMARY KEY,
//	    trace_id       TEXT NOT NULL,
//	    scenario_type  TEXT NOT NULL,
//	    status         TEXT NOT NULL,
//	    attestation_id TEXT,
//	    tx_hash        TEXT,
//	    content_hash   TEXT,
//	    error          TEXT,
//	    duration_ms    BIGINT NOT NULL,
//	    timestamp      TIMESTAMPTZ NOT NULL
//	);
type AttestationRepo struct {
	db *sql.DB
}

// OpenAttestationRepo открывает пул pgx. Соединение проверяется через Ping.
func OpenAttestationRepo(connString string, maxConns, minConns int32) (*AttestationRepo, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(int(maxConns))
	}
	if minConns > 0 {
		db.SetMaxIdleConns(int(minConns))
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	return NewAttestationRepo(db), nil
}

func NewAttestationRepo(db *sql.DB) *AttestationRepo {
	return &AttestationRepo{db: db}
}

// Ping проверяет доступность базы при старте
func (r *AttestationRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *AttestationRepo) Close() error {
	return r.db.Close()
}

// WriteBatch реализует audit.StorageInterface одной multi-row вставкой.
func (r *AttestationRepo) WriteBatch(ctx context.Context, events []audit.AttestationEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Количество колонок в таблице attestation_log
	const numFields = 10
	var sb strings.Builder
	vals := make([]interface{}, 0, len(events)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range events {
		if i > 0 {
			sb.WriteString(",")
		}
		p := i * numFields
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8, p+9, p+10)

		vals = append(vals,
			e.ID, e.TraceID, e.ScenarioType, e.Status, e.AttestationID,
			e.TxHash, e.ContentHash, e.Error, e.DurationMs, e.Timestamp,
		)
	}

	query := "INSERT INTO attestation_log (id, trace_id, scenario_type, status, attestation_id, tx_hash, content_hash, error, duration_ms, timestamp) VALUES " + sb.String()

	if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: failed to write attestation batch: %w", err)
	}
	return nil
}
