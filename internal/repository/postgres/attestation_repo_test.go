package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/ftx-attest/internal/audit"
)

func TestAttestationRepo_WriteBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2022, 11, 11, 0, 0, 0, 0, time.UTC)
	events := []audit.AttestationEvent{
		{ID: "e1", TraceID: "t1", ScenarioType: "transfer", Status: audit.StatusSuccess, AttestationID: "att-1", TxHash: "0x1", ContentHash: "0xc", DurationMs: 12, Timestamp: ts},
		{ID: "e2", TraceID: "t2", ScenarioType: "nope", Status: audit.StatusRejected, Error: "unknown scenario type: nope", DurationMs: 1, Timestamp: ts},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attestation_log (id, trace_id, scenario_type, status, attestation_id, tx_hash, content_hash, error, duration_ms, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10),($11, $12")).
		WithArgs(
			"e1", "t1", "transfer", audit.StatusSuccess, "att-1", "0x1", "0xc", "", int64(12), ts,
			"e2", "t2", "nope", audit.StatusRejected, "", "", "", "unknown scenario type: nope", int64(1), ts,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	repo := NewAttestationRepo(db)
	require.NoError(t, repo.WriteBatch(context.Background(), events))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttestationRepo_WriteBatchEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewAttestationRepo(db).WriteBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttestationRepo_WriteBatchError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO attestation_log").WillReturnError(errors.New("connection reset"))

	err = NewAttestationRepo(db).WriteBatch(context.Background(), []audit.AttestationEvent{{ID: "e1"}})
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
