// Package postgres persists diagnostic reports in a postgres-backed ledger.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"causalkit/domain/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS estimation_reports (
	id             TEXT PRIMARY KEY,
	estimator_name TEXT NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_estimation_reports_estimator
	ON estimation_reports (estimator_name, created_at DESC);
`

// ReportLedger stores serialized estimation reports.
type ReportLedger struct {
	db *sqlx.DB
}

// Connect opens the database and ensures the ledger schema exists.
func Connect(ctx context.Context, databaseURL string) (*ReportLedger, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring report schema: %w", err)
	}
	return &ReportLedger{db: db}, nil
}

// Close releases the underlying connection pool.
func (l *ReportLedger) Close() error { return l.db.Close() }

type reportRow struct {
	ID            string `db:"id"`
	EstimatorName string `db:"estimator_name"`
	Payload       []byte `db:"payload"`
}

// SaveReport upserts one report payload under its identifier.
func (l *ReportLedger) SaveReport(ctx context.Context, id core.ReportID, estimatorName string, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serializing report %s: %w", id, err)
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO estimation_reports (id, estimator_name, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET estimator_name = EXCLUDED.estimator_name, payload = EXCLUDED.payload`,
		id.String(), estimatorName, raw)
	if err != nil {
		return fmt.Errorf("saving report %s: %w", id, err)
	}
	return nil
}

// GetReport loads one report payload by identifier.
func (l *ReportLedger) GetReport(ctx context.Context, id core.ReportID) (map[string]any, error) {
	var row reportRow
	err := l.db.GetContext(ctx, &row, `
		SELECT id, estimator_name, payload
		FROM estimation_reports WHERE id = $1`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading report %s: %w", id, err)
	}
	var payload map[string]any
	if err := json.Unmarshal(row.Payload, &payload); err != nil {
		return nil, fmt.Errorf("deserializing report %s: %w", id, err)
	}
	return payload, nil
}

// ListReports returns the most recent report identifiers for an estimator.
func (l *ReportLedger) ListReports(ctx context.Context, estimatorName string, limit int) ([]core.ReportID, error) {
	var ids []string
	err := l.db.SelectContext(ctx, &ids, `
		SELECT id FROM estimation_reports
		WHERE estimator_name = $1
		ORDER BY created_at DESC LIMIT $2`, estimatorName, limit)
	if err != nil {
		return nil, fmt.Errorf("listing reports for %s: %w", estimatorName, err)
	}
	out := make([]core.ReportID, len(ids))
	for i, id := range ids {
		out[i] = core.ReportID(id)
	}
	return out, nil
}
