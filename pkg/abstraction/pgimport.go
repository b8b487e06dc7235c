package abstraction

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/behrlich/poker-solver/pkg/cards"
)

// ImportEncoder bulk-loads an Encoder's (obs, abs) pairs into an existing
// Postgres table via pgx.CopyFrom, the in-process equivalent of running
// `psql -c "\copy table FROM 'encoder.flop.bin' WITH (FORMAT binary)"`
// against the PGCOPY artifact Encoder.Save produces. table must already
// exist with columns (obs bigint, abs bigint); this bridge does not create
// schema. It is an optional side door for teams that want the trained
// abstraction queryable from SQL alongside the in-process pkg/query API.
func ImportEncoder(ctx context.Context, pool *pgxpool.Pool, table string, e *Encoder) (int64, error) {
	isos := e.Isomorphisms()
	rows := make([][]any, 0, len(isos))
	for _, iso := range isos {
		a, err := e.Encode(iso)
		if err != nil {
			return 0, fmt.Errorf("abstraction: pgimport: %w", err)
		}
		rows = append(rows, []any{int64(iso), int64(a)})
	}
	n, err := pool.CopyFrom(ctx, pgx.Identifier{table}, []string{"obs", "abs"}, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("abstraction: pgimport: copying into %s: %w", table, err)
	}
	return n, nil
}

// ImportMetric bulk-loads a Metric's (xor, distance) pairs into an existing
// Postgres table with columns (xor bigint, distance real).
func ImportMetric(ctx context.Context, pool *pgxpool.Pool, table string, m *Metric) (int64, error) {
	rows := make([][]any, 0, len(m.entries))
	for pair, e := range m.entries {
		rows = append(rows, []any{int64(pair), e.distance})
	}
	n, err := pool.CopyFrom(ctx, pgx.Identifier{table}, []string{"xor", "distance"}, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("abstraction: pgimport: copying into %s: %w", table, err)
	}
	return n, nil
}

// EnsureSchema creates the two tables ImportEncoder/ImportMetric expect,
// scoped by street so all four streets can share one database. Safe to call
// repeatedly; uses IF NOT EXISTS.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, street cards.Street) error {
	encTable := fmt.Sprintf("encoder_%s", street)
	metTable := fmt.Sprintf("metric_%s", street)
	_, err := pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (obs BIGINT PRIMARY KEY, abs BIGINT NOT NULL);
		CREATE TABLE IF NOT EXISTS %s (xor BIGINT PRIMARY KEY, distance REAL NOT NULL);
	`, encTable, metTable))
	if err != nil {
		return fmt.Errorf("abstraction: pgimport: ensuring schema for street %s: %w", street, err)
	}
	return nil
}
