package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/semiquaver/royalty-import/internal/importer"
)

type refTarget struct {
	table        string
	keyColumn    string
	tenantScoped bool
}

// refTargets maps each natural-key entity kind to its table and key
// column. Songs and sound recordings are keyed globally; everything else
// resolves within the tenant.
var refTargets = map[importer.Ref]refTarget{
	importer.RefTenant:            {table: "tenants", keyColumn: "name"},
	importer.RefCurrency:          {table: "currencies", keyColumn: "code", tenantScoped: true},
	importer.RefTerritory:         {table: "territories", keyColumn: "code", tenantScoped: true},
	importer.RefConfigurationType: {table: "configuration_types", keyColumn: "code", tenantScoped: true},
	importer.RefCompany:           {table: "companies", keyColumn: "code", tenantScoped: true},
	importer.RefSubLabel:          {table: "sublabels", keyColumn: "code", tenantScoped: true},
	importer.RefPublisher:         {table: "publishers", keyColumn: "code", tenantScoped: true},
	importer.RefSong:              {table: "songs", keyColumn: "isrc"},
	importer.RefSoundRecording:    {table: "sound_recordings", keyColumn: "asset_id"},
	importer.RefLicense:           {table: "licenses", keyColumn: "number", tenantScoped: true},
}

// Store implements importer.Store on top of pgxpool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a store backed by the connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) ResolveKey(ctx context.Context, ref importer.Ref, tenantID uuid.UUID, key string) (uuid.UUID, error) {
	return resolveKey(ctx, s.pool, ref, tenantID, key)
}

func (s *Store) ExistingKeys(ctx context.Context, ref importer.Ref, tenantID uuid.UUID, keys []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return existing, nil
	}

	target, ok := refTargets[ref]
	if !ok {
		return nil, fmt.Errorf("no ref target configured for %q", ref)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ANY($1)`, target.keyColumn, target.table, target.keyColumn)
	args := []any{keys}
	if target.tenantScoped {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing %s keys: %w", target.table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan existing key: %w", err)
		}
		existing[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate existing keys: %w", err)
	}

	return existing, nil
}

// InTx runs fn inside one transaction, rolling back on error or panic.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx importer.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(ctx, &storeTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type storeTx struct {
	tx pgx.Tx
}

func (t *storeTx) ResolveKey(ctx context.Context, ref importer.Ref, tenantID uuid.UUID, key string) (uuid.UUID, error) {
	return resolveKey(ctx, t.tx, ref, tenantID, key)
}

func (t *storeTx) Insert(ctx context.Context, table string, cols map[string]any) error {
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = cols[name]
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`,
		table, strings.Join(names, ", "), strings.Join(placeholders, ", "),
	)

	if _, err := t.tx.Exec(ctx, query, args...); err != nil {
		return describeWriteError(table, err)
	}
	return nil
}

func (t *storeTx) Upsert(ctx context.Context, table string, cols map[string]any, conflictCols, updateCols []string) error {
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = cols[name]
	}

	assignments := make([]string, len(updateCols))
	for i, name := range updateCols {
		assignments[i] = fmt.Sprintf("%s = EXCLUDED.%s", name, name)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s`,
		table,
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(conflictCols, ", "),
		strings.Join(assignments, ", "),
	)

	if _, err := t.tx.Exec(ctx, query, args...); err != nil {
		return describeWriteError(table, err)
	}
	return nil
}

func (t *storeTx) LastLedgerBalance(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := t.tx.QueryRow(
		ctx,
		`SELECT balance_after FROM ledger_entries WHERE tenant_id = $1 ORDER BY seq DESC LIMIT 1`,
		tenantID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load last ledger balance: %w", err)
	}
	return balance, nil
}

func resolveKey(ctx context.Context, q querier, ref importer.Ref, tenantID uuid.UUID, key string) (uuid.UUID, error) {
	target, ok := refTargets[ref]
	if !ok {
		return uuid.Nil, fmt.Errorf("no ref target configured for %q", ref)
	}

	query := fmt.Sprintf(`SELECT id FROM %s WHERE %s = $1`, target.table, target.keyColumn)
	args := []any{key}
	if target.tenantScoped {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}

	var id uuid.UUID
	err := q.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("%s %q: %w", target.table, key, importer.ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve %s key %q: %w", target.table, key, err)
	}
	return id, nil
}

// describeWriteError keeps unique-constraint violations readable; the
// database constraint is the final arbiter against racing jobs.
func describeWriteError(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("duplicate key in %s (%s)", table, pgErr.ConstraintName)
	}
	return fmt.Errorf("failed to write %s: %w", table, err)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
