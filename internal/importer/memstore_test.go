package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory Store used by engine and runner tests. Writes
// are buffered per transaction and only applied when the transaction
// function returns nil, mirroring the rollback semantics of the real
// store.
type memStore struct {
	keys    map[Ref]map[string]uuid.UUID
	tables  map[string][]map[string]any
	lastBal decimal.Decimal

	insertErr  error
	failInsert int // 1-based ordinal of the insert that fails; 0 = never
	inserts    int
}

func newMemStore() *memStore {
	return &memStore{
		keys:   make(map[Ref]map[string]uuid.UUID),
		tables: make(map[string][]map[string]any),
	}
}

func (s *memStore) seed(ref Ref, key string) uuid.UUID {
	id := uuid.New()
	if s.keys[ref] == nil {
		s.keys[ref] = make(map[string]uuid.UUID)
	}
	s.keys[ref][key] = id
	return id
}

func (s *memStore) count(table string) int {
	return len(s.tables[table])
}

func (s *memStore) ResolveKey(_ context.Context, ref Ref, _ uuid.UUID, key string) (uuid.UUID, error) {
	if id, ok := s.keys[ref][key]; ok {
		return id, nil
	}
	return uuid.Nil, fmt.Errorf("%s %q: %w", ref, key, ErrNotFound)
}

func (s *memStore) ExistingKeys(_ context.Context, ref Ref, _ uuid.UUID, keys []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	for _, key := range keys {
		if _, ok := s.keys[ref][key]; ok {
			existing[key] = true
		}
	}
	return existing, nil
}

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for _, apply := range tx.ops {
		apply()
	}
	return nil
}

type memTx struct {
	store *memStore
	ops   []func()
}

func (t *memTx) ResolveKey(ctx context.Context, ref Ref, tenantID uuid.UUID, key string) (uuid.UUID, error) {
	return t.store.ResolveKey(ctx, ref, tenantID, key)
}

func (t *memTx) Insert(_ context.Context, table string, cols map[string]any) error {
	t.store.inserts++
	if t.store.failInsert > 0 && t.store.inserts >= t.store.failInsert {
		return t.store.insertErr
	}

	copied := make(map[string]any, len(cols))
	for k, v := range cols {
		copied[k] = v
	}
	t.ops = append(t.ops, func() {
		t.store.tables[table] = append(t.store.tables[table], copied)
		if table == "ledger_entries" {
			t.store.lastBal = copied["balance_after"].(decimal.Decimal)
		}
	})
	return nil
}

func (t *memTx) Upsert(_ context.Context, table string, cols map[string]any, conflictCols, updateCols []string) error {
	copied := make(map[string]any, len(cols))
	for k, v := range cols {
		copied[k] = v
	}
	t.ops = append(t.ops, func() {
		for _, existing := range t.store.tables[table] {
			match := true
			for _, c := range conflictCols {
				if existing[c] != copied[c] {
					match = false
					break
				}
			}
			if match {
				for _, c := range updateCols {
					existing[c] = copied[c]
				}
				return
			}
		}
		t.store.tables[table] = append(t.store.tables[table], copied)
	})
	return nil
}

func (t *memTx) LastLedgerBalance(_ context.Context, _ uuid.UUID) (decimal.Decimal, error) {
	return t.store.lastBal, nil
}
