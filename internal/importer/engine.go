package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Engine runs one import-function invocation: a strict two-phase
// validate-then-write over a batch of rows. Phase one is read-only against
// the store and collects every violation; phase two runs only when phase
// one found nothing, inside one all-or-nothing transaction.
type Engine struct {
	store Store
}

// NewEngine wires the engine to a persisted store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Run imports one batch for the descriptor's entity type. A Result with
// Success=false carries the complete list of business validation errors
// and guarantees no persisted change. A non-nil error is an
// infrastructure/persistence failure; the transaction has been rolled
// back and the batch contributed zero rows.
func (e *Engine) Run(ctx context.Context, tenantID uuid.UUID, desc *TableDescriptor, rows []Row) (Result, error) {
	errs := Validate(desc, rows).Errors

	businessErrs, err := e.validateBusiness(ctx, tenantID, desc, rows)
	if err != nil {
		return Result{Success: false, Errors: []string{err.Error()}}, err
	}
	errs = append(errs, businessErrs...)

	if len(errs) > 0 {
		return resultFor(errs), nil
	}

	if err := e.writeBatch(ctx, tenantID, desc, rows); err != nil {
		return Result{Success: false, Errors: []string{err.Error()}}, err
	}

	return resultFor(nil), nil
}

// validateBusiness performs the read-only business checks: in-file key
// uniqueness, cross-store key uniqueness, referential existence, and the
// descriptor's batch-level rule.
func (e *Engine) validateBusiness(ctx context.Context, tenantID uuid.UUID, desc *TableDescriptor, rows []Row) ([]string, error) {
	var errs []string

	if desc.FileKey != nil {
		seen := make(map[string]bool)
		for i, row := range rows {
			key, ok := desc.FileKey.valueOf(row)
			if !ok {
				continue
			}
			if seen[key] {
				errs = append(errs, fmt.Sprintf("Row %d: duplicate %s %q in file", i+1, desc.FileKey.Label, key))
			}
			seen[key] = true
		}
	}

	if desc.StoreKey != nil {
		var keys []string
		distinct := make(map[string]bool)
		for _, row := range rows {
			key := strings.TrimSpace(row[desc.StoreKey.Field])
			if key == "" || distinct[key] {
				continue
			}
			distinct[key] = true
			keys = append(keys, key)
		}

		existing, err := e.store.ExistingKeys(ctx, desc.StoreKey.Ref, tenantID, keys)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing %s keys: %w", desc.StoreKey.Label, err)
		}
		for _, key := range keys {
			if existing[key] {
				errs = append(errs, fmt.Sprintf("database already contains %s %q", desc.StoreKey.Label, key))
			}
		}
	}

	resolved := make(map[Ref]map[string]bool)
	for i, row := range rows {
		for _, fk := range desc.Refs {
			key := strings.TrimSpace(row[fk.Field])
			if key == "" {
				// Absence is the required rule's concern.
				continue
			}
			cache, ok := resolved[fk.Ref]
			if !ok {
				cache = make(map[string]bool)
				resolved[fk.Ref] = cache
			}
			found, checked := cache[key]
			if !checked {
				_, err := e.store.ResolveKey(ctx, fk.Ref, tenantID, key)
				switch {
				case err == nil:
					found = true
				case errors.Is(err, ErrNotFound):
					found = false
				default:
					return nil, fmt.Errorf("failed to look up %s %q: %w", fk.Label, key, err)
				}
				cache[key] = found
			}
			if !found {
				errs = append(errs, fmt.Sprintf("Row %d: %s not found %q", i+1, fk.Label, key))
			}
		}
	}

	if desc.BatchRule != nil {
		errs = append(errs, desc.BatchRule(rows)...)
	}

	return errs, nil
}

// writeBatch persists every row inside one transaction, re-resolving
// foreign natural keys to surrogate ids as it goes. Unique-constraint
// violations at write time fail the whole batch; the store constraint is
// the final arbiter against concurrently racing jobs.
func (e *Engine) writeBatch(ctx context.Context, tenantID uuid.UUID, desc *TableDescriptor, rows []Row) error {
	return e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var state any
		if desc.Seed != nil {
			var err error
			state, err = desc.Seed(ctx, tx, tenantID)
			if err != nil {
				return fmt.Errorf("failed to seed %s batch state: %w", desc.Name, err)
			}
		}

		for _, row := range rows {
			ids := make(map[string]uuid.UUID, len(desc.Refs))
			for _, fk := range desc.Refs {
				key := strings.TrimSpace(row[fk.Field])
				if key == "" && fk.Optional {
					continue
				}
				id, err := tx.ResolveKey(ctx, fk.Ref, tenantID, key)
				if err != nil {
					return fmt.Errorf("failed to resolve %s %q: %w", fk.Label, key, err)
				}
				ids[fk.Field] = id
			}

			rc := &RecordContext{TenantID: tenantID, Row: row, Resolved: ids, State: state}
			cols := desc.Build(rc)
			state = rc.State

			cols["id"] = uuid.New()
			if desc.TenantScoped {
				cols["tenant_id"] = tenantID
			}
			for _, fk := range desc.Refs {
				if id, ok := ids[fk.Field]; ok {
					cols[fk.Column] = id
				} else {
					cols[fk.Column] = nil
				}
			}

			var err error
			if desc.Conflict != nil {
				err = tx.Upsert(ctx, desc.Target, cols, desc.Conflict.Columns, desc.Conflict.Update)
			} else {
				err = tx.Insert(ctx, desc.Target, cols)
			}
			if err != nil {
				return fmt.Errorf("failed to insert into %s: %w", desc.Target, err)
			}
		}

		return nil
	})
}
