package importer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// EnumRule restricts a field to a fixed set of allowed values.
type EnumRule struct {
	Field   string
	Label   string
	Allowed []string
}

// KeyRule names the field(s) forming a natural key that must not repeat
// within one submitted file. Composite keys join their parts.
type KeyRule struct {
	Fields []string
	Label  string
}

// StoreKeyRule names a single-field natural key that must not already
// exist in the persisted store (creation-only entities).
type StoreKeyRule struct {
	Field string
	Ref   Ref
	Label string
}

// ForeignKey declares a row field holding another entity's natural key.
// The key must resolve to a persisted record; the resolved surrogate id is
// written to Column. Optional references are only checked when present.
type ForeignKey struct {
	Field    string
	Ref      Ref
	Column   string
	Label    string
	Optional bool
}

// ConflictRule turns the write phase into an upsert keyed on Columns.
type ConflictRule struct {
	Columns []string
	Update  []string
}

// RecordContext is handed to a descriptor's Build function for each row of
// a validated batch during the write phase.
type RecordContext struct {
	TenantID uuid.UUID
	Row      Row
	// Resolved maps ForeignKey.Field to the surrogate id looked up inside
	// the transaction. Absent for optional references left empty.
	Resolved map[string]uuid.UUID
	// State carries descriptor batch state (see TableDescriptor.Seed)
	// from the first row of the batch to the last.
	State any
}

// TableDescriptor declares everything the generic engine needs to import
// one entity type: the schema-level field rules, the business-level
// uniqueness and referential checks, and the mapping from a validated row
// to a persisted record.
type TableDescriptor struct {
	// Name is the import selector; Target is the destination table.
	Name   string
	Target string

	// TenantScoped entities carry a tenant_id column and are looked up
	// per tenant. The tenants table itself is global.
	TenantScoped bool

	Required []string
	Numeric  []string
	Boolean  []string
	Date     []string
	Enums    []EnumRule

	FileKey  *KeyRule
	StoreKey *StoreKeyRule
	Refs     []ForeignKey

	// BatchRule checks invariants spanning the whole batch, e.g. ledger
	// debits equalling credits. Runs after per-row checks.
	BatchRule func(rows []Row) []string

	// Seed produces batch state at write-phase start, inside the
	// transaction; for ledger entries it loads the last persisted balance.
	Seed func(ctx context.Context, tx Tx, tenantID uuid.UUID) (any, error)

	// Build maps one row to the destination column map. The engine adds
	// the id, the tenant scope, and the resolved foreign-key columns.
	Build func(rc *RecordContext) map[string]any

	Conflict *ConflictRule
}

func (k *KeyRule) valueOf(row Row) (string, bool) {
	parts := make([]string, 0, len(k.Fields))
	for _, f := range k.Fields {
		v := strings.TrimSpace(row[f])
		if v == "" {
			return "", false
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, "-"), true
}

// Registry is the static table of import descriptors, built once at
// process start and read-only afterwards.
type Registry struct {
	tables map[string]*TableDescriptor
}

// NewRegistry indexes the given descriptors by name.
func NewRegistry(descriptors ...*TableDescriptor) *Registry {
	tables := make(map[string]*TableDescriptor, len(descriptors))
	for _, d := range descriptors {
		tables[d.Name] = d
	}
	return &Registry{tables: tables}
}

// Lookup returns the descriptor for a table selector. An unknown selector
// is a reportable configuration error, not a silent no-op.
func (r *Registry) Lookup(table string) (*TableDescriptor, error) {
	d, ok := r.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return d, nil
}

// Tables lists the registered selectors in sorted order.
func (r *Registry) Tables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
