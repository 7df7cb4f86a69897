package importer

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ref identifies an entity kind addressed by natural key (code, ISRC,
// license number) rather than by surrogate id.
type Ref string

const (
	RefTenant            Ref = "tenant"
	RefCurrency          Ref = "currency"
	RefTerritory         Ref = "territory"
	RefConfigurationType Ref = "configuration_type"
	RefCompany           Ref = "company"
	RefSubLabel          Ref = "sublabel"
	RefPublisher         Ref = "publisher"
	RefSong              Ref = "song"
	RefSoundRecording    Ref = "sound_recording"
	RefLicense           Ref = "license"
)

// Store is the persisted-store surface the import engine consumes.
// Resolution and existence checks are read-only; all writes happen inside
// InTx, which commits the enclosed operations as one unit or not at all.
type Store interface {
	// ResolveKey returns the surrogate id of the ref record whose natural
	// key equals key, scoped to tenantID where the entity is tenant
	// scoped. Returns ErrNotFound when no record matches.
	ResolveKey(ctx context.Context, ref Ref, tenantID uuid.UUID, key string) (uuid.UUID, error)

	// ExistingKeys reports which of the given natural keys already exist.
	ExistingKeys(ctx context.Context, ref Ref, tenantID uuid.UUID, keys []string) (map[string]bool, error)

	// InTx runs fn inside a single transaction, rolling back entirely if
	// fn returns an error or panics.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the write surface available inside a store transaction.
type Tx interface {
	ResolveKey(ctx context.Context, ref Ref, tenantID uuid.UUID, key string) (uuid.UUID, error)

	// Insert creates one record from a column map.
	Insert(ctx context.Context, table string, cols map[string]any) error

	// Upsert creates or replaces a record, updating updateCols when a row
	// with the same conflictCols already exists.
	Upsert(ctx context.Context, table string, cols map[string]any, conflictCols, updateCols []string) error

	// LastLedgerBalance returns the balance-after value of the tenant's
	// most recent ledger entry, or zero when the ledger is empty.
	LastLedgerBalance(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)
}
