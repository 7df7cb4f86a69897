package importer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/semiquaver/royalty-import/internal/domain"
)

// DefaultRegistry builds the descriptor set for every importable entity
// in the royalty catalog. Descriptors are static configuration; the
// registry is never mutated after this returns.
func DefaultRegistry() *Registry {
	return NewRegistry(
		tenantsTable(),
		currenciesTable(),
		territoriesTable(),
		configurationTypesTable(),
		companiesTable(),
		subLabelsTable(),
		publishersTable(),
		songsTable(),
		songPublishersTable(),
		soundRecordingsTable(),
		soundRecordingArtistsTable(),
		productsTable(),
		licensesTable(),
		licenseSongsTable(),
		licensePublishersTable(),
		financialTransactionsTable(),
		ledgerEntriesTable(),
		recoupmentBalancesTable(),
		reportsTable(),
		attachmentsTable(),
	)
}

func tenantsTable() *TableDescriptor {
	return &TableDescriptor{
		Name:     "tenants",
		Target:   "tenants",
		Required: []string{"name"},
		FileKey:  &KeyRule{Fields: []string{"name"}, Label: "tenant name"},
		StoreKey: &StoreKeyRule{Field: "name", Ref: RefTenant, Label: "tenant"},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"name": str(rc.Row, "name"),
			}
		},
	}
}

func currenciesTable() *TableDescriptor {
	return &TableDescriptor{
		Name:         "currencies",
		Target:       "currencies",
		TenantScoped: true,
		Required:     []string{"code", "country"},
		FileKey:      &KeyRule{Fields: []string{"code"}, Label: "currency code"},
		StoreKey:     &StoreKeyRule{Field: "code", Ref: RefCurrency, Label: "currency"},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"code":    str(rc.Row, "code"),
				"country": str(rc.Row, "country"),
			}
		},
	}
}

func territoriesTable() *TableDescriptor {
	return &TableDescriptor{
		Name:         "territories",
		Target:       "territories",
		TenantScoped: true,
		Required:     []string{"code", "name"},
		FileKey:      &KeyRule{Fields: []string{"code"}, Label: "territory code"},
		StoreKey:     &StoreKeyRule{Field: "code", Ref: RefTerritory, Label: "territory"},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"code": str(rc.Row, "code"),
				"name": str(rc.Row, "name"),
			}
		},
	}
}

func configurationTypesTable() *TableDescriptor {
	return &TableDescriptor{
		Name:         "configuration_types",
		Target:       "configuration_types",
		TenantScoped: true,
		Required:     []string{"code", "description"},
		FileKey:      &KeyRule{Fields: []string{"code"}, Label: "configuration code"},
		StoreKey:     &StoreKeyRule{Field: "code", Ref: RefConfigurationType, Label: "configuration"},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"code":        str(rc.Row, "code"),
				"description": str(rc.Row, "description"),
			}
		},
	}
}

func companiesTable() *TableDescriptor {
	return &TableDescriptor{
		Name:         "companies",
		Target:       "companies",
		TenantScoped: true,
		Required:     []string{"code", "name"},
		FileKey:      &KeyRule{Fields: []string{"code"}, Label: "company code"},
		StoreKey:     &StoreKeyRule{Field: "code", Ref: RefCompany, Label: "company"},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"code": str(rc.Row, "code"),
				"name": str(rc.Row, "name"),
			}
		},
	}
}

func subLabelsTable() *TableDescriptor {
	return &TableDescriptor{
		Name:         "sublabels",
		Target:       "sublabels",
		TenantScoped: true,
		Required:     []string{"code", "name", "country"},
		FileKey:      &KeyRule{Fields: []string{"code"}, Label: "sublabel code"},
		StoreKey:     &StoreKeyRule{Field: "code", Ref: RefSubLabel, Label: "sublabel"},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"code":    str(rc.Row, "code"),
				"name":    str(rc.Row, "name"),
				"country": str(rc.Row, "country"),
			}
		},
	}
}

func publishersTable() *TableDescriptor {
	return &TableDescriptor{
		Name:         "publishers",
		Target:       "publishers",
		TenantScoped: true,
		Required:     []string{"code", "name", "unitType", "priceType", "currencyCode", "payeeType"},
		Enums: []EnumRule{
			{Field: "payeeType", Label: "payeeType", Allowed: domain.PayeeTypeValues()},
		},
		FileKey:  &KeyRule{Fields: []string{"code"}, Label: "publisher code"},
		StoreKey: &StoreKeyRule{Field: "code", Ref: RefPublisher, Label: "publisher"},
		Refs: []ForeignKey{
			{Field: "currencyCode", Ref: RefCurrency, Column: "currency_id", Label: "Currency"},
		},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"code":              str(rc.Row, "code"),
				"name":              str(rc.Row, "name"),
				"unit_type":         str(rc.Row, "unitType"),
				"price_type":        str(rc.Row, "priceType"),
				"payment_frequency": opt(rc.Row, "paymentFrequency"),
				"agency":            boolOf(rc.Row, "agency"),
				"agency_name":       opt(rc.Row, "agencyName"),
				"address":           opt(rc.Row, "address"),
				"payee_type":        str(rc.Row, "payeeType"),
			}
		},
	}
}

func songsTable() *TableDescriptor {
	return &TableDescriptor{
		Name:         "songs",
		Target:       "songs",
		TenantScoped: true,
		Required:     []string{"isrc", "title", "writer", "artist", "publicDomain", "territoryCode"},
		Boolean:      []string{"publicDomain"},
		FileKey:      &KeyRule{Fields: []string{"isrc"}, Label: "ISRC"},
		// Songs are unique by ISRC across tenants.
		StoreKey: &StoreKeyRule{Field: "isrc", Ref: RefSong, Label: "ISRC"},
		Refs: []ForeignKey{
			{Field: "territoryCode", Ref: RefTerritory, Column: "territory_id", Label: "Territory"},
		},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"isrc":          str(rc.Row, "isrc"),
				"title":         str(rc.Row, "title"),
				"writer":        str(rc.Row, "writer"),
				"arranger":      opt(rc.Row, "arranger"),
				"artist":        str(rc.Row, "artist"),
				"public_domain": boolOf(rc.Row, "publicDomain"),
			}
		},
	}
}

func songPublishersTable() *TableDescriptor {
	return &TableDescriptor{
		Name:     "song_publishers",
		Target:   "song_publishers",
		Required: []string{"songIsrc", "publisherCode", "share"},
		Numeric:  []string{"share"},
		Refs: []ForeignKey{
			{Field: "songIsrc", Ref: RefSong, Column: "song_id", Label: "Song"},
			{Field: "publisherCode", Ref: RefPublisher, Column: "publisher_id", Label: "Publisher"},
		},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"share": num(rc.Row, "share"),
			}
		},
	}
}

func soundRecordingsTable() *TableDescriptor {
	return &TableDescriptor{
		Name:         "sound_recordings",
		Target:       "sound_recordings",
		TenantScoped: true,
		Required:     []string{"title", "isrc", "releaseDate", "length"},
		Numeric:      []string{"length"},
		Date:         []string{"releaseDate"},
		FileKey:      &KeyRule{Fields: []string{"assetId"}, Label: "assetId"},
		Refs: []ForeignKey{
			{Field: "subLabelCode", Ref: RefSubLabel, Column: "sub_label_id", Label: "SubLabel", Optional: true},
			{Field: "territoryCode", Ref: RefTerritory, Column: "territory_id", Label: "Territory", Optional: true},
		},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"asset_id":     opt(rc.Row, "assetId"),
				"title":        str(rc.Row, "title"),
				"isrc":         str(rc.Row, "isrc"),
				"writer":       opt(rc.Row, "writer"),
				"arranger":     opt(rc.Row, "arranger"),
				"project":      opt(rc.Row, "project"),
				"language":     opt(rc.Row, "language"),
				"release_date": dateOf(rc.Row, "releaseDate"),
				"length":       intOf(rc.Row, "length"),
				"notes":        opt(rc.Row, "notes"),
			}
		},
	}
}

func soundRecordingArtistsTable() *TableDescriptor {
	return &TableDescriptor{
		Name:     "sound_recording_artists",
		Target:   "sound_recording_artists",
		Required: []string{"assetId", "name"},
		Refs: []ForeignKey{
			{Field: "assetId", Ref: RefSoundRecording, Column: "sound_recording_id", Label: "SoundRecording"},
		},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"name": str(rc.Row, "name"),
			}
		},
	}
}

func productsTable() *TableDescriptor {
	return &TableDescriptor{
		Name:         "products",
		Target:       "products",
		TenantScoped: true,
		Required:     []string{"code", "configurationCode", "tracks", "subTracks"},
		Numeric:      []string{"tracks", "subTracks", "trackComponents"},
		FileKey:      &KeyRule{Fields: []string{"code"}, Label: "product code"},
		Refs: []ForeignKey{
			{Field: "configurationCode", Ref: RefConfigurationType, Column: "configuration_id", Label: "Configuration"},
			{Field: "subLabelCode", Ref: RefSubLabel, Column: "sub_label_id", Label: "SubLabel", Optional: true},
		},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"code":             str(rc.Row, "code"),
				"tracks":           intOf(rc.Row, "tracks"),
				"sub_tracks":       intOf(rc.Row, "subTracks"),
				"track_components": intOr(rc.Row, "trackComponents", 0),
				"bar_code":         opt(rc.Row, "barCode"),
				"notes":            opt(rc.Row, "notes"),
			}
		},
	}
}

func licensesTable() *TableDescriptor {
	return &TableDescriptor{
		Name:         "licenses",
		Target:       "licenses",
		TenantScoped: true,
		Required:     []string{"number", "status", "dateReceived"},
		Date:         []string{"dateReceived"},
		Enums: []EnumRule{
			{Field: "status", Label: "license status", Allowed: domain.LicenseStatusValues()},
		},
		FileKey: &KeyRule{Fields: []string{"number"}, Label: "license number"},
		Refs: []ForeignKey{
			{Field: "territoryCode", Ref: RefTerritory, Column: "territory_id", Label: "Territory", Optional: true},
		},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"number":        str(rc.Row, "number"),
				"description":   opt(rc.Row, "description"),
				"status":        str(rc.Row, "status"),
				"date_received": dateOf(rc.Row, "dateReceived"),
				"payee":         opt(rc.Row, "payee"),
			}
		},
	}
}

func licenseSongsTable() *TableDescriptor {
	return &TableDescriptor{
		Name:     "license_songs",
		Target:   "license_songs",
		Required: []string{"licenseNumber", "songIsrc"},
		FileKey:  &KeyRule{Fields: []string{"licenseNumber", "songIsrc"}, Label: "license-song relation"},
		Refs: []ForeignKey{
			{Field: "licenseNumber", Ref: RefLicense, Column: "license_id", Label: "License"},
			{Field: "songIsrc", Ref: RefSong, Column: "song_id", Label: "Song"},
		},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{}
		},
	}
}

func licensePublishersTable() *TableDescriptor {
	return &TableDescriptor{
		Name:     "license_publishers",
		Target:   "license_publishers",
		Required: []string{"licenseNumber", "publisherCode", "rateType", "rateValue", "share"},
		Numeric:  []string{"rateValue", "share"},
		Enums: []EnumRule{
			{Field: "rateType", Label: "rateType", Allowed: domain.RateTypeValues()},
		},
		FileKey: &KeyRule{Fields: []string{"licenseNumber", "publisherCode"}, Label: "license-publisher relation"},
		Refs: []ForeignKey{
			{Field: "licenseNumber", Ref: RefLicense, Column: "license_id", Label: "License"},
			{Field: "publisherCode", Ref: RefPublisher, Column: "publisher_id", Label: "Publisher"},
		},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"rate_type":  str(rc.Row, "rateType"),
				"rate_value": num(rc.Row, "rateValue"),
				"share":      num(rc.Row, "share"),
			}
		},
	}
}

func financialTransactionsTable() *TableDescriptor {
	return &TableDescriptor{
		Name:     "financial_transactions",
		Target:   "financial_transactions",
		Required: []string{"licenseNumber", "date", "type", "amount"},
		Numeric:  []string{"amount"},
		Date:     []string{"date"},
		Enums: []EnumRule{
			{Field: "type", Label: "transaction type", Allowed: domain.TransactionTypeValues()},
		},
		Refs: []ForeignKey{
			{Field: "licenseNumber", Ref: RefLicense, Column: "license_id", Label: "License"},
		},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"date":        dateOf(rc.Row, "date"),
				"type":        str(rc.Row, "type"),
				"description": opt(rc.Row, "description"),
				"amount":      num(rc.Row, "amount"),
				"reference":   opt(rc.Row, "reference"),
			}
		},
	}
}

type ledgerState struct {
	balance decimal.Decimal
}

func ledgerEntriesTable() *TableDescriptor {
	return &TableDescriptor{
		Name:         "ledger_entries",
		Target:       "ledger_entries",
		TenantScoped: true,
		Required:     []string{"publisherCode", "debit", "credit"},
		Numeric:      []string{"debit", "credit"},
		Refs: []ForeignKey{
			{Field: "publisherCode", Ref: RefPublisher, Column: "publisher_id", Label: "Publisher"},
		},
		// Debits must equal credits over the whole batch, not per row.
		BatchRule: func(rows []Row) []string {
			debit := decimal.Zero
			credit := decimal.Zero
			for _, row := range rows {
				debit = debit.Add(num(row, "debit"))
				credit = credit.Add(num(row, "credit"))
			}
			if !debit.Equal(credit) {
				return []string{"ledger entries must balance (debit = credit)"}
			}
			return nil
		},
		// The running balance continues from durable state, so a later
		// batch of the same job (or a retried job) picks up where the
		// last committed entry left off.
		Seed: func(ctx context.Context, tx Tx, tenantID uuid.UUID) (any, error) {
			balance, err := tx.LastLedgerBalance(ctx, tenantID)
			if err != nil {
				return nil, err
			}
			return &ledgerState{balance: balance}, nil
		},
		Build: func(rc *RecordContext) map[string]any {
			state := rc.State.(*ledgerState)
			debit := num(rc.Row, "debit")
			credit := num(rc.Row, "credit")
			state.balance = state.balance.Add(debit).Sub(credit)
			return map[string]any{
				"debit":         debit,
				"credit":        credit,
				"balance_after": state.balance,
				"description":   opt(rc.Row, "description"),
			}
		},
	}
}

func recoupmentBalancesTable() *TableDescriptor {
	return &TableDescriptor{
		Name:     "recoupment_balances",
		Target:   "recoupment_balances",
		Required: []string{"publisherCode", "advanceBalance"},
		Numeric:  []string{"advanceBalance"},
		Refs: []ForeignKey{
			{Field: "publisherCode", Ref: RefPublisher, Column: "publisher_id", Label: "Publisher"},
		},
		Conflict: &ConflictRule{
			Columns: []string{"publisher_id"},
			Update:  []string{"advance_balance"},
		},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"advance_balance": num(rc.Row, "advanceBalance"),
			}
		},
	}
}

func reportsTable() *TableDescriptor {
	return &TableDescriptor{
		Name:         "reports",
		Target:       "reports",
		TenantScoped: true,
		Required:     []string{"filename", "month", "status"},
		Enums: []EnumRule{
			{Field: "status", Label: "report status", Allowed: domain.ReportStatusValues()},
		},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"filename": str(rc.Row, "filename"),
				"month":    str(rc.Row, "month"),
				"status":   str(rc.Row, "status"),
			}
		},
	}
}

func attachmentsTable() *TableDescriptor {
	return &TableDescriptor{
		Name:         "attachments",
		Target:       "attachments",
		TenantScoped: true,
		Required:     []string{"fileName", "fileUrl"},
		Refs: []ForeignKey{
			{Field: "licenseNumber", Ref: RefLicense, Column: "license_id", Label: "License", Optional: true},
			{Field: "soundAssetId", Ref: RefSoundRecording, Column: "sound_recording_id", Label: "Sound recording", Optional: true},
		},
		Build: func(rc *RecordContext) map[string]any {
			return map[string]any{
				"file_name": str(rc.Row, "fileName"),
				"file_url":  str(rc.Row, "fileUrl"),
			}
		},
	}
}

// Build helpers. Values reaching Build have already passed the schema
// rules, so parse failures here fall back to zero values.

func str(row Row, field string) string {
	return strings.TrimSpace(row[field])
}

func opt(row Row, field string) any {
	if v := strings.TrimSpace(row[field]); v != "" {
		return v
	}
	return nil
}

func num(row Row, field string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(row[field]))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func intOf(row Row, field string) int64 {
	return num(row, field).IntPart()
}

func intOr(row Row, field string, fallback int64) int64 {
	if strings.TrimSpace(row[field]) == "" {
		return fallback
	}
	return intOf(row, field)
}

func boolOf(row Row, field string) bool {
	return strings.EqualFold(strings.TrimSpace(row[field]), "true")
}

func dateOf(row Row, field string) time.Time {
	t, err := parseDate(row[field])
	if err != nil {
		return time.Time{}
	}
	return t
}
