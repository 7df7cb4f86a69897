package importer

import (
	"errors"
	"testing"
)

func TestDefaultRegistryCoversAllImportTables(t *testing.T) {
	registry := DefaultRegistry()

	expected := []string{
		"tenants", "currencies", "territories", "configuration_types",
		"companies", "sublabels", "publishers", "songs", "song_publishers",
		"sound_recordings", "sound_recording_artists", "products",
		"licenses", "license_songs", "license_publishers",
		"financial_transactions", "ledger_entries", "recoupment_balances",
		"reports", "attachments",
	}

	for _, table := range expected {
		desc, err := registry.Lookup(table)
		if err != nil {
			t.Fatalf("lookup %q returned error: %v", table, err)
		}
		if desc.Name != table {
			t.Fatalf("descriptor name mismatch: %q vs %q", desc.Name, table)
		}
		if desc.Build == nil {
			t.Fatalf("descriptor %q has no record builder", table)
		}
	}

	if got := len(registry.Tables()); got != len(expected) {
		t.Fatalf("expected %d registered tables, got %d: %v", len(expected), got, registry.Tables())
	}
}

func TestRegistryLookupUnknownTable(t *testing.T) {
	_, err := DefaultRegistry().Lookup("playlists")
	if !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
}
