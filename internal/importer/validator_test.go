package importer

import (
	"strings"
	"testing"
)

func testDescriptor() *TableDescriptor {
	return &TableDescriptor{
		Name:     "widgets",
		Required: []string{"code", "name"},
		Numeric:  []string{"weight"},
		Boolean:  []string{"active"},
		Date:     []string{"released"},
		Enums: []EnumRule{
			{Field: "grade", Label: "grade", Allowed: []string{"A", "B", "C"}},
		},
	}
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	rows := []Row{
		{"code": "", "name": "ok", "weight": "abc", "active": "maybe", "released": "not-a-date", "grade": "Z"},
		{"code": "W2", "name": "", "weight": "1.5", "active": "TRUE", "released": "2024-01-31", "grade": "B"},
	}

	result := Validate(testDescriptor(), rows)
	if result.Success {
		t.Fatalf("expected validation failure")
	}
	// Row 1 violates five rules, row 2 one; every violation must be
	// reported, never just the first.
	if len(result.Errors) != 6 {
		t.Fatalf("expected 6 errors, got %d: %v", len(result.Errors), result.Errors)
	}

	for _, want := range []string{
		`Row 1: missing required field "code"`,
		"Row 1: weight must be numeric",
		"Row 1: active must be true or false",
		"Row 1: released must be a valid date",
		`Row 1: invalid grade value "Z"`,
		`Row 2: missing required field "name"`,
	} {
		found := false
		for _, got := range result.Errors {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("missing expected error %q in %v", want, result.Errors)
		}
	}
}

func TestValidateSucceedsOnCleanRows(t *testing.T) {
	rows := []Row{
		{"code": "W1", "name": "Widget", "weight": "2", "active": "false", "released": "2023-06-01", "grade": "A"},
		{"code": "W2", "name": "Gadget", "weight": "0.25", "active": "True", "released": "2023/06/02", "grade": "C"},
	}

	result := Validate(testDescriptor(), rows)
	if !result.Success {
		t.Fatalf("expected success, got errors: %v", result.Errors)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected empty error list, got %v", result.Errors)
	}
}

func TestValidateSkipsRulesForEmptyOptionalValues(t *testing.T) {
	rows := []Row{
		{"code": "W1", "name": "Widget", "weight": "", "active": "", "released": "", "grade": ""},
	}

	result := Validate(testDescriptor(), rows)
	if !result.Success {
		t.Fatalf("empty optional values must not fail non-required rules: %v", result.Errors)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	rows := []Row{
		{"code": "", "name": "x", "weight": "nope"},
		{"code": "W2", "name": "y"},
	}
	desc := testDescriptor()

	first := Validate(desc, rows)
	second := Validate(desc, rows)

	if len(first.Errors) != len(second.Errors) {
		t.Fatalf("expected identical error lists, got %v and %v", first.Errors, second.Errors)
	}
	for i := range first.Errors {
		if first.Errors[i] != second.Errors[i] {
			t.Fatalf("error %d differs between passes: %q vs %q", i, first.Errors[i], second.Errors[i])
		}
	}
}

func TestValidateRowsInOrder(t *testing.T) {
	rows := []Row{
		{"code": "", "name": "a"},
		{"code": "", "name": "b"},
	}

	result := Validate(testDescriptor(), rows)
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %v", result.Errors)
	}
	if !strings.HasPrefix(result.Errors[0], "Row 1:") || !strings.HasPrefix(result.Errors[1], "Row 2:") {
		t.Fatalf("expected errors ordered by row, got %v", result.Errors)
	}
}

func TestValidateLicenseStatusEnum(t *testing.T) {
	desc, err := DefaultRegistry().Lookup("licenses")
	if err != nil {
		t.Fatalf("lookup returned error: %v", err)
	}

	rows := []Row{
		{"number": "L-1", "status": "SUSPENDED", "dateReceived": "2024-02-01"},
	}

	result := Validate(desc, rows)
	if result.Success {
		t.Fatalf("expected invalid status to fail validation")
	}
	if len(result.Errors) != 1 || result.Errors[0] != `Row 1: invalid license status value "SUSPENDED"` {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
}
