package importer

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
}

// Validate applies a descriptor's schema-level field rules to every row.
// It is exhaustive: every rule for every field for every row is checked
// and every violation reported, so one pass yields the complete error set.
// Pure function of its inputs; no store access.
//
// Rules other than required are skipped for empty values, so an optional
// field left blank is never an error.
func Validate(desc *TableDescriptor, rows []Row) Result {
	var errs []string

	for i, row := range rows {
		n := i + 1

		for _, field := range desc.Required {
			if strings.TrimSpace(row[field]) == "" {
				errs = append(errs, fmt.Sprintf("Row %d: missing required field %q", n, field))
			}
		}

		for _, field := range desc.Numeric {
			value := strings.TrimSpace(row[field])
			if value == "" {
				continue
			}
			if _, err := decimal.NewFromString(value); err != nil {
				errs = append(errs, fmt.Sprintf("Row %d: %s must be numeric", n, field))
			}
		}

		for _, field := range desc.Boolean {
			value := strings.TrimSpace(row[field])
			if value == "" {
				continue
			}
			if !strings.EqualFold(value, "true") && !strings.EqualFold(value, "false") {
				errs = append(errs, fmt.Sprintf("Row %d: %s must be true or false", n, field))
			}
		}

		for _, field := range desc.Date {
			value := strings.TrimSpace(row[field])
			if value == "" {
				continue
			}
			if _, err := parseDate(value); err != nil {
				errs = append(errs, fmt.Sprintf("Row %d: %s must be a valid date", n, field))
			}
		}

		for _, rule := range desc.Enums {
			value := strings.TrimSpace(row[rule.Field])
			if value == "" {
				continue
			}
			if !slices.Contains(rule.Allowed, value) {
				errs = append(errs, fmt.Sprintf("Row %d: invalid %s value %q", n, rule.Label, value))
			}
		}
	}

	return resultFor(errs)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", raw)
}
