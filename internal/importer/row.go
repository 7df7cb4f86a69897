package importer

// Row is one parsed data line: column name to raw trimmed cell value.
// Rows are immutable once parsed; missing columns read as "".
type Row map[string]string

// Result is the outcome of a validation pass or an import attempt.
// Success is true exactly when Errors is empty.
type Result struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

func resultFor(errs []string) Result {
	if len(errs) == 0 {
		return Result{Success: true, Errors: []string{}}
	}
	return Result{Success: false, Errors: errs}
}
