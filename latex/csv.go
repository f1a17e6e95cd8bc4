package latex

import (
	"encoding/csv"
	"fmt"
	"os"
	"unicode/utf8"
)

// ReadCSV loads all records of a CSV file. Rows may have different numbers
// of cells; the table layout is taken from the first row.
func ReadCSV(fn string, delimiter string) ([][]string, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	if delimiter != "" {
		d, size := utf8.DecodeRuneInString(delimiter)
		if size != len(delimiter) {
			return nil, fmt.Errorf("csv delimiter must be a single character, got %q", delimiter)
		}
		r.Comma = d
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv %s: %w", fn, err)
	}
	return rows, nil
}
