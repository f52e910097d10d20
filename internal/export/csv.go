package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"structure-name-eval/internal/store"
)

// WriteCSV streams the records with the same column layout as the xlsx
// export.
func WriteCSV(w io.Writer, records []store.ParsedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		row := recordRow(rec)
		fields := make([]string, len(row))
		for j, v := range row {
			fields[j] = stringify(v)
		}
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}
