package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the header followed by one record per customer.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Header()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(r.Records()); err != nil {
		return fmt.Errorf("write csv records: %w", err)
	}
	return nil
}
