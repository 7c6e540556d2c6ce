package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSVHeaders returns the CSV column headers for audit records.
var CSVHeaders = []string{
	"ip", "mac", "previous_mac", "first_observed", "last_observed",
	"observations", "re_macs",
}

// WriteCSV writes audit records as CSV to the given writer.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(CSVHeaders); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.IP,
			r.MAC,
			r.PreviousMAC,
			r.FirstObserved,
			r.LastObserved,
			strconv.Itoa(r.Observations),
			strconv.Itoa(r.ReMACs),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	return nil
}
