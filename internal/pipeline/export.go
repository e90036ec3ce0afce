package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/JonMunkholm/gathernomics/internal/core"
)

// exportRow is the CSV shape of a core.Record.
type exportRow struct {
	Value     int64  `csv:"value"`
	Indicator string `csv:"indicator"`
	Category  string `csv:"category"`
	Date      string `csv:"date"`
	Frequency string `csv:"frequency"`
}

// WriteCSV writes records to w with a header row. The header is written
// even when records is empty.
func WriteCSV(w io.Writer, records []core.Record) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if err := enc.EncodeHeader(exportRow{}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for _, rec := range records {
		row := exportRow{
			Value:     rec.Value,
			Indicator: rec.Indicator,
			Category:  rec.Category,
			Date:      rec.Date.Format(time.DateOnly),
			Frequency: rec.Frequency.String(),
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportCSV writes records to the file at path, replacing it if present.
func ExportCSV(path string, records []core.Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	return WriteCSV(f, records)
}
