package core

// filter.go implements the row filter engine.
//
// A FilterDefinition is data: a Predicate selecting qualifying rows plus small
// extraction functions for the canonical fields. Unset extractors fall back
// to the defaults below, so most dataset families only declare a predicate.
//
// Streams are lazy, single-pass and forward-only. Rows that fail the predicate
// or whose date cannot be derived are skipped silently; Stats counts them.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

var (
	// ErrUnknownFilter is returned when a descriptor names an unregistered filter.
	ErrUnknownFilter = errors.New("unknown filter")

	// ErrUndated is returned by Normalize when no date can be derived for a row.
	ErrUndated = errors.New("row has no derivable date")

	// ErrValueRange is returned by Normalize when the scaled value overflows int64.
	ErrValueRange = errors.New("scaled value out of range")
)

// DefaultRequiredColumns are the columns every StatsCan data row must carry.
var DefaultRequiredColumns = []string{ColumnValue, ColumnScalarFactor, ColumnRefDate}

// TextFunc extracts a label (indicator or category) from a qualifying row.
type TextFunc func(row Row, desc TableDescriptor) string

// ValueFunc extracts the scaled canonical value from a qualifying row.
// Returning false drops the row.
type ValueFunc func(row Row) (int64, bool)

// FrequencyFunc extracts the frequency of a qualifying row.
type FrequencyFunc func(row Row, desc TableDescriptor) Frequency

// DateFunc derives the observation date of a qualifying row.
// Returning false drops the row.
type DateFunc func(row Row, freq Frequency) (time.Time, bool)

// FilterDefinition contains everything needed to normalize one dataset family.
type FilterDefinition struct {
	Key       string    // Registry key referenced by descriptors: "gdp"
	Label     string    // Display name: "Gross domestic product"
	Predicate Predicate // Row acceptance conditions
	Required  []string  // Columns that must exist (default: DefaultRequiredColumns)

	Indicator TextFunc      // Default: descriptor indicator
	Category  TextFunc      // Default: descriptor category
	Value     ValueFunc     // Default: IntegerValue
	Frequency FrequencyFunc // Default: descriptor frequency
	Date      DateFunc      // Default: RefDateByFrequency
}

// Valid reports whether row qualifies for normalization.
func (d FilterDefinition) Valid(row Row) bool {
	if !d.Predicate.Match(row) {
		return false
	}
	required := d.Required
	if required == nil {
		required = DefaultRequiredColumns
	}
	return row.HasColumns(required)
}

// Normalize maps a qualifying row to a Record.
// It returns ErrUndated or ErrValueRange when the row cannot be mapped.
func (d FilterDefinition) Normalize(row Row, desc TableDescriptor) (Record, error) {
	freq := desc.Frequency
	if d.Frequency != nil {
		freq = d.Frequency(row, desc)
	}

	dateFn := d.Date
	if dateFn == nil {
		dateFn = RefDateByFrequency
	}
	date, ok := dateFn(row, freq)
	if !ok {
		return Record{}, ErrUndated
	}

	rec := Record{
		Indicator: desc.Indicator,
		Category:  desc.Category,
		Date:      date,
		Frequency: freq,
	}
	if d.Indicator != nil {
		rec.Indicator = d.Indicator(row, desc)
	}
	if d.Category != nil {
		rec.Category = d.Category(row, desc)
	}
	valueFn := d.Value
	if valueFn == nil {
		valueFn = IntegerValue
	}
	if rec.Value, ok = valueFn(row); !ok {
		return Record{}, ErrValueRange
	}
	return rec, nil
}

// IntegerValue scales VALUE as an integer by SCALAR_FACTOR.
func IntegerValue(row Row) (int64, bool) {
	return ScaledInt(row[ColumnValue], row[ColumnScalarFactor])
}

// DecimalValue scales VALUE as a decimal by SCALAR_FACTOR, truncating the result.
func DecimalValue(row Row) (int64, bool) {
	return ScaledDecimal(row[ColumnValue], row[ColumnScalarFactor])
}

// RefDateByFrequency derives the date from REF_DATE using the frequency's layout.
func RefDateByFrequency(row Row, freq Frequency) (time.Time, bool) {
	return DeriveDate(row[ColumnRefDate], freq)
}

// RefDateMonthly derives the date from REF_DATE as YYYY-MM whatever the frequency.
func RefDateMonthly(row Row, _ Frequency) (time.Time, bool) {
	return MonthlyDate(row[ColumnRefDate])
}

// Stats counts what a stream did with the rows it read.
type Stats struct {
	Rows     int   // Data rows read (header excluded)
	Emitted  int   // Rows that produced a record
	Rejected int   // Rows that do not qualify or whose value overflows
	Undated  int   // Qualifying rows dropped because no date could be derived
	Bytes    int64 // Bytes consumed from the source
}

// Skipped returns the number of rows that produced no record.
func (s Stats) Skipped() int {
	return s.Rejected + s.Undated
}

// Stream yields the records of one data CSV.
//
// Usage:
//
//	s, err := core.Open(path, def, desc)
//	if err != nil { ... }
//	defer s.Close()
//	for s.Next() {
//	    rec := s.Record()
//	}
//	if err := s.Err(); err != nil { ... }
type Stream struct {
	def     FilterDefinition
	desc    TableDescriptor
	closer  io.Closer
	counter *countingReader
	reader  *csv.Reader
	header  []string
	current Record
	stats   Stats
	err     error
	done    bool
}

// Open opens the CSV at path and returns a stream filtered by def.
func Open(path string, def FilterDefinition, desc TableDescriptor) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data csv: %w", err)
	}
	s, err := NewStream(f, def, desc)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// OpenTable opens the CSV at path using the filter registered under desc.DataFilter.
func OpenTable(path string, desc TableDescriptor) (*Stream, error) {
	def, ok := Lookup(desc.DataFilter)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, desc.DataFilter)
	}
	return Open(path, def, desc)
}

// NewStream reads the header row from r and returns a stream over the rest.
// An empty input yields a stream with no records.
func NewStream(r io.Reader, def FilterDefinition, desc TableDescriptor) (*Stream, error) {
	counter := &countingReader{reader: r}
	reader := csv.NewReader(SkipBOM(counter))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	s := &Stream{
		def:     def,
		desc:    desc,
		counter: counter,
		reader:  reader,
	}

	header, err := reader.Read()
	if err == io.EOF {
		s.done = true
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	s.header = append([]string(nil), header...)
	return s, nil
}

// Next advances to the next qualifying row. It returns false at the end of
// input or on a read error; check Err afterwards.
func (s *Stream) Next() bool {
	for !s.done {
		fields, err := s.reader.Read()
		if err == io.EOF {
			s.done = true
			break
		}
		if err != nil {
			s.err = fmt.Errorf("read csv row %d: %w", s.stats.Rows+1, err)
			s.done = true
			break
		}
		s.stats.Rows++

		row := s.makeRow(fields)
		if !s.def.Valid(row) {
			s.stats.Rejected++
			continue
		}
		rec, err := s.def.Normalize(row, s.desc)
		if errors.Is(err, ErrUndated) {
			s.stats.Undated++
			continue
		}
		if err != nil {
			s.stats.Rejected++
			continue
		}
		s.stats.Emitted++
		s.current = rec
		return true
	}
	return false
}

// Record returns the record produced by the last successful Next.
func (s *Stream) Record() Record {
	return s.current
}

// Err returns the first read error encountered, if any.
func (s *Stream) Err() error {
	return s.err
}

// Stats returns the counters accumulated so far.
func (s *Stream) Stats() Stats {
	st := s.stats
	st.Bytes = s.counter.n
	return st
}

// Close releases the underlying file, if the stream owns one.
func (s *Stream) Close() error {
	s.done = true
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

func (s *Stream) makeRow(fields []string) Row {
	n := min(len(fields), len(s.header))
	row := make(Row, n)
	for i := 0; i < n; i++ {
		row[s.header[i]] = fields[i]
	}
	return row
}

// Collect drains s and returns every record it yields.
func Collect(s *Stream) ([]Record, error) {
	var records []Record
	for s.Next() {
		records = append(records, s.Record())
	}
	return records, s.Err()
}
