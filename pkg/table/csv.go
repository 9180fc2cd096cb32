package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// EncodeCSV writes the header line followed by one line per row. The
// returned buffer has not been read from, so callers can stream it
// directly. An empty schema is rejected whatever the rows hold.
func EncodeCSV(t *Table) (*bytes.Buffer, error) {
	if t == nil || len(t.Schema) == 0 {
		return nil, ErrNoColumns
	}

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(t.Schema.Names()); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}

	record := make([]string, len(t.Schema))
	for i, row := range t.Rows {
		if len(row) != len(t.Schema) {
			return nil, fmt.Errorf("row %d: %w", i, ErrRowWidth)
		}
		for j, v := range row {
			record[j] = v.Text()
		}
		if len(record) == 1 && record[0] == "" {
			// A lone empty field would be a blank line, which readers skip.
			w.Flush()
			buf.WriteString("\"\"\n")
			continue
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf, nil
}

// DecodeCSV reads a header line and the rows after it. Every column is
// text; empty fields decode as null, so an empty string does not survive
// a round trip. A CRLF inside a quoted field comes back as LF.
func DecodeCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoColumns
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	t := New(StringSchema(header...))
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", len(t.Rows)+1, err)
		}
		row := make(Row, len(record))
		for i, field := range record {
			if field == "" {
				row[i] = Null()
			} else {
				row[i] = String(field)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
