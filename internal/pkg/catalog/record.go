// Package catalog models product rows exported from the storefront as CSV
// and the INR to GBP price rewrite applied to them before indexing.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Field is one header/value pair of a row.
type Field struct {
	Name  string
	Value string
}

// Record is a single product row. Fields keep the header order of the file.
type Record struct {
	Source string
	Row    int
	Fields []Field
}

// Get returns the value of the first field whose header matches name,
// ignoring case and surrounding spaces.
func (r *Record) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if strings.EqualFold(strings.TrimSpace(f.Name), name) {
			return f.Value, true
		}
	}
	return "", false
}

func (r *Record) first(names ...string) string {
	for _, n := range names {
		if v, ok := r.Get(n); ok {
			return v
		}
	}
	return ""
}

// Brand returns the brand column, if any.
func (r *Record) Brand() string { return r.first("brand", "brand name") }

// Name returns the product title column, if any.
func (r *Record) Name() string { return r.first("product name", "name", "title", "product") }

// Price returns the selling price column, if any.
func (r *Record) Price() string { return r.first("price", "selling price", "discounted price") }

// MRP returns the list price column, if any.
func (r *Record) MRP() string { return r.first("mrp", "original price") }

// Discount returns the discount column, if any.
func (r *Record) Discount() string { return r.first("discount", "discount percentage") }

// Render formats the row as "header: value" lines in header order.
func (r *Record) Render() string {
	var b strings.Builder
	for i, f := range r.Fields {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimSpace(f.Name))
		b.WriteString(": ")
		b.WriteString(f.Value)
	}
	return b.String()
}

// ErrNoHeader is returned for an input without a header row.
var ErrNoHeader = errors.New("csv has no header row")

// NewReader returns a csv.Reader configured for storefront exports:
// comma separated, quoted fields, ragged rows tolerated.
func NewReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// ReadHeader reads the header row, dropping a UTF-8 byte order mark.
func ReadHeader(cr *csv.Reader) ([]string, error) {
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header, nil
}

// ReadRecords parses every data row of a CSV stream. Short rows get empty
// values for missing columns; cells beyond the header are dropped.
func ReadRecords(r io.Reader, source string) ([]*Record, error) {
	cr := NewReader(r)
	header, err := ReadHeader(cr)
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", source, err)
	}

	var records []*Record
	for row := 1; ; row++ {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s row %d: %w", source, row, err)
		}

		fields := make([]Field, len(header))
		for i, h := range header {
			fields[i].Name = h
			if i < len(cells) {
				fields[i].Value = cells[i]
			}
		}
		records = append(records, &Record{Source: source, Row: row, Fields: fields})
	}
	return records, nil
}
