// Package parse extracts rows from uploaded tabular files. It is a
// collaborator of the import engine: it produces a ParsedFile (ordered
// headers plus header-keyed row maps) and knows nothing about schemas or
// validation.
package parse

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/tablekit/tablekit/internal/core"
)

// Parse dispatches on the file extension: .xlsx via excelize, everything
// else as CSV.
func Parse(name string, r io.Reader) (*core.ParsedFile, error) {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return ParseXLSX(name, r)
	}
	return ParseCSV(name, r)
}

// ParseCSV reads a CSV stream into a ParsedFile. The first non-empty row is
// the header. Handles UTF-8 BOMs from Windows exports, sanitizes invalid
// UTF-8, and cleans Excel artifacts out of headers and cells. Rows that are
// entirely empty are skipped.
func ParseCSV(name string, r io.Reader) (*core.ParsedFile, error) {
	reader := csv.NewReader(newBOMSkippingReader(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		fields []string
		rows   []map[string]string
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", name, err)
		}

		if fields == nil {
			if isEmptyRecord(record) {
				continue
			}
			fields = make([]string, len(record))
			for i, h := range record {
				fields[i] = CleanHeader(h)
			}
			continue
		}

		if isEmptyRecord(record) {
			continue
		}

		row := make(map[string]string, len(fields))
		for i, field := range fields {
			if i < len(record) {
				row[field] = CleanCell(record[i])
			}
		}
		rows = append(rows, row)
	}

	if fields == nil {
		return nil, fmt.Errorf("csv %s: no header row found", name)
	}

	return &core.ParsedFile{
		Name:   filepath.Base(name),
		Fields: fields,
		Rows:   rows,
	}, nil
}

// CleanHeader normalizes a header cell: strips the BOM, Excel formula
// prefixes, surrounding quotes, and whitespace.
func CleanHeader(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "=")
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}

// CleanCell normalizes a data cell: trims whitespace and replaces invalid
// UTF-8 sequences with the replacement character.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return s
}

func isEmptyRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// newBOMSkippingReader removes a leading UTF-8 BOM (0xEF 0xBB 0xBF) if
// present.
func newBOMSkippingReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	head, err := br.Peek(3)
	if err == nil && len(head) == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		br.Discard(3)
	}
	return br
}
