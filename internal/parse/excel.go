package parse

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/tablekit/tablekit/internal/core"
)

// ParseXLSX reads the first sheet of an XLSX workbook into a ParsedFile.
// The first row is the header; fully empty rows are skipped.
func ParseXLSX(name string, r io.Reader) (*core.ParsedFile, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx %s: %w", name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx %s: workbook has no sheets", name)
	}

	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx %s: %w", name, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("xlsx %s: no header row found", name)
	}

	fields := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		fields[i] = CleanHeader(h)
	}

	var rows []map[string]string
	for _, record := range raw[1:] {
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

	return &core.ParsedFile{
		Name:   filepath.Base(name),
		Fields: fields,
		Rows:   rows,
	}, nil
}
