package parse

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

// workbook builds an in-memory xlsx from a cell grid.
func workbook(t *testing.T, cells [][]string) *bytes.Buffer {
	t.Helper()
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	for i, row := range cells {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := wb.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return &buf
}

func TestParseXLSX(t *testing.T) {
	buf := workbook(t, [][]string{
		{"Name", "Age"},
		{"Ada", "36"},
		{"", ""},
		{"Bo", "4"},
	})

	file, err := Parse("people.xlsx", buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if file.Name != "people.xlsx" {
		t.Errorf("name = %q", file.Name)
	}
	if diff := cmp.Diff([]string{"Name", "Age"}, file.Fields); diff != "" {
		t.Errorf("fields (-want +got):\n%s", diff)
	}
	if len(file.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (empty row skipped)", len(file.Rows))
	}
	if file.Rows[0]["Name"] != "Ada" || file.Rows[1]["Name"] != "Bo" {
		t.Errorf("rows = %v", file.Rows)
	}
}

func TestParseXLSXCleansHeadersAndCells(t *testing.T) {
	buf := workbook(t, [][]string{
		{`  "Name"  `, "=Age"},
		{"  Ada  ", "36"},
	})

	file, err := ParseXLSX("dirty.xlsx", buf)
	if err != nil {
		t.Fatalf("ParseXLSX: %v", err)
	}
	if diff := cmp.Diff([]string{"Name", "Age"}, file.Fields); diff != "" {
		t.Errorf("fields (-want +got):\n%s", diff)
	}
	if file.Rows[0]["Name"] != "Ada" {
		t.Errorf("cell = %q, not trimmed", file.Rows[0]["Name"])
	}
}

func TestParseXLSXRaggedRows(t *testing.T) {
	buf := workbook(t, [][]string{
		{"a", "b", "c"},
		{"1", "2"},
	})

	file, err := ParseXLSX("ragged.xlsx", buf)
	if err != nil {
		t.Fatalf("ParseXLSX: %v", err)
	}
	if _, ok := file.Rows[0]["c"]; ok {
		t.Error("short row grew a value for the missing column")
	}
}

func TestParseXLSXNotAWorkbook(t *testing.T) {
	if _, err := ParseXLSX("fake.xlsx", bytes.NewReader([]byte("not a zip"))); err == nil {
		t.Error("non-xlsx bytes did not fail")
	}
}
