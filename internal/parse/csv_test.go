package parse

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCSV(t *testing.T) {
	in := "Name,Age,Email\nAda,36,ada@x.com\nBo,4,bo@x.com\n"

	file, err := ParseCSV("people.csv", strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}

	if file.Name != "people.csv" {
		t.Errorf("name = %q", file.Name)
	}
	if diff := cmp.Diff([]string{"Name", "Age", "Email"}, file.Fields); diff != "" {
		t.Errorf("fields (-want +got):\n%s", diff)
	}
	want := []map[string]string{
		{"Name": "Ada", "Age": "36", "Email": "ada@x.com"},
		{"Name": "Bo", "Age": "4", "Email": "bo@x.com"},
	}
	if diff := cmp.Diff(want, file.Rows); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
}

func TestParseCSVSkipsBOMAndEmptyRows(t *testing.T) {
	in := "\xEF\xBB\xBFName,Age\n,\nAda,36\n\nBo,4\n"

	file, err := ParseCSV("export.csv", strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}

	if file.Fields[0] != "Name" {
		t.Errorf("first header = %q, BOM not stripped", file.Fields[0])
	}
	if len(file.Rows) != 2 {
		t.Errorf("rows = %d, want 2 (empty rows skipped)", len(file.Rows))
	}
}

func TestParseCSVRaggedRows(t *testing.T) {
	in := "a,b,c\n1,2\n1,2,3,4\n"

	file, err := ParseCSV("ragged.csv", strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}

	if _, ok := file.Rows[0]["c"]; ok {
		t.Error("short row grew a value for the missing column")
	}
	if file.Rows[1]["c"] != "3" {
		t.Errorf("long row: c = %q, extra fields should be dropped", file.Rows[1]["c"])
	}
}

func TestParseCSVNoHeader(t *testing.T) {
	if _, err := ParseCSV("empty.csv", strings.NewReader("\n\n")); err == nil {
		t.Error("header-less file did not fail")
	}
}

func TestCleanHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Name  ", "Name"},
		{`"Quoted"`, "Quoted"},
		{"=Formula", "Formula"},
		{"\uFEFFFirst", "First"},
		{`= " Padded " `, "Padded"},
	}
	for _, tt := range tests {
		if got := CleanHeader(tt.in); got != tt.want {
			t.Errorf("CleanHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanCell(t *testing.T) {
	if got := CleanCell("  hi  "); got != "hi" {
		t.Errorf("CleanCell = %q", got)
	}
	if got := CleanCell("bad\xffbyte"); !strings.Contains(got, "�") {
		t.Errorf("invalid UTF-8 not replaced: %q", got)
	}
}

func TestParseDispatchesOnExtension(t *testing.T) {
	// A CSV body handed in under a .txt name still parses as CSV.
	file, err := Parse("data.txt", strings.NewReader("h\nv\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if file.Rows[0]["h"] != "v" {
		t.Errorf("rows = %v", file.Rows)
	}
}
