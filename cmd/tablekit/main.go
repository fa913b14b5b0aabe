// Command tablekit validates tabular files against a declared schema from
// the command line, using the same engine the server drives interactively.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tablekit/tablekit/internal/core"
	"github.com/tablekit/tablekit/internal/parse"
	"github.com/tablekit/tablekit/internal/schema"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tablekit",
		Short:         "Schema-driven tabular data validation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd())
	root.AddCommand(newServeCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	var (
		schemaPath string
		sheetID    string
	)

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a CSV or XLSX file against a schema",
		Long: `Validate parses a tabular file, maps its headers onto the declared
columns of one sheet, runs the full validation pass, and prints every
validation error. Exits non-zero when the file has errors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), schemaPath, sheetID, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "path to the YAML schema file (required)")
	cmd.Flags().StringVar(&sheetID, "sheet", "", "sheet id to validate against (default: first sheet)")
	cmd.MarkFlagRequired("schema")

	return cmd
}

func runValidate(ctx context.Context, schemaPath, sheetID, filePath string, out io.Writer) error {
	defs, err := schema.LoadFile(schemaPath)
	if err != nil {
		return err
	}

	if len(defs) == 0 {
		return fmt.Errorf("schema %s declares no sheets", schemaPath)
	}

	var def schema.SheetDefinition
	if sheetID == "" {
		def = defs[0]
	} else {
		found := false
		for _, d := range defs {
			if d.ID == sheetID {
				def, found = d, true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown sheet %q", sheetID)
		}
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	parsed, err := parse.Parse(filePath, f)
	if err != nil {
		return err
	}

	mappings := core.SuggestMappings(parsed.Fields, def)
	if len(mappings) == 0 {
		return fmt.Errorf("no headers in %s match the columns of sheet %q", parsed.Name, def.ID)
	}

	rows, err := core.MapRows(parsed, mappings, def)
	if err != nil {
		return err
	}

	state := core.NewState(defs)
	builder := core.NewBuilder(state, core.NewEngine(nil))
	final := builder.Add(
		core.FileParsed{File: parsed},
		core.ColumnMappingChanged{Mappings: mappings},
		core.DataMapped{SheetID: def.ID, Rows: rows},
	).State(ctx)

	errs := final.ValidationErrors
	sort.Slice(errs, func(i, j int) bool {
		if errs[i].RowIndex != errs[j].RowIndex {
			return errs[i].RowIndex < errs[j].RowIndex
		}
		return errs[i].ColumnID < errs[j].ColumnID
	})

	for _, e := range errs {
		fmt.Fprintf(out, "row %d, column %s: %s\n", e.RowIndex+1, e.ColumnID, e.Message)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d validation error(s) in %d row(s) of %s",
			len(errs), distinctRows(errs), parsed.Name)
	}

	fmt.Fprintf(out, "%s: %d rows valid\n", parsed.Name, len(rows))
	return nil
}

func distinctRows(errs []core.ValidationError) int {
	seen := make(map[int]struct{})
	for _, e := range errs {
		seen[e.RowIndex] = struct{}{}
	}
	return len(seen)
}
