package core

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tablekit/tablekit/internal/schema"
)

// Engine runs validators over sheet data. Every cell×validator evaluation
// is launched concurrently and joined once; no ordering is guaranteed
// between evaluations, and the resulting error list's cross-cell order is
// not significant.
type Engine struct {
	hook Hook
}

// NewEngine creates an engine. The hook may be nil.
func NewEngine(hook Hook) *Engine {
	return &Engine{hook: hook}
}

// Validate runs full validation: every sheet, every row with data, every
// applicable column. A single broken evaluation fails the whole run; the
// caller must keep its previous error list in that case.
func (e *Engine) Validate(ctx context.Context, defs []schema.SheetDefinition, data map[string][]Row) ([]ValidationError, error) {
	start := time.Now()
	errs, rows, err := e.run(ctx, defs, data, nil)
	if err != nil {
		e.hook.emit(Event{Kind: EventValidationFailed, Duration: time.Since(start), Err: err})
		return nil, err
	}
	e.hook.emit(Event{
		Kind:     EventFullValidation,
		Sheets:   len(defs),
		Rows:     rows,
		Errors:   len(errs),
		Duration: time.Since(start),
	})
	return errs, nil
}

// ValidateRows runs incremental validation restricted to the rows whose
// index appears in the sheet's dirty set. Cell and column eligibility is
// identical to full validation.
func (e *Engine) ValidateRows(ctx context.Context, defs []schema.SheetDefinition, data map[string][]Row, dirty DirtyRows) ([]ValidationError, error) {
	start := time.Now()
	errs, rows, err := e.run(ctx, defs, data, dirty)
	if err != nil {
		e.hook.emit(Event{Kind: EventValidationFailed, Duration: time.Since(start), Err: err})
		return nil, err
	}
	e.hook.emit(Event{
		Kind:     EventIncrementalValidation,
		Sheets:   len(defs),
		Rows:     rows,
		Errors:   len(errs),
		Duration: time.Since(start),
	})
	return errs, nil
}

// run is the shared fan-out/fan-in core. A nil dirty map means all rows.
func (e *Engine) run(ctx context.Context, defs []schema.SheetDefinition, data map[string][]Row, dirty DirtyRows) ([]ValidationError, int, error) {
	env := &Env{Definitions: defs, Data: data}

	var (
		mu      sync.Mutex
		out     []ValidationError
		checked int
	)
	g, ctx := errgroup.WithContext(ctx)

	for _, def := range defs {
		def := def
		rows := data[def.ID]
		dirtySet := dirty[def.ID]

		// Validators are rebuilt per call so reference sets and unique
		// counts see the data as it is right now.
		validators := make(map[string][]Validator, len(def.Columns))
		for _, col := range def.Columns {
			vs, err := BuildValidators(col, env)
			if err != nil {
				return nil, 0, err
			}
			validators[col.ID] = vs
		}

		for idx, row := range rows {
			if dirty != nil {
				if _, ok := dirtySet[idx]; !ok {
					continue
				}
			}
			if !HasData(row) {
				continue
			}
			checked++

			for _, col := range def.Columns {
				value := row[col.ID]
				if IsEmptyCell(value) && !FieldIsRequired(col, true) {
					continue
				}
				for _, v := range validators[col.ID] {
					v, col, idx, row, value := v, col, idx, row, value
					g.Go(func() error {
						msg, err := v.Validate(ctx, value, row)
						if err != nil {
							return err
						}
						if msg == "" {
							return nil
						}
						mu.Lock()
						out = append(out, ValidationError{
							SheetID:  def.ID,
							ColumnID: col.ID,
							RowIndex: idx,
							Message:  msg,
						})
						mu.Unlock()
						return nil
					})
				}
			}
		}
	}

	if err := g.Wait(); err != nil {
		return nil, checked, err
	}
	return out, checked, nil
}

// MergeErrors reconciles a fresh incremental batch with the previous error
// list: every prior error whose (sheetId, rowIndex) appears in the dirty
// map is dropped, the rest survive in their original relative order, and
// the fresh batch is appended.
func MergeErrors(existing []ValidationError, dirty DirtyRows, fresh []ValidationError) []ValidationError {
	out := make([]ValidationError, 0, len(existing)+len(fresh))
	for _, err := range existing {
		if rows, ok := dirty[err.SheetID]; ok {
			if _, revalidated := rows[err.RowIndex]; revalidated {
				continue
			}
		}
		out = append(out, err)
	}
	return append(out, fresh...)
}
