package web

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tablekit/tablekit/internal/core"
)

// actionBatch is the wire format for POST /actions: a list of tagged
// action envelopes.
type actionBatch struct {
	Actions []json.RawMessage `json:"actions"`
}

type actionEnvelope struct {
	Type string `json:"type"`
}

// decodeActionBatch decodes the JSON action protocol into core actions.
// SET_STATE and the validation bookkeeping actions are internal to the
// orchestrator and rejected at the wire boundary.
func decodeActionBatch(r io.Reader) ([]core.Action, error) {
	var batch actionBatch
	if err := json.NewDecoder(r).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode action batch: %w", err)
	}

	actions := make([]core.Action, 0, len(batch.Actions))
	for i, raw := range batch.Actions {
		var env actionEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		a, err := decodeAction(env.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func decodeAction(typ string, raw json.RawMessage) (core.Action, error) {
	unmarshal := func(a core.Action) (core.Action, error) {
		if err := json.Unmarshal(raw, a); err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		return a, nil
	}

	switch typ {
	case "ENTER_DATA_MANUALLY":
		a, err := unmarshal(&core.EnterDataManually{})
		if err != nil {
			return nil, err
		}
		return *a.(*core.EnterDataManually), nil
	case "UPLOAD":
		return core.Upload{}, nil
	case "COLUMN_MAPPING_CHANGED":
		a, err := unmarshal(&core.ColumnMappingChanged{})
		if err != nil {
			return nil, err
		}
		return *a.(*core.ColumnMappingChanged), nil
	case "DATA_MAPPED":
		a, err := unmarshal(&core.DataMapped{})
		if err != nil {
			return nil, err
		}
		return *a.(*core.DataMapped), nil
	case "CELL_CHANGED":
		a, err := unmarshal(&core.CellChanged{})
		if err != nil {
			return nil, err
		}
		return *a.(*core.CellChanged), nil
	case "REMOVE_ROWS":
		a, err := unmarshal(&core.RemoveRows{})
		if err != nil {
			return nil, err
		}
		return *a.(*core.RemoveRows), nil
	case "ADD_EMPTY_ROW":
		a, err := unmarshal(&core.AddEmptyRow{})
		if err != nil {
			return nil, err
		}
		return *a.(*core.AddEmptyRow), nil
	case "SHEET_CHANGED":
		a, err := unmarshal(&core.SheetChanged{})
		if err != nil {
			return nil, err
		}
		return *a.(*core.SheetChanged), nil
	case "SUBMIT":
		return core.Submit{}, nil
	case "PROGRESS":
		a, err := unmarshal(&core.SubmitProgress{})
		if err != nil {
			return nil, err
		}
		return *a.(*core.SubmitProgress), nil
	case "COMPLETED":
		a, err := unmarshal(&core.Completed{})
		if err != nil {
			return nil, err
		}
		return *a.(*core.Completed), nil
	case "FAILED":
		a, err := unmarshal(&core.Failed{})
		if err != nil {
			return nil, err
		}
		return *a.(*core.Failed), nil
	case "PREVIEW":
		return core.Preview{}, nil
	case "MAPPING":
		return core.Mapping{}, nil
	case "RESET":
		return core.Reset{}, nil
	default:
		return nil, fmt.Errorf("unknown or non-dispatchable action type %q", typ)
	}
}
