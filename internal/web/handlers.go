package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tablekit/tablekit/internal/core"
	"github.com/tablekit/tablekit/internal/logging"
	"github.com/tablekit/tablekit/internal/parse"
	"github.com/tablekit/tablekit/internal/store"
)

// handleSchema returns the sheet definitions the server was booted with.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sheets": s.defs})
}

// handleCreateSession starts a new import session. An optional ?key=
// restores a persisted snapshot; absence or a broken snapshot falls back
// to a fresh initial state.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")

	state := store.LoadOrNew(r.Context(), s.store, key, core.NewState(s.defs))

	opts := []core.InteractiveOption{
		core.WithDebounce(s.cfg.Import.DebounceWindow),
		core.WithHook(s.hook),
	}
	if s.store != nil && key != "" {
		st, k := s.store, key
		opts = append(opts, core.WithSaver(func(snapshot core.ImporterState) {
			// Snapshot persistence is best-effort; a failed save must
			// never disturb the editing session.
			if err := st.Save(context.Background(), k, snapshot); err != nil {
				logging.FromContext(context.Background()).Warn("snapshot save failed", "key", k, "error", err)
			}
		}))
	}

	sess := &session{
		id:   uuid.New().String(),
		key:  key,
		orch: core.NewInteractive(state, opts...),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	logging.FromContext(r.Context()).Info("session created", "session_id", sess.id, "key", key)
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":    sess.id,
		"state": sess.orch.State(),
	})
}

// handleGetState returns the session's current state.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, sess.orch.State())
}

// handleGetErrors returns only the validation error list.
func (s *Server) handleGetErrors(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	state := sess.orch.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"validationInProgress": state.ValidationInProgress,
		"errors":               state.ValidationErrors,
	})
}

// handleDispatch applies a batch of actions to the session.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	actions, err := decodeActionBatch(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(actions) == 0 {
		writeError(w, http.StatusBadRequest, "empty action batch")
		return
	}

	sess.orch.Dispatch(actions...)

	logging.FromContext(r.Context()).Debug("actions dispatched",
		"session_id", sess.id, "count", len(actions))
	writeJSON(w, http.StatusOK, sess.orch.State())
}

// handleUploadFile parses an uploaded file and dispatches the resulting
// FILE_PARSED plus suggested COLUMN_MAPPING_CHANGED as one logical
// operation.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("parse upload: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	parsed, err := parse.Parse(header.Filename, file)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	state := sess.orch.State()
	def, ok := state.Definition(state.CurrentSheetID)
	if !ok {
		writeError(w, http.StatusConflict, "no current sheet")
		return
	}

	sess.orch.Dispatch(
		core.FileParsed{File: parsed},
		core.ColumnMappingChanged{Mappings: core.SuggestMappings(parsed.Fields, def)},
	)

	logging.FromContext(r.Context()).Info("file parsed",
		"session_id", sess.id, "file", parsed.Name, "rows", len(parsed.Rows))
	writeJSON(w, http.StatusOK, sess.orch.State())
}

// handleDeleteSession closes and removes a session.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		sess.orch.Close()
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
