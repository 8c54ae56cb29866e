package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/sdrlink/internal/journal"
	"github.com/nerrad567/sdrlink/internal/radio"
)

// rawCommandRequest is the body of POST /radios/{name}/command.
type rawCommandRequest struct {
	Command   string `json:"command"`
	TimeoutMs int    `json:"timeout_ms,omitempty"`
}

func (s *Server) handleListRadios(w http.ResponseWriter, _ *http.Request) {
	radios := s.fleet.List()
	writeJSON(w, http.StatusOK, map[string]any{"radios": radios, "count": len(radios)})
}

func (s *Server) handleGetRadio(w http.ResponseWriter, r *http.Request) {
	st, err := s.fleet.Status(chi.URLParam(r, "name"))
	if err != nil {
		writeFleetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleConnectRadio(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.fleet.Connect(r.Context(), name); err != nil {
		writeFleetError(w, err)
		return
	}
	s.writeStatus(w, name)
}

func (s *Server) handleDisconnectRadio(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.fleet.Disconnect(r.Context(), name); err != nil {
		writeFleetError(w, err)
		return
	}
	s.writeStatus(w, name)
}

func (s *Server) writeStatus(w http.ResponseWriter, name string) {
	st, err := s.fleet.Status(name)
	if err != nil {
		writeFleetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleRawCommand sends one command verbatim.
// The component cache is not updated; a refresh re-reads it.
func (s *Server) handleRawCommand(w http.ResponseWriter, r *http.Request) {
	var req rawCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}
	if req.TimeoutMs < 0 {
		writeBadRequest(w, "timeout_ms must not be negative")
		return
	}

	name := chi.URLParam(r, "name")
	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	lines, err := s.fleet.Raw(r.Context(), name, req.Command, timeout)
	if err != nil {
		writeFleetError(w, err)
		return
	}
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"radio":   name,
		"command": req.Command,
		"lines":   lines,
	})
}

func (s *Server) handleListComponents(w http.ResponseWriter, r *http.Request) {
	comps, err := s.fleet.Components(chi.URLParam(r, "name"))
	if err != nil {
		writeFleetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"components": comps, "count": len(comps)})
}

// componentParams parses the {category}/{index} path segments.
func componentParams(w http.ResponseWriter, r *http.Request) (radio.Category, int, bool) {
	cat, ok := radio.ParseCategory(chi.URLParam(r, "category"))
	if !ok {
		writeBadRequest(w, "unknown component category")
		return "", 0, false
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeBadRequest(w, "component index must be an integer")
		return "", 0, false
	}
	return cat, index, true
}

func (s *Server) handleGetComponent(w http.ResponseWriter, r *http.Request) {
	cat, index, ok := componentParams(w, r)
	if !ok {
		return
	}
	st, err := s.fleet.Component(chi.URLParam(r, "name"), cat, index)
	if err != nil {
		writeFleetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleConfigureComponent applies a partial configuration. Only keys that
// differ from the cache are sent to the radio.
func (s *Server) handleConfigureComponent(w http.ResponseWriter, r *http.Request) {
	cat, index, ok := componentParams(w, r)
	if !ok {
		return
	}

	var values radio.Values
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(values) == 0 {
		writeBadRequest(w, "at least one value is required")
		return
	}

	st, err := s.fleet.Configure(r.Context(), chi.URLParam(r, "name"), cat, index, values)
	if err != nil {
		writeFleetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRefreshComponent(w http.ResponseWriter, r *http.Request) {
	cat, index, ok := componentParams(w, r)
	if !ok {
		return
	}
	st, err := s.fleet.Refresh(r.Context(), chi.URLParam(r, "name"), cat, index)
	if err != nil {
		writeFleetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleListJournal returns recorded command exchanges, most recent first.
//
// Query parameters:
//   - radio: filter by radio name
//   - verb: filter by command verb (FRQ, TUNER, ...)
//   - failed: true to list only failed commands
//   - limit, offset: paging
func (s *Server) handleListJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeNotFound(w, "command journal is disabled")
		return
	}

	q := r.URL.Query()
	filter := journal.Filter{
		Radio: q.Get("radio"),
		Verb:  q.Get("verb"),
	}
	if v := q.Get("failed"); v != "" {
		failed, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "failed must be true or false")
			return
		}
		filter.FailedOnly = failed
	}
	for _, p := range []struct {
		key string
		dst *int
	}{{"limit", &filter.Limit}, {"offset", &filter.Offset}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, p.key+" must be a non-negative integer")
			return
		}
		*p.dst = n
	}

	result, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing command journal", "error", err)
		writeInternalError(w, "failed to list command journal")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
