package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/staffdesk/staffdesk/internal/catalog"
)

const maxRequestBody = 1 << 20

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ValidationResponse is the 422 body for rejected fields.
type ValidationResponse struct {
	Message string              `json:"message"`
	Errors  catalog.FieldErrors `json:"errors"`
}

// SchedulerStatusResponse represents scheduler status.
type SchedulerStatusResponse struct {
	Running   bool             `json:"running"`
	Snapshots []SnapshotStatus `json:"snapshots"`
}

// HealthResponse reports liveness and per-collection record counts.
type HealthResponse struct {
	Status    string         `json:"status"`
	Resources map[string]int `json:"resources"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// writeCollection wraps records in the collection's configured envelope.
func (s *Server) writeCollection(w http.ResponseWriter, res catalog.Resource, recs []catalog.Record) {
	switch s.store.Envelope(res.Name) {
	case EnvelopeBare:
		writeJSON(w, http.StatusOK, recs)
	case EnvelopeKey:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, res.CollectionKey: recs})
	case EnvelopeFailure:
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": fmt.Sprintf("Could not load %s.", strings.ToLower(res.Title)),
		})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": recs})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Resources: s.store.Counts()})
}

// handleList serves an unscoped collection.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	res := resourceFrom(r)
	if res.Scope != catalog.ScopeNone {
		writeError(w, http.StatusBadRequest, "missing_scope",
			fmt.Sprintf("%s are listed per %s; use /%s/{id}", res.Title, res.Scope, res.Path))
		return
	}
	s.list(w, res, "")
}

// handleListOrGet serves a scoped collection, or a single record of an
// unscoped one.
func (s *Server) handleListOrGet(w http.ResponseWriter, r *http.Request) {
	res := resourceFrom(r)
	key := chi.URLParam(r, "key")

	if res.Scope == catalog.ScopeNone {
		rec, err := s.store.Get(res.Name, key)
		if err != nil {
			s.writeStoreError(w, res, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": rec})
		return
	}

	if res.Scope == catalog.ScopeUser {
		if user := sessionUser(r); user != "" && user != key {
			writeError(w, http.StatusForbidden, "forbidden", "You may only list your own "+strings.ToLower(res.Title)+".")
			return
		}
	}
	s.list(w, res, key)
}

func (s *Server) list(w http.ResponseWriter, res catalog.Resource, scopeID string) {
	recs, err := s.store.List(res.Name, scopeID)
	if err != nil {
		s.writeStoreError(w, res, err)
		return
	}
	s.writeCollection(w, res, recs)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	res := resourceFrom(r)
	values, ok := readValues(w, r)
	if !ok {
		return
	}
	if fe := res.Validate(values, false); fe != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationResponse{Message: "The given data was invalid.", Errors: fe})
		return
	}

	body := res.Body(values)
	if res.Scope == catalog.ScopeUser && res.ScopeField != "" {
		if user := sessionUser(r); user != "" {
			body[res.ScopeField] = user
		}
	}

	rec, err := s.store.Create(res.Name, body)
	if err != nil {
		s.writeStoreError(w, res, err)
		return
	}
	s.logger.Info("record created", "resource", res.Name, "id", res.ID(rec))
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": capitalize(res.Noun) + " created.",
		"data":    rec,
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	res := resourceFrom(r)
	id := chi.URLParam(r, "key")
	values, ok := readValues(w, r)
	if !ok {
		return
	}
	if fe := res.Validate(values, true); fe != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationResponse{Message: "The given data was invalid.", Errors: fe})
		return
	}

	rec, err := s.store.Update(res.Name, id, res.Body(values))
	if err != nil {
		s.writeStoreError(w, res, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": capitalize(res.Noun) + " updated.",
		"data":    rec,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	res := resourceFrom(r)
	id := chi.URLParam(r, "key")

	if err := s.store.Delete(res.Name, id); err != nil {
		s.writeStoreError(w, res, err)
		return
	}
	s.logger.Info("record deleted", "resource", res.Name, "id", id)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": capitalize(res.Noun) + " deleted.",
	})
}

func (s *Server) writeStoreError(w http.ResponseWriter, res catalog.Resource, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", capitalize(res.Noun)+" not found.")
	case errors.Is(err, ErrDeleteRejected):
		writeError(w, http.StatusInternalServerError, "delete_failed", "Could not delete "+res.Noun+".")
	default:
		s.logger.Error("store operation failed", "resource", res.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Something went wrong.")
	}
}

// readValues decodes a JSON object body into form values. Numbers keep
// their literal text.
func readValues(w http.ResponseWriter, r *http.Request) (map[string]string, bool) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Could not read request body.")
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be a JSON object.")
		return nil, false
	}

	values := make(map[string]string, len(obj))
	for k, v := range obj {
		switch v := v.(type) {
		case string:
			values[k] = v
		case json.Number:
			values[k] = v.String()
		case nil:
			values[k] = ""
		default:
			values[k] = fmt.Sprint(v)
		}
	}
	return values, true
}

func (s *Server) handleSnapshotStatus(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeJSON(w, http.StatusOK, SchedulerStatusResponse{Snapshots: []SnapshotStatus{}})
		return
	}
	writeJSON(w, http.StatusOK, SchedulerStatusResponse{
		Running:   s.scheduler.IsRunning(),
		Snapshots: s.scheduler.Status(),
	})
}

func (s *Server) handleTriggerSnapshot(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	if s.scheduler == nil || !s.scheduler.IsScheduled(resource) {
		writeError(w, http.StatusNotFound, "not_found", "No snapshot scheduled for "+resource)
		return
	}
	if err := s.scheduler.Trigger(resource); err != nil {
		writeError(w, http.StatusConflict, "conflict", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"message": "Snapshot started for " + resource,
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
