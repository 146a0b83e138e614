package svc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// HttpServerMux returns the HTTP surface of the service:
//
//	POST /redate/{repo}        run a redate, ?dry_run=true plans only
//	GET  /operations           journal listing, ?repo= and ?limit= filter
//	GET  /operations/{id}      one journal entry, ?remap=true inlines the table
//	GET  /healthz              liveness
//	GET  /metrics              prometheus counters
func (s *Svc) HttpServerMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}

	m := http.NewServeMux()
	s.mux = m

	m.HandleFunc("POST /redate/{repo}", s.handleRedate)
	m.HandleFunc("GET /operations", s.handleListOperations)
	m.HandleFunc("GET /operations/{id}", s.handleGetOperation)
	m.HandleFunc("GET /healthz", s.handleHealthz)
	m.Handle("GET /metrics", s.metrics.handler())

	return m
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write response", "err", err)
	}
}

func boolParam(r *http.Request, name string) bool {
	switch r.URL.Query().Get(name) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func (s *Svc) handleRedate(w http.ResponseWriter, r *http.Request) {
	repo := r.PathValue("repo")
	dryrun := boolParam(r, "dry_run")

	rec, err := s.RunOperation(r.Context(), repo, dryrun)

	switch {
	case errors.Is(err, ErrUnknownRepo):
		http.Error(w, err.Error(), http.StatusNotFound)
	case rec == nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	case err != nil && rec.Outcome == OutcomeFailed:
		writeJSON(w, http.StatusInternalServerError, rec)
	default:
		// full, partial and dry-run all carry their detail in the record
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Svc) handleListOperations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, fmt.Sprintf("bad limit: %s", v), http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := listOperationsFromDb(s.mustGetDb(), r.URL.Query().Get("repo"), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// listings never carry the remap blobs
	for _, rec := range records {
		rec.RemapZstd = nil
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Svc) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	rec, err := getOperationFromDb(s.mustGetDb(), []byte(r.PathValue("id")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "no such operation", http.StatusNotFound)
		return
	}

	resp := struct {
		*OperationRecord
		Remap map[string]string `json:"remap,omitempty"`
	}{OperationRecord: rec}

	if boolParam(r, "remap") {
		remap, err := decodeRemap(rec.RemapZstd)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp.Remap = remap
	}
	rec.RemapZstd = nil

	writeJSON(w, http.StatusOK, resp)
}

func (s *Svc) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "ok")
}
