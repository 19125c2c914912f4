// Package server exposes the generation pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/agentic-research/docforge/api"
	"github.com/agentic-research/docforge/internal/address"
	"github.com/agentic-research/docforge/internal/fetch"
	"github.com/agentic-research/docforge/internal/pipeline"
	"github.com/agentic-research/docforge/internal/tree"
)

// Processor runs one document request end to end. *pipeline.Pipeline
// satisfies it.
type Processor interface {
	Process(ctx context.Context, req *api.Request, source string) error
}

// Server is the HTTP transport over the pipeline.
type Server struct {
	proc Processor
}

// New returns a Server over proc.
func New(proc Processor) *Server {
	return &Server{proc: proc}
}

// Routes returns the transport's handler tree.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /v1/generate", s.handleGenerate)
	mux.HandleFunc("POST /v1/batch", s.handleBatch)
	return logging(mux)
}

// handleGenerate processes one request tree and returns it reconciled, or
// a structured error with the status mapped from the failure taxonomy.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req api.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Stage: "decode", Error: "bad json: " + err.Error()})
		return
	}

	if err := s.proc.Process(r.Context(), &req, "http"); err != nil {
		writeJSON(w, statusFor(err), errorPayload(err))
		return
	}
	writeJSON(w, http.StatusOK, &req)
}

// handleBatch processes each record independently. Once the envelope
// decodes the response is always 200: per-record failures are data in the
// batch response, not transport errors.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var batch api.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Stage: "decode", Error: "bad json: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, RunBatch(r.Context(), s.proc, batch, "batch"))
}

// RunBatch processes every record of a batch independently and fills the
// summary response. Shared by the HTTP transport and the CLI batch
// command.
func RunBatch(ctx context.Context, proc Processor, batch api.BatchRequest, source string) api.BatchResponse {
	resp := api.BatchResponse{
		Processed: len(batch.Records),
		Results:   make([]api.RecordResult, len(batch.Records)),
		Timestamp: time.Now().UTC(),
	}
	for i, rec := range batch.Records {
		res := api.RecordResult{ID: rec.ID, Status: "ok"}
		switch {
		case rec.Request == nil:
			res.Status = "error"
			res.Error = "record has no request"
		default:
			if rec.Request.RequestID == "" {
				rec.Request.RequestID = rec.ID
			}
			if err := proc.Process(ctx, rec.Request, source); err != nil {
				res.Status = "error"
				res.Error = err.Error()
			} else {
				res.Locations = tree.Locations(rec.Request)
			}
		}
		if res.Status == "ok" {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
		resp.Results[i] = res
	}
	return resp
}

// statusFor maps the failure taxonomy onto transport status codes: request
// shape and address mistakes are the client's (422), upstream transfer
// failures are the origin's (502), rendering and bookkeeping failures are
// ours (500).
func statusFor(err error) int {
	switch {
	case errors.Is(err, tree.ErrEmptyGroup),
		errors.Is(err, tree.ErrMissingData),
		errors.Is(err, address.ErrInvalid),
		errors.Is(err, address.ErrEmpty),
		errors.Is(err, fetch.ErrUnsupportedScheme):
		return http.StatusUnprocessableEntity
	case errors.Is(err, fetch.ErrDownload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorPayload(err error) api.ErrorResponse {
	resp := api.ErrorResponse{Stage: "internal", Error: err.Error()}

	var se *pipeline.StageError
	if errors.As(err, &se) {
		resp.Stage = string(se.Stage)
		resp.Error = se.Err.Error()
	}

	var ge *pipeline.GenerationError
	if errors.As(err, &ge) {
		resp.Jobs = make([]api.JobErrorDetail, len(ge.Failures))
		for i, f := range ge.Failures {
			resp.Jobs[i] = api.JobErrorDetail{Index: f.Index, Address: f.Address, Error: f.Err.Error()}
		}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rr := &respRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rr, r)
		log.Printf("server: %s %s -> %d (%s)", r.Method, r.URL.Path, rr.status, time.Since(start))
	})
}

type respRecorder struct {
	http.ResponseWriter
	status int
}

func (rr *respRecorder) WriteHeader(code int) {
	rr.status = code
	rr.ResponseWriter.WriteHeader(code)
}
