package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/stopwatch/internal/app"
	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/registry"
	"github.com/okian/stopwatch/internal/domain/timestamp"
	"github.com/okian/stopwatch/internal/domain/types"
)

type objectiveRequest struct {
	Type          string          `json:"type"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
}

func (o objectiveRequest) record() (registry.Record, error) {
	if strings.TrimSpace(o.Type) == "" {
		return registry.Record{}, fmt.Errorf("%w: missing objective type", ErrBadRequest)
	}
	return registry.Record{Type: o.Type, Configuration: o.Configuration}, nil
}

type createRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Lap         *model.Unit       `json:"lap,omitempty"`
	Objective   *objectiveRequest `json:"objective,omitempty"`
}

type eventRequest struct {
	Type        model.EventType      `json:"type"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Timestamp   *timestamp.Timestamp `json:"timestamp,omitempty"`
	Unit        *model.Unit          `json:"unit,omitempty"`
}

func (e eventRequest) validate() error {
	if strings.TrimSpace(string(e.Type)) == "" {
		return fmt.Errorf("%w: missing type", ErrBadRequest)
	}
	return nil
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_stopwatch"
	var req createRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	in := service.CreateInput{Title: req.Title, Description: req.Description, Lap: req.Lap}
	if req.Objective != nil {
		rec, err := req.Objective.record()
		if err != nil {
			s.fail(w, r, op, err)
			return
		}
		in.Objective = &rec
	}
	sw, err := s.deps.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, sw)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	all, err := s.deps.List(r.Context())
	if err != nil {
		s.fail(w, r, "api.list_stopwatches", err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sw, err := s.deps.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "api.get_stopwatch", err)
		return
	}
	writeJSON(w, http.StatusOK, sw)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, "api.delete_stopwatch", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "api.start")(s.deps.Start(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "api.stop")(s.deps.Stop(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "api.resume")(s.deps.Resume(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "api.reset")(s.deps.Reset(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_event"
	var req eventRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	if err := req.validate(); err != nil {
		s.fail(w, r, op, err)
		return
	}
	ev, err := s.deps.AddEvent(r.Context(), chi.URLParam(r, "id"), service.EventInput{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Timestamp:   req.Timestamp,
		Unit:        req.Unit,
	})
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleRemoveEvent(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "api.remove_event")(s.deps.RemoveEvent(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "eventID")))
}

func (s *Server) handleElapsed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	m, err := s.deps.Elapsed(r.Context(), chi.URLParam(r, "id"), q.Get("from"), q.Get("to"))
	if err != nil {
		s.fail(w, r, "api.elapsed", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDuration(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	m, err := s.deps.Duration(r.Context(), chi.URLParam(r, "id"), q.Get("from"), q.Get("to"))
	if err != nil {
		s.fail(w, r, "api.duration", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleSetObjective(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_objective"
	var req objectiveRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	rec, err := req.record()
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.respond(w, r, op)(s.deps.SetObjective(r.Context(), chi.URLParam(r, "id"), rec))
}

func (s *Server) handleClearObjective(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "api.clear_objective")(s.deps.ClearObjective(r.Context(), chi.URLParam(r, "id")))
}

// respond writes a stopwatch result or its error.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, op string) func(types.Stopwatch, error) {
	return func(sw types.Stopwatch, err error) {
		if err != nil {
			s.fail(w, r, op, err)
			return
		}
		writeJSON(w, http.StatusOK, sw)
	}
}
