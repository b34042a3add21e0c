package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/jask/eventdesk/internal/designer"
	"github.com/jask/eventdesk/internal/designer/relay"
	"github.com/jask/eventdesk/internal/llm"
	"github.com/jask/eventdesk/internal/service"
)

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.Events.ListForOwner(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in service.CreateEventInput
	if !s.decode(w, r, &in) {
		return
	}
	ev, err := s.Events.Create(r.Context(), ownerFrom(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.Events.Get(r.Context(), ownerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateDetailsInput
	if !s.decode(w, r, &in) {
		return
	}
	ev, err := s.Events.UpdateDetails(r.Context(), ownerFrom(r.Context()), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.Events.Delete(r.Context(), ownerFrom(r.Context()), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.Tickets.List(r.Context(), ownerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var in service.TicketInput
	if !s.decode(w, r, &in) {
		return
	}
	t, err := s.Tickets.Create(r.Context(), ownerFrom(r.Context()), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	var in service.TicketInput
	if !s.decode(w, r, &in) {
		return
	}
	t, err := s.Tickets.Update(r.Context(), ownerFrom(r.Context()), r.PathValue("id"), r.PathValue("ticketID"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	if err := s.Tickets.Delete(r.Context(), ownerFrom(r.Context()), r.PathValue("id"), r.PathValue("ticketID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderRequest is the body of POST /api/events/{id}/tickets/reorder.
type ReorderRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleReorderTickets(w http.ResponseWriter, r *http.Request) {
	var in ReorderRequest
	if !s.decode(w, r, &in) {
		return
	}
	tickets, err := s.Tickets.Reorder(r.Context(), ownerFrom(r.Context()), r.PathValue("id"), in.IDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleSuggestLayout(w http.ResponseWriter, r *http.Request) {
	var in llm.LayoutRequest
	if !s.decode(w, r, &in) {
		return
	}
	resp, err := s.Layout.Suggest(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleOpenDesigner answers 200 once rendered and 202 while the script is
// still loading; the client then polls GET /api/designer/{container}.
func (s *Server) handleOpenDesigner(w http.ResponseWriter, r *http.Request) {
	var in service.OpenDesignerInput
	if r.ContentLength != 0 && !s.decode(w, r, &in) {
		return
	}
	st, err := s.Designer.Open(r.Context(), ownerFrom(r.Context()), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	code := http.StatusOK
	if !st.Rendered {
		code = http.StatusAccepted
	}
	writeJSON(w, code, st)
}

func (s *Server) handleCloseDesigner(w http.ResponseWriter, r *http.Request) {
	container := r.URL.Query().Get("container")
	if container == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "container query parameter is required"})
		return
	}
	if err := s.Designer.Close(r.Context(), ownerFrom(r.Context()), r.PathValue("id"), container); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDesignerStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Designer.Status(ownerFrom(r.Context()), r.PathValue("container"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSelectObject(w http.ResponseWriter, r *http.Request) {
	if err := s.Designer.Select(r.Context(), ownerFrom(r.Context()), r.PathValue("container"), r.PathValue("label")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeselectObject(w http.ResponseWriter, r *http.Request) {
	if err := s.Designer.Deselect(r.Context(), ownerFrom(r.Context()), r.PathValue("container"), r.PathValue("label")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// decode reads a JSON body of at most maxRequestBodySize into v. On failure it
// writes a 400 and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "read body: " + err.Error()})
		return false
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "request body is empty"})
		return false
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	body := errorBody{Error: err.Error()}
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		body.Error = "validation failed"
		body.Fields = ve.Fields
	}
	if code >= 500 {
		s.Log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		if code == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	}
	writeJSON(w, code, body)
}

func statusFor(err error) int {
	switch {
	case service.IsValidation(err), errors.Is(err, relay.ErrEmptyLabel):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound), errors.Is(err, relay.ErrNotRendered):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, relay.ErrReadOnly), errors.Is(err, relay.ErrLimit), errors.Is(err, designer.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, designer.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, designer.ErrRegionsExhausted), errors.Is(err, designer.ErrConstruction):
		return http.StatusBadGateway
	case errors.Is(err, llm.ErrNoAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprintf(w, "encode response: %v", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
