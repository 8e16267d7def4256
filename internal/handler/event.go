package handler

import (
	"net/http"
	"time"

	"github.com/gatherly/eventreg/internal/model"
	"github.com/gatherly/eventreg/internal/service"
	"github.com/go-chi/chi/v5"
)

// EventHandler holds the HTTP handlers for event lifecycle operations.
type EventHandler struct {
	svc *service.EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// eventRequest is the payload for creating or updating an event.
type eventRequest struct {
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Type                 string     `json:"type"`
	StartDate            time.Time  `json:"start_date"`
	EndDate              time.Time  `json:"end_date"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MaxParticipants      int        `json:"max_participants"`
	IsUnlimited          bool       `json:"is_unlimited"`
	Price                int64      `json:"price"`
	MemberPrice          *int64     `json:"member_price"`
	Currency             string     `json:"currency"`
}

func (req eventRequest) toInput() service.CreateEventInput {
	return service.CreateEventInput{
		Title:                req.Title,
		Description:          req.Description,
		Type:                 model.EventType(req.Type),
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		RegistrationDeadline: req.RegistrationDeadline,
		MaxParticipants:      req.MaxParticipants,
		IsUnlimited:          req.IsUnlimited,
		Price:                req.Price,
		MemberPrice:          req.MemberPrice,
		Currency:             req.Currency,
	}
}

// Create handles POST /events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.Create(r.Context(), req.toInput(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// List handles GET /events
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Get handles GET /events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Update handles PATCH /events/{id}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req.toInput(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Publish handles POST /events/{id}/publish
func (h *EventHandler) Publish(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	event, err := h.svc.Publish(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Cancel handles POST /events/{id}/cancel
func (h *EventHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	event, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Delete handles DELETE /events/{id}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /events/{id}/status
func (h *EventHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.EffectiveStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.EffectiveStatus{"status": status})
}
