package handler

import (
	"net/http"

	"github.com/gatherly/eventreg/internal/model"
	"github.com/gatherly/eventreg/internal/service"
	"github.com/go-chi/chi/v5"
)

// RegistrationHandler holds the HTTP handlers for registration operations.
type RegistrationHandler struct {
	svc *service.RegistrationService
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(svc *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

// Register handles POST /events/{id}/register
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req struct {
		WantsWaitlist bool `json:"wants_waitlist"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
			return
		}
	}

	reg, err := h.svc.Admit(r.Context(), service.AdmitInput{
		EventID:       chi.URLParam(r, "id"),
		Actor:         actor,
		WantsWaitlist: req.WantsWaitlist,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// Cancel handles POST /registrations/{id}/cancel
func (h *RegistrationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	reg, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// MarkAttendance handles POST /registrations/{id}/attendance
func (h *RegistrationHandler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req struct {
		Attended bool `json:"attended"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.MarkAttendance(r.Context(), chi.URLParam(r, "id"), req.Attended, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// RecordPayment handles POST /registrations/{id}/payment
// The payment provider (or a webhook relay in front of it) reports the
// outcome of a payment attempt here.
func (h *RegistrationHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.RecordPaymentOutcome(r.Context(), chi.URLParam(r, "id"), model.PaymentStatus(req.Status))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// ListByEvent handles GET /events/{id}/registrations
func (h *RegistrationHandler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.ListByEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// ListByUser handles GET /users/{id}/registrations
// Users may list their own registrations; admins anyone's.
func (h *RegistrationHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	userID := chi.URLParam(r, "id")
	if !actor.IsAdmin() && actor.UserID != userID {
		writeServiceError(w, model.ErrForbidden)
		return
	}

	regs, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}
