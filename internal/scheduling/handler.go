package scheduling

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/toothdoctor-api/internal/apperr"
	"github.com/wolfman30/toothdoctor-api/internal/identity"
	"github.com/wolfman30/toothdoctor-api/pkg/logging"
)

// Handler exposes the appointment endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns the /appointments router. Callers must mount it behind authentication.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}

// Create books an appointment.
// POST /appointments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		apperr.WriteJSON(w, ErrUnauthenticated)
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.BadRequest("invalid JSON body"))
		return
	}
	appt, err := h.service.Create(r.Context(), p, req)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, appt)
}

// List returns the caller's appointments.
// GET /appointments
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		apperr.WriteJSON(w, ErrUnauthenticated)
		return
	}
	appts, err := h.service.List(r.Context(), p)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appts)
}

// Get returns one appointment.
// GET /appointments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		apperr.WriteJSON(w, ErrUnauthenticated)
		return
	}
	appt, err := h.service.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

// Update applies a partial update.
// PATCH /appointments/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		apperr.WriteJSON(w, ErrUnauthenticated)
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.BadRequest("invalid JSON body"))
		return
	}
	appt, err := h.service.Update(r.Context(), p, chi.URLParam(r, "id"), req)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

// Delete removes an appointment.
// DELETE /appointments/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		apperr.WriteJSON(w, ErrUnauthenticated)
		return
	}
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Appointment deleted successfully"})
}

// OpenSlots lists free start times for a doctor on a date.
// GET /doctors/{id}/slots?date=YYYY-MM-DD
func (h *Handler) OpenSlots(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "id")
	date := r.URL.Query().Get("date")
	if date == "" {
		apperr.WriteJSON(w, apperr.BadRequest("date is required"))
		return
	}
	slots, err := h.service.OpenSlots(r.Context(), doctorID, date)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"doctorId": doctorID,
		"date":     date,
		"slots":    slots,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
