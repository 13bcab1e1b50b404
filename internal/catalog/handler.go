package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/wolfman30/toothdoctor-api/internal/apperr"
	"github.com/wolfman30/toothdoctor-api/internal/identity"
	"github.com/wolfman30/toothdoctor-api/pkg/logging"
)

// Handler exposes the catalog endpoints.
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

// ListDoctors returns active doctors.
// GET /doctors
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.service.Doctors(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doctors)
}

// ListServices returns active services.
// GET /services
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.Services(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, services)
}

// CreateService adds a service.
// POST /services
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		apperr.WriteJSON(w, apperr.Unauthorized("unauthorized"))
		return
	}
	var req CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.BadRequest("invalid JSON body"))
		return
	}
	svc, err := h.service.CreateService(r.Context(), p, req)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, svc)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
