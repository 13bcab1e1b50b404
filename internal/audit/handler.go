package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/wolfman30/toothdoctor-api/internal/apperr"
	"github.com/wolfman30/toothdoctor-api/internal/identity"
	"github.com/wolfman30/toothdoctor-api/pkg/logging"
)

// Lister reads entries, newest first.
type Lister interface {
	List(ctx context.Context, f Filter) ([]Entry, error)
}

// Handler serves the audit trail to administrators.
type Handler struct {
	lister Lister
	logger *logging.Logger
}

func NewHandler(lister Lister, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{lister: lister, logger: logger}
}

// List returns audit entries.
// GET /audit-logs?entity=&entityId=&userId=&limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		apperr.WriteJSON(w, apperr.Unauthorized("unauthorized"))
		return
	}
	if !p.IsAdmin() {
		apperr.WriteJSON(w, apperr.Forbidden("only administrators can read the audit log"))
		return
	}

	q := r.URL.Query()
	f := Filter{
		Entity:   q.Get("entity"),
		EntityID: q.Get("entityId"),
		UserID:   q.Get("userId"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			apperr.WriteJSON(w, apperr.BadRequest("limit must be a number"))
			return
		}
		f.Limit = limit
	}

	entries, err := h.lister.List(r.Context(), f)
	if err != nil {
		h.logger.Error("failed to list audit entries", "error", err)
		apperr.WriteJSON(w, apperr.Internal(err))
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		h.logger.Error("failed to encode audit entries", "error", err)
	}
}
