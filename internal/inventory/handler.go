package inventory

import (
	"log/slog"
	"net/http"

	"github.com/DevDizzle/galatiq-invoice-agent/pkg/handlers"
	"github.com/DevDizzle/galatiq-invoice-agent/pkg/routes"
)

// Handler provides read-only HTTP endpoints over the inventory table.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "inventory"),
	}
}

// Routes returns the route group definition for inventory endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/inventory",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{name}", Handler: h.Find},
		},
	}
}

// List returns every inventory row.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.sys.Items(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, items)
}

// Find returns the stock for an exact item name.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	stock, err := h.sys.Lookup(r.Context(), name)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	if stock == NotFound {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrNotFound)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, Item{Name: name, Stock: stock})
}
