package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/freezer-inventory/internal/core/domain"
	"github.com/rl1809/freezer-inventory/internal/core/service"
)

type HTTPHandler struct {
	inventory *service.InventoryService
	validate  *validator.Validate
	logger    *zap.Logger
}

type GelatoHTTPRequest struct {
	Location string `json:"location" validate:"required"`
	Item     string `json:"item" validate:"required"`
	Quantity string `json:"quantity" validate:"required"`
}

type SwitchFreezerHTTPRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required,nefield=From"`
	Item string `json:"item" validate:"required"`
}

type QuantityHTTPResponse struct {
	Location string          `json:"location"`
	Item     string          `json:"item"`
	Quantity decimal.Decimal `json:"quantity"`
}

type SwitchFreezerHTTPResponse struct {
	From  string          `json:"from"`
	To    string          `json:"to"`
	Item  string          `json:"item"`
	Moved decimal.Decimal `json:"moved"`
}

type FreezerHTTPResponse struct {
	Location string `json:"location"`
	Rows     int    `json:"rows"`
}

type EntryHTTPResponse struct {
	Location string          `json:"location,omitempty"`
	Item     string          `json:"item"`
	Quantity decimal.Decimal `json:"quantity"`
}

type ErrorHTTPResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func NewHTTPHandler(inventory *service.InventoryService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		inventory: inventory,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

// Routes registers every endpoint on mux.
func (h *HTTPHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("POST /api/gelato/add", h.AddGelato)
	mux.HandleFunc("POST /api/gelato/use", h.UseGelato)
	mux.HandleFunc("POST /api/gelato/switch", h.SwitchFreezer)
	mux.HandleFunc("GET /api/freezers/{location}", h.ListContents)
	mux.HandleFunc("DELETE /api/freezers/{location}", h.DeleteFreezer)
	mux.HandleFunc("POST /api/freezers/{location}/clear", h.ClearFreezer)
	mux.HandleFunc("GET /api/refill", h.RefillSuggestions)
	mux.HandleFunc("GET /api/inventory", h.ListAll)
	mux.HandleFunc("POST /api/refresh", h.Refresh)
}

func (h *HTTPHandler) AddGelato(w http.ResponseWriter, r *http.Request) {
	req, qty, ok := h.decodeGelato(w, r)
	if !ok {
		return
	}

	got, err := h.inventory.Add(r.Context(), req.Location, req.Item, qty)
	if err != nil {
		h.writeError(w, err)
		return
	}

	key := domain.NewInventoryKey(req.Location, req.Item)
	writeJSON(w, http.StatusOK, QuantityHTTPResponse{Location: key.Location, Item: key.Item, Quantity: got})
}

func (h *HTTPHandler) UseGelato(w http.ResponseWriter, r *http.Request) {
	req, qty, ok := h.decodeGelato(w, r)
	if !ok {
		return
	}

	got, err := h.inventory.Consume(r.Context(), req.Location, req.Item, qty)
	if err != nil {
		h.writeError(w, err)
		return
	}

	key := domain.NewInventoryKey(req.Location, req.Item)
	writeJSON(w, http.StatusOK, QuantityHTTPResponse{Location: key.Location, Item: key.Item, Quantity: got})
}

func (h *HTTPHandler) SwitchFreezer(w http.ResponseWriter, r *http.Request) {
	var req SwitchFreezerHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	moved, err := h.inventory.Transfer(r.Context(), req.From, req.To, req.Item)
	if err != nil {
		h.writeError(w, err)
		return
	}

	key := domain.NewInventoryKey(req.From, req.Item)
	writeJSON(w, http.StatusOK, SwitchFreezerHTTPResponse{
		From:  key.Location,
		To:    domain.NewInventoryKey(req.To, req.Item).Location,
		Item:  key.Item,
		Moved: moved,
	})
}

func (h *HTTPHandler) DeleteFreezer(w http.ResponseWriter, r *http.Request) {
	location := r.PathValue("location")
	n, err := h.inventory.RemoveLocation(r.Context(), location)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FreezerHTTPResponse{Location: location, Rows: n})
}

func (h *HTTPHandler) ClearFreezer(w http.ResponseWriter, r *http.Request) {
	location := r.PathValue("location")
	n, err := h.inventory.ZeroLocation(r.Context(), location)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FreezerHTTPResponse{Location: location, Rows: n})
}

func (h *HTTPHandler) ListContents(w http.ResponseWriter, r *http.Request) {
	entries, err := h.inventory.ListContents(r.PathValue("location"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]EntryHTTPResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryHTTPResponse{Item: e.Item, Quantity: e.Quantity})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	entries := h.inventory.ListAll()

	out := make([]EntryHTTPResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryHTTPResponse{Location: e.Location, Item: e.Item, Quantity: e.Quantity})
	}
	writeJSON(w, http.StatusOK, out)
}

// RefillSuggestions takes an optional ?threshold=, defaulting to the configured one.
func (h *HTTPHandler) RefillSuggestions(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("threshold")
	if raw == "" {
		writeJSON(w, http.StatusOK, h.inventory.DefaultRefillSuggestions())
		return
	}

	threshold, err := domain.ParseQuantity(raw)
	if err != nil {
		h.writeError(w, &domain.ValidationError{Field: "threshold", Reason: "must be a non-negative number"})
		return
	}
	writeJSON(w, http.StatusOK, h.inventory.RefillSuggestions(threshold))
}

func (h *HTTPHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	warnings, err := h.inventory.Refresh(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	coerced := make([]string, 0, len(warnings))
	for _, warn := range warnings {
		coerced = append(coerced, warn.Key.String())
	}
	writeJSON(w, http.StatusOK, map[string][]string{"coerced_to_zero": coerced})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) decodeGelato(w http.ResponseWriter, r *http.Request) (GelatoHTTPRequest, decimal.Decimal, bool) {
	var req GelatoHTTPRequest
	if !h.decode(w, r, &req) {
		return req, decimal.Zero, false
	}

	qty, err := domain.ParseQuantity(req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return req, decimal.Zero, false
	}
	return req, qty, true
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: "invalid request body", Kind: "validation"})
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := verrs[0].Field()
			reason := "is required"
			if verrs[0].Tag() == "nefield" {
				reason = "must differ from " + verrs[0].Param()
			}
			h.writeError(w, &domain.ValidationError{Field: field, Reason: reason})
			return false
		}
		h.writeError(w, err)
		return false
	}
	return true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("inventory request failed", zap.Error(err))
	}
	writeJSON(w, status, ErrorHTTPResponse{Error: err.Error(), Kind: kind})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusInternalServerError, "persistence"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
