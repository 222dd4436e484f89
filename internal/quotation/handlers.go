package quotation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/conectapr/backend-b2b/internal/common"
	"github.com/conectapr/backend-b2b/internal/obs"
	"github.com/conectapr/backend-b2b/internal/quote"
)

// Handler exposes quotation and quote-calculation endpoints.
type Handler struct {
	Svc             *Service
	Engine          *quote.Engine
	Validate        *validator.Validate
	DefaultPageSize int
}

type lineItemPayload struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type calculatePayload struct {
	Items            []lineItemPayload `json:"items" validate:"required,min=1,dive"`
	BuyerLocation    string            `json:"buyerLocation"`
	SupplierLocation string            `json:"supplierLocation"`
	ShippingMethod   string            `json:"shippingMethod" validate:"omitempty,oneof=standard express economy"`
}

type createPayload struct {
	Items []lineItemPayload `json:"items" validate:"required,min=1,dive"`
}

type adminUpdatePayload struct {
	Status     string  `json:"status" validate:"required,oneof=pending processed completed rejected"`
	AdminNotes *string `json:"adminNotes" validate:"omitempty"`
}

// Calculate handles POST /api/v1/quotations/calculate. Pure computation, no
// persistence.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	if h.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	var payload calculatePayload
	if !h.decode(w, r, &payload) {
		return
	}
	method, err := quote.ParseShippingMethod(payload.ShippingMethod)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid shipping method", map[string]any{"shippingMethod": payload.ShippingMethod})
		return
	}
	lines := make([]quote.LineRequest, 0, len(payload.Items))
	for _, item := range payload.Items {
		lines = append(lines, quote.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	calc, err := h.Engine.PriceComparison(r.Context(), lines, quote.Options{
		BuyerLocation:    payload.BuyerLocation,
		SupplierLocation: payload.SupplierLocation,
		Method:           method,
	})
	if err != nil {
		obs.ObserveQuoteCalculation("error", len(lines))
		h.writeError(w, err)
		return
	}
	obs.ObserveQuoteCalculation("ok", len(lines))
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"calculations": calc,
		"formatted":    quote.FormatComparison(calc),
	}})
}

// Create handles POST /api/v1/quotations.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload createPayload
	if !h.decode(w, r, &payload) {
		return
	}
	items := make([]Item, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, Item{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	q, err := h.Svc.Create(r.Context(), caller, items)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": q})
}

// List handles GET /api/v1/quotations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, h.pageSize())
	quotations, total, err := h.Svc.List(r.Context(), caller, page, perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       quotations,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Get handles GET /api/v1/quotations/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	q, err := h.Svc.Get(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// Calculations handles GET /api/v1/quotations/{id}/calculations. The
// ownership check runs against the loaded quotation before any pricing data
// is returned.
func (h *Handler) Calculations(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	result, err := h.Svc.GetWithCalculations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !CanAccess(caller, result.Quotation) {
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "access denied", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// AdminList handles GET /api/v1/admin/quotations.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	if !caller.IsAdmin() {
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "admin access required", nil)
		return
	}
	page, perPage := common.ParsePagination(r, h.pageSize())
	quotations, total, err := h.Svc.List(r.Context(), caller, page, perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       quotations,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// AdminUpdate handles PUT /api/v1/admin/quotations/{id}.
func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	if !caller.IsAdmin() {
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "admin access required", nil)
		return
	}
	var payload adminUpdatePayload
	if !h.decode(w, r, &payload) {
		return
	}
	status, _ := ParseStatus(payload.Status)
	q, err := h.Svc.AdminUpdate(r.Context(), chi.URLParam(r, "id"), status, payload.AdminNotes)
	if err != nil {
		if errors.Is(err, ErrInvalidStatusTransition) {
			common.JSONError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
			return
		}
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// AdminProcess handles POST /api/v1/admin/quotations/{id}/process: the
// reconciliation action that recomputes and persists the quotation total.
func (h *Handler) AdminProcess(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	if !caller.IsAdmin() {
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "admin access required", nil)
		return
	}
	result, err := h.Svc.Process(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"quotation":        result.Quotation,
		"formattedSummary": result.Summary,
	}})
}

func (h *Handler) requireCaller(w http.ResponseWriter, r *http.Request) (common.Caller, bool) {
	caller, ok := common.CallerFrom(r.Context())
	if !ok || caller.ID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return common.Caller{}, false
	}
	return caller, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "validation failed", validationDetails(err))
			return false
		}
	}
	return true
}

func (h *Handler) pageSize() int {
	if h.DefaultPageSize > 0 {
		return h.DefaultPageSize
	}
	return 20
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quote.ErrUnknownShippingMethod):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, quote.ErrBelowMinimumOrder):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.WriteError(w, err)
	}
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, map[string]string{
			"field": fe.Namespace(),
			"rule":  fe.Tag(),
		})
	}
	return map[string]any{"fields": fields}
}
