package quotation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/conectapr/backend-b2b/internal/common"
	"github.com/conectapr/backend-b2b/internal/quote"
)

func newTestHandler(t *testing.T, store storeProvider, lookup quote.ProductLookup) *Handler {
	t.Helper()
	engine, err := quote.NewEngine(lookup, quote.DefaultPolicy())
	require.NoError(t, err)
	return &Handler{
		Svc:      &Service{Store: store, Engine: engine, Lookup: lookup},
		Engine:   engine,
		Validate: validator.New(),
	}
}

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/quotations", h.Create)
	r.Get("/api/v1/quotations", h.List)
	r.Post("/api/v1/quotations/calculate", h.Calculate)
	r.Get("/api/v1/quotations/{id}", h.Get)
	r.Get("/api/v1/quotations/{id}/calculations", h.Calculations)
	r.Get("/api/v1/admin/quotations", h.AdminList)
	r.Put("/api/v1/admin/quotations/{id}", h.AdminUpdate)
	r.Post("/api/v1/admin/quotations/{id}/process", h.AdminProcess)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, target string, body any, caller *common.Caller) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req = req.WithContext(common.WithCaller(req.Context(), *caller))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCalculateEndpoint(t *testing.T) {
	productID := uuid.New().String()
	lookup := fakeLookup{productID: {Price: decimal.NewFromInt(100)}}
	router := newTestRouter(newTestHandler(t, newFakeStore(), lookup))

	rec := doRequest(t, router, http.MethodPost, "/api/v1/quotations/calculate", map[string]any{
		"items": []map[string]any{{"productId": productID, "quantity": 5}},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Calculations quote.ComparisonResult    `json:"calculations"`
			Formatted    quote.FormattedComparison `json:"formatted"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Calculations.Items, 1)
	require.True(t, body.Data.Calculations.GrandTotal.Equal(decimal.NewFromFloat(646.25)))
	require.Equal(t, "R$ 646.25", body.Data.Formatted.Summary.Total)
	require.Equal(t, "1-10 units", body.Data.Formatted.Items[0].AppliedTier)
}

func TestCalculateValidation(t *testing.T) {
	router := newTestRouter(newTestHandler(t, newFakeStore(), fakeLookup{}))

	rec := doRequest(t, router, http.MethodPost, "/api/v1/quotations/calculate", map[string]any{
		"items": []map[string]any{},
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/quotations/calculate", map[string]any{
		"items":          []map[string]any{{"productId": uuid.New().String(), "quantity": 1}},
		"shippingMethod": "drone",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/quotations/calculate", map[string]any{
		"items": []map[string]any{{"productId": "not-a-uuid", "quantity": 1}},
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculateUnknownProduct(t *testing.T) {
	router := newTestRouter(newTestHandler(t, newFakeStore(), fakeLookup{}))
	rec := doRequest(t, router, http.MethodPost, "/api/v1/quotations/calculate", map[string]any{
		"items": []map[string]any{{"productId": uuid.New().String(), "quantity": 1}},
	}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRequiresAuth(t *testing.T) {
	router := newTestRouter(newTestHandler(t, newFakeStore(), fakeLookup{}))
	rec := doRequest(t, router, http.MethodPost, "/api/v1/quotations", map[string]any{
		"items": []map[string]any{{"productId": uuid.New().String(), "quantity": 1}},
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndGetFlow(t *testing.T) {
	productID := uuid.New().String()
	lookup := fakeLookup{productID: {Price: decimal.NewFromInt(10)}}
	router := newTestRouter(newTestHandler(t, newFakeStore(), lookup))
	owner := common.Caller{ID: "c1", Role: common.RoleCustomer}

	rec := doRequest(t, router, http.MethodPost, "/api/v1/quotations", map[string]any{
		"items": []map[string]any{{"productId": productID, "quantity": 3}},
	}, &owner)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data Quotation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, StatusPending, created.Data.Status)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/quotations/"+created.Data.ID, nil, &owner)
	require.Equal(t, http.StatusOK, rec.Code)

	stranger := common.Caller{ID: "c2", Role: common.RoleCustomer}
	rec = doRequest(t, router, http.MethodGet, "/api/v1/quotations/"+created.Data.ID, nil, &stranger)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCalculationsOwnership(t *testing.T) {
	productID := uuid.New().String()
	store := newFakeStore(Quotation{
		ID:        "q1",
		CompanyID: "c1",
		Status:    StatusPending,
		Items:     []Item{{ProductID: productID, Quantity: 2}},
	})
	lookup := fakeLookup{productID: {Price: decimal.NewFromInt(10)}}
	router := newTestRouter(newTestHandler(t, store, lookup))

	stranger := common.Caller{ID: "c2", Role: common.RoleCustomer}
	rec := doRequest(t, router, http.MethodGet, "/api/v1/quotations/q1/calculations", nil, &stranger)
	require.Equal(t, http.StatusForbidden, rec.Code)

	owner := common.Caller{ID: "c1", Role: common.RoleCustomer}
	rec = doRequest(t, router, http.MethodGet, "/api/v1/quotations/q1/calculations", nil, &owner)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data WithCalculations `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Calculations.Items, 1)
	require.Equal(t, StatusPending, body.Data.Quotation.Status)
}

func TestAdminEndpointsRejectNonAdmins(t *testing.T) {
	router := newTestRouter(newTestHandler(t, newFakeStore(), fakeLookup{}))
	customer := common.Caller{ID: "c1", Role: common.RoleCustomer}

	rec := doRequest(t, router, http.MethodGet, "/api/v1/admin/quotations", nil, &customer)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/admin/quotations/q1/process", nil, &customer)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminProcessEndpoint(t *testing.T) {
	productID := uuid.New().String()
	store := newFakeStore(Quotation{
		ID:        "q1",
		CompanyID: "c1",
		Status:    StatusPending,
		Items:     []Item{{ProductID: productID, Quantity: 10}},
	})
	lookup := fakeLookup{productID: {Price: decimal.NewFromInt(100)}}
	router := newTestRouter(newTestHandler(t, store, lookup))
	admin := common.Caller{ID: "staff", Role: common.RoleAdmin}

	rec := doRequest(t, router, http.MethodPost, "/api/v1/admin/quotations/q1/process", nil, &admin)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Quotation Quotation                 `json:"quotation"`
			Summary   quote.FormattedComparison `json:"formattedSummary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, StatusProcessed, body.Data.Quotation.Status)
	require.NotNil(t, body.Data.Quotation.AdminNotes)
	require.Contains(t, *body.Data.Quotation.AdminNotes, "Quote calculated - Total: R$ ")
	require.Equal(t, fmt.Sprintf("Quote calculated - Total: R$ %s, Savings: R$ 0.00", body.Data.Quotation.TotalAmount.StringFixed(2)),
		*body.Data.Quotation.AdminNotes)
}

func TestAdminUpdateEndpoint(t *testing.T) {
	store := newFakeStore(Quotation{ID: "q1", CompanyID: "c1", Status: StatusCompleted})
	router := newTestRouter(newTestHandler(t, store, fakeLookup{}))
	admin := common.Caller{ID: "staff", Role: common.RoleAdmin}

	rec := doRequest(t, router, http.MethodPut, "/api/v1/admin/quotations/q1", map[string]any{
		"status": "pending",
	}, &admin)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, router, http.MethodPut, "/api/v1/admin/quotations/q1", map[string]any{
		"status": "archived",
	}, &admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	store.quotations["q1"] = Quotation{ID: "q1", CompanyID: "c1", Status: StatusPending}
	rec = doRequest(t, router, http.MethodPut, "/api/v1/admin/quotations/q1", map[string]any{
		"status":     "rejected",
		"adminNotes": "out of stock",
	}, &admin)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data Quotation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, StatusRejected, body.Data.Status)
	require.Equal(t, "out of stock", *body.Data.AdminNotes)
}

func TestListEndpointPagination(t *testing.T) {
	store := newFakeStore(
		Quotation{ID: "q1", CompanyID: "c1", Status: StatusPending},
		Quotation{ID: "q2", CompanyID: "c1", Status: StatusPending},
	)
	router := newTestRouter(newTestHandler(t, store, fakeLookup{}))
	owner := common.Caller{ID: "c1", Role: common.RoleCustomer}

	rec := doRequest(t, router, http.MethodGet, "/api/v1/quotations?page=1&limit=10", nil, &owner)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-Total-Count"))
}

func TestListEndpointsClampPageSize(t *testing.T) {
	store := newFakeStore(Quotation{ID: "q1", CompanyID: "c1", Status: StatusPending})
	router := newTestRouter(newTestHandler(t, store, fakeLookup{}))

	type listBody struct {
		Pagination common.Pagination `json:"pagination"`
	}
	owner := common.Caller{ID: "c1", Role: common.RoleCustomer}
	admin := common.Caller{ID: "staff", Role: common.RoleAdmin}
	cases := []struct {
		target string
		caller *common.Caller
	}{
		{"/api/v1/quotations?limit=5000", &owner},
		{"/api/v1/admin/quotations?limit=5000", &admin},
	}
	for _, tc := range cases {
		rec := doRequest(t, router, http.MethodGet, tc.target, nil, tc.caller)
		require.Equal(t, http.StatusOK, rec.Code, tc.target)
		var body listBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, 100, body.Pagination.PerPage, tc.target)
	}
}
