package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shinyyama/voxelhub-backend/internal/config"
	"github.com/shinyyama/voxelhub-backend/internal/db"
	appmw "github.com/shinyyama/voxelhub-backend/internal/middleware"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/payment"
	"github.com/shinyyama/voxelhub-backend/internal/realtime"
	"github.com/shinyyama/voxelhub-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiClient struct {
	t *testing.T
	h http.Handler
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	conn, err := db.OpenMemory()
	require.NoError(t, err)
	hub := realtime.NewHub()
	sim := payment.NewSimulator(time.Hour)
	s := New(Deps{
		DB: conn,
		Config: &config.Config{
			AppEnv:         config.EnvDevelopment,
			PayoutCurrency: "eur",
			AllowedOrigins: []string{"*.voxelhub.app"},
		},
		Auth:      appmw.NewDevAuthMiddleware(),
		Blobs:     storage.NewMemoryStore(),
		Hub:       hub,
		Notifier:  hub,
		Providers: payment.Registry{},
		Simulator: sim,
		Checkouts: payment.CheckoutRegistry{
			model.PayoutMethodStripe: sim,
			model.PayoutMethodPayPal: sim,
		},
	})
	return &apiClient{t: t, h: s.Handler()}
}

func (a *apiClient) do(method, path, uid string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set(appmw.DevUserHeader, uid)
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func (a *apiClient) createProject(uid, title string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(a.t, w.WriteField("title", title))
	require.NoError(a.t, w.WriteField("material", "PETG"))
	require.NoError(a.t, w.WriteField("quantity", "2"))
	part, err := w.CreateFormFile("files", "bracket.stl")
	require.NoError(a.t, err)
	_, err = part.Write([]byte("solid bracket\nendsolid bracket\n"))
	require.NoError(a.t, err)
	require.NoError(a.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/projects", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set(appmw.DevUserHeader, uid)
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func (a *apiClient) createDesign(uid, title, price string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(a.t, w.WriteField("title", title))
	require.NoError(a.t, w.WriteField("description", "Printable without supports"))
	require.NoError(a.t, w.WriteField("price", price))
	require.NoError(a.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/designs", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set(appmw.DevUserHeader, uid)
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

func (a *apiClient) setup() (projectID uint64) {
	a.t.Helper()
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPut, "/api/me", "client-1", map[string]string{"role": "client", "displayName": "Cleo"}).Code)
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPut, "/api/me", "maker-1", map[string]string{"role": "maker", "displayName": "Ada"}).Code)
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPut, "/api/maker/profile", "maker-1", map[string]string{
		"displayName": "Ada", "location": "Berlin", "printers": "Prusa MK4",
	}).Code)

	rec := a.createProject("client-1", "Shelf bracket")
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var p struct {
		ID       uint64 `json:"id"`
		Quantity int    `json:"quantity"`
		Files    []struct {
			FileName string `json:"fileName"`
		} `json:"files"`
	}
	decode(a.t, rec, &p)
	require.Len(a.t, p.Files, 1)
	assert.Equal(a.t, 2, p.Quantity)
	return p.ID
}

func TestBidToPayoutFlow(t *testing.T) {
	api := newAPI(t)
	projectID := api.setup()
	bidsPath := fmt.Sprintf("/api/projects/%d/bids", projectID)

	rec := api.do(http.MethodPost, bidsPath, "maker-1", map[string]interface{}{"price": "25.00", "deliveryDays": 4, "message": "PETG in black"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var bid struct {
		ID     uint64 `json:"id"`
		Price  string `json:"price"`
		Status string `json:"status"`
	}
	decode(t, rec, &bid)
	assert.Equal(t, "pending", bid.Status)

	rec = api.do(http.MethodPost, bidsPath, "maker-1", map[string]interface{}{"price": "20.00", "deliveryDays": 4})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var eb errorBody
	decode(t, rec, &eb)
	assert.Equal(t, "duplicate_bid", eb.Error.Code)
	assert.Equal(t, "you already have a bid on this project", eb.Error.Message)

	rec = api.do(http.MethodPut, fmt.Sprintf("/api/bids/%d/accept", bid.ID), "client-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPut, fmt.Sprintf("/api/bids/%d/confirm-delivery", bid.ID), "client-1", map[string]interface{}{"rating": 4.5, "comment": "Great"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/maker/balance", "maker-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bal struct {
		Total     string `json:"total"`
		Available string `json:"available"`
		Retained  string `json:"retained"`
	}
	decode(t, rec, &bal)
	assert.Equal(t, "25", bal.Total)
	assert.Equal(t, "0", bal.Available)
	assert.Equal(t, "25", bal.Retained)

	rec = api.do(http.MethodPost, "/api/maker/request-payout", "maker-1", map[string]string{"amount": "20"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &eb)
	assert.Equal(t, "payout_method_missing", eb.Error.Code)

	rec = api.do(http.MethodPost, "/api/maker/payout-method", "maker-1", map[string]string{"method": "paypal", "paypalAccountId": "ada@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPost, "/api/maker/request-payout", "maker-1", map[string]string{"amount": "20"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &eb)
	assert.Equal(t, "insufficient_balance", eb.Error.Code)
	assert.Contains(t, eb.Error.Message, "€0.00")

	rec = api.do(http.MethodGet, "/api/notifications?unread_only=false", "maker-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var inbox struct {
		Notifications []struct {
			Type string `json:"type"`
		} `json:"notifications"`
		UnreadCount int64 `json:"unreadCount"`
	}
	decode(t, rec, &inbox)
	var types []string
	for _, n := range inbox.Notifications {
		types = append(types, n.Type)
	}
	assert.Contains(t, types, "bid_accepted")
	assert.Contains(t, types, "delivery_confirmed")
	assert.Equal(t, int64(2), inbox.UnreadCount)

	rec = api.do(http.MethodGet, "/api/makers/maker-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var public struct {
		AverageRating *float64 `json:"averageRating"`
		Reviews       []struct {
			Rating float64 `json:"rating"`
		} `json:"reviews"`
	}
	decode(t, rec, &public)
	require.Len(t, public.Reviews, 1)
	require.NotNil(t, public.AverageRating)
	assert.Equal(t, 4.5, *public.AverageRating)
}

func TestRoleGuardsAndValidation(t *testing.T) {
	api := newAPI(t)
	projectID := api.setup()

	rec := api.createProject("maker-1", "Not allowed")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, fmt.Sprintf("/api/projects/%d/bids", projectID), "client-1", map[string]interface{}{"price": "5", "deliveryDays": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, fmt.Sprintf("/api/projects/%d/bids", projectID), "maker-1", map[string]interface{}{"price": "0.10", "deliveryDays": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var eb errorBody
	decode(t, rec, &eb)
	assert.Equal(t, "validation_error", eb.Error.Code)
	assert.Equal(t, "price", eb.Error.Field)

	rec = api.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodGet, "/api/projects/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPut, "/api/me", "client-1", map[string]string{"role": "maker", "displayName": "Cleo"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &eb)
	assert.Equal(t, "role_already_set", eb.Error.Code)
}

func TestDesignPurchaseWaitsForPayment(t *testing.T) {
	api := newAPI(t)
	api.setup()

	rec := api.createDesign("maker-1", "Cable clip", "9000")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var d struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &d)

	rec = api.do(http.MethodPost, fmt.Sprintf("/api/designs/%d/purchase", d.ID), "client-1", map[string]string{"paymentMethod": "stripe"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p struct {
		ID            uint64 `json:"id"`
		PaymentRef    string `json:"paymentRef"`
		CheckoutToken string `json:"checkoutToken"`
		Status        string `json:"status"`
	}
	decode(t, rec, &p)
	assert.Equal(t, "pending_payment", p.Status)
	assert.NotEmpty(t, p.PaymentRef)
	assert.NotEmpty(t, p.CheckoutToken)

	rec = api.do(http.MethodPost, fmt.Sprintf("/api/design-purchases/%d/complete", p.ID), "client-1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var eb errorBody
	decode(t, rec, &eb)
	assert.Equal(t, "payment_not_confirmed", eb.Error.Code)

	rec = api.do(http.MethodGet, "/api/maker/balance", "maker-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bal struct {
		Total     string `json:"total"`
		Available string `json:"available"`
	}
	decode(t, rec, &bal)
	assert.Equal(t, "0", bal.Total)
	assert.Equal(t, "0", bal.Available)
}

func TestHealthz(t *testing.T) {
	api := newAPI(t)
	rec := api.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"db":"ok"`)
}

func TestAllowOrigin(t *testing.T) {
	allow := allowOrigin(&config.Config{AppEnv: config.EnvProduction, AllowedOrigins: []string{"https://voxelhub.app", "*.vercel.app"}})
	assert.True(t, allow("https://voxelhub.app"))
	assert.True(t, allow("https://preview-123.vercel.app"))
	assert.False(t, allow("https://evil.example"))
	assert.False(t, allow("http://localhost:3000"))

	dev := allowOrigin(&config.Config{AppEnv: config.EnvDevelopment})
	assert.True(t, dev("http://localhost:3000"))
}
