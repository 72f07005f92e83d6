package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T, repo *memoryRepo, pinHash string) (*httptest.Server, *Service) {
	t.Helper()
	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc, pinHash)
	router := chi.NewRouter()
	handler.MountRoutes(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, svc
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHandlerRegisterSale(t *testing.T) {
	repo := newMemoryRepo()
	srv, _ := newTestServer(t, repo, "")

	resp := postJSON(t, srv.URL+"/sales", map[string]any{
		"location_id": 1, "product_id": 7, "quantity": 2, "total_amount": 9.5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	require.NotZero(t, body["sale_id"])
	require.EqualValues(t, -2, repo.stock(7))
}

func TestHandlerRegisterSaleStorageFailureIsRetryable(t *testing.T) {
	repo := newMemoryRepo()
	repo.failMovementInsert = true
	srv, _ := newTestServer(t, repo, "")

	resp := postJSON(t, srv.URL+"/sales", map[string]any{
		"location_id": 1, "product_id": 7, "quantity": 2, "total_amount": 9.5,
	})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeBody(t, resp)
	require.Equal(t, "Storage Error", body["title"])
	require.Equal(t, "operation rolled back, safe to retry", body["detail"])
	require.Empty(t, repo.sales)
}

func TestHandlerRegisterSaleRejectsBadPayload(t *testing.T) {
	srv, _ := newTestServer(t, newMemoryRepo(), "")

	cases := []map[string]any{
		{"location_id": 1, "product_id": 7, "quantity": 0, "total_amount": 9.5},
		{"location_id": 1, "product_id": 7, "quantity": 2, "total_amount": -1},
		{"location_id": 1, "product_id": 7, "quantity": 2, "total_amount": 9.5, "payment_method": "BARTER"},
		{"product_id": 7, "quantity": 2, "total_amount": 9.5},
	}
	for _, payload := range cases {
		resp := postJSON(t, srv.URL+"/sales", payload)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestHandlerVoidSale(t *testing.T) {
	repo := newMemoryRepo()
	srv, svc := newTestServer(t, repo, "")
	id, err := svc.RegisterSale(context.Background(), RegisterSaleInput{LocationID: 1, ProductID: 7, Quantity: 2, TotalAmount: 9.5})
	require.NoError(t, err)

	resp := postJSON(t, fmt.Sprintf("%s/sales/%d/void", srv.URL, id), map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	require.EqualValues(t, 0, repo.stock(7))

	// second void is a conflict
	resp = postJSON(t, fmt.Sprintf("%s/sales/%d/void", srv.URL, id), map[string]any{})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestHandlerVoidUnknownSale(t *testing.T) {
	srv, _ := newTestServer(t, newMemoryRepo(), "")
	resp := postJSON(t, srv.URL+"/sales/999/void", map[string]any{})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHandlerVoidOverridePIN(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("4711"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := newMemoryRepo()
	srv, svc := newTestServer(t, repo, string(hash))

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	svc.WithClock(func() time.Time { return base })
	id, err := svc.RegisterSale(context.Background(), RegisterSaleInput{LocationID: 1, ProductID: 7, Quantity: 2, TotalAmount: 9.5})
	require.NoError(t, err)
	svc.WithClock(func() time.Time { return base.Add(10 * time.Minute) })

	url := fmt.Sprintf("%s/sales/%d/void", srv.URL, id)

	// expired window, no pin
	resp := postJSON(t, url, map[string]any{})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// wrong pin never reaches the service
	resp = postJSON(t, url, map[string]any{"override_pin": "0000"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
	require.EqualValues(t, -2, repo.stock(7))

	// correct pin authorises the late void
	resp = postJSON(t, url, map[string]any{"override_pin": "4711"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	require.EqualValues(t, 0, repo.stock(7))
}

func TestHandlerVoidOverrideDisabled(t *testing.T) {
	repo := newMemoryRepo()
	srv, svc := newTestServer(t, repo, "")

	id, err := svc.RegisterSale(context.Background(), RegisterSaleInput{LocationID: 1, ProductID: 7, Quantity: 1, TotalAmount: 4})
	require.NoError(t, err)

	resp := postJSON(t, fmt.Sprintf("%s/sales/%d/void", srv.URL, id), map[string]any{"override_pin": "4711"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeBody(t, resp)
	require.Equal(t, "override is not enabled", body["detail"])
}

func TestHandlerGetSale(t *testing.T) {
	repo := newMemoryRepo()
	srv, svc := newTestServer(t, repo, "")
	id, err := svc.RegisterSale(context.Background(), RegisterSaleInput{LocationID: 1, ProductID: 7, Quantity: 2, TotalAmount: 9.5, PaymentMethod: PaymentTransfer})
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("%s/sales/%d", srv.URL, id))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	require.EqualValues(t, 7, body["product_id"])
	require.Equal(t, PaymentTransfer, body["payment_method"])

	resp, err = http.Get(srv.URL + "/sales/999")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHandlerDailySummary(t *testing.T) {
	repo := newMemoryRepo()
	srv, svc := newTestServer(t, repo, "")
	_, err := svc.RegisterSale(context.Background(), RegisterSaleInput{LocationID: 3, ProductID: 7, Quantity: 2, TotalAmount: 8})
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/sales/summary?location_id=3&date=" + time.Now().Format("2006-01-02"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	require.EqualValues(t, 2, body["total_quantity"])

	resp, err = http.Get(srv.URL + "/sales/summary?location_id=3&date=nonsense")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
