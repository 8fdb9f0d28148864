package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartfit/backend/internal/cache"
	"smartfit/backend/internal/service"
	"smartfit/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager
// and real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopReceiptCache{}, time.Minute)
	auth := NewAuthManager("test-secret-key-that-is-long-enough", time.Hour, repo)

	return New(svc, auth, "*")
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "nitesh",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProductsRequireAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestFullCheckoutFlow(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "prajwal", "staff1")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sessions", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open session: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var sess struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	base := "/api/v1/sessions/" + sess.SessionID
	for i := 0; i < 2; i++ {
		rec = doJSON(t, handler, http.MethodPost, base+"/items", token, map[string]any{"sku": 1, "size": "M"})
		if rec.Code != http.StatusOK {
			t.Fatalf("add item: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
		}
	}

	rec = doJSON(t, handler, http.MethodPost, base+"/client", token, map[string]any{"client_id": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("select client: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, base+"/quote", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("quote: expected 200, got %d", rec.Code)
	}
	var quote struct {
		SubtotalCents int64 `json:"subtotal_cents"`
		DiscountCents int64 `json:"discount_cents"`
		TotalCents    int64 `json:"total_cents"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&quote); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	if quote.SubtotalCents != 9000 || quote.DiscountCents != 1350 || quote.TotalCents != 7650 {
		t.Fatalf("unexpected quote: %+v", quote)
	}

	rec = doJSON(t, handler, http.MethodPost, base+"/checkout", token, map[string]any{"payment_method": "Cash"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var checkout struct {
		SaleID     int64 `json:"sale_id"`
		TotalCents int64 `json:"total_cents"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&checkout); err != nil {
		t.Fatalf("decode checkout: %v", err)
	}
	if checkout.TotalCents != 7650 {
		t.Fatalf("expected total 7650, got %d", checkout.TotalCents)
	}

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/v1/sales/%d", checkout.SaleID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("receipt: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var receipt struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.Text == "" {
		t.Fatalf("expected rendered receipt text")
	}
}

func TestVoucherEndpoint(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "prajwal", "staff1")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sessions", token, nil)
	var sess struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	base := "/api/v1/sessions/" + sess.SessionID

	rec = doJSON(t, handler, http.MethodPost, base+"/voucher", token, map[string]string{"code": "Jhapa5"})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid voucher: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, base+"/voucher", token, map[string]string{"code": "NOPE"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid voucher: expected 400, got %d", rec.Code)
	}
}

func TestCheckoutConflictOnInsufficientStock(t *testing.T) {
	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopReceiptCache{}, time.Minute)
	auth := NewAuthManager("test-secret-key-that-is-long-enough", time.Hour, repo)
	handler := New(svc, auth, "*").Handler()
	token := login(t, handler, "prajwal", "staff1")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sessions", token, nil)
	var sess struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	base := "/api/v1/sessions/" + sess.SessionID

	for i := 0; i < 2; i++ {
		rec = doJSON(t, handler, http.MethodPost, base+"/items", token, map[string]any{"sku": 4, "size": "M"})
		if rec.Code != http.StatusOK {
			t.Fatalf("add item: expected 200, got %d", rec.Code)
		}
	}
	rec = doJSON(t, handler, http.MethodPost, base+"/client", token, map[string]any{"client_id": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("select client: expected 200, got %d", rec.Code)
	}

	// Drain stock behind the session's back.
	product, err := repo.GetProduct(context.Background(), 4)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	product.QtyInStock = 1
	if _, err := repo.UpdateProduct(context.Background(), *product); err != nil {
		t.Fatalf("update product: %v", err)
	}

	rec = doJSON(t, handler, http.MethodPost, base+"/checkout", token, map[string]any{"payment_method": "Cash"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Code      string `json:"code"`
		SKU       int64  `json:"sku"`
		Requested int    `json:"requested"`
		Available int    `json:"available"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode conflict body: %v", err)
	}
	if body.Code != "insufficient_stock" || body.SKU != 4 || body.Requested != 2 || body.Available != 1 {
		t.Fatalf("unexpected conflict detail: %+v", body)
	}
}

func TestProductCreateForbiddenForAssociate(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "prajwal", "staff1")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/products", token, map[string]any{
		"name": "Denim Jacket", "category": "Tops", "unit_price_cents": 7999, "qty_in_stock": 5,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestProductCreateAndDeleteAsManager(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "nitesh", "admin789")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/products", token, map[string]any{
		"name": "Denim Jacket", "category": "Tops", "unit_price_cents": 7999, "qty_in_stock": 5, "details": "",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Product struct {
			SKU int64 `json:"sku"`
		} `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode created product: %v", err)
	}

	rec = doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", created.Product.SKU), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", created.Product.SKU), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestReceiptNotFoundMapsTo404(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "prajwal", "staff1")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/sales/999", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
