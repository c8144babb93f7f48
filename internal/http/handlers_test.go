package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/logger"
	"storefront/internal/repository"
	"storefront/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

func setupServer(t *testing.T) *Server {
	t.Helper()
	log := logger.Discard()
	store := repository.NewMemoryStore()
	ordersRepo := repository.NewMemoryOrders(store)
	tx := repository.NewMemoryTx(store)
	productsSvc := service.NewProductService(store)
	ordersSvc := service.NewOrderService(store, ordersRepo, tx, nil, log)
	cartsSvc := service.NewCartService(repository.NewMemoryKV(), store, ordersSvc, time.Hour, log)
	return NewServer(productsSvc, ordersSvc, cartsSvc, log)
}

type as struct {
	user    string
	role    string
	session string
}

var (
	anon     = as{}
	alice    = as{user: "alice", role: "customer"}
	kitchen  = as{user: "sam", role: "staff"}
	boss     = as{user: "root", role: "admin"}
	session1 = "8f14e45f-ceea-467f-a0e6-7d2a5c1e9b01"
)

func doJSON(t *testing.T, s *Server, who as, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who.user != "" {
		req.Header.Set(headerUserID, who.user)
	}
	if who.role != "" {
		req.Header.Set(headerUserRole, who.role)
	}
	if who.session != "" {
		req.Header.Set(headerCartSession, who.session)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

var address = map[string]any{"street": "1 High St", "city": "Leeds", "postcode": "LS1 1AA", "phone": "0113 000000"}

func seedMenu(t *testing.T, s *Server) {
	t.Helper()
	for _, p := range []map[string]any{
		{"name": "Margherita", "category": "pizza", "price": 9.99},
		{"name": "Cola", "category": "drink", "price": 3.5},
	} {
		if w := doJSON(t, s, boss, http.MethodPost, "/api/v1/products", p); w.Code != http.StatusCreated {
			t.Fatalf("seed product %v: %v", p["name"], w.Code)
		}
	}
}

func TestProductFlow(t *testing.T) {
	s := setupServer(t)
	w := doJSON(t, s, boss, http.MethodPost, "/api/v1/products", map[string]any{
		"name": "Margherita", "category": "pizza", "price": 9.99,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create code %v", w.Code)
	}
	if p := decode[map[string]any](t, w); p["available"] != true {
		t.Fatalf("product should default to available: %v", p)
	}
	w = doJSON(t, s, anon, http.MethodGet, "/api/v1/products/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get code %v", w.Code)
	}
	w = doJSON(t, s, boss, http.MethodPut, "/api/v1/products/1", map[string]any{
		"name": "Margherita", "category": "pizza", "price": 10.49, "available": false,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update code %v", w.Code)
	}
	w = doJSON(t, s, anon, http.MethodGet, "/api/v1/products?category=pizza&available=true", nil)
	if w.Code != http.StatusOK || len(decode[[]map[string]any](t, w)) != 0 {
		t.Fatalf("list code %v body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, s, boss, http.MethodDelete, "/api/v1/products/1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete code %v", w.Code)
	}
}

func TestProductMutations_AdminOnly(t *testing.T) {
	s := setupServer(t)
	body := map[string]any{"name": "Fries", "category": "side", "price": 2.5}
	for _, who := range []as{anon, alice, kitchen} {
		if w := doJSON(t, s, who, http.MethodPost, "/api/v1/products", body); w.Code != http.StatusForbidden {
			t.Fatalf("%v: expected 403, got %v", who.role, w.Code)
		}
	}
	// роль без идентификатора не повышает права
	w := doJSON(t, s, as{role: "admin"}, http.MethodPost, "/api/v1/products", body)
	if w.Code != http.StatusForbidden {
		t.Fatalf("role without id must be ignored, got %v", w.Code)
	}
}

func TestCartFlow(t *testing.T) {
	s := setupServer(t)
	seedMenu(t, s)
	shopper := as{user: "alice", role: "customer", session: session1}

	w := doJSON(t, s, shopper, http.MethodPost, "/api/v1/cart/items", map[string]any{"product": 1, "quantity": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("add code %v: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get(headerCartSession); got != session1 {
		t.Fatalf("session header not echoed: %q", got)
	}
	w = doJSON(t, s, shopper, http.MethodPost, "/api/v1/cart/items", map[string]any{"product": 2})
	sum := decode[struct {
		Total float64 `json:"total"`
		Count int64   `json:"count"`
	}](t, w)
	if sum.Total != 23.48 || sum.Count != 3 {
		t.Fatalf("unexpected cart %+v", sum)
	}

	w = doJSON(t, s, shopper, http.MethodPut, "/api/v1/cart/items/2", map[string]any{"quantity": -5})
	if w.Code != http.StatusOK {
		t.Fatalf("update code %v", w.Code)
	}
	w = doJSON(t, s, shopper, http.MethodGet, "/api/v1/cart", nil)
	if got := decode[map[string]any](t, w)["count"]; got != float64(2) {
		t.Fatalf("expected count 2 after removal, got %v", got)
	}

	w = doJSON(t, s, shopper, http.MethodPost, "/api/v1/cart/checkout", map[string]any{
		"paymentMethod": "card", "deliveryAddress": address, "notes": "no onions",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("checkout code %v: %s", w.Code, w.Body.String())
	}
	o := decode[map[string]any](t, w)
	if o["total_amount"] != 19.98 || o["payment_status"] != "paid" || o["status"] != "pending" {
		t.Fatalf("unexpected order %v", o)
	}

	w = doJSON(t, s, shopper, http.MethodGet, "/api/v1/cart", nil)
	if got := decode[map[string]any](t, w)["count"]; got != float64(0) {
		t.Fatalf("cart must be empty after checkout, got %v", got)
	}
}

func TestCart_NewSessionIssued(t *testing.T) {
	s := setupServer(t)
	w := doJSON(t, s, as{session: "not-a-uuid"}, http.MethodGet, "/api/v1/cart", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get cart %v", w.Code)
	}
	got := w.Header().Get(headerCartSession)
	if got == "" || got == "not-a-uuid" {
		t.Fatalf("expected fresh session id, got %q", got)
	}
}

func TestCart_CheckoutErrors(t *testing.T) {
	s := setupServer(t)
	seedMenu(t, s)
	shopper := as{user: "alice", role: "customer", session: session1}

	w := doJSON(t, s, shopper, http.MethodPost, "/api/v1/cart/checkout", map[string]any{"paymentMethod": "cash", "deliveryAddress": address})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty cart: expected 400, got %v", w.Code)
	}

	_ = doJSON(t, s, shopper, http.MethodPost, "/api/v1/cart/items", map[string]any{"product": 1})
	guest := as{session: session1}
	w = doJSON(t, s, guest, http.MethodPost, "/api/v1/cart/checkout", map[string]any{"paymentMethod": "cash", "deliveryAddress": address})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous checkout: expected 401, got %v", w.Code)
	}

	w = doJSON(t, s, shopper, http.MethodPost, "/api/v1/cart/items", map[string]any{"product": 99})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown product: expected 404, got %v", w.Code)
	}
}

func TestOrderStatusFlow(t *testing.T) {
	s := setupServer(t)
	seedMenu(t, s)

	w := doJSON(t, s, alice, http.MethodPost, "/api/v1/orders", map[string]any{
		"items":           []map[string]any{{"product": 1, "quantity": 1}},
		"paymentMethod":   "cash",
		"deliveryAddress": address,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create order %v: %s", w.Code, w.Body.String())
	}

	// покупателю действия не предлагаются
	w = doJSON(t, s, alice, http.MethodGet, "/api/v1/orders/1", nil)
	view := decode[struct {
		View struct {
			Label   string   `json:"label"`
			Step    int      `json:"step"`
			Actions []string `json:"actions"`
		} `json:"view"`
	}](t, w).View
	if view.Label != "Pending" || view.Step != 0 || len(view.Actions) != 0 {
		t.Fatalf("unexpected customer view %+v", view)
	}

	if w := doJSON(t, s, alice, http.MethodPost, "/api/v1/orders/1/advance", nil); w.Code != http.StatusForbidden {
		t.Fatalf("customer advance: expected 403, got %v", w.Code)
	}

	w = doJSON(t, s, kitchen, http.MethodPut, "/api/v1/orders/1/status", map[string]any{"status": "preparing"})
	if w.Code != http.StatusOK {
		t.Fatalf("status update %v", w.Code)
	}
	w = doJSON(t, s, kitchen, http.MethodPost, "/api/v1/orders/1/advance", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("advance %v", w.Code)
	}
	o := decode[map[string]any](t, w)
	if o["status"] != "ready" {
		t.Fatalf("expected ready, got %v", o["status"])
	}
	if next := o["view"].(map[string]any)["next"]; next != "delivered" {
		t.Fatalf("staff should be offered delivered, got %v", next)
	}

	w = doJSON(t, s, kitchen, http.MethodPost, "/api/v1/orders/1/advance", nil)
	o = decode[map[string]any](t, w)
	if o["status"] != "delivered" || len(o["view"].(map[string]any)["actions"].([]any)) != 0 {
		t.Fatalf("delivered order must be terminal: %v", o)
	}

	if w := doJSON(t, s, boss, http.MethodPost, "/api/v1/orders/1/cancel", nil); w.Code != http.StatusConflict {
		t.Fatalf("cancel delivered: expected 409, got %v", w.Code)
	}
}

func TestOrderLists(t *testing.T) {
	s := setupServer(t)
	seedMenu(t, s)
	_ = doJSON(t, s, alice, http.MethodPost, "/api/v1/orders", map[string]any{
		"items":           []map[string]any{{"product": 2, "quantity": 2}},
		"paymentMethod":   "cash",
		"deliveryAddress": address,
	})

	if w := doJSON(t, s, alice, http.MethodGet, "/api/v1/orders", nil); w.Code != http.StatusForbidden {
		t.Fatalf("customer list: expected 403, got %v", w.Code)
	}
	w := doJSON(t, s, kitchen, http.MethodGet, "/api/v1/orders?status=pending", nil)
	if w.Code != http.StatusOK || len(decode[[]any](t, w)) != 1 {
		t.Fatalf("staff list %v %s", w.Code, w.Body.String())
	}
	w = doJSON(t, s, alice, http.MethodGet, "/api/v1/orders/myorders", nil)
	if w.Code != http.StatusOK || len(decode[[]any](t, w)) != 1 {
		t.Fatalf("my orders %v", w.Code)
	}
	if w := doJSON(t, s, kitchen, http.MethodGet, "/api/v1/orders/stats/all", nil); w.Code != http.StatusForbidden {
		t.Fatalf("staff stats: expected 403, got %v", w.Code)
	}
	w = doJSON(t, s, boss, http.MethodGet, "/api/v1/orders/stats/all", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats %v", w.Code)
	}
	if got := decode[map[string]any](t, w)["totalSales"].(map[string]any)["total"]; got != float64(7) {
		t.Fatalf("total sales %v", got)
	}
}

func TestStatuses(t *testing.T) {
	s := setupServer(t)
	w := doJSON(t, s, anon, http.MethodGet, "/api/v1/statuses", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("statuses %v", w.Code)
	}
	resp := decode[statusesResp](t, w)
	if len(resp.Statuses) != 5 || len(resp.Steps) != 4 {
		t.Fatalf("unexpected %+v", resp)
	}
	if last := resp.Statuses[4]; last.Status != "cancelled" || last.Step != -1 || last.Color != "bg-red-500" {
		t.Fatalf("cancelled entry %+v", last)
	}
}

func TestHTTP_BadRequests(t *testing.T) {
	s := setupServer(t)
	w := doJSON(t, s, boss, http.MethodPost, "/api/v1/products", map[string]any{"name": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}
	w = doJSON(t, s, anon, http.MethodGet, "/api/v1/products/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}
	w = doJSON(t, s, kitchen, http.MethodPut, "/api/v1/orders/1/status", map[string]any{"status": "lost"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}
}

func TestHTTP_NotFound(t *testing.T) {
	s := setupServer(t)
	if w := doJSON(t, s, anon, http.MethodGet, "/api/v1/products/999", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", w.Code)
	}
	if w := doJSON(t, s, kitchen, http.MethodPost, "/api/v1/orders/999/advance", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", w.Code)
	}
}

func TestCart_AddQuantityDefaults(t *testing.T) {
	s := setupServer(t)
	seedMenu(t, s)
	shopper := as{session: session1}

	w := doJSON(t, s, shopper, http.MethodPost, "/api/v1/cart/items", map[string]any{"product": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("add without quantity: %v %s", w.Code, w.Body.String())
	}
	if got := decode[map[string]any](t, w); got["count"] != float64(1) {
		t.Fatalf("omitted quantity must mean 1, got %v", got["count"])
	}

	for _, qty := range []int{0, -3} {
		w = doJSON(t, s, shopper, http.MethodPost, "/api/v1/cart/items", map[string]any{"product": 1, "quantity": qty})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("quantity %d: expected 400, got %v", qty, w.Code)
		}
	}
	if got := decode[map[string]any](t, doJSON(t, s, shopper, http.MethodGet, "/api/v1/cart", nil)); got["count"] != float64(1) {
		t.Fatalf("rejected adds must not change cart, got %v", got["count"])
	}
}
