package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"fenrir/engine"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	fabric, err := engine.NewFabric(engine.FabricConfig{
		Assignment:      map[int][]string{0: {"BTC-USD"}},
		IngressCapacity: 256,
		EgressCapacity:  256,
		RetireCapacity:  256,
		SpinBudget:      16,
	}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	fabric.Start()
	t.Cleanup(fabric.Stop)
	return NewServer(fabric, zap.NewNop())
}

func post(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitOrderAccepted(t *testing.T) {
	s := testServer(t)
	rec := post(t, s, "/orders", SubmitOrderRequest{
		Symbol: "BTC-USD", Side: "buy", Type: "limit", Price: 100, Qty: 5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var resp SubmitOrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "accepted" || resp.OrderID == 0 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.OrderID>>63 != 1 {
		t.Errorf("gateway-assigned id should use the high range, got %d", resp.OrderID)
	}
}

func TestSubmitOrderKeepsClientID(t *testing.T) {
	s := testServer(t)
	rec := post(t, s, "/orders", SubmitOrderRequest{
		Symbol: "BTC-USD", Side: "sell", Type: "limit", Price: 100, Qty: 5, OrderID: 77,
	})
	var resp SubmitOrderResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.OrderID != 77 {
		t.Errorf("client id not preserved: %d", resp.OrderID)
	}
}

func TestSubmitOrderValidation(t *testing.T) {
	s := testServer(t)
	cases := []struct {
		name string
		req  SubmitOrderRequest
		code int
	}{
		{"bad side", SubmitOrderRequest{Symbol: "BTC-USD", Side: "hold", Price: 100, Qty: 5}, http.StatusBadRequest},
		{"bad type", SubmitOrderRequest{Symbol: "BTC-USD", Side: "buy", Type: "stop", Price: 100, Qty: 5}, http.StatusBadRequest},
		{"zero qty", SubmitOrderRequest{Symbol: "BTC-USD", Side: "buy", Type: "limit", Price: 100, Qty: 0}, http.StatusBadRequest},
		{"zero price limit", SubmitOrderRequest{Symbol: "BTC-USD", Side: "buy", Type: "limit", Qty: 5}, http.StatusBadRequest},
		{"unknown symbol", SubmitOrderRequest{Symbol: "NOPE", Side: "buy", Type: "limit", Price: 100, Qty: 5}, http.StatusNotFound},
	}
	for _, tc := range cases {
		if rec := post(t, s, "/orders", tc.req); rec.Code != tc.code {
			t.Errorf("%s: status %d, want %d", tc.name, rec.Code, tc.code)
		}
	}
}

func TestMarketOrderIgnoresPrice(t *testing.T) {
	s := testServer(t)
	rec := post(t, s, "/orders", SubmitOrderRequest{
		Symbol: "BTC-USD", Side: "buy", Type: "market", Price: -1, Qty: 5,
	})
	if rec.Code != http.StatusOK {
		t.Errorf("market order with junk price should pass: %d %s", rec.Code, rec.Body)
	}
}

func TestCancelOrder(t *testing.T) {
	s := testServer(t)
	rec := post(t, s, "/orders/cancel", CancelOrderRequest{Symbol: "BTC-USD", OrderID: 5})
	if rec.Code != http.StatusOK {
		t.Errorf("cancel status %d: %s", rec.Code, rec.Body)
	}

	rec = post(t, s, "/orders/cancel", CancelOrderRequest{Symbol: "BTC-USD"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("cancel without id: status %d", rec.Code)
	}
}

func TestHealthAndStats(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	var stats []engine.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 || stats[0].Shard != 0 {
		t.Errorf("stats: %+v", stats)
	}
}
