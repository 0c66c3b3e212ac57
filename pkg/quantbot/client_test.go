package quantbot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:8080/")
	if c == nil {
		t.Fatal("expected non-nil client")
	}
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("expected trailing slash trimmed, got %q", c.baseURL)
	}
	if c.httpClient == nil {
		t.Fatal("expected non-nil httpClient")
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/positions", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"symbol":"BTC/USD","entry_price":60000,"qty":0.01,"entry_time":"2024-07-01T00:00:00Z","target_price":63000,"stop_price":58800}]`))
	})
	mux.HandleFunc("GET /api/ranking", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"updated_at":"2024-07-01T00:00:00Z","scores":[{"symbol":"SOL/USD","score":14}]}`))
	})
	mux.HandleFunc("GET /api/intents", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"orders":[{"id":"a","symbol":"BTC/USD","side":"buy","price":60000,"qty":0.01}],"exits":[]}`))
	})
	mux.HandleFunc("GET /api/decisions", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientGetters(t *testing.T) {
	c := NewClient(newTestServer(t).URL)
	ctx := context.Background()

	positions, err := c.GetPositions(ctx)
	if err != nil {
		t.Fatalf("GetPositions: %v", err)
	}
	if len(positions) != 1 || positions[0].Symbol != "BTC/USD" || positions[0].StopPrice != 58800 {
		t.Errorf("positions = %+v", positions)
	}

	ranking, err := c.GetRanking(ctx)
	if err != nil {
		t.Fatalf("GetRanking: %v", err)
	}
	if len(ranking.Scores) != 1 || ranking.Scores[0].Score != 14 || ranking.UpdatedAt.IsZero() {
		t.Errorf("ranking = %+v", ranking)
	}

	intents, err := c.GetIntents(ctx)
	if err != nil {
		t.Fatalf("GetIntents: %v", err)
	}
	if len(intents.Orders) != 1 || intents.Orders[0].Side != "buy" || len(intents.Exits) != 0 {
		t.Errorf("intents = %+v", intents)
	}
}

func TestClientErrorBody(t *testing.T) {
	c := NewClient(newTestServer(t).URL)
	_, err := c.GetDecisions(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q does not carry API message", err)
	}
}
