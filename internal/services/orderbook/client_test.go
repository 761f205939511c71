package orderbook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
)

func TestFetchOrderBookDecodesSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req l2BookRequest
		if err := sonic.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Type != "l2Book" || req.Coin != "@166" {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"coin":"@166","time":1730000000000,"levels":[
			[{"px":"0.99961","sz":"1500.0","n":4},{"px":"0.9995","sz":"9000.0","n":2}],
			[{"px":"0.99983","sz":"1200.5","n":3}]
		]}`))
	}))
	defer server.Close()

	client := NewClientForTest(server.URL)
	book, err := client.FetchOrderBook(context.Background(), "@166")
	if err != nil {
		t.Fatal(err)
	}

	if len(book.Bids) != 2 || len(book.Asks) != 1 {
		t.Fatalf("got %d bids / %d asks, want 2/1", len(book.Bids), len(book.Asks))
	}
	if book.Bids[0].Price != 0.99961 || book.Bids[0].Size != 1500.0 || book.Bids[0].Count != 4 {
		t.Errorf("unexpected top bid %+v", book.Bids[0])
	}
	if book.Asks[0].Price != 0.99983 {
		t.Errorf("unexpected top ask %+v", book.Asks[0])
	}
}

func TestFetchOrderBookRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClientForTest(server.URL)
	if _, err := client.FetchOrderBook(context.Background(), "@166"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestFetchOrderBookRejectsMalformedLevels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"coin":"@166","levels":[[{"px":"not-a-number","sz":"1","n":1}],[]]}`))
	}))
	defer server.Close()

	client := NewClientForTest(server.URL)
	if _, err := client.FetchOrderBook(context.Background(), "@166"); err == nil {
		t.Fatal("expected error on malformed price")
	}
}
