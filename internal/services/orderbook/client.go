package orderbook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/domain"
	"github.com/across-protocol/quote-engine/internal/metrics"
)

const ORDER_BOOK_CLIENT_SERVICE = "order-book-client-service"

// Source fetches a depth snapshot for a venue pair. The simulator depends on
// this rather than the HTTP client directly.
type Source interface {
	FetchOrderBook(ctx context.Context, venueID string) (*domain.OrderBook, error)
}

// Client reads L2 depth snapshots from the settlement venue's public info
// endpoint.
type Client struct {
	container.BaseDIInstance

	baseURL    string
	httpClient *http.Client
}

func (c *Client) ID() string {
	return ORDER_BOOK_CLIENT_SERVICE
}

func (c *Client) Configure(ctr container.IContainer) error {
	venueCfg := ctr.GetConfig(config.VENUE_CONFIG_KEY).(*config.VenueConfig)
	c.baseURL = venueCfg.OrderBookBaseURL
	c.httpClient = &http.Client{Timeout: 10 * time.Second}
	return nil
}

func (c *Client) Start() error { return nil }
func (c *Client) Stop() error  { return nil }

// NewClientForTest points a client at a test server.
func NewClientForTest(baseURL string) *Client {
	return &Client{baseURL: baseURL, httpClient: &http.Client{Timeout: 5 * time.Second}}
}

type l2BookRequest struct {
	Type string `json:"type"`
	Coin string `json:"coin"`
}

type l2BookLevel struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

type l2BookResponse struct {
	Coin   string          `json:"coin"`
	Time   int64           `json:"time"`
	Levels [][]l2BookLevel `json:"levels"`
}

// FetchOrderBook posts an l2Book info request. levels[0] holds bids in
// descending price order, levels[1] asks ascending.
func (c *Client) FetchOrderBook(ctx context.Context, venueID string) (*domain.OrderBook, error) {
	payload, err := sonic.Marshal(l2BookRequest{Type: "l2Book", Coin: venueID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode order book request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build order book request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.OrderBookFetches.WithLabelValues(venueID, "error").Inc()
		return nil, fmt.Errorf("order book fetch for %s failed: %w", venueID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.OrderBookFetches.WithLabelValues(venueID, "error").Inc()
		return nil, fmt.Errorf("order book fetch for %s returned status %d", venueID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read order book response: %w", err)
	}

	var decoded l2BookResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode order book response: %w", err)
	}
	if len(decoded.Levels) != 2 {
		return nil, fmt.Errorf("order book response for %s has %d sides, want 2", venueID, len(decoded.Levels))
	}

	bids, err := parseLevels(decoded.Levels[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse bids for %s: %w", venueID, err)
	}
	asks, err := parseLevels(decoded.Levels[1])
	if err != nil {
		return nil, fmt.Errorf("failed to parse asks for %s: %w", venueID, err)
	}

	metrics.OrderBookFetches.WithLabelValues(venueID, "ok").Inc()
	return &domain.OrderBook{VenueID: venueID, Bids: bids, Asks: asks}, nil
}

func parseLevels(raw []l2BookLevel) ([]domain.OrderBookLevel, error) {
	levels := make([]domain.OrderBookLevel, 0, len(raw))
	for _, lv := range raw {
		px, err := strconv.ParseFloat(lv.Px, 64)
		if err != nil {
			return nil, fmt.Errorf("bad price %q: %w", lv.Px, err)
		}
		sz, err := strconv.ParseFloat(lv.Sz, 64)
		if err != nil {
			return nil, fmt.Errorf("bad size %q: %w", lv.Sz, err)
		}
		levels = append(levels, domain.OrderBookLevel{Price: px, Size: sz, Count: lv.N})
	}
	return levels, nil
}
