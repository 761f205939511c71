package price

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/across-protocol/quote-engine/internal/metrics"
)

// coinIDs maps token symbols to the primary source's asset identifiers.
var coinIDs = map[string]string{
	"USDC": "usd-coin",
	"USDT": "tether",
	"ETH":  "ethereum",
	"WETH": "weth",
	"POL":  "polygon-ecosystem-token",
	"HYPE": "hyperliquid",
	"SOL":  "solana",
}

// CoingeckoSource is the primary USD price source.
type CoingeckoSource struct {
	baseURL    string
	httpClient *http.Client
}

func NewCoingeckoSource(baseURL string) *CoingeckoSource {
	return &CoingeckoSource{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *CoingeckoSource) Name() string { return "coingecko" }

func (s *CoingeckoSource) UnitPriceUsd(ctx context.Context, symbol string) (float64, error) {
	id, ok := coinIDs[strings.ToUpper(symbol)]
	if !ok {
		return 0, fmt.Errorf("no price mapping for symbol %s", symbol)
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", s.baseURL, url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build price request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.PriceLookups.WithLabelValues(s.Name(), "error").Inc()
		return 0, fmt.Errorf("price lookup for %s failed: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.PriceLookups.WithLabelValues(s.Name(), "error").Inc()
		return 0, fmt.Errorf("price lookup for %s returned status %d", symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read price response: %w", err)
	}

	var decoded map[string]map[string]float64
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return 0, fmt.Errorf("failed to decode price response: %w", err)
	}

	usd := decoded[id]["usd"]
	metrics.PriceLookups.WithLabelValues(s.Name(), "ok").Inc()
	return usd, nil
}
