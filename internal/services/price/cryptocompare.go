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

// CryptocompareSource is the fallback USD price source, used when the primary
// is down or when same-asset prices diverge past tolerance.
type CryptocompareSource struct {
	baseURL    string
	httpClient *http.Client
}

func NewCryptocompareSource(baseURL string) *CryptocompareSource {
	return &CryptocompareSource{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *CryptocompareSource) Name() string { return "cryptocompare" }

func (s *CryptocompareSource) UnitPriceUsd(ctx context.Context, symbol string) (float64, error) {
	// The fallback prices wrapped ether at the underlying.
	fsym := strings.ToUpper(symbol)
	if fsym == "WETH" {
		fsym = "ETH"
	}

	endpoint := fmt.Sprintf("%s/data/price?fsym=%s&tsyms=USD", s.baseURL, url.QueryEscape(fsym))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build price request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.PriceLookups.WithLabelValues(s.Name(), "error").Inc()
		return 0, fmt.Errorf("fallback price lookup for %s failed: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.PriceLookups.WithLabelValues(s.Name(), "error").Inc()
		return 0, fmt.Errorf("fallback price lookup for %s returned status %d", symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read fallback price response: %w", err)
	}

	var decoded map[string]float64
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return 0, fmt.Errorf("failed to decode fallback price response: %w", err)
	}

	metrics.PriceLookups.WithLabelValues(s.Name(), "ok").Inc()
	return decoded["USD"], nil
}
