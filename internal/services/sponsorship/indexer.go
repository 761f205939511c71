package sponsorship

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
)

// DailyCounters is the indexer's view of today's sponsored volume. Amounts
// are base units of the final token.
type DailyCounters struct {
	GlobalSponsored *big.Int
	UserSponsored   *big.Int
	Activations     uint64
}

// CounterSource fetches aggregate sponsorship counters.
type CounterSource interface {
	FetchDailyCounters(ctx context.Context, tokenSymbol, user string) (*DailyCounters, error)
}

// IndexerClient reads daily counters from the sponsorship indexer API.
type IndexerClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewIndexerClient(baseURL string) *IndexerClient {
	return &IndexerClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type dailyCountersResponse struct {
	GlobalSponsored string `json:"globalSponsored"`
	UserSponsored   string `json:"userSponsored"`
	Activations     uint64 `json:"activations"`
}

func (c *IndexerClient) FetchDailyCounters(ctx context.Context, tokenSymbol, user string) (*DailyCounters, error) {
	endpoint := fmt.Sprintf("%s/sponsorship/daily?token=%s&user=%s",
		c.baseURL, url.QueryEscape(tokenSymbol), url.QueryEscape(user))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build indexer request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexer fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read indexer response: %w", err)
	}

	var decoded dailyCountersResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode indexer response: %w", err)
	}

	global, ok := new(big.Int).SetString(decoded.GlobalSponsored, 10)
	if !ok {
		return nil, fmt.Errorf("indexer global counter %q is not an integer", decoded.GlobalSponsored)
	}
	userTotal, ok := new(big.Int).SetString(decoded.UserSponsored, 10)
	if !ok {
		return nil, fmt.Errorf("indexer user counter %q is not an integer", decoded.UserSponsored)
	}

	return &DailyCounters{
		GlobalSponsored: global,
		UserSponsored:   userTotal,
		Activations:     decoded.Activations,
	}, nil
}
