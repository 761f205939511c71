package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/andrew-solarstorm/go-packages/common"
)

// VenuePair is one tradable pair on the settlement venue's order book. Base
// and Quote fix the convention: asks sell the base for the quote, bids buy it.
type VenuePair struct {
	VenueID string `json:"venueId"`
	Base    string `json:"base"`
	Quote   string `json:"quote"`
}

// VenueConfig maps token pairs to the order-book venue identifiers needed to
// fetch a snapshot.
type VenueConfig struct {
	// Pairs is keyed "BASE/QUOTE".
	Pairs map[string]VenuePair `json:"pairs"`

	OrderBookBaseURL string `json:"orderBookBaseUrl"`
}

func (c *VenueConfig) Key() string {
	return VENUE_CONFIG_KEY
}

func defaultVenuePairs() map[string]VenuePair {
	return map[string]VenuePair{
		"HYPE/USDC": {VenueID: "@107", Base: "HYPE", Quote: "USDC"},
		"USDT/USDC": {VenueID: "@166", Base: "USDT", Quote: "USDC"},
	}
}

func (c *VenueConfig) Load() error {
	c.Pairs = defaultVenuePairs()

	if raw := os.Getenv("VENUE_PAIRS_JSON"); raw != "" {
		var override map[string]VenuePair
		if err := sonic.UnmarshalString(raw, &override); err != nil {
			return fmt.Errorf("failed to parse VENUE_PAIRS_JSON: %w", err)
		}
		for key, pair := range override {
			c.Pairs[key] = pair
		}
	}

	c.OrderBookBaseURL = common.GetEnvOrDefault("ORDER_BOOK_BASE_URL", "https://api.hyperliquid.xyz")

	return c.Validate()
}

func (c *VenueConfig) Validate() error {
	for key, pair := range c.Pairs {
		if pair.VenueID == "" || pair.Base == "" || pair.Quote == "" {
			return fmt.Errorf("venue pair %s is incomplete", key)
		}
		if key != pair.Base+"/"+pair.Quote {
			return fmt.Errorf("venue pair key %s does not match %s/%s", key, pair.Base, pair.Quote)
		}
	}
	if c.OrderBookBaseURL == "" {
		return fmt.Errorf("order book base URL is required")
	}
	return nil
}

// Resolve finds the venue pair for an unordered symbol pair. The second return
// reports whether tokenIn is the quote side (i.e. the order buys the base).
func (c *VenueConfig) Resolve(tokenIn, tokenOut string) (VenuePair, bool, bool) {
	tokenIn = strings.ToUpper(tokenIn)
	tokenOut = strings.ToUpper(tokenOut)

	if pair, ok := c.Pairs[tokenOut+"/"+tokenIn]; ok {
		return pair, true, true // input is quote: buying base
	}
	if pair, ok := c.Pairs[tokenIn+"/"+tokenOut]; ok {
		return pair, false, true // input is base: selling base
	}
	return VenuePair{}, false, false
}
