package config

import (
	"errors"

	"github.com/andrew-solarstorm/go-packages/common"
)

// PriceConfig points at the primary and fallback USD price services.
type PriceConfig struct {
	PrimaryBaseURL  string
	FallbackBaseURL string
	CacheTTLSeconds int
}

func (c *PriceConfig) Key() string {
	return PRICE_CONFIG_KEY
}

func (c *PriceConfig) Load() error {
	c.PrimaryBaseURL = common.GetEnvOrDefault("PRICE_PRIMARY_URL", "https://api.coingecko.com/api/v3")
	c.FallbackBaseURL = common.GetEnvOrDefault("PRICE_FALLBACK_URL", "https://min-api.cryptocompare.com")
	c.CacheTTLSeconds = common.GetEnvOrDefaultInt("PRICE_CACHE_TTL_SECONDS", 30)
	return c.Validate()
}

func (c *PriceConfig) Validate() error {
	if c.PrimaryBaseURL == "" || c.FallbackBaseURL == "" {
		return errors.New("price service URLs are required")
	}
	if c.CacheTTLSeconds <= 0 {
		return errors.New("price cache TTL must be positive")
	}
	return nil
}
