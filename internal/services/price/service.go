package price

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/services/balance"
)

const PRICE_SERVICE = "price-service"

// Service caches USD unit prices per source. Misses hit the source directly;
// concurrent misses for one symbol may fetch twice, the TTL makes that benign.
type Service struct {
	container.BaseDIInstance

	primary  Source
	fallback Source
	cache    *balance.TTLCache[string, float64]
}

func (svc *Service) ID() string {
	return PRICE_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	cfg := c.GetConfig(config.PRICE_CONFIG_KEY).(*config.PriceConfig)
	svc.primary = NewCoingeckoSource(cfg.PrimaryBaseURL)
	svc.fallback = NewCryptocompareSource(cfg.FallbackBaseURL)
	svc.cache = balance.NewTTLCache[string, float64](time.Duration(cfg.CacheTTLSeconds) * time.Second)
	return nil
}

func (svc *Service) Start() error {
	log.Info().Str("primary", svc.primary.Name()).Str("fallback", svc.fallback.Name()).Msg("[price] started")
	return nil
}

func (svc *Service) Stop() error { return nil }

// NewServiceForTest wires a service around stub sources.
func NewServiceForTest(primary, fallback Source, ttl time.Duration) *Service {
	return &Service{primary: primary, fallback: fallback, cache: balance.NewTTLCache[string, float64](ttl)}
}

// UnitPriceUsd resolves a symbol through the primary source.
func (svc *Service) UnitPriceUsd(ctx context.Context, symbol string) (float64, error) {
	return svc.cached(ctx, svc.primary, symbol)
}

// FallbackUnitPriceUsd resolves a symbol through the fallback source. The fee
// engine uses it when same-asset primary prices disagree.
func (svc *Service) FallbackUnitPriceUsd(ctx context.Context, symbol string) (float64, error) {
	return svc.cached(ctx, svc.fallback, symbol)
}

func (svc *Service) cached(ctx context.Context, source Source, symbol string) (float64, error) {
	key := source.Name() + "/" + strings.ToUpper(symbol)
	return svc.cache.GetOrCompute(key, func() (float64, error) {
		return source.UnitPriceUsd(ctx, symbol)
	})
}
