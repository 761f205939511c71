// Package engine orchestrates one quote request end to end: resolve eligible
// strategies, quote them in parallel, reconcile fees into USD, gate sponsored
// paths, and build the unsigned transaction payload.
package engine

import (
	"math/big"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/services"
	"github.com/across-protocol/quote-engine/internal/services/balance"
	"github.com/across-protocol/quote-engine/internal/services/fees"
	"github.com/across-protocol/quote-engine/internal/services/orderbook"
	"github.com/across-protocol/quote-engine/internal/services/price"
	"github.com/across-protocol/quote-engine/internal/services/sponsorship"
	"github.com/across-protocol/quote-engine/internal/services/strategy"
)

const ENGINE_SERVICE = "engine-service"

// Service is the request orchestrator. Each call is stateless; the only state
// shared across requests lives in the balance and price caches underneath.
type Service struct {
	container.BaseDIInstance

	registry    *strategy.Registry
	fees        *fees.Service
	sponsorship *sponsorship.Service
	simulator   *orderbook.Simulator
	prices      *price.Service
	balances    *balance.Service
	logger      *services.ServiceLogger

	bridgeCfg      *config.BridgeConfig
	tokensCfg      *config.TokensConfig
	chainsCfg      *config.ChainsConfig
	sponsorshipCfg *config.SponsorshipConfig
}

func (svc *Service) ID() string {
	return ENGINE_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.logger = services.NewServiceLogger(svc)
	svc.registry = c.Instance(strategy.STRATEGY_REGISTRY_SERVICE).(*strategy.Registry)
	svc.fees = c.Instance(fees.FEES_SERVICE).(*fees.Service)
	svc.sponsorship = c.Instance(sponsorship.SPONSORSHIP_SERVICE).(*sponsorship.Service)
	svc.simulator = c.Instance(orderbook.ORDER_BOOK_SIMULATOR_SERVICE).(*orderbook.Simulator)
	svc.prices = c.Instance(price.PRICE_SERVICE).(*price.Service)
	svc.balances = c.Instance(balance.BALANCE_SERVICE).(*balance.Service)

	svc.bridgeCfg = c.GetConfig(config.BRIDGE_CONFIG_KEY).(*config.BridgeConfig)
	svc.tokensCfg = c.GetConfig(config.TOKENS_CONFIG_KEY).(*config.TokensConfig)
	svc.chainsCfg = c.GetConfig(config.CHAINS_CONFIG_KEY).(*config.ChainsConfig)
	svc.sponsorshipCfg = c.GetConfig(config.SPONSORSHIP_CONFIG_KEY).(*config.SponsorshipConfig)
	return nil
}

func (svc *Service) Start() error {
	svc.logger.Info().Msg("started")
	return nil
}

func (svc *Service) Stop() error { return nil }

// EngineDeps bundles the collaborators for direct construction in tests.
type EngineDeps struct {
	Registry       *strategy.Registry
	Fees           *fees.Service
	Sponsorship    *sponsorship.Service
	Simulator      *orderbook.Simulator
	Prices         *price.Service
	Balances       *balance.Service
	Bridge         *config.BridgeConfig
	Tokens         *config.TokensConfig
	Chains         *config.ChainsConfig
	SponsorshipCfg *config.SponsorshipConfig
}

// NewServiceForTest wires an engine directly, bypassing the container.
func NewServiceForTest(d EngineDeps) *Service {
	svc := &Service{
		registry:       d.Registry,
		fees:           d.Fees,
		sponsorship:    d.Sponsorship,
		simulator:      d.Simulator,
		prices:         d.Prices,
		balances:       d.Balances,
		bridgeCfg:      d.Bridge,
		tokensCfg:      d.Tokens,
		chainsCfg:      d.Chains,
		sponsorshipCfg: d.SponsorshipCfg,
	}
	svc.logger = services.NewServiceLogger(svc)
	return svc
}

// RouteInfo describes one provider able to service a pair.
type RouteInfo struct {
	Provider  string   `json:"provider"`
	SwapTypes []string `json:"swapTypes"`
}

// DepositLimits bounds a single deposit for a route, in input token base units.
// Zero values mean the USD bound could not be priced into token units.
type DepositLimits struct {
	MinDeposit *big.Int
	MaxDeposit *big.Int
}
