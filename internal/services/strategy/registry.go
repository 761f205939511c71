package strategy

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/across-protocol/quote-engine/internal/chain"
	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/domain"
	"github.com/across-protocol/quote-engine/internal/metrics"
	"github.com/across-protocol/quote-engine/internal/services/filltime"
	"github.com/across-protocol/quote-engine/internal/services/price"
)

const STRATEGY_REGISTRY_SERVICE = "strategy-registry-service"

// Registry holds one strategy per provider kind in a fixed table built at
// startup. Dispatch is by enum value; there is no dynamic registration.
type Registry struct {
	container.BaseDIInstance

	deps  Deps
	table map[domain.ProviderKind]Strategy
}

func (r *Registry) ID() string {
	return STRATEGY_REGISTRY_SERVICE
}

func (r *Registry) Configure(c container.IContainer) error {
	r.deps = Deps{
		Chains:   c.GetConfig(config.CHAINS_CONFIG_KEY).(*config.ChainsConfig),
		Tokens:   c.GetConfig(config.TOKENS_CONFIG_KEY).(*config.TokensConfig),
		Bridge:   c.GetConfig(config.BRIDGE_CONFIG_KEY).(*config.BridgeConfig),
		FillTime: c.Instance(filltime.FILL_TIME_SERVICE).(*filltime.Service),
		Prices:   c.Instance(price.PRICE_SERVICE).(*price.Service),
		SVM:      c.Instance(chain.SVM_READER_SERVICE).(*chain.SVMReaderService),
		Gas:      c.Instance(chain.CHAIN_READER_SERVICE).(*chain.ReaderService),
	}
	r.table = buildTable(r.deps)
	return nil
}

func (r *Registry) Start() error {
	log.Info().Int("strategies", len(r.table)).Msg("[strategyRegistry] started")
	return nil
}

func (r *Registry) Stop() error { return nil }

// NewRegistryForTest wires a registry around explicit deps.
func NewRegistryForTest(deps Deps) *Registry {
	return &Registry{deps: deps, table: buildTable(deps)}
}

// buildTable covers every enum variant exactly once.
func buildTable(deps Deps) map[domain.ProviderKind]Strategy {
	table := make(map[domain.ProviderKind]Strategy)
	for _, kind := range domain.ProviderKinds() {
		switch kind {
		case domain.ProviderIntent:
			table[kind] = NewIntentStrategy(deps)
		case domain.ProviderBurnMint:
			table[kind] = NewBurnMintStrategy(deps)
		case domain.ProviderBurnMintSponsored:
			table[kind] = NewSponsoredBurnMintStrategy(deps)
		case domain.ProviderOmnichain:
			table[kind] = NewOmnichainStrategy(deps)
		case domain.ProviderOmnichainSponsored:
			table[kind] = NewSponsoredOmnichainStrategy(deps)
		}
	}
	return table
}

// ForKind returns the strategy for a provider kind.
func (r *Registry) ForKind(kind domain.ProviderKind) (Strategy, bool) {
	s, ok := r.table[kind]
	return s, ok
}

// Eligible returns every strategy that supports the route, in enum order.
func (r *Registry) Eligible(inputToken, outputToken domain.Token) []Strategy {
	var out []Strategy
	for _, kind := range domain.ProviderKinds() {
		s := r.table[kind]
		if s.IsRouteSupported(inputToken, outputToken) {
			out = append(out, s)
		}
	}
	return out
}

// AssertDestinationGas simulates the destination-side call and enforces the
// per-chain gas ceiling. A simulation transport failure is surfaced as-is;
// only an over-ceiling result produces the typed error.
func (r *Registry) AssertDestinationGas(ctx context.Context, destChainID uint64, from, to string, value *big.Int, calldata []byte) error {
	if r.deps.Gas == nil {
		return nil
	}
	if _, ok := r.deps.Bridge.DestinationGasLimits[destChainID]; !ok {
		return nil
	}

	gasUsed, err := r.deps.Gas.EstimateGas(ctx, destChainID, ethcommon.HexToAddress(from), ethcommon.HexToAddress(to), value, calldata)
	if err != nil {
		return fmt.Errorf("destination gas simulation on chain %d failed: %w", destChainID, err)
	}

	metrics.DestinationGasEstimates.WithLabelValues(strconv.FormatUint(destChainID, 10)).Observe(float64(gasUsed))
	return assertDestinationGasLimit(r.deps.Bridge, destChainID, gasUsed)
}

// CheckDestinationGasCeiling applies the ceiling to an already-known gas
// figure, for callers that simulate through their own path.
func (r *Registry) CheckDestinationGasCeiling(destChainID uint64, gasUsed uint64) error {
	return assertDestinationGasLimit(r.deps.Bridge, destChainID, gasUsed)
}
