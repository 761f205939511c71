package strategy

import (
	"context"
	"math/big"

	engcommon "github.com/across-protocol/quote-engine/internal/common"
	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/domain"
)

// QuoteRequest is the normalized input to a strategy quote call. Amount is an
// exact input for QuoteExactInput and a minimum output for QuoteForOutput.
type QuoteRequest struct {
	InputToken  domain.Token
	OutputToken domain.Token
	Amount      *big.Int
	Recipient   string
	Depositor   string
}

// Strategy is the uniform contract every bridge variant satisfies.
// IsRouteSupported and CrossSwapTypes depend only on static configuration and
// never touch the network.
type Strategy interface {
	Kind() domain.ProviderKind
	Capabilities() domain.Capabilities
	IsRouteSupported(inputToken, outputToken domain.Token) bool
	CrossSwapTypes(inputToken, outputToken domain.Token) []domain.SwapType
	QuoteExactInput(ctx context.Context, req QuoteRequest) (*domain.Quote, error)
	QuoteForOutput(ctx context.Context, req QuoteRequest) (*domain.Quote, error)
	BuildTransaction(ctx context.Context, swap domain.CrossSwap, quote *domain.Quote) (*domain.UnsignedTx, error)
}

// assertDestinationGasLimit enforces the per-chain ceiling on simulated
// destination call gas before any calldata leaves the engine.
func assertDestinationGasLimit(cfg *config.BridgeConfig, chainID uint64, gasUsed uint64) error {
	limit, ok := cfg.DestinationGasLimits[chainID]
	if !ok {
		return nil
	}
	if gasUsed > limit {
		return &engcommon.DestinationGasLimitError{
			ChainID:  chainID,
			GasUsed:  gasUsed,
			GasLimit: limit,
		}
	}
	return nil
}

// assertOutputFloor rejects exact-output quotes whose realized output fell
// below the protocol-appropriate floor.
func assertOutputFloor(realized, floor *big.Int) error {
	if realized.Cmp(floor) < 0 {
		return engcommon.NewInvalidParamError(
			"realized output %s below requested floor %s", realized, floor)
	}
	return nil
}

// feeFromBps computes floor(amount * bps / 10000).
func feeFromBps(amount *big.Int, bps float64) *big.Int {
	scaled := new(big.Float).Mul(new(big.Float).SetInt(amount), big.NewFloat(bps))
	scaled.Quo(scaled, big.NewFloat(10_000))
	out, _ := scaled.Int(nil)
	return out
}

// grossUpForBps inverts feeFromBps: the smallest input whose post-fee
// remainder covers target.
func grossUpForBps(target *big.Int, bps float64) *big.Int {
	gross := new(big.Float).Quo(new(big.Float).SetInt(target), big.NewFloat(1-bps/10_000))
	out, _ := gross.Int(nil)
	// Rounding down can land one unit short; step up until the fee math holds.
	for {
		net := new(big.Int).Sub(out, feeFromBps(out, bps))
		if net.Cmp(target) >= 0 {
			return out
		}
		out.Add(out, big.NewInt(1))
	}
}

func containsUint64(haystack []uint64, needle uint64) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func containsSymbol(haystack []string, symbol string) bool {
	for _, v := range haystack {
		if v == symbol {
			return true
		}
	}
	return false
}
