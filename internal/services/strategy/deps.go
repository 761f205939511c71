package strategy

import (
	"context"
	"math"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/domain"
)

// fillTimeEstimator is the slice of the fill-time service strategies use.
type fillTimeEstimator interface {
	Estimate(originChainID, destChainID uint64, tokenSymbol string, usdAmount float64) int64
	EstimateMessagePassing(ctx context.Context, originChainID, destChainID uint64, token domain.Token) int64
}

// priceSource resolves USD prices for sizing and capacity checks.
type priceSource interface {
	UnitPriceUsd(ctx context.Context, symbol string) (float64, error)
}

// ataProber checks whether a recipient's associated token account exists.
type ataProber interface {
	TokenAccountExists(ctx context.Context, owner, mint solana.PublicKey) (bool, error)
}

// gasEstimator simulates destination calls for the gas ceiling check.
type gasEstimator interface {
	EstimateGas(ctx context.Context, chainID uint64, from, to ethcommon.Address, value *big.Int, data []byte) (uint64, error)
}

// Deps bundles what every strategy variant needs. All fields are read-only
// after construction.
type Deps struct {
	Chains   *config.ChainsConfig
	Tokens   *config.TokensConfig
	Bridge   *config.BridgeConfig
	FillTime fillTimeEstimator
	Prices   priceSource
	SVM      ataProber
	Gas      gasEstimator
}

// usdValue prices a token amount best-effort. Lookup failures degrade to 0,
// which steers the fill-time tiers and capacity checks conservatively instead
// of failing the quote.
func (d Deps) usdValue(ctx context.Context, token domain.Token, amount *big.Int) float64 {
	if d.Prices == nil || amount == nil {
		return 0
	}
	price, err := d.Prices.UnitPriceUsd(ctx, token.Symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", token.Symbol).Msg("[strategy] usd sizing lookup failed, sizing as 0")
		return 0
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	return f / math.Pow10(int(token.Decimals)) * price
}
