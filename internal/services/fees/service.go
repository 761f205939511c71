package fees

import (
	"context"
	"math"
	"math/big"

	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"
	"golang.org/x/sync/errgroup"

	engcommon "github.com/across-protocol/quote-engine/internal/common"
	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/domain"
	"github.com/across-protocol/quote-engine/internal/metrics"
	"github.com/across-protocol/quote-engine/internal/services/price"
)

const FEES_SERVICE = "fees-service"

// priceQuoter is the slice of the price service this engine needs.
type priceQuoter interface {
	UnitPriceUsd(ctx context.Context, symbol string) (float64, error)
	FallbackUnitPriceUsd(ctx context.Context, symbol string) (float64, error)
}

// CalcParams carries everything needed to reconcile one quote's fees.
// ExpectedOutput excludes the app fee; MinOutput is the guaranteed floor.
type CalcParams struct {
	Provider       domain.ProviderKind
	InputToken     domain.Token
	OutputToken    domain.Token
	InputAmount    *big.Int
	ExpectedOutput *big.Int
	MinOutput      *big.Int

	AppFeeAmount    *big.Int // output token units, nil when absent
	BridgeFeeAmount *big.Int
	BridgeFeeToken  domain.Token

	OriginChainID uint64
	DestChainID   uint64
	OriginGasWei  *big.Int
	DestGasWei    *big.Int
}

// Service turns a base quote into a USD fee breakdown. It never fails a
// quote: when prices are missing or implausible it reports unavailable and
// the caller ships the quote without USD figures.
type Service struct {
	container.BaseDIInstance

	quoter    priceQuoter
	chainsCfg *config.ChainsConfig
}

func (svc *Service) ID() string {
	return FEES_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.quoter = c.Instance(price.PRICE_SERVICE).(*price.Service)
	svc.chainsCfg = c.GetConfig(config.CHAINS_CONFIG_KEY).(*config.ChainsConfig)
	return nil
}

func (svc *Service) Start() error { return nil }
func (svc *Service) Stop() error  { return nil }

// NewServiceForTest wires a service directly, bypassing the container.
func NewServiceForTest(quoter priceQuoter, chains *config.ChainsConfig) *Service {
	return &Service{quoter: quoter, chainsCfg: chains}
}

type resolvedPrices struct {
	input        float64
	output       float64
	originNative float64
	destNative   float64
	feeToken     float64

	originNativeSymbol string
}

// CalculateSwapFees reconciles a quote's fees into USD. The second return is
// false when the breakdown is unavailable; the quote itself stays valid.
func (svc *Service) CalculateSwapFees(ctx context.Context, p CalcParams) (*domain.SwapFees, bool) {
	prices, ok := svc.resolvePrices(ctx, p)
	if !ok {
		metrics.FeeReconciliationFallbacks.Inc()
		return nil, false
	}

	inputUsd := tokensToUsd(p.InputAmount, p.InputToken.Decimals, prices.input)
	expectedOutUsd := tokensToUsd(p.ExpectedOutput, p.OutputToken.Decimals, prices.output)
	minOutUsd := tokensToUsd(p.MinOutput, p.OutputToken.Decimals, prices.output)

	originGasUsd := weiToUsd(p.OriginGasWei, prices.originNative)
	destGasUsd := weiToUsd(p.DestGasWei, prices.destNative)

	appFeeUsd := 0.0
	appFeeAmount := big.NewInt(0)
	if p.AppFeeAmount != nil {
		appFeeAmount = p.AppFeeAmount
		appFeeUsd = tokensToUsd(p.AppFeeAmount, p.OutputToken.Decimals, prices.output)
	}

	bridgeFeeUsd := svc.bridgeFeeUsd(p, prices)

	totalUsd := totalFeeUsd(p.Provider, inputUsd, expectedOutUsd, bridgeFeeUsd)
	totalMaxUsd := totalFeeUsd(p.Provider, inputUsd, minOutUsd, bridgeFeeUsd)

	swapImpactUsd := totalUsd - bridgeFeeUsd - appFeeUsd
	maxSwapImpactUsd := totalMaxUsd - bridgeFeeUsd - appFeeUsd

	totalPct := 0.0
	if inputUsd > 0 {
		totalPct = totalUsd / inputUsd
	}
	totalMaxPct := 0.0
	if inputUsd > 0 {
		totalMaxPct = totalMaxUsd / inputUsd
	}

	bridgeFee := domain.FeeComponent{
		Amount:    valueOrZero(p.BridgeFeeAmount),
		AmountUsd: bridgeFeeUsd,
		Token:     p.BridgeFeeToken,
	}
	appFee := domain.FeeComponent{
		Amount:    appFeeAmount,
		AmountUsd: appFeeUsd,
		Token:     p.OutputToken,
	}
	swapImpact := domain.FeeComponent{
		Amount:    usdToTokens(swapImpactUsd, p.InputToken.Decimals, prices.input),
		AmountUsd: swapImpactUsd,
		Token:     p.InputToken,
	}
	maxSwapImpact := domain.FeeComponent{
		Amount:    usdToTokens(maxSwapImpactUsd, p.InputToken.Decimals, prices.input),
		AmountUsd: maxSwapImpactUsd,
		Token:     p.InputToken,
	}

	fees := &domain.SwapFees{
		Total: domain.FeeComponent{
			Amount:    usdToTokens(totalUsd, p.InputToken.Decimals, prices.input),
			AmountUsd: totalUsd,
			Token:     p.InputToken,
			Pct:       &totalPct,
			Details: domain.TotalBreakdown{
				BridgeFee:  bridgeFee,
				AppFee:     appFee,
				SwapImpact: swapImpact,
			},
		},
		TotalMax: domain.FeeComponent{
			Amount:    usdToTokens(totalMaxUsd, p.InputToken.Decimals, prices.input),
			AmountUsd: totalMaxUsd,
			Token:     p.InputToken,
			Pct:       &totalMaxPct,
			Details: domain.MaxTotalBreakdown{
				BridgeFee:     bridgeFee,
				AppFee:        appFee,
				MaxSwapImpact: maxSwapImpact,
			},
		},
		OriginGas: domain.FeeComponent{
			Amount:    valueOrZero(p.OriginGasWei),
			AmountUsd: originGasUsd,
			Token:     svc.nativeToken(p.OriginChainID),
		},
		DestinationGas: domain.FeeComponent{
			Amount:    valueOrZero(p.DestGasWei),
			AmountUsd: destGasUsd,
			Token:     svc.nativeToken(p.DestChainID),
		},
		BridgeFee:     bridgeFee,
		AppFee:        appFee,
		SwapImpact:    swapImpact,
		MaxSwapImpact: maxSwapImpact,
	}
	return fees, true
}

// resolvePrices fetches every required unit price concurrently. Same-symbol
// routes whose two prices diverge past tolerance, or price the output above
// the input, are re-resolved through the fallback source once.
func (svc *Service) resolvePrices(ctx context.Context, p CalcParams) (resolvedPrices, bool) {
	originNativeSymbol := svc.nativeSymbol(p.OriginChainID)
	destNativeSymbol := svc.nativeSymbol(p.DestChainID)
	if originNativeSymbol == "" || destNativeSymbol == "" {
		return resolvedPrices{}, false
	}

	var prices resolvedPrices
	prices.originNativeSymbol = originNativeSymbol

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		prices.input, err = svc.quoter.UnitPriceUsd(gctx, p.InputToken.Symbol)
		return err
	})
	g.Go(func() (err error) {
		prices.output, err = svc.quoter.UnitPriceUsd(gctx, p.OutputToken.Symbol)
		return err
	})
	g.Go(func() (err error) {
		prices.originNative, err = svc.quoter.UnitPriceUsd(gctx, originNativeSymbol)
		return err
	})
	g.Go(func() (err error) {
		prices.destNative, err = svc.quoter.UnitPriceUsd(gctx, destNativeSymbol)
		return err
	})
	g.Go(func() (err error) {
		prices.feeToken, err = svc.quoter.UnitPriceUsd(gctx, p.BridgeFeeToken.Symbol)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("[fees] price resolution failed, fees unavailable")
		return resolvedPrices{}, false
	}

	if prices.input <= 0 || prices.output <= 0 || prices.originNative <= 0 || prices.destNative <= 0 || prices.feeToken <= 0 {
		return resolvedPrices{}, false
	}

	if p.InputToken.SameSymbol(p.OutputToken) && sameAssetImplausible(prices.input, prices.output) {
		in, errIn := svc.quoter.FallbackUnitPriceUsd(ctx, p.InputToken.Symbol)
		out, errOut := svc.quoter.FallbackUnitPriceUsd(ctx, p.OutputToken.Symbol)
		if errIn != nil || errOut != nil || in <= 0 || out <= 0 || sameAssetImplausible(in, out) {
			log.Warn().
				Str("symbol", p.InputToken.Symbol).
				Float64("input", prices.input).
				Float64("output", prices.output).
				Msg("[fees] same-asset prices diverged past tolerance, fees unavailable")
			return resolvedPrices{}, false
		}
		prices.input, prices.output = in, out
	}

	return prices, true
}

// sameAssetImplausible flags like-for-like prices that diverge beyond
// tolerance or value the output above the input.
func sameAssetImplausible(input, output float64) bool {
	if output > input {
		return true
	}
	return (input-output)/input > engcommon.SameAssetPriceTolerance
}

// bridgeFeeUsd converts the bridge's own fee using the most specific price
// at hand: the origin gas price when the fee is paid in gas, else the input
// token price when symbols match, else the independent fee-token lookup.
func (svc *Service) bridgeFeeUsd(p CalcParams, prices resolvedPrices) float64 {
	if p.BridgeFeeAmount == nil {
		return 0
	}
	switch p.BridgeFeeToken.Symbol {
	case prices.originNativeSymbol:
		return weiToUsd(p.BridgeFeeAmount, prices.originNative)
	case p.InputToken.Symbol:
		return tokensToUsd(p.BridgeFeeAmount, p.BridgeFeeToken.Decimals, prices.input)
	default:
		return tokensToUsd(p.BridgeFeeAmount, p.BridgeFeeToken.Decimals, prices.feeToken)
	}
}

// totalFeeUsd applies the per-provider definition of the total fee. Direct
// on-chain-settled transfers lose whatever USD value disappears between
// input and output; message-passing transfers only pay the explicit bridge
// fee; sponsored burn-mint transfers cost the user nothing.
func totalFeeUsd(provider domain.ProviderKind, inputUsd, outputUsd, bridgeFeeUsd float64) float64 {
	switch provider {
	case domain.ProviderOmnichain, domain.ProviderOmnichainSponsored:
		return bridgeFeeUsd
	case domain.ProviderBurnMintSponsored:
		return 0
	default:
		return inputUsd - outputUsd
	}
}

func (svc *Service) nativeSymbol(chainID uint64) string {
	if cc, ok := svc.chainsCfg.Chain(chainID); ok {
		return cc.NativeSymbol
	}
	return ""
}

func (svc *Service) nativeToken(chainID uint64) domain.Token {
	cc, ok := svc.chainsCfg.Chain(chainID)
	if !ok {
		return domain.Token{}
	}
	return domain.Token{
		ChainID:  chainID,
		Address:  engcommon.NativeTokenAddress,
		Symbol:   cc.NativeSymbol,
		Decimals: cc.NativeDecimals,
	}
}

func tokensToUsd(amount *big.Int, decimals uint8, unitPrice float64) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	return f / math.Pow10(int(decimals)) * unitPrice
}

func weiToUsd(amount *big.Int, unitPrice float64) float64 {
	return tokensToUsd(amount, 18, unitPrice)
}

func usdToTokens(usd float64, decimals uint8, unitPrice float64) *big.Int {
	if unitPrice <= 0 {
		return big.NewInt(0)
	}
	scaled := new(big.Float).Mul(big.NewFloat(usd/unitPrice), big.NewFloat(math.Pow10(int(decimals))))
	out, _ := scaled.Int(nil)
	return out
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
