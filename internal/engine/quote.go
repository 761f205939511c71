package engine

import (
	"context"
	"math/big"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	engcommon "github.com/across-protocol/quote-engine/internal/common"
	"github.com/across-protocol/quote-engine/internal/domain"
	"github.com/across-protocol/quote-engine/internal/metrics"
	"github.com/across-protocol/quote-engine/internal/services/convert"
	"github.com/across-protocol/quote-engine/internal/services/fees"
	"github.com/across-protocol/quote-engine/internal/services/sponsorship"
	"github.com/across-protocol/quote-engine/internal/services/strategy"
)

// TradeType selects which side of the quote is fixed.
type TradeType string

const (
	TradeExactInput  TradeType = "exactInput"
	TradeExactOutput TradeType = "exactOutput"
)

// QuoteResult is one priced route. BridgeLeg and VenueSlippagePct are only
// set when the route settles through the order-book venue: Quote then carries
// the venue-settled output while BridgeLeg keeps what the bridge itself
// delivers. Fees is nil when the USD breakdown is unavailable.
type QuoteResult struct {
	Quote            *domain.Quote
	BridgeLeg        *domain.Quote
	SponsorshipFlags *sponsorship.LimitFlags
	VenueSlippagePct float64
}

// QuoteSet is every eligible route priced for one request, best output first.
type QuoteSet struct {
	Quotes []*QuoteResult
}

// Best returns the recommended quote: highest guaranteed output.
func (s *QuoteSet) Best() *QuoteResult {
	if len(s.Quotes) == 0 {
		return nil
	}
	return s.Quotes[0]
}

// Quote prices a cross swap across every eligible strategy. Strategies are
// quoted concurrently; a failure in any of them aborts the whole request so a
// partial answer is never returned. Sponsored variants that fail their
// eligibility checks are silently dropped in favor of the unsponsored path.
func (svc *Service) Quote(ctx context.Context, swap domain.CrossSwap, trade TradeType) (*QuoteSet, error) {
	if swap.Amount == nil || swap.Amount.Sign() <= 0 {
		return nil, engcommon.NewInvalidParamError("amount must be a positive integer")
	}

	bridgeOut, venueHop := svc.resolveSettlement(swap.InputToken, swap.OutputToken)

	eligible := svc.registry.Eligible(swap.InputToken, bridgeOut)
	metrics.StrategiesEvaluated.Observe(float64(len(eligible)))
	if len(eligible) == 0 {
		return nil, engcommon.NewInvalidParamError("no bridge supports %s(%d) -> %s(%d)",
			swap.InputToken.Symbol, swap.InputToken.ChainID, swap.OutputToken.Symbol, swap.OutputToken.ChainID)
	}

	if err := svc.assertDepositBounds(ctx, swap); err != nil {
		return nil, err
	}

	results := make([]*QuoteResult, len(eligible))
	g, gctx := errgroup.WithContext(ctx)
	for i, strat := range eligible {
		g.Go(func() error {
			res, err := svc.quoteOne(gctx, strat, swap, bridgeOut, venueHop, trade)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := &QuoteSet{}
	for _, res := range results {
		if res != nil {
			set.Quotes = append(set.Quotes, res)
		}
	}
	if len(set.Quotes) == 0 {
		return nil, engcommon.NewInvalidParamError("no bridge can currently service %s(%d) -> %s(%d)",
			swap.InputToken.Symbol, swap.InputToken.ChainID, swap.OutputToken.Symbol, swap.OutputToken.ChainID)
	}

	sort.SliceStable(set.Quotes, func(i, j int) bool {
		return set.Quotes[i].Quote.MinOutputAmount.Cmp(set.Quotes[j].Quote.MinOutputAmount) > 0
	})
	return set, nil
}

// quoteOne prices a single strategy, attaches the venue settlement hop when
// present, and reconciles fees. A nil result without error means the variant
// was skipped (sponsored path not currently eligible).
func (svc *Service) quoteOne(ctx context.Context, strat strategy.Strategy, swap domain.CrossSwap, bridgeOut domain.Token, venueHop bool, trade TradeType) (*QuoteResult, error) {
	started := time.Now()
	kind := strat.Kind()

	var flags *sponsorship.LimitFlags
	if kind.Sponsored() {
		var skip bool
		var err error
		flags, skip, err = svc.sponsoredEligibility(ctx, swap, bridgeOut)
		if err != nil || skip {
			return nil, err
		}
	}

	req := strategy.QuoteRequest{
		InputToken:  swap.InputToken,
		OutputToken: bridgeOut,
		Amount:      swap.Amount,
		Recipient:   swap.Recipient,
		Depositor:   swap.Depositor,
	}

	var quote *domain.Quote
	var err error
	switch trade {
	case TradeExactOutput:
		if venueHop {
			return nil, engcommon.NewInvalidParamError("exact-output quoting is not supported for venue-settled routes")
		}
		quote, err = strat.QuoteForOutput(ctx, req)
	default:
		quote, err = strat.QuoteExactInput(ctx, req)
	}
	if err != nil {
		metrics.QuoteRequests.WithLabelValues(kind.String(), string(trade), "error").Inc()
		return nil, err
	}

	res := &QuoteResult{Quote: quote, SponsorshipFlags: flags}
	if venueHop {
		settled, slippage, err := svc.settleAtVenue(ctx, quote, swap.OutputToken)
		if err != nil {
			metrics.QuoteRequests.WithLabelValues(kind.String(), string(trade), "error").Inc()
			return nil, err
		}
		res.Quote = settled
		res.BridgeLeg = quote
		res.VenueSlippagePct = slippage
	}

	svc.attachFees(ctx, res, swap)

	metrics.QuoteRequests.WithLabelValues(kind.String(), string(trade), "ok").Inc()
	metrics.QuoteDuration.WithLabelValues(kind.String()).Observe(time.Since(started).Seconds())
	return res, nil
}

// sponsoredEligibility runs the pre-check and daily-limit stages. Neither
// stage fails the request: an ineligible or unverifiable sponsored variant is
// skipped and the unsponsored sibling still quotes.
func (svc *Service) sponsoredEligibility(ctx context.Context, swap domain.CrossSwap, bridgeOut domain.Token) (*sponsorship.LimitFlags, bool, error) {
	if err := strategy.AssertSponsorable(swap); err != nil {
		return nil, true, nil
	}
	if !svc.sponsorship.PreCheck(swap.InputToken, bridgeOut, swap.Amount) {
		return nil, true, nil
	}

	flags, err := svc.sponsorship.CheckDailyLimits(ctx, bridgeOut.Symbol, swap.Depositor, swap.Amount)
	if err != nil {
		svc.logger.Warn().Err(err).Str("token", bridgeOut.Symbol).Msg("sponsorship counters unavailable, skipping sponsored variant")
		return nil, true, nil
	}
	if !flags.Sponsored() {
		return &flags, true, nil
	}
	return &flags, false, nil
}

// resolveSettlement splits a request into its bridge leg and an optional
// order-book settlement hop. A different output symbol on the order-book
// venue means the bridge delivers the input symbol there and the venue swap
// produces the final asset.
func (svc *Service) resolveSettlement(inputToken, outputToken domain.Token) (domain.Token, bool) {
	if outputToken.ChainID != domain.ChainIDHyperCore || outputToken.Symbol == inputToken.Symbol {
		return outputToken, false
	}
	bridged, ok := svc.tokensCfg.BySymbol(domain.ChainIDHyperCore, inputToken.Symbol)
	if !ok {
		return outputToken, false
	}
	return bridged, true
}

// settleAtVenue simulates a market order on the settlement venue for the
// bridge leg's output and returns a settled copy of the quote plus the
// realized slippage. The bridge leg itself is never mutated: the on-chain
// deposit is built from it, only the user-facing quote shows the venue output.
func (svc *Service) settleAtVenue(ctx context.Context, bridgeLeg *domain.Quote, finalToken domain.Token) (*domain.Quote, float64, error) {
	bridged := bridgeLeg.OutputToken
	bridgedUnits := unitsToFloat(bridgeLeg.OutputAmount, bridged.Decimals)

	sim, err := svc.simulator.Simulate(ctx, bridged.Symbol, finalToken.Symbol, bridgedUnits)
	if err != nil {
		return nil, 0, err
	}
	if !sim.FullyFilled {
		return nil, 0, &engcommon.LiquidityUnavailableError{
			TokenIn:  bridged.Symbol,
			TokenOut: finalToken.Symbol,
			Cause:    engcommon.ErrNoLiquidity,
		}
	}

	finalOut := floatToUnits(sim.OutputAmount, finalToken.Decimals)
	settled := *bridgeLeg
	settled.OutputToken = finalToken
	settled.OutputAmount = finalOut
	settled.MinOutputAmount = new(big.Int).Set(finalOut)
	return &settled, sim.SlippagePercent, nil
}

// attachFees reconciles the quote's fees into USD. Unavailability is not an
// error: the quote ships without a USD breakdown.
func (svc *Service) attachFees(ctx context.Context, res *QuoteResult, swap domain.CrossSwap) {
	quote := res.Quote
	params := fees.CalcParams{
		Provider:       quote.Provider,
		InputToken:     quote.InputToken,
		OutputToken:    quote.OutputToken,
		InputAmount:    quote.InputAmount,
		ExpectedOutput: quote.OutputAmount,
		MinOutput:      quote.MinOutputAmount,
		OriginChainID:  quote.InputToken.ChainID,
		DestChainID:    quote.OutputToken.ChainID,
	}

	if swap.HasAppFee() {
		params.AppFeeAmount = feeOfAmount(quote.OutputAmount, swap.AppFeePercent)
	}

	switch quote.Provider {
	case domain.ProviderOmnichain, domain.ProviderOmnichainSponsored:
		params.BridgeFeeAmount = svc.bridgeCfg.OmnichainNativeFee()
		params.BridgeFeeToken = svc.originNativeToken(quote.InputToken.ChainID)
	default:
		// On venue-settled routes the protocol fee lives on the bridge leg;
		// differencing input against the settled output would price the venue
		// swap as a bridge fee.
		leg := quote
		if res.BridgeLeg != nil {
			leg = res.BridgeLeg
		}
		params.BridgeFeeAmount = bridgeFeeInInputUnits(leg)
		params.BridgeFeeToken = leg.InputToken
	}

	swapFees, ok := svc.fees.CalculateSwapFees(ctx, params)
	if !ok {
		svc.logger.Debug().Str("provider", quote.Provider.String()).Msg("fee breakdown unavailable, shipping base quote")
		return
	}
	quote.Fees = swapFees
}

// assertDepositBounds enforces the configured USD floor and ceiling. The
// bound check is skipped when the input cannot be priced; pricing problems
// surface through fee reconciliation instead of blocking the quote.
func (svc *Service) assertDepositBounds(ctx context.Context, swap domain.CrossSwap) error {
	unitPrice, err := svc.prices.UnitPriceUsd(ctx, swap.InputToken.Symbol)
	if err != nil || unitPrice <= 0 {
		svc.logger.Debug().Err(err).Str("symbol", swap.InputToken.Symbol).Msg("input unpriced, skipping deposit bounds")
		return nil
	}

	usd := unitsToFloat(swap.Amount, swap.InputToken.Decimals) * unitPrice
	if usd < svc.bridgeCfg.MinDepositUsd {
		return engcommon.NewInvalidParamError("deposit of %.2f USD is below the %.2f USD minimum", usd, svc.bridgeCfg.MinDepositUsd)
	}
	if usd > svc.bridgeCfg.MaxDepositUsd {
		return &engcommon.AmountTooHighError{
			Amount: swap.Amount,
			Limit:  floatToUnits(svc.bridgeCfg.MaxDepositUsd/unitPrice, swap.InputToken.Decimals),
			Route:  swap.InputToken.Symbol,
		}
	}
	return nil
}

func (svc *Service) originNativeToken(chainID uint64) domain.Token {
	cc, ok := svc.chainsCfg.Chain(chainID)
	if !ok {
		return domain.Token{ChainID: chainID, Symbol: "ETH", Decimals: 18}
	}
	return domain.Token{
		ChainID:  chainID,
		Address:  engcommon.NativeTokenAddress,
		Symbol:   cc.NativeSymbol,
		Decimals: cc.NativeDecimals,
	}
}

// bridgeFeeInInputUnits recovers the protocol fee a quote already deducted:
// the input minus the expected output rescaled back to input decimals.
func bridgeFeeInInputUnits(quote *domain.Quote) *big.Int {
	outInInputDec := convert.Rescale(quote.OutputAmount, quote.OutputToken.Decimals, quote.InputToken.Decimals)
	fee := new(big.Int).Sub(quote.InputAmount, outInInputDec)
	if fee.Sign() < 0 {
		return big.NewInt(0)
	}
	return fee
}

func feeOfAmount(amount *big.Int, pct float64) *big.Int {
	f := new(big.Float).SetInt(amount)
	f.Mul(f, big.NewFloat(pct/100))
	out, _ := f.Int(nil)
	return out
}

func unitsToFloat(amount *big.Int, decimals uint8) float64 {
	f := new(big.Float).SetInt(amount)
	out, _ := f.Quo(f, new(big.Float).SetInt(pow10(decimals))).Float64()
	return out
}

func floatToUnits(units float64, decimals uint8) *big.Int {
	f := big.NewFloat(units)
	out, _ := f.Mul(f, new(big.Float).SetInt(pow10(decimals))).Int(nil)
	return out
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
