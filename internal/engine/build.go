package engine

import (
	"context"
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/across-protocol/quote-engine/internal/chain"
	engcommon "github.com/across-protocol/quote-engine/internal/common"
	"github.com/across-protocol/quote-engine/internal/domain"
	"github.com/across-protocol/quote-engine/internal/metrics"
	"github.com/across-protocol/quote-engine/internal/services/convert"
	"github.com/across-protocol/quote-engine/internal/services/sponsorship"
	"github.com/across-protocol/quote-engine/internal/services/strategy"
)

// ApprovalTx is the ERC-20 approval the depositor must submit before the
// deposit itself, absent when the input is the chain's native currency.
type ApprovalTx struct {
	ChainID uint64 `json:"chainId"`
	To      string `json:"to"`
	Data    string `json:"data"`
}

// BuildResult carries the final payloads for one provider.
type BuildResult struct {
	Quote    *domain.Quote
	Tx       *domain.UnsignedTx
	Approval *ApprovalTx
}

// Build re-quotes the swap on the chosen provider and constructs the unsigned
// transaction. Unlike quoting, every guard here is fatal: a sponsored route
// that lost its eligibility, an insufficient depositor balance, or a
// destination call over the gas ceiling all abort construction.
func (svc *Service) Build(ctx context.Context, swap domain.CrossSwap, kind domain.ProviderKind) (*BuildResult, error) {
	res, err := svc.build(ctx, swap, kind)
	if err != nil {
		metrics.BuildRequests.WithLabelValues(kind.String(), "error").Inc()
		return nil, err
	}
	metrics.BuildRequests.WithLabelValues(kind.String(), "ok").Inc()
	return res, nil
}

func (svc *Service) build(ctx context.Context, swap domain.CrossSwap, kind domain.ProviderKind) (*BuildResult, error) {
	strat, ok := svc.registry.ForKind(kind)
	if !ok {
		return nil, engcommon.NewInvalidParamError("unknown provider %s", kind)
	}
	if swap.Amount == nil || swap.Amount.Sign() <= 0 {
		return nil, engcommon.NewInvalidParamError("amount must be a positive integer")
	}
	if swap.Depositor == "" || swap.Recipient == "" {
		return nil, engcommon.NewInvalidParamError("building a transaction requires both depositor and recipient")
	}

	bridgeOut, venueHop := svc.resolveSettlement(swap.InputToken, swap.OutputToken)

	if kind.Sponsored() {
		if err := strategy.AssertSponsorable(swap); err != nil {
			return nil, err
		}
		if !svc.sponsorship.PreCheck(swap.InputToken, bridgeOut, swap.Amount) {
			return nil, engcommon.NewInvalidParamError("route %s -> %s is not sponsorship eligible for this amount",
				swap.InputToken.Symbol, bridgeOut.Symbol)
		}
		flags, err := svc.sponsorship.CheckDailyLimits(ctx, bridgeOut.Symbol, swap.Depositor, swap.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to verify sponsorship limits: %w", err)
		}
		if !flags.Sponsored() {
			return nil, engcommon.NewInvalidParamError("daily sponsorship limits reached for %s", bridgeOut.Symbol)
		}
	}

	// Build-time guards size deposits in USD; an unpriceable input would
	// silently waive them, so here the lookup failing is fatal.
	if _, err := svc.prices.UnitPriceUsd(ctx, swap.InputToken.Symbol); err != nil {
		return nil, fmt.Errorf("failed to price %s for build-time guards: %w", swap.InputToken.Symbol, err)
	}

	bridgeLeg, err := strat.QuoteExactInput(ctx, strategy.QuoteRequest{
		InputToken:  swap.InputToken,
		OutputToken: bridgeOut,
		Amount:      swap.Amount,
		Recipient:   swap.Recipient,
		Depositor:   swap.Depositor,
	})
	if err != nil {
		return nil, err
	}

	res := &QuoteResult{Quote: bridgeLeg}
	if venueHop {
		settled, slippage, err := svc.settleAtVenue(ctx, bridgeLeg, swap.OutputToken)
		if err != nil {
			return nil, err
		}
		res.Quote = settled
		res.BridgeLeg = bridgeLeg
		res.VenueSlippagePct = slippage
	}

	if kind.Sponsored() {
		if err := svc.assertSponsorshipCoverage(ctx, swap, res); err != nil {
			return nil, err
		}
	}

	if err := svc.assertDepositorBalance(ctx, swap); err != nil {
		return nil, err
	}

	// The on-chain deposit always executes the bridge leg: on venue-settled
	// routes the venue swap happens after delivery, so the transaction must
	// carry the bridged token and amounts, not the settled ones.
	tx, err := strat.BuildTransaction(ctx, swap, bridgeLeg)
	if err != nil {
		return nil, err
	}

	if err := svc.assertDestinationGas(ctx, kind, bridgeLeg, swap.Recipient); err != nil {
		return nil, err
	}

	return &BuildResult{
		Quote:    res.Quote,
		Tx:       tx,
		Approval: approvalFor(bridgeLeg, tx),
	}, nil
}

// assertSponsorshipCoverage runs the late-stage covering checks once realized
// slippage and the exact sponsored amount are known.
func (svc *Service) assertSponsorshipCoverage(ctx context.Context, swap domain.CrossSwap, res *QuoteResult) error {
	quote := res.Quote
	bps := sponsorship.BpsForRoute(swap.InputToken.Symbol, quote.OutputToken.Symbol, res.VenueSlippagePct)

	sponsored := feeOfAmount(quote.MinOutputAmount, bps/100)
	reserveToken, ok := svc.tokensCfg.BySymbol(svc.sponsorshipCfg.DonationReserveChain, svc.sponsorshipCfg.DonationReserveSymbol)
	if ok {
		converted, err := svc.convertUnits(ctx, sponsored, quote.OutputToken, reserveToken)
		if err != nil {
			return fmt.Errorf("failed to express the sponsored amount in %s: %w", reserveToken.Symbol, err)
		}
		sponsored = converted
	}

	return svc.sponsorship.AssertSponsoredAmountCanBeCovered(ctx, sponsorship.CoverageParams{
		RealizedSlippagePct: res.VenueSlippagePct,
		SponsorshipBps:      bps,
		SponsoredAmount:     sponsored,
	})
}

// convertUnits re-expresses an amount of one token in another token's base
// units. Same-symbol pairs only rescale decimals; cross-asset pairs go through
// USD prices, and an unpriceable side is an error rather than a wrong amount.
func (svc *Service) convertUnits(ctx context.Context, amount *big.Int, from, to domain.Token) (*big.Int, error) {
	if from.Symbol == to.Symbol {
		return convert.Rescale(amount, from.Decimals, to.Decimals), nil
	}

	fromPrice, err := svc.prices.UnitPriceUsd(ctx, from.Symbol)
	if err != nil {
		return nil, err
	}
	toPrice, err := svc.prices.UnitPriceUsd(ctx, to.Symbol)
	if err != nil {
		return nil, err
	}
	if fromPrice <= 0 || toPrice <= 0 {
		return nil, fmt.Errorf("no positive USD price for %s/%s", from.Symbol, to.Symbol)
	}

	usd := unitsToFloat(amount, from.Decimals) * fromPrice
	return floatToUnits(usd/toPrice, to.Decimals), nil
}

// assertDepositorBalance rejects deposits the depositor cannot fund. Only EVM
// origins are checked; the read itself failing is fatal because a build must
// not proceed on unverified funds.
func (svc *Service) assertDepositorBalance(ctx context.Context, swap domain.CrossSwap) error {
	cc, ok := svc.chainsCfg.Chain(swap.InputToken.ChainID)
	if !ok || cc.Ecosystem != domain.EcosystemEVM || svc.balances == nil {
		return nil
	}

	held, err := svc.balances.GetBalance(ctx, swap.InputToken.ChainID,
		ethcommon.HexToAddress(swap.InputToken.Address), ethcommon.HexToAddress(swap.Depositor))
	if err != nil {
		return fmt.Errorf("failed to verify depositor balance on chain %d: %w", swap.InputToken.ChainID, err)
	}
	if held.Cmp(swap.Amount) < 0 {
		return &engcommon.AmountTooHighError{
			Amount: swap.Amount,
			Limit:  held,
			Route:  fmt.Sprintf("%d %s", swap.InputToken.ChainID, swap.InputToken.Symbol),
		}
	}
	return nil
}

// assertDestinationGas simulates delivering the output to the recipient from
// the protocol's destination contract and enforces the per-chain ceiling.
// Routes without a deployed destination contract or with a native output are
// not simulated.
func (svc *Service) assertDestinationGas(ctx context.Context, kind domain.ProviderKind, quote *domain.Quote, recipient string) error {
	destChain := quote.OutputToken.ChainID
	cc, ok := svc.chainsCfg.Chain(destChain)
	if !ok || cc.Ecosystem != domain.EcosystemEVM {
		return nil
	}
	if quote.OutputToken.Address == engcommon.NativeTokenAddress {
		return nil
	}

	from, ok := svc.destinationContract(kind, destChain, quote.OutputToken.Symbol)
	if !ok {
		return nil
	}

	calldata := chain.PackTransfer(ethcommon.HexToAddress(recipient), quote.OutputAmount)
	return svc.registry.AssertDestinationGas(ctx, destChain, from, quote.OutputToken.Address, big.NewInt(0), calldata)
}

// destinationContract is the protocol contract that disburses funds on the
// destination chain for a provider kind.
func (svc *Service) destinationContract(kind domain.ProviderKind, chainID uint64, symbol string) (string, bool) {
	switch kind {
	case domain.ProviderIntent:
		addr, ok := svc.bridgeCfg.Intent.SpokePools[chainID]
		return addr, ok
	case domain.ProviderBurnMint, domain.ProviderBurnMintSponsored:
		addr, ok := svc.bridgeCfg.BurnMint.TokenMessengers[chainID]
		return addr, ok
	case domain.ProviderOmnichain, domain.ProviderOmnichainSponsored:
		handlers, ok := svc.bridgeCfg.Omnichain.Handlers[chainID]
		if !ok {
			return "", false
		}
		addr, ok := handlers[symbol]
		return addr, ok
	default:
		return "", false
	}
}

// approvalFor emits the ERC-20 approval for the deposit spender. Native-input
// deposits attach value instead and need no approval.
func approvalFor(quote *domain.Quote, tx *domain.UnsignedTx) *ApprovalTx {
	if tx.Ecosystem != domain.EcosystemEVM {
		return nil
	}
	if quote.InputToken.Address == engcommon.NativeTokenAddress {
		return nil
	}
	data := chain.PackApprove(ethcommon.HexToAddress(tx.To), quote.InputAmount)
	return &ApprovalTx{
		ChainID: quote.InputToken.ChainID,
		To:      quote.InputToken.Address,
		Data:    "0x" + ethcommon.Bytes2Hex(data),
	}
}
