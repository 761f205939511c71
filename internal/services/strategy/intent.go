package strategy

import (
	"context"
	"fmt"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	engcommon "github.com/across-protocol/quote-engine/internal/common"
	"github.com/across-protocol/quote-engine/internal/domain"
	"github.com/across-protocol/quote-engine/internal/services/convert"
)

// ataCreationBufferSec pads the estimate when the recipient's token account
// does not exist yet and the fill must create it.
const ataCreationBufferSec = 15

// fillDeadlineBuffer is how long a relayer has to fill a deposit.
const fillDeadlineBuffer = 4 * time.Hour

// IntentStrategy quotes and builds deposits for the intent-relayer protocol:
// a relayer fronts destination funds against the deposit and is reimbursed
// through settlement.
type IntentStrategy struct {
	deps Deps
}

func NewIntentStrategy(deps Deps) *IntentStrategy {
	return &IntentStrategy{deps: deps}
}

func (s *IntentStrategy) Kind() domain.ProviderKind {
	return domain.ProviderIntent
}

func (s *IntentStrategy) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		Ecosystems: []domain.Ecosystem{domain.EcosystemEVM, domain.EcosystemSVM},
		SwapTypes: []domain.SwapType{
			domain.SwapTypeBridgeableToBridgeable,
			domain.SwapTypeBridgeableToAny,
			domain.SwapTypeAnyToBridgeable,
			domain.SwapTypeAnyToAny,
		},
	}
}

func (s *IntentStrategy) IsRouteSupported(inputToken, outputToken domain.Token) bool {
	cfg := s.deps.Bridge.Intent
	if !containsSymbol(cfg.SupportedSymbols, inputToken.Symbol) ||
		!containsSymbol(cfg.SupportedSymbols, outputToken.Symbol) {
		return false
	}
	if !containsUint64(cfg.DestChains, outputToken.ChainID) {
		return false
	}
	_, hasSpoke := cfg.SpokePools[inputToken.ChainID]
	return hasSpoke
}

func (s *IntentStrategy) CrossSwapTypes(inputToken, outputToken domain.Token) []domain.SwapType {
	cfg := s.deps.Bridge.Intent
	inBridgeable := containsSymbol(cfg.SupportedSymbols, inputToken.Symbol)
	outBridgeable := containsSymbol(cfg.SupportedSymbols, outputToken.Symbol)

	switch {
	case inBridgeable && outBridgeable:
		return []domain.SwapType{domain.SwapTypeBridgeableToBridgeable}
	case inBridgeable:
		return []domain.SwapType{domain.SwapTypeBridgeableToAny}
	case outBridgeable:
		return []domain.SwapType{domain.SwapTypeAnyToBridgeable}
	default:
		return []domain.SwapType{domain.SwapTypeAnyToAny}
	}
}

func (s *IntentStrategy) totalFeeBps() float64 {
	cfg := s.deps.Bridge.Intent
	return cfg.CapitalFeeBps + cfg.GasFeeBps + cfg.LpFeeBps
}

func (s *IntentStrategy) QuoteExactInput(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	if !s.IsRouteSupported(req.InputToken, req.OutputToken) {
		return nil, engcommon.NewInvalidParamError("route %s(%d) -> %s(%d) is not supported by the intent protocol",
			req.InputToken.Symbol, req.InputToken.ChainID, req.OutputToken.Symbol, req.OutputToken.ChainID)
	}

	usdAmount := s.deps.usdValue(ctx, req.InputToken, req.Amount)
	if max := s.deps.Bridge.Intent.MaxRelayerCapacityUsd; usdAmount > max {
		limit := usdToUnits(max, usdAmount, req.Amount)
		return nil, &engcommon.AmountTooHighError{
			Amount: req.Amount,
			Limit:  limit,
			Route:  fmt.Sprintf("%d->%d %s", req.InputToken.ChainID, req.OutputToken.ChainID, req.InputToken.Symbol),
		}
	}

	fee := feeFromBps(req.Amount, s.totalFeeBps())
	net := new(big.Int).Sub(req.Amount, fee)
	if net.Sign() <= 0 {
		return nil, engcommon.NewInvalidParamError("input %s is below the relayer fee for the route", req.Amount)
	}

	output := convert.Rescale(net, req.InputToken.Decimals, req.OutputToken.Decimals)

	fillTime := s.deps.FillTime.Estimate(req.InputToken.ChainID, req.OutputToken.ChainID, req.InputToken.Symbol, usdAmount)
	fillTime += s.recipientAccountPenalty(ctx, req)

	return &domain.Quote{
		InputToken:           req.InputToken,
		OutputToken:          req.OutputToken,
		InputAmount:          new(big.Int).Set(req.Amount),
		OutputAmount:         output,
		MinOutputAmount:      new(big.Int).Set(output),
		EstimatedFillTimeSec: fillTime,
		Provider:             domain.ProviderIntent,
	}, nil
}

func (s *IntentStrategy) QuoteForOutput(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	// Gross the floor up into input decimals, quote that exact input, then
	// verify the realized output still clears the floor. The conversion rounds
	// up: on decimal-growing routes a truncated floor realizes below the raw
	// minimum.
	floorInInputDec := convert.RescaleCeil(req.Amount, req.OutputToken.Decimals, req.InputToken.Decimals)
	input := grossUpForBps(floorInInputDec, s.totalFeeBps())

	exactReq := req
	exactReq.Amount = input
	quote, err := s.QuoteExactInput(ctx, exactReq)
	if err != nil {
		return nil, err
	}
	if err := assertOutputFloor(quote.OutputAmount, req.Amount); err != nil {
		return nil, err
	}
	return quote, nil
}

// recipientAccountPenalty pads the estimate for non-EVM recipients whose
// token account may need creating. The probe is best-effort: on error the
// account is assumed missing.
func (s *IntentStrategy) recipientAccountPenalty(ctx context.Context, req QuoteRequest) int64 {
	cc, ok := s.deps.Chains.Chain(req.OutputToken.ChainID)
	if !ok || cc.Ecosystem != domain.EcosystemSVM || s.deps.SVM == nil {
		return 0
	}

	owner, err := solana.PublicKeyFromBase58(req.Recipient)
	if err != nil {
		return ataCreationBufferSec
	}
	mint, err := solana.PublicKeyFromBase58(req.OutputToken.Address)
	if err != nil {
		return ataCreationBufferSec
	}

	exists, err := s.deps.SVM.TokenAccountExists(ctx, owner, mint)
	if err != nil {
		log.Debug().Err(err).Str("recipient", req.Recipient).Msg("[intent] token account probe failed, assuming missing")
		return ataCreationBufferSec
	}
	if !exists {
		return ataCreationBufferSec
	}
	return 0
}

func (s *IntentStrategy) BuildTransaction(ctx context.Context, swap domain.CrossSwap, quote *domain.Quote) (*domain.UnsignedTx, error) {
	spokePool, ok := s.deps.Bridge.Intent.SpokePools[quote.InputToken.ChainID]
	if !ok {
		return nil, engcommon.NewInvalidParamError("no spoke pool deployed on chain %d", quote.InputToken.ChainID)
	}

	now := time.Now()
	data, err := packDepositV3(depositV3Params{
		Depositor:          ethcommon.HexToAddress(swap.Depositor),
		Recipient:          ethcommon.HexToAddress(swap.Recipient),
		InputToken:         ethcommon.HexToAddress(quote.InputToken.Address),
		OutputToken:        ethcommon.HexToAddress(quote.OutputToken.Address),
		InputAmount:        quote.InputAmount,
		OutputAmount:       quote.OutputAmount,
		DestinationChainID: new(big.Int).SetUint64(quote.OutputToken.ChainID),
		QuoteTimestamp:     uint32(now.Unix()),
		FillDeadline:       uint32(now.Add(fillDeadlineBuffer).Unix()),
	})
	if err != nil {
		return nil, err
	}

	value := big.NewInt(0)
	if quote.InputToken.Address == engcommon.NativeTokenAddress {
		value = new(big.Int).Set(quote.InputAmount)
	}

	return &domain.UnsignedTx{
		ChainID:   quote.InputToken.ChainID,
		From:      swap.Depositor,
		To:        spokePool,
		Data:      "0x" + ethcommon.Bytes2Hex(data),
		Value:     value,
		Ecosystem: domain.EcosystemEVM,
	}, nil
}

// usdToUnits converts a USD limit back into token base units using the
// price implied by (usdAmount, amount).
func usdToUnits(limitUsd float64, usdAmount float64, amount *big.Int) *big.Int {
	if usdAmount <= 0 {
		return big.NewInt(0)
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	unitsPerUsd := f / usdAmount
	out, _ := new(big.Float).Mul(big.NewFloat(limitUsd), big.NewFloat(unitsPerUsd)).Int(nil)
	return out
}
