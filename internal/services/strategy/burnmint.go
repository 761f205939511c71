package strategy

import (
	"context"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	engcommon "github.com/across-protocol/quote-engine/internal/common"
	"github.com/across-protocol/quote-engine/internal/domain"
	"github.com/across-protocol/quote-engine/internal/services/convert"
)

// cctpDomains maps chain IDs to the burn-mint protocol's domain identifiers.
var cctpDomains = map[uint64]uint32{
	domain.ChainIDEthereum: 0,
	domain.ChainIDOptimism: 2,
	domain.ChainIDArbitrum: 3,
	domain.ChainIDBase:     6,
	domain.ChainIDPolygon:  7,
}

// BurnMintStrategy quotes and builds transfers for the burn-and-mint
// stablecoin protocol: burn on origin, mint on destination once the message
// is attested.
type BurnMintStrategy struct {
	deps Deps
}

func NewBurnMintStrategy(deps Deps) *BurnMintStrategy {
	return &BurnMintStrategy{deps: deps}
}

func (s *BurnMintStrategy) Kind() domain.ProviderKind {
	return domain.ProviderBurnMint
}

func (s *BurnMintStrategy) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		Ecosystems: []domain.Ecosystem{domain.EcosystemEVM},
		SwapTypes:  []domain.SwapType{domain.SwapTypeBridgeableToBridgeable},
	}
}

func (s *BurnMintStrategy) IsRouteSupported(inputToken, outputToken domain.Token) bool {
	cfg := s.deps.Bridge.BurnMint
	if inputToken.Symbol != cfg.Symbol || outputToken.Symbol != cfg.Symbol {
		return false
	}
	if !containsUint64(cfg.DestChains, outputToken.ChainID) {
		return false
	}
	if _, ok := cfg.TokenMessengers[inputToken.ChainID]; !ok {
		return false
	}
	_, hasDomain := cctpDomains[outputToken.ChainID]
	return hasDomain
}

func (s *BurnMintStrategy) CrossSwapTypes(inputToken, outputToken domain.Token) []domain.SwapType {
	if !s.IsRouteSupported(inputToken, outputToken) {
		return nil
	}
	return []domain.SwapType{domain.SwapTypeBridgeableToBridgeable}
}

func (s *BurnMintStrategy) QuoteExactInput(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	if !s.IsRouteSupported(req.InputToken, req.OutputToken) {
		return nil, engcommon.NewInvalidParamError("route %s(%d) -> %s(%d) is not supported by the burn-mint protocol",
			req.InputToken.Symbol, req.InputToken.ChainID, req.OutputToken.Symbol, req.OutputToken.ChainID)
	}

	fee := feeFromBps(req.Amount, s.deps.Bridge.BurnMint.TransferFeeBps)
	net := new(big.Int).Sub(req.Amount, fee)
	if net.Sign() <= 0 {
		return nil, engcommon.NewInvalidParamError("input %s is below the transfer fee", req.Amount)
	}

	output := convert.Rescale(net, req.InputToken.Decimals, req.OutputToken.Decimals)

	usdAmount := s.deps.usdValue(ctx, req.InputToken, req.Amount)
	fillTime := s.deps.FillTime.Estimate(req.InputToken.ChainID, req.OutputToken.ChainID, req.InputToken.Symbol, usdAmount)

	return &domain.Quote{
		InputToken:           req.InputToken,
		OutputToken:          req.OutputToken,
		InputAmount:          new(big.Int).Set(req.Amount),
		OutputAmount:         output,
		MinOutputAmount:      new(big.Int).Set(output),
		EstimatedFillTimeSec: fillTime,
		Provider:             domain.ProviderBurnMint,
	}, nil
}

func (s *BurnMintStrategy) QuoteForOutput(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	floorInInputDec := convert.RescaleCeil(req.Amount, req.OutputToken.Decimals, req.InputToken.Decimals)
	input := grossUpForBps(floorInInputDec, s.deps.Bridge.BurnMint.TransferFeeBps)

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

func (s *BurnMintStrategy) BuildTransaction(ctx context.Context, swap domain.CrossSwap, quote *domain.Quote) (*domain.UnsignedTx, error) {
	messenger, ok := s.deps.Bridge.BurnMint.TokenMessengers[quote.InputToken.ChainID]
	if !ok {
		return nil, engcommon.NewInvalidParamError("no token messenger deployed on chain %d", quote.InputToken.ChainID)
	}
	destDomain, ok := cctpDomains[quote.OutputToken.ChainID]
	if !ok {
		return nil, engcommon.NewInvalidParamError("chain %d has no burn-mint domain", quote.OutputToken.ChainID)
	}

	data, err := packDepositForBurn(
		quote.InputAmount,
		destDomain,
		ethcommon.HexToAddress(swap.Recipient),
		ethcommon.HexToAddress(quote.InputToken.Address),
	)
	if err != nil {
		return nil, err
	}

	return &domain.UnsignedTx{
		ChainID:   quote.InputToken.ChainID,
		From:      swap.Depositor,
		To:        messenger,
		Data:      "0x" + ethcommon.Bytes2Hex(data),
		Value:     big.NewInt(0),
		Ecosystem: domain.EcosystemEVM,
	}, nil
}
