package strategy

import (
	"context"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	engcommon "github.com/across-protocol/quote-engine/internal/common"
	"github.com/across-protocol/quote-engine/internal/domain"
	"github.com/across-protocol/quote-engine/internal/services/convert"
)

// layerZeroEids maps chain IDs to the messaging layer's endpoint IDs.
var layerZeroEids = map[uint64]uint32{
	domain.ChainIDEthereum: 30101,
	domain.ChainIDOptimism: 30111,
	domain.ChainIDPolygon:  30109,
	domain.ChainIDBase:     30184,
	domain.ChainIDArbitrum: 30110,
	domain.ChainIDHyperEVM: 30367,
}

// OmnichainStrategy quotes and builds transfers over the message-passing
// protocol. Amounts are truncated to the token's shared decimals before
// sending; the destination can only credit multiples of that granularity.
type OmnichainStrategy struct {
	deps Deps
}

func NewOmnichainStrategy(deps Deps) *OmnichainStrategy {
	return &OmnichainStrategy{deps: deps}
}

func (s *OmnichainStrategy) Kind() domain.ProviderKind {
	return domain.ProviderOmnichain
}

func (s *OmnichainStrategy) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		Ecosystems: []domain.Ecosystem{domain.EcosystemEVM},
		SwapTypes:  []domain.SwapType{domain.SwapTypeBridgeableToBridgeable},
	}
}

func (s *OmnichainStrategy) handler(chainID uint64, symbol string) (string, bool) {
	handlers, ok := s.deps.Bridge.Omnichain.Handlers[chainID]
	if !ok {
		return "", false
	}
	addr, ok := handlers[symbol]
	return addr, ok
}

func (s *OmnichainStrategy) IsRouteSupported(inputToken, outputToken domain.Token) bool {
	cfg := s.deps.Bridge.Omnichain
	if inputToken.Symbol != outputToken.Symbol {
		return false
	}
	if !containsSymbol(cfg.SupportedSymbols, inputToken.Symbol) {
		return false
	}
	if !containsUint64(cfg.DestChains, outputToken.ChainID) {
		return false
	}
	if _, ok := s.handler(inputToken.ChainID, inputToken.Symbol); !ok {
		return false
	}
	_, hasEid := layerZeroEids[outputToken.ChainID]
	return hasEid || outputToken.ChainID == domain.ChainIDHyperCore
}

func (s *OmnichainStrategy) CrossSwapTypes(inputToken, outputToken domain.Token) []domain.SwapType {
	if !s.IsRouteSupported(inputToken, outputToken) {
		return nil
	}
	return []domain.SwapType{domain.SwapTypeBridgeableToBridgeable}
}

func (s *OmnichainStrategy) sharedDecimals(symbol string) uint8 {
	if dec, ok := s.deps.Bridge.Omnichain.SharedDecimals[symbol]; ok {
		return dec
	}
	return 6
}

func (s *OmnichainStrategy) QuoteExactInput(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	if !s.IsRouteSupported(req.InputToken, req.OutputToken) {
		return nil, engcommon.NewInvalidParamError("route %s(%d) -> %s(%d) is not supported by the omnichain protocol",
			req.InputToken.Symbol, req.InputToken.ChainID, req.OutputToken.Symbol, req.OutputToken.ChainID)
	}

	shared := s.sharedDecimals(req.InputToken.Symbol)
	// Dust below the shared granularity never leaves the origin chain.
	sendable := convert.TruncateToSharedDecimals(req.Amount, req.InputToken.Decimals, shared)
	if sendable.Sign() <= 0 {
		return nil, engcommon.NewInvalidParamError("input %s truncates to zero at %d shared decimals", req.Amount, shared)
	}

	output := convert.Rescale(sendable, req.InputToken.Decimals, req.OutputToken.Decimals)

	fillTime := s.deps.FillTime.EstimateMessagePassing(ctx, req.InputToken.ChainID, req.OutputToken.ChainID, req.InputToken)

	return &domain.Quote{
		InputToken:           req.InputToken,
		OutputToken:          req.OutputToken,
		InputAmount:          sendable,
		OutputAmount:         output,
		MinOutputAmount:      new(big.Int).Set(output),
		EstimatedFillTimeSec: fillTime,
		Provider:             domain.ProviderOmnichain,
	}, nil
}

func (s *OmnichainStrategy) QuoteForOutput(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	shared := s.sharedDecimals(req.InputToken.Symbol)

	// The deliverable floor is the requested minimum truncated to shared
	// granularity: the protocol cannot deliver the dust below it, so
	// demanding the raw minimum would reject every quote whose floor is not
	// already aligned.
	floorInInputDec := convert.Rescale(req.Amount, req.OutputToken.Decimals, req.InputToken.Decimals)
	alignedFloor := convert.TruncateToSharedDecimals(floorInInputDec, req.InputToken.Decimals, shared)

	// Round the input up to the next shared-granularity step covering the floor.
	input := alignedFloor
	if alignedFloor.Cmp(floorInInputDec) < 0 {
		step := convert.SharedDecimalsStep(req.InputToken.Decimals, shared)
		input = new(big.Int).Add(alignedFloor, step)
	}

	exactReq := req
	exactReq.Amount = input
	quote, err := s.QuoteExactInput(ctx, exactReq)
	if err != nil {
		return nil, err
	}

	floorInOutputDec := convert.Rescale(alignedFloor, req.InputToken.Decimals, req.OutputToken.Decimals)
	if err := assertOutputFloor(quote.OutputAmount, floorInOutputDec); err != nil {
		return nil, err
	}
	return quote, nil
}

func (s *OmnichainStrategy) BuildTransaction(ctx context.Context, swap domain.CrossSwap, quote *domain.Quote) (*domain.UnsignedTx, error) {
	handlerAddr, ok := s.handler(quote.InputToken.ChainID, quote.InputToken.Symbol)
	if !ok {
		return nil, engcommon.NewInvalidParamError("no omnichain handler for %s on chain %d",
			quote.InputToken.Symbol, quote.InputToken.ChainID)
	}

	// HyperCore credits ride the HyperEVM endpoint with a composed delivery.
	dstChain := quote.OutputToken.ChainID
	if dstChain == domain.ChainIDHyperCore {
		dstChain = domain.ChainIDHyperEVM
	}
	eid, ok := layerZeroEids[dstChain]
	if !ok {
		return nil, engcommon.NewInvalidParamError("chain %d has no messaging endpoint", dstChain)
	}

	nativeFee := s.deps.Bridge.OmnichainNativeFee()
	data, err := packOFTSend(oftSendParam{
		DstEid:       eid,
		To:           addressToBytes32(ethcommon.HexToAddress(swap.Recipient)),
		AmountLD:     quote.InputAmount,
		MinAmountLD:  quote.InputAmount,
		ExtraOptions: []byte{},
		ComposeMsg:   []byte{},
		OftCmd:       []byte{},
	}, nativeFee, ethcommon.HexToAddress(swap.Depositor))
	if err != nil {
		return nil, err
	}

	return &domain.UnsignedTx{
		ChainID:   quote.InputToken.ChainID,
		From:      swap.Depositor,
		To:        handlerAddr,
		Data:      "0x" + ethcommon.Bytes2Hex(data),
		Value:     nativeFee,
		Ecosystem: domain.EcosystemEVM,
	}, nil
}
