package orderbook

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	engcommon "github.com/across-protocol/quote-engine/internal/common"
	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/domain"
	"github.com/across-protocol/quote-engine/internal/metrics"
)

const ORDER_BOOK_SIMULATOR_SERVICE = "order-book-simulator-service"

// Simulator prices forced conversions by walking a depth snapshot the way a
// market order would execute.
type Simulator struct {
	container.BaseDIInstance

	venueCfg *config.VenueConfig
	source   Source
}

func (svc *Simulator) ID() string {
	return ORDER_BOOK_SIMULATOR_SERVICE
}

func (svc *Simulator) Configure(c container.IContainer) error {
	svc.venueCfg = c.GetConfig(config.VENUE_CONFIG_KEY).(*config.VenueConfig)
	svc.source = c.Instance(ORDER_BOOK_CLIENT_SERVICE).(*Client)
	return nil
}

func (svc *Simulator) Start() error { return nil }
func (svc *Simulator) Stop() error  { return nil }

// NewSimulatorForTest wires a simulator directly, bypassing the container.
func NewSimulatorForTest(venueCfg *config.VenueConfig, source Source) *Simulator {
	return &Simulator{venueCfg: venueCfg, source: source}
}

// Simulate executes inputAmount of tokenIn against the pair's book and
// reports the realized execution. Prices are always quoted as quote-per-base
// regardless of direction.
func (svc *Simulator) Simulate(ctx context.Context, tokenIn, tokenOut string, inputAmount float64) (*domain.MarketOrderSimulationResult, error) {
	if inputAmount <= 0 {
		return nil, engcommon.NewInvalidParamError("simulation input must be positive, got %f", inputAmount)
	}

	pair, buyingBase, found := svc.venueCfg.Resolve(tokenIn, tokenOut)
	if !found {
		return nil, &engcommon.LiquidityUnavailableError{
			TokenIn:  tokenIn,
			TokenOut: tokenOut,
			Cause:    engcommon.ErrPairNotConfigured,
		}
	}

	book, err := svc.source.FetchOrderBook(ctx, pair.VenueID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order book for %s: %w", pair.VenueID, err)
	}

	side := book.Bids
	if buyingBase {
		side = book.Asks
	}
	if len(side) == 0 {
		return nil, &engcommon.LiquidityUnavailableError{
			TokenIn:  tokenIn,
			TokenOut: tokenOut,
			Cause:    engcommon.ErrNoLiquidity,
		}
	}

	result := walkSide(side, buyingBase, inputAmount)

	metrics.OrderBookLevelsConsumed.Observe(float64(result.LevelsConsumed))
	metrics.SimulatedSlippage.Observe(result.SlippagePercent * 100)
	log.Debug().
		Str("venue", pair.VenueID).
		Bool("buyingBase", buyingBase).
		Float64("in", result.InputAmount).
		Float64("out", result.OutputAmount).
		Int("levels", result.LevelsConsumed).
		Msg("[orderBook] simulated market order")

	return result, nil
}

// walkSide consumes depth levels in their natural order. When buying the
// base, input is quote currency and asks are walked ascending; when selling,
// input is base and bids are walked descending.
func walkSide(side []domain.OrderBookLevel, buyingBase bool, inputAmount float64) *domain.MarketOrderSimulationResult {
	bestPrice := side[0].Price

	remaining := inputAmount
	filledOut := 0.0
	levels := 0

	for _, level := range side {
		if remaining <= 0 {
			break
		}
		levels++

		if buyingBase {
			cost := level.Price * level.Size
			if remaining >= cost {
				remaining -= cost
				filledOut += level.Size
				continue
			}
			filledOut += remaining / level.Price
			remaining = 0
		} else {
			if remaining >= level.Size {
				remaining -= level.Size
				filledOut += level.Size * level.Price
				continue
			}
			filledOut += remaining * level.Price
			remaining = 0
		}
	}

	consumed := inputAmount - remaining

	var avgPrice, slippagePct float64
	if filledOut > 0 {
		if buyingBase {
			avgPrice = consumed / filledOut
			slippagePct = (avgPrice - bestPrice) / bestPrice * 100
		} else {
			avgPrice = filledOut / consumed
			slippagePct = (bestPrice - avgPrice) / bestPrice * 100
		}
	}

	return &domain.MarketOrderSimulationResult{
		AverageExecutionPrice: avgPrice,
		InputAmount:           consumed,
		OutputAmount:          filledOut,
		SlippagePercent:       slippagePct,
		BestPrice:             bestPrice,
		LevelsConsumed:        levels,
		FullyFilled:           remaining == 0,
	}
}
