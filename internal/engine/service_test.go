package engine

import (
	"context"
	"errors"
	"math"
	"math/big"
	"strings"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/across-protocol/quote-engine/internal/chain"
	engcommon "github.com/across-protocol/quote-engine/internal/common"
	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/domain"
	"github.com/across-protocol/quote-engine/internal/services/balance"
	"github.com/across-protocol/quote-engine/internal/services/fees"
	"github.com/across-protocol/quote-engine/internal/services/orderbook"
	"github.com/across-protocol/quote-engine/internal/services/price"
	"github.com/across-protocol/quote-engine/internal/services/sponsorship"
	"github.com/across-protocol/quote-engine/internal/services/strategy"
)

type stubPriceSource struct {
	name   string
	prices map[string]float64
}

func (s *stubPriceSource) Name() string { return s.name }

func (s *stubPriceSource) UnitPriceUsd(_ context.Context, symbol string) (float64, error) {
	p, ok := s.prices[strings.ToUpper(symbol)]
	if !ok {
		return 0, errors.New("unknown symbol")
	}
	return p, nil
}

type stubFillTime struct{}

func (stubFillTime) Estimate(uint64, uint64, string, float64) int64 { return 12 }
func (stubFillTime) EstimateMessagePassing(context.Context, uint64, uint64, domain.Token) int64 {
	return 30
}

// stubCaller answers every batched balance call with a fixed balance.
type stubCaller struct {
	balance *big.Int
}

func (s *stubCaller) CallContract(context.Context, uint64, ethcommon.Address, []byte) ([]byte, error) {
	return nil, errors.New("unexpected direct call")
}

func (s *stubCaller) Aggregate3(_ context.Context, _ uint64, calls []chain.Call3) ([]chain.Call3Result, error) {
	results := make([]chain.Call3Result, len(calls))
	for i := range calls {
		word := make([]byte, 32)
		s.balance.FillBytes(word)
		results[i] = chain.Call3Result{Success: true, ReturnData: word}
	}
	return results, nil
}

func (s *stubCaller) EstimateGas(context.Context, uint64, ethcommon.Address, ethcommon.Address, *big.Int, []byte) (uint64, error) {
	return 21000, nil
}

type stubCounters struct {
	err error
}

func (s *stubCounters) FetchDailyCounters(context.Context, string, string) (*sponsorship.DailyCounters, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &sponsorship.DailyCounters{
		GlobalSponsored: big.NewInt(0),
		UserSponsored:   big.NewInt(0),
		Activations:     0,
	}, nil
}

type stubBook struct {
	book *domain.OrderBook
}

func (s *stubBook) FetchOrderBook(_ context.Context, venueID string) (*domain.OrderBook, error) {
	if s.book == nil {
		return nil, errors.New("no book")
	}
	b := *s.book
	b.VenueID = venueID
	return &b, nil
}

type testEnv struct {
	engine   *Service
	counters *stubCounters
	caller   *stubCaller
	book     *stubBook
	prices   map[string]float64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	bridge := &config.BridgeConfig{}
	if err := bridge.Load(); err != nil {
		t.Fatal(err)
	}
	tokens := &config.TokensConfig{}
	if err := tokens.Load(); err != nil {
		t.Fatal(err)
	}
	sponsCfg := &config.SponsorshipConfig{}
	if err := sponsCfg.Load(); err != nil {
		t.Fatal(err)
	}
	venueCfg := &config.VenueConfig{}
	if err := venueCfg.Load(); err != nil {
		t.Fatal(err)
	}
	chains := &config.ChainsConfig{Chains: map[uint64]config.ChainConfig{
		domain.ChainIDEthereum:  {ChainID: domain.ChainIDEthereum, Ecosystem: domain.EcosystemEVM, Class: config.ChainClassHub, BlockTimeSec: 12, Confirmations: 2, NativeSymbol: "ETH", NativeDecimals: 18},
		domain.ChainIDBase:      {ChainID: domain.ChainIDBase, Ecosystem: domain.EcosystemEVM, Class: config.ChainClassRollup, BlockTimeSec: 2, Confirmations: 1, NativeSymbol: "ETH", NativeDecimals: 18},
		domain.ChainIDHyperEVM:  {ChainID: domain.ChainIDHyperEVM, Ecosystem: domain.EcosystemEVM, Class: config.ChainClassOther, BlockTimeSec: 1, Confirmations: 1, NativeSymbol: "HYPE", NativeDecimals: 18},
		domain.ChainIDHyperCore: {ChainID: domain.ChainIDHyperCore, Ecosystem: domain.EcosystemEVM, Class: config.ChainClassOther, BlockTimeSec: 1, Confirmations: 1, NativeSymbol: "HYPE", NativeDecimals: 18},
	}}

	prices := map[string]float64{"USDC": 1, "USDT": 1, "ETH": 3000, "WETH": 3000, "HYPE": 40, "SOL": 150}
	priceSvc := price.NewServiceForTest(
		&stubPriceSource{name: "primary", prices: prices},
		&stubPriceSource{name: "fallback", prices: prices},
		time.Minute,
	)

	caller := &stubCaller{balance: new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1_000_000))}
	balances := balance.NewServiceForTest(caller, time.Millisecond, time.Minute)

	counters := &stubCounters{}
	book := &stubBook{}

	registry := strategy.NewRegistryForTest(strategy.Deps{
		Chains:   chains,
		Tokens:   tokens,
		Bridge:   bridge,
		FillTime: stubFillTime{},
		Prices:   priceSvc,
	})

	eng := NewServiceForTest(EngineDeps{
		Registry:       registry,
		Fees:           fees.NewServiceForTest(priceSvc, chains),
		Sponsorship:    sponsorship.NewServiceForTest(sponsCfg, tokens, counters, balances),
		Simulator:      orderbook.NewSimulatorForTest(venueCfg, book),
		Prices:         priceSvc,
		Balances:       balances,
		Bridge:         bridge,
		Tokens:         tokens,
		Chains:         chains,
		SponsorshipCfg: sponsCfg,
	})

	return &testEnv{engine: eng, counters: counters, caller: caller, book: book, prices: prices}
}

func token(t *testing.T, env *testEnv, chainID uint64, symbol string) domain.Token {
	t.Helper()
	tok, ok := env.engine.tokensCfg.BySymbol(chainID, symbol)
	if !ok {
		t.Fatalf("token %s not registered on chain %d", symbol, chainID)
	}
	return tok
}

func TestQuoteRanksEligibleProviders(t *testing.T) {
	env := newTestEnv(t)

	set, err := env.engine.Quote(context.Background(), domain.CrossSwap{
		InputToken:  token(t, env, domain.ChainIDEthereum, "USDC"),
		OutputToken: token(t, env, domain.ChainIDBase, "USDC"),
		Amount:      big.NewInt(1_000_000_000),
		Depositor:   "0x2222222222222222222222222222222222222222",
		Recipient:   "0x1111111111111111111111111111111111111111",
	}, TradeExactInput)
	if err != nil {
		t.Fatal(err)
	}

	// Intent, burn-mint and the sponsored burn-mint variant all service the pair.
	if len(set.Quotes) != 3 {
		t.Fatalf("got %d quotes, want 3", len(set.Quotes))
	}

	best := set.Best()
	// The fee-less burn-mint variants deliver the full amount; intent deducts 4 bps.
	if best.Quote.MinOutputAmount.Int64() != 1_000_000_000 {
		t.Errorf("best min output = %s, want the full 1000 USDC", best.Quote.MinOutputAmount)
	}
	for i := 1; i < len(set.Quotes); i++ {
		if set.Quotes[i-1].Quote.MinOutputAmount.Cmp(set.Quotes[i].Quote.MinOutputAmount) < 0 {
			t.Error("quotes are not sorted best output first")
		}
	}

	if best.Quote.Fees == nil {
		t.Error("fee breakdown missing on a fully priced route")
	}

	var sponsoredSeen bool
	for _, q := range set.Quotes {
		if q.Quote.Provider == domain.ProviderBurnMintSponsored {
			sponsoredSeen = true
			if q.SponsorshipFlags == nil || !q.SponsorshipFlags.Sponsored() {
				t.Error("sponsored quote missing its limit flags")
			}
		}
	}
	if !sponsoredSeen {
		t.Error("sponsored variant missing from an eligible pair")
	}
}

func TestQuoteAbortsWhenAnyStrategyFails(t *testing.T) {
	env := newTestEnv(t)

	// 3M USDC clears the deposit ceiling but exceeds intent relayer capacity;
	// one strategy failing must abort the whole request.
	_, err := env.engine.Quote(context.Background(), domain.CrossSwap{
		InputToken:  token(t, env, domain.ChainIDEthereum, "USDC"),
		OutputToken: token(t, env, domain.ChainIDBase, "USDC"),
		Amount:      big.NewInt(3_000_000_000_000),
	}, TradeExactInput)

	var tooHigh *engcommon.AmountTooHighError
	if !errors.As(err, &tooHigh) {
		t.Fatalf("expected AmountTooHighError, got %v", err)
	}
}

func TestQuoteEnforcesDepositBounds(t *testing.T) {
	env := newTestEnv(t)
	in := token(t, env, domain.ChainIDEthereum, "USDC")
	out := token(t, env, domain.ChainIDBase, "USDC")

	_, err := env.engine.Quote(context.Background(), domain.CrossSwap{
		InputToken: in, OutputToken: out, Amount: big.NewInt(500_000),
	}, TradeExactInput)
	var invalid *engcommon.InvalidParamError
	if !errors.As(err, &invalid) {
		t.Errorf("0.50 USD deposit: expected InvalidParamError, got %v", err)
	}

	_, err = env.engine.Quote(context.Background(), domain.CrossSwap{
		InputToken: in, OutputToken: out, Amount: big.NewInt(6_000_000_000_000),
	}, TradeExactInput)
	var tooHigh *engcommon.AmountTooHighError
	if !errors.As(err, &tooHigh) {
		t.Errorf("6M USD deposit: expected AmountTooHighError, got %v", err)
	}
}

func TestQuoteSettlesThroughVenue(t *testing.T) {
	env := newTestEnv(t)
	env.book.book = &domain.OrderBook{
		Bids: []domain.OrderBookLevel{{Price: 1.0, Size: 10_000, Count: 3}},
		Asks: []domain.OrderBookLevel{{Price: 1.0002, Size: 10_000, Count: 2}},
	}

	set, err := env.engine.Quote(context.Background(), domain.CrossSwap{
		InputToken:  token(t, env, domain.ChainIDEthereum, "USDT"),
		OutputToken: token(t, env, domain.ChainIDHyperCore, "USDC"),
		Amount:      big.NewInt(1_000_000_000), // 1000 USDT
	}, TradeExactInput)
	if err != nil {
		t.Fatal(err)
	}

	best := set.Best()
	if best.Quote.OutputToken.Symbol != "USDC" || best.Quote.OutputToken.ChainID != domain.ChainIDHyperCore {
		t.Fatalf("best output token = %s(%d), want venue USDC", best.Quote.OutputToken.Symbol, best.Quote.OutputToken.ChainID)
	}

	// Omnichain bridges the full 1000 USDT; the venue sells it at 1.0 into
	// 1000 USDC at the venue's 8 decimals.
	want := new(big.Int).Mul(big.NewInt(1000), pow10(8))
	if best.Quote.OutputAmount.Cmp(want) != 0 {
		t.Errorf("output = %s, want %s", best.Quote.OutputAmount, want)
	}
	if best.VenueSlippagePct != 0 {
		t.Errorf("slippage = %f, want 0 for a single-level fill at best price", best.VenueSlippagePct)
	}
}

func TestQuoteVenueLiquidityExhaustedFailsRoute(t *testing.T) {
	env := newTestEnv(t)
	env.book.book = &domain.OrderBook{
		Bids: []domain.OrderBookLevel{{Price: 1.0, Size: 1, Count: 1}},
		Asks: []domain.OrderBookLevel{{Price: 1.0002, Size: 1, Count: 1}},
	}

	_, err := env.engine.Quote(context.Background(), domain.CrossSwap{
		InputToken:  token(t, env, domain.ChainIDEthereum, "USDT"),
		OutputToken: token(t, env, domain.ChainIDHyperCore, "USDC"),
		Amount:      big.NewInt(1_000_000_000),
	}, TradeExactInput)

	if !errors.Is(err, engcommon.ErrNoLiquidity) {
		t.Fatalf("expected liquidity error, got %v", err)
	}
}

func TestQuoteSkipsSponsoredWhenIndexerDown(t *testing.T) {
	env := newTestEnv(t)
	env.counters.err = errors.New("indexer unreachable")

	set, err := env.engine.Quote(context.Background(), domain.CrossSwap{
		InputToken:  token(t, env, domain.ChainIDEthereum, "USDC"),
		OutputToken: token(t, env, domain.ChainIDBase, "USDC"),
		Amount:      big.NewInt(1_000_000_000),
	}, TradeExactInput)
	if err != nil {
		t.Fatal(err)
	}

	for _, q := range set.Quotes {
		if q.Quote.Provider.Sponsored() {
			t.Errorf("sponsored quote %s produced while the indexer is down", q.Quote.Provider)
		}
	}
	if len(set.Quotes) != 2 {
		t.Errorf("got %d quotes, want the 2 unsponsored ones", len(set.Quotes))
	}
}

func TestBuildIntentTransaction(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.engine.Build(context.Background(), domain.CrossSwap{
		InputToken:  token(t, env, domain.ChainIDEthereum, "USDC"),
		OutputToken: token(t, env, domain.ChainIDBase, "USDC"),
		Amount:      big.NewInt(1_000_000_000),
		Depositor:   "0x2222222222222222222222222222222222222222",
		Recipient:   "0x1111111111111111111111111111111111111111",
	}, domain.ProviderIntent)
	if err != nil {
		t.Fatal(err)
	}

	if res.Tx.ChainID != domain.ChainIDEthereum {
		t.Errorf("tx chain = %d, want origin", res.Tx.ChainID)
	}
	if res.Approval == nil {
		t.Fatal("ERC-20 input must carry an approval payload")
	}
	if res.Approval.To != res.Quote.InputToken.Address {
		t.Errorf("approval targets %s, want the input token", res.Approval.To)
	}
	if !strings.HasPrefix(res.Approval.Data, "0x095ea7b3") {
		t.Errorf("approval calldata %q does not start with the approve selector", res.Approval.Data[:10])
	}
}

func TestBuildRejectsInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	env.caller.balance = big.NewInt(5) // far below the deposit

	_, err := env.engine.Build(context.Background(), domain.CrossSwap{
		InputToken:  token(t, env, domain.ChainIDEthereum, "USDC"),
		OutputToken: token(t, env, domain.ChainIDBase, "USDC"),
		Amount:      big.NewInt(1_000_000_000),
		Depositor:   "0x2222222222222222222222222222222222222222",
		Recipient:   "0x1111111111111111111111111111111111111111",
	}, domain.ProviderIntent)

	var tooHigh *engcommon.AmountTooHighError
	if !errors.As(err, &tooHigh) {
		t.Fatalf("expected AmountTooHighError, got %v", err)
	}
	if tooHigh.Limit.Int64() != 5 {
		t.Errorf("limit = %s, want the depositor's balance", tooHigh.Limit)
	}
}

func TestBuildSponsoredRequiresEligibility(t *testing.T) {
	env := newTestEnv(t)

	swap := domain.CrossSwap{
		InputToken:  token(t, env, domain.ChainIDEthereum, "USDC"),
		OutputToken: token(t, env, domain.ChainIDBase, "USDC"),
		Amount:      big.NewInt(1_000_000_000),
		Depositor:   "0x2222222222222222222222222222222222222222",
		Recipient:   "0x1111111111111111111111111111111111111111",
	}

	if _, err := env.engine.Build(context.Background(), swap, domain.ProviderBurnMintSponsored); err != nil {
		t.Fatalf("eligible sponsored build failed: %v", err)
	}

	withAppFee := swap
	withAppFee.AppFeePercent = 0.25
	if _, err := env.engine.Build(context.Background(), withAppFee, domain.ProviderBurnMintSponsored); err == nil {
		t.Error("expected rejection of an app fee on a sponsored build")
	}

	env.counters.err = errors.New("indexer unreachable")
	if _, err := env.engine.Build(context.Background(), swap, domain.ProviderBurnMintSponsored); err == nil {
		t.Error("expected failure when sponsorship limits cannot be verified at build time")
	}
}

func TestQuoteVenueRouteAttributesFees(t *testing.T) {
	env := newTestEnv(t)
	env.book.book = &domain.OrderBook{
		Bids: []domain.OrderBookLevel{{Price: 39.98, Size: 10_000, Count: 2}},
		Asks: []domain.OrderBookLevel{{Price: 40.0, Size: 10_000, Count: 2}},
	}

	set, err := env.engine.Quote(context.Background(), domain.CrossSwap{
		InputToken:  token(t, env, domain.ChainIDEthereum, "USDC"),
		OutputToken: token(t, env, domain.ChainIDHyperCore, "HYPE"),
		Amount:      big.NewInt(1_000_000_000), // 1000 USDC
	}, TradeExactInput)
	if err != nil {
		t.Fatal(err)
	}

	swapFees := set.Best().Quote.Fees
	if swapFees == nil {
		t.Fatal("fee breakdown missing on a fully priced venue route")
	}
	// The protocol fee is the bridge leg's 4 bps of 1000 USDC, ~0.40 USD.
	// Differencing the input against the settled HYPE output instead would
	// book the whole venue swap (~975 USD of asset change) as a bridge fee.
	if swapFees.BridgeFee.AmountUsd < 0.35 || swapFees.BridgeFee.AmountUsd > 0.45 {
		t.Errorf("bridge fee = %.4f USD, want ~0.40", swapFees.BridgeFee.AmountUsd)
	}
	if math.Abs(swapFees.SwapImpact.AmountUsd) > 0.05 {
		t.Errorf("swap impact = %.4f USD, want ~0 for a single-level fill at best price", swapFees.SwapImpact.AmountUsd)
	}
}

func TestBuildVenueSettledRoutePacksBridgeLeg(t *testing.T) {
	env := newTestEnv(t)
	env.book.book = &domain.OrderBook{
		Bids: []domain.OrderBookLevel{{Price: 39.98, Size: 10_000, Count: 2}},
		Asks: []domain.OrderBookLevel{{Price: 40.0, Size: 10_000, Count: 2}},
	}

	res, err := env.engine.Build(context.Background(), domain.CrossSwap{
		InputToken:  token(t, env, domain.ChainIDEthereum, "USDC"),
		OutputToken: token(t, env, domain.ChainIDHyperCore, "HYPE"),
		Amount:      big.NewInt(1_000_000_000), // 1000 USDC
		Depositor:   "0x2222222222222222222222222222222222222222",
		Recipient:   "0x1111111111111111111111111111111111111111",
	}, domain.ProviderIntent)
	if err != nil {
		t.Fatal(err)
	}

	// The displayed quote is the venue-settled output.
	if res.Quote.OutputToken.Symbol != "HYPE" || res.Quote.OutputToken.ChainID != domain.ChainIDHyperCore {
		t.Fatalf("quote output = %s(%d), want venue HYPE", res.Quote.OutputToken.Symbol, res.Quote.OutputToken.ChainID)
	}

	// The deposit itself executes the bridge leg: 999.6 USDC delivered at the
	// venue chain's 8 decimals. The settled HYPE amount must not leak into
	// the calldata.
	bridgeWord := make([]byte, 32)
	big.NewInt(99_960_000_000).FillBytes(bridgeWord)
	if !strings.Contains(res.Tx.Data, ethcommon.Bytes2Hex(bridgeWord)) {
		t.Errorf("calldata does not carry the bridge leg output amount")
	}
	settledWord := make([]byte, 32)
	res.Quote.OutputAmount.FillBytes(settledWord)
	if strings.Contains(res.Tx.Data, ethcommon.Bytes2Hex(settledWord)) {
		t.Errorf("calldata carries the venue-settled amount %s", res.Quote.OutputAmount)
	}

	if res.Approval == nil {
		t.Fatal("ERC-20 input must carry an approval payload")
	}
	if res.Approval.To != res.Quote.InputToken.Address {
		t.Errorf("approval targets %s, want the input token", res.Approval.To)
	}
}

func TestSponsorshipCoverageConvertsAcrossAssets(t *testing.T) {
	coverage := func(t *testing.T, env *testEnv) error {
		t.Helper()
		swap := domain.CrossSwap{InputToken: token(t, env, domain.ChainIDEthereum, "USDC")}
		res := &QuoteResult{
			Quote: &domain.Quote{
				OutputToken:     token(t, env, domain.ChainIDHyperCore, "HYPE"),
				MinOutputAmount: big.NewInt(2_500_000_000), // 25 HYPE at 40 USD
			},
			VenueSlippagePct: 0.25,
		}
		return env.engine.assertSponsorshipCoverage(context.Background(), swap, res)
	}

	// 25 bps of 25 HYPE is 0.0625 HYPE, 2.50 USD of reserve USDC. A 1 USDC
	// reserve would pass a decimals-only rescale but cannot actually cover it.
	short := newTestEnv(t)
	short.caller.balance = big.NewInt(1_000_000)
	var reserveErr *engcommon.DonationReserveInsufficientError
	if err := coverage(t, short); !errors.As(err, &reserveErr) {
		t.Fatalf("expected DonationReserveInsufficientError, got %v", err)
	}

	funded := newTestEnv(t)
	funded.caller.balance = big.NewInt(5_000_000)
	if err := coverage(t, funded); err != nil {
		t.Fatalf("covered sponsorship rejected: %v", err)
	}
}

func TestBuildFailsWhenInputUnpriced(t *testing.T) {
	env := newTestEnv(t)
	delete(env.prices, "WETH")

	swap := domain.CrossSwap{
		InputToken:  token(t, env, domain.ChainIDEthereum, "WETH"),
		OutputToken: token(t, env, domain.ChainIDBase, "WETH"),
		Amount:      big.NewInt(1_000_000_000_000_000_000), // 1 WETH
		Depositor:   "0x2222222222222222222222222222222222222222",
		Recipient:   "0x1111111111111111111111111111111111111111",
	}

	// Build-time USD guards cannot run without a price, so building fails.
	_, err := env.engine.Build(context.Background(), swap, domain.ProviderIntent)
	if err == nil || !strings.Contains(err.Error(), "failed to price") {
		t.Fatalf("expected a pricing failure, got %v", err)
	}

	// Quoting the same route still works, just without the USD breakdown.
	set, err := env.engine.Quote(context.Background(), swap, TradeExactInput)
	if err != nil {
		t.Fatal(err)
	}
	if set.Best().Quote.Fees != nil {
		t.Error("fee breakdown produced without a price for the input")
	}
}

func TestRoutesAndLimits(t *testing.T) {
	env := newTestEnv(t)
	in := token(t, env, domain.ChainIDEthereum, "USDC")
	out := token(t, env, domain.ChainIDBase, "USDC")

	routes := env.engine.Routes(in, out)
	if len(routes) != 3 {
		t.Fatalf("got %d routes, want 3", len(routes))
	}
	for _, r := range routes {
		if len(r.SwapTypes) == 0 {
			t.Errorf("route %s reports no swap types", r.Provider)
		}
	}

	limits, err := env.engine.Limits(context.Background(), in, out)
	if err != nil {
		t.Fatal(err)
	}
	// 1 USD floor at a 1.00 price in 6 decimals.
	if limits.MinDeposit.Int64() != 1_000_000 {
		t.Errorf("min deposit = %s, want 1000000", limits.MinDeposit)
	}
	// Intent relayer capacity (2M USD) undercuts the 5M global ceiling.
	if limits.MaxDeposit.Cmp(new(big.Int).Mul(big.NewInt(2_000_000), pow10(6))) != 0 {
		t.Errorf("max deposit = %s, want the relayer capacity", limits.MaxDeposit)
	}
}
