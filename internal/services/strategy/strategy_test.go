package strategy

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	engcommon "github.com/across-protocol/quote-engine/internal/common"
	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/domain"
)

type stubFillTime struct{}

func (stubFillTime) Estimate(uint64, uint64, string, float64) int64 { return 12 }
func (stubFillTime) EstimateMessagePassing(context.Context, uint64, uint64, domain.Token) int64 {
	return 30
}

type stubPrices struct {
	prices map[string]float64
	calls  int
}

func (s *stubPrices) UnitPriceUsd(_ context.Context, symbol string) (float64, error) {
	s.calls++
	return s.prices[symbol], nil
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	bridge := &config.BridgeConfig{}
	if err := bridge.Load(); err != nil {
		t.Fatal(err)
	}
	tokens := &config.TokensConfig{}
	if err := tokens.Load(); err != nil {
		t.Fatal(err)
	}
	chains := &config.ChainsConfig{Chains: map[uint64]config.ChainConfig{
		domain.ChainIDEthereum: {ChainID: domain.ChainIDEthereum, Ecosystem: domain.EcosystemEVM, Class: config.ChainClassHub, BlockTimeSec: 12, Confirmations: 2, NativeSymbol: "ETH", NativeDecimals: 18},
		domain.ChainIDBase:     {ChainID: domain.ChainIDBase, Ecosystem: domain.EcosystemEVM, Class: config.ChainClassRollup, BlockTimeSec: 2, Confirmations: 1, NativeSymbol: "ETH", NativeDecimals: 18},
		domain.ChainIDArbitrum: {ChainID: domain.ChainIDArbitrum, Ecosystem: domain.EcosystemEVM, Class: config.ChainClassRollup, BlockTimeSec: 0.25, Confirmations: 1, NativeSymbol: "ETH", NativeDecimals: 18},
		domain.ChainIDHyperEVM: {ChainID: domain.ChainIDHyperEVM, Ecosystem: domain.EcosystemEVM, Class: config.ChainClassOther, BlockTimeSec: 1, Confirmations: 1, NativeSymbol: "HYPE", NativeDecimals: 18},
		domain.ChainIDSolana:   {ChainID: domain.ChainIDSolana, Ecosystem: domain.EcosystemSVM, Class: config.ChainClassOther, BlockTimeSec: 0.4, Confirmations: 32, NativeSymbol: "SOL", NativeDecimals: 9},
	}}
	return Deps{
		Chains:   chains,
		Tokens:   tokens,
		Bridge:   bridge,
		FillTime: stubFillTime{},
		Prices:   &stubPrices{prices: map[string]float64{"USDC": 1, "USDT": 1, "WETH": 3000, "ETH": 3000}},
	}
}

func mustToken(t *testing.T, tokens *config.TokensConfig, chainID uint64, symbol string) domain.Token {
	t.Helper()
	tok, ok := tokens.BySymbol(chainID, symbol)
	if !ok {
		t.Fatalf("token %s not registered on chain %d", symbol, chainID)
	}
	return tok
}

func TestRegistryCoversEveryKind(t *testing.T) {
	reg := NewRegistryForTest(testDeps(t))
	for _, kind := range domain.ProviderKinds() {
		s, ok := reg.ForKind(kind)
		if !ok {
			t.Fatalf("no strategy registered for kind %s", kind)
		}
		if s.Kind() != kind {
			t.Errorf("strategy for %s reports kind %s", kind, s.Kind())
		}
	}
}

func TestRouteEligibilityDeterministicAndOffline(t *testing.T) {
	deps := testDeps(t)
	prices := &stubPrices{prices: map[string]float64{}}
	deps.Prices = prices
	reg := NewRegistryForTest(deps)

	in := mustToken(t, deps.Tokens, domain.ChainIDEthereum, "USDC")
	out := mustToken(t, deps.Tokens, domain.ChainIDBase, "USDC")

	for _, kind := range domain.ProviderKinds() {
		s, _ := reg.ForKind(kind)
		first := s.IsRouteSupported(in, out)
		second := s.IsRouteSupported(in, out)
		if first != second {
			t.Errorf("%s: eligibility not deterministic", kind)
		}
	}
	if prices.calls != 0 {
		t.Errorf("eligibility checks performed %d price lookups, want 0", prices.calls)
	}
}

func TestIntentQuoteExactInput(t *testing.T) {
	deps := testDeps(t)
	s := NewIntentStrategy(deps)

	in := mustToken(t, deps.Tokens, domain.ChainIDEthereum, "USDC")
	out := mustToken(t, deps.Tokens, domain.ChainIDBase, "USDC")

	quote, err := s.QuoteExactInput(context.Background(), QuoteRequest{
		InputToken:  in,
		OutputToken: out,
		Amount:      big.NewInt(1_000_000_000), // 1000 USDC
		Recipient:   "0x1111111111111111111111111111111111111111",
		Depositor:   "0x2222222222222222222222222222222222222222",
	})
	if err != nil {
		t.Fatal(err)
	}

	// 4 bps total fee schedule on 1000 USDC = 0.4 USDC.
	if quote.OutputAmount.Int64() != 999_600_000 {
		t.Errorf("output = %s, want 999600000", quote.OutputAmount)
	}
	if quote.MinOutputAmount.Cmp(quote.OutputAmount) != 0 {
		t.Error("intent fills deliver exactly the quoted output")
	}
	if quote.Provider != domain.ProviderIntent {
		t.Errorf("provider = %s", quote.Provider)
	}
	if quote.EstimatedFillTimeSec != 12 {
		t.Errorf("fill time = %d, want 12", quote.EstimatedFillTimeSec)
	}
}

func TestIntentQuoteForOutputClearsFloor(t *testing.T) {
	deps := testDeps(t)
	s := NewIntentStrategy(deps)

	in := mustToken(t, deps.Tokens, domain.ChainIDEthereum, "USDC")
	out := mustToken(t, deps.Tokens, domain.ChainIDBase, "USDC")

	floor := big.NewInt(1_000_000_000)
	quote, err := s.QuoteForOutput(context.Background(), QuoteRequest{
		InputToken:  in,
		OutputToken: out,
		Amount:      floor,
	})
	if err != nil {
		t.Fatal(err)
	}
	if quote.OutputAmount.Cmp(floor) < 0 {
		t.Errorf("realized output %s below requested floor %s", quote.OutputAmount, floor)
	}
	if quote.InputAmount.Cmp(floor) <= 0 {
		t.Errorf("grossed-up input %s should exceed the floor", quote.InputAmount)
	}
}

func TestIntentQuoteForOutputClearsFloorAcrossDecimals(t *testing.T) {
	deps := testDeps(t)
	s := NewIntentStrategy(deps)

	in := mustToken(t, deps.Tokens, domain.ChainIDEthereum, "USDC")   // 6 decimals
	out := mustToken(t, deps.Tokens, domain.ChainIDHyperCore, "USDC") // 8 decimals

	// A floor off the 6-decimal input grid: converting it down must round up,
	// or every such floor is unreachable and the quote always rejects.
	floor := big.NewInt(1_000_000_050)
	quote, err := s.QuoteForOutput(context.Background(), QuoteRequest{
		InputToken:  in,
		OutputToken: out,
		Amount:      floor,
	})
	if err != nil {
		t.Fatal(err)
	}
	if quote.OutputAmount.Cmp(floor) < 0 {
		t.Errorf("realized output %s below requested floor %s", quote.OutputAmount, floor)
	}
}

func TestIntentRejectsOverCapacity(t *testing.T) {
	deps := testDeps(t)
	s := NewIntentStrategy(deps)

	in := mustToken(t, deps.Tokens, domain.ChainIDEthereum, "USDC")
	out := mustToken(t, deps.Tokens, domain.ChainIDBase, "USDC")

	// 3M USDC against a 2M USD relayer capacity.
	_, err := s.QuoteExactInput(context.Background(), QuoteRequest{
		InputToken:  in,
		OutputToken: out,
		Amount:      big.NewInt(3_000_000_000_000),
	})
	var tooHigh *engcommon.AmountTooHighError
	if !errors.As(err, &tooHigh) {
		t.Fatalf("expected AmountTooHighError, got %v", err)
	}
}

func TestOmnichainSameAssetNoTruncationNeeded(t *testing.T) {
	deps := testDeps(t)
	s := NewOmnichainStrategy(deps)

	in := mustToken(t, deps.Tokens, domain.ChainIDEthereum, "USDT")
	out := mustToken(t, deps.Tokens, domain.ChainIDArbitrum, "USDT")

	quote, err := s.QuoteExactInput(context.Background(), QuoteRequest{
		InputToken:  in,
		OutputToken: out,
		Amount:      big.NewInt(1000),
	})
	if err != nil {
		t.Fatal(err)
	}

	// 6-decimal input against 6 shared decimals: nothing to truncate.
	if quote.InputAmount.Int64() != 1000 {
		t.Errorf("input = %s, want 1000 unchanged", quote.InputAmount)
	}
	if quote.OutputAmount.Sign() <= 0 {
		t.Errorf("output = %s, want positive", quote.OutputAmount)
	}
	if quote.EstimatedFillTimeSec != 30 {
		t.Errorf("fill time = %d, want the message-passing model's 30", quote.EstimatedFillTimeSec)
	}
}

func TestOmnichainTruncatesToSharedDecimals(t *testing.T) {
	deps := testDeps(t)
	deps.Bridge.Omnichain.SharedDecimals["USDT"] = 4

	s := NewOmnichainStrategy(deps)
	in := mustToken(t, deps.Tokens, domain.ChainIDEthereum, "USDT")
	out := mustToken(t, deps.Tokens, domain.ChainIDArbitrum, "USDT")

	quote, err := s.QuoteExactInput(context.Background(), QuoteRequest{
		InputToken:  in,
		OutputToken: out,
		Amount:      big.NewInt(1_234_567), // 1.234567 at 6 native decimals
	})
	if err != nil {
		t.Fatal(err)
	}

	// Floored to the 0.0001 grid: 1.2345.
	if quote.InputAmount.Int64() != 1_234_500 {
		t.Errorf("input = %s, want 1234500", quote.InputAmount)
	}
	if quote.OutputAmount.Cmp(quote.InputAmount) != 0 {
		t.Errorf("same-decimal route output %s != sendable input %s", quote.OutputAmount, quote.InputAmount)
	}
}

func TestOmnichainQuoteForOutputAccountsForTruncation(t *testing.T) {
	deps := testDeps(t)
	deps.Bridge.Omnichain.SharedDecimals["USDT"] = 4

	s := NewOmnichainStrategy(deps)
	in := mustToken(t, deps.Tokens, domain.ChainIDEthereum, "USDT")
	out := mustToken(t, deps.Tokens, domain.ChainIDArbitrum, "USDT")

	// A floor not on the shared grid.
	floor := big.NewInt(1_234_567)
	quote, err := s.QuoteForOutput(context.Background(), QuoteRequest{
		InputToken:  in,
		OutputToken: out,
		Amount:      floor,
	})
	if err != nil {
		t.Fatal(err)
	}

	// The deliverable floor is the truncated 1.2345; realized output must
	// clear it even though the raw floor is undeliverable.
	if quote.OutputAmount.Int64() < 1_234_500 {
		t.Errorf("output %s below the truncated floor", quote.OutputAmount)
	}
	if quote.OutputAmount.Int64()%100 != 0 {
		t.Errorf("output %s is not on the shared-decimals grid", quote.OutputAmount)
	}
}

func TestDestinationGasCeiling(t *testing.T) {
	reg := NewRegistryForTest(testDeps(t))

	// Base's configured ceiling is 2,000,000.
	if err := reg.CheckDestinationGasCeiling(domain.ChainIDBase, 2_000_000); err != nil {
		t.Fatalf("exactly at the ceiling must pass, got %v", err)
	}

	err := reg.CheckDestinationGasCeiling(domain.ChainIDBase, 2_000_001)
	var gasErr *engcommon.DestinationGasLimitError
	if !errors.As(err, &gasErr) {
		t.Fatalf("expected DestinationGasLimitError, got %v", err)
	}
	if !strings.Contains(err.Error(), "2000000") || !strings.Contains(err.Error(), "8453") {
		t.Errorf("error message must name the ceiling and the chain: %q", err.Error())
	}
}

func TestSponsoredRejectsAppFeeAndSwapLegs(t *testing.T) {
	deps := testDeps(t)
	reg := NewRegistryForTest(deps)
	s, _ := reg.ForKind(domain.ProviderBurnMintSponsored)

	in := mustToken(t, deps.Tokens, domain.ChainIDEthereum, "USDC")
	out := mustToken(t, deps.Tokens, domain.ChainIDBase, "USDC")

	quote, err := s.QuoteExactInput(context.Background(), QuoteRequest{
		InputToken:  in,
		OutputToken: out,
		Amount:      big.NewInt(1_000_000),
	})
	if err != nil {
		t.Fatal(err)
	}
	if quote.Provider != domain.ProviderBurnMintSponsored {
		t.Errorf("provider = %s, want the sponsored kind", quote.Provider)
	}

	base := domain.CrossSwap{
		InputToken:  in,
		OutputToken: out,
		Amount:      big.NewInt(1_000_000),
		Depositor:   "0x2222222222222222222222222222222222222222",
		Recipient:   "0x1111111111111111111111111111111111111111",
	}

	withAppFee := base
	withAppFee.AppFeePercent = 0.25
	if _, err := s.BuildTransaction(context.Background(), withAppFee, quote); err == nil {
		t.Error("expected rejection of app fee on a sponsored route")
	}

	withSwapLeg := base
	withSwapLeg.OriginSwap = &domain.SwapLeg{}
	if _, err := s.BuildTransaction(context.Background(), withSwapLeg, quote); err == nil {
		t.Error("expected rejection of a swap leg on a sponsored route")
	}

	if _, err := s.BuildTransaction(context.Background(), base, quote); err != nil {
		t.Errorf("plain sponsored build failed: %v", err)
	}
}

func TestBuildTransactionShapes(t *testing.T) {
	deps := testDeps(t)
	reg := NewRegistryForTest(deps)

	swap := domain.CrossSwap{
		Depositor: "0x2222222222222222222222222222222222222222",
		Recipient: "0x1111111111111111111111111111111111111111",
	}

	t.Run("intent deposit", func(t *testing.T) {
		s, _ := reg.ForKind(domain.ProviderIntent)
		in := mustToken(t, deps.Tokens, domain.ChainIDEthereum, "USDC")
		out := mustToken(t, deps.Tokens, domain.ChainIDBase, "USDC")

		quote, err := s.QuoteExactInput(context.Background(), QuoteRequest{InputToken: in, OutputToken: out, Amount: big.NewInt(5_000_000)})
		if err != nil {
			t.Fatal(err)
		}
		tx, err := s.BuildTransaction(context.Background(), swap, quote)
		if err != nil {
			t.Fatal(err)
		}

		if tx.ChainID != domain.ChainIDEthereum {
			t.Errorf("tx targets chain %d, want origin", tx.ChainID)
		}
		if tx.To != deps.Bridge.Intent.SpokePools[domain.ChainIDEthereum] {
			t.Errorf("tx.To = %s, want the origin spoke pool", tx.To)
		}
		if !strings.HasPrefix(tx.Data, "0x") || len(tx.Data) <= 10 {
			t.Errorf("calldata looks empty: %q", tx.Data)
		}
		if tx.Value.Sign() != 0 {
			t.Errorf("ERC-20 deposit must not attach native value, got %s", tx.Value)
		}
	})

	t.Run("omnichain send attaches the native fee", func(t *testing.T) {
		s, _ := reg.ForKind(domain.ProviderOmnichain)
		in := mustToken(t, deps.Tokens, domain.ChainIDEthereum, "USDT")
		out := mustToken(t, deps.Tokens, domain.ChainIDHyperEVM, "USDT")

		quote, err := s.QuoteExactInput(context.Background(), QuoteRequest{InputToken: in, OutputToken: out, Amount: big.NewInt(5_000_000)})
		if err != nil {
			t.Fatal(err)
		}
		tx, err := s.BuildTransaction(context.Background(), swap, quote)
		if err != nil {
			t.Fatal(err)
		}

		if tx.Value.Cmp(deps.Bridge.OmnichainNativeFee()) != 0 {
			t.Errorf("tx.Value = %s, want the messaging native fee", tx.Value)
		}
		if tx.To != deps.Bridge.Omnichain.Handlers[domain.ChainIDEthereum]["USDT"] {
			t.Errorf("tx.To = %s, want the origin handler", tx.To)
		}
	})
}
