package balance

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/across-protocol/quote-engine/internal/chain"
	engcommon "github.com/across-protocol/quote-engine/internal/common"
)

type stubCaller struct {
	mu       sync.Mutex
	batches  [][]chain.Call3
	balances map[string]*big.Int
	err      error
}

func balanceStubKey(target, owner ethcommon.Address) string {
	return target.Hex() + "/" + owner.Hex()
}

func (s *stubCaller) Aggregate3(_ context.Context, _ uint64, calls []chain.Call3) ([]chain.Call3Result, error) {
	s.mu.Lock()
	s.batches = append(s.batches, calls)
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	results := make([]chain.Call3Result, len(calls))
	for i, call := range calls {
		// Both balanceOf and getEthBalance end with the padded owner address.
		owner := ethcommon.BytesToAddress(call.CallData[len(call.CallData)-20:])
		value := s.balances[balanceStubKey(call.Target, owner)]
		if value == nil {
			value = big.NewInt(0)
		}
		padded := make([]byte, 32)
		value.FillBytes(padded)
		results[i] = chain.Call3Result{Success: true, ReturnData: padded}
	}
	return results, nil
}

func (s *stubCaller) CallContract(context.Context, uint64, ethcommon.Address, []byte) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (s *stubCaller) EstimateGas(context.Context, uint64, ethcommon.Address, ethcommon.Address, *big.Int, []byte) (uint64, error) {
	return 0, errors.New("not implemented")
}

func (s *stubCaller) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

var (
	tokenA = ethcommon.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	tokenB = ethcommon.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	ownerX = ethcommon.HexToAddress("0x1111111111111111111111111111111111111111")
	ownerY = ethcommon.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestGetBalanceCoalescesSameWindow(t *testing.T) {
	caller := &stubCaller{balances: map[string]*big.Int{
		balanceStubKey(tokenA, ownerX): big.NewInt(100),
		balanceStubKey(tokenA, ownerY): big.NewInt(200),
		balanceStubKey(tokenB, ownerX): big.NewInt(300),
		balanceStubKey(tokenB, ownerY): big.NewInt(400),
	}}
	svc := NewServiceForTest(caller, 50*time.Millisecond, time.Minute)

	// Three distinct requests land in the same window. The flush still
	// queries the full token x owner product.
	requests := []struct {
		token ethcommon.Address
		owner ethcommon.Address
		want  int64
	}{
		{tokenA, ownerX, 100},
		{tokenA, ownerY, 200},
		{tokenB, ownerY, 400},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(requests))
	got := make([]*big.Int, len(requests))
	for i, req := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], errs[i] = svc.GetBalance(context.Background(), 1, req.token, req.owner)
		}()
	}
	wg.Wait()

	for i, req := range requests {
		if errs[i] != nil {
			t.Fatalf("request %d failed: %v", i, errs[i])
		}
		if got[i].Int64() != req.want {
			t.Errorf("request %d: got %s, want %d", i, got[i], req.want)
		}
	}

	if caller.batchCount() != 1 {
		t.Fatalf("expected 1 multicall, got %d", caller.batchCount())
	}
	if n := len(caller.batches[0]); n != 4 {
		t.Errorf("expected 4 calls in batch (2 tokens x 2 owners), got %d", n)
	}
}

func TestGetBalanceBatchFailureFailsAllWaiters(t *testing.T) {
	caller := &stubCaller{err: errors.New("rpc unavailable")}
	svc := NewServiceForTest(caller, 20*time.Millisecond, time.Minute)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, owner := range []ethcommon.Address{ownerX, ownerY} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.GetBalance(context.Background(), 1, tokenA, owner)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err == nil {
			t.Errorf("waiter %d: expected error, got nil", i)
		}
	}
	if caller.batchCount() != 1 {
		t.Fatalf("expected 1 multicall attempt, got %d", caller.batchCount())
	}
}

func TestGetBalanceServesSecondLookupFromCache(t *testing.T) {
	caller := &stubCaller{balances: map[string]*big.Int{
		balanceStubKey(tokenA, ownerX): big.NewInt(42),
	}}
	svc := NewServiceForTest(caller, 10*time.Millisecond, time.Minute)

	first, err := svc.GetBalance(context.Background(), 1, tokenA, ownerX)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.GetBalance(context.Background(), 1, tokenA, ownerX)
	if err != nil {
		t.Fatal(err)
	}

	if first.Cmp(second) != 0 {
		t.Errorf("cache returned %s, expected %s", second, first)
	}
	if caller.batchCount() != 1 {
		t.Errorf("expected cached second lookup, got %d multicalls", caller.batchCount())
	}

	// Mutating the returned value must not poison the cache.
	second.SetInt64(-1)
	third, err := svc.GetBalance(context.Background(), 1, tokenA, ownerX)
	if err != nil {
		t.Fatal(err)
	}
	if third.Int64() != 42 {
		t.Errorf("cache was mutated through a returned value: got %s", third)
	}
}

func TestGetBalanceNativeUsesMulticallHelper(t *testing.T) {
	caller := &stubCaller{balances: map[string]*big.Int{
		balanceStubKey(engcommon.Multicall3Address, ownerX): big.NewInt(7),
	}}
	svc := NewServiceForTest(caller, 10*time.Millisecond, time.Minute)

	got, err := svc.GetBalance(context.Background(), 1, engcommon.ZeroAddress, ownerX)
	if err != nil {
		t.Fatal(err)
	}
	if got.Int64() != 7 {
		t.Fatalf("got %s, want 7", got)
	}
	if target := caller.batches[0][0].Target; target != engcommon.Multicall3Address {
		t.Errorf("native balance targeted %s, want the multicall helper", target.Hex())
	}
}

func TestGetBalanceSeparateChainsSeparateBatches(t *testing.T) {
	caller := &stubCaller{balances: map[string]*big.Int{}}
	svc := NewServiceForTest(caller, 30*time.Millisecond, time.Minute)

	var wg sync.WaitGroup
	for _, chainID := range []uint64{1, 10} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.GetBalance(context.Background(), chainID, tokenA, ownerX); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if caller.batchCount() != 2 {
		t.Fatalf("expected one multicall per chain, got %d", caller.batchCount())
	}
}

func TestGetBalanceContextCancellation(t *testing.T) {
	caller := &stubCaller{balances: map[string]*big.Int{}}
	svc := NewServiceForTest(caller, time.Second, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.GetBalance(ctx, 1, tokenA, ownerX)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
