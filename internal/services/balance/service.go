package balance

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/across-protocol/quote-engine/internal/chain"
	engcommon "github.com/across-protocol/quote-engine/internal/common"
	"github.com/across-protocol/quote-engine/internal/metrics"
)

const BALANCE_SERVICE = "balance-service"

type balanceKey struct {
	chainID uint64
	token   ethcommon.Address
	owner   ethcommon.Address
}

// pendingBatch accumulates same-chain balance requests during the batch
// window. The flush queries the union of tokens against the union of owners
// in one multicall, so overlapping requests collapse into shared reads.
type pendingBatch struct {
	tokens map[ethcommon.Address]struct{}
	owners map[ethcommon.Address]struct{}

	done    chan struct{}
	results map[balanceKey]*big.Int
	err     error
}

func newPendingBatch() *pendingBatch {
	return &pendingBatch{
		tokens:  make(map[ethcommon.Address]struct{}),
		owners:  make(map[ethcommon.Address]struct{}),
		done:    make(chan struct{}),
		results: make(map[balanceKey]*big.Int),
	}
}

// Service caches latest-block balances and coalesces concurrent lookups per
// chain into Multicall3 batches.
type Service struct {
	container.BaseDIInstance

	caller chain.Caller
	cache  *TTLCache[balanceKey, *big.Int]
	window time.Duration

	mu      sync.Mutex
	pending map[uint64]*pendingBatch
}

func (svc *Service) ID() string {
	return BALANCE_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.caller = c.Instance(chain.CHAIN_READER_SERVICE).(*chain.ReaderService)
	svc.cache = NewTTLCache[balanceKey, *big.Int](engcommon.DefaultBalanceTTLSeconds * time.Second)
	svc.window = engcommon.DefaultBatchWindowMs * time.Millisecond
	svc.pending = make(map[uint64]*pendingBatch)
	return nil
}

func (svc *Service) Start() error {
	log.Info().Dur("window", svc.window).Msg("[balance] started")
	return nil
}

func (svc *Service) Stop() error { return nil }

// NewServiceForTest wires a service around a stub caller, bypassing the container.
func NewServiceForTest(caller chain.Caller, window, ttl time.Duration) *Service {
	return &Service{
		caller:  caller,
		cache:   NewTTLCache[balanceKey, *big.Int](ttl),
		window:  window,
		pending: make(map[uint64]*pendingBatch),
	}
}

// GetBalance returns the owner's balance of token on chainID. The zero token
// address means the chain's native currency. Lookups inside the same batch
// window share one multicall; a failed batch fails every waiter in it.
func (svc *Service) GetBalance(ctx context.Context, chainID uint64, token, owner ethcommon.Address) (*big.Int, error) {
	key := balanceKey{chainID: chainID, token: token, owner: owner}
	if cached, ok := svc.cache.Get(key); ok {
		metrics.BalanceCacheHits.Inc()
		return new(big.Int).Set(cached), nil
	}
	metrics.BalanceCacheMisses.Inc()

	batch := svc.join(chainID, token, owner)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-batch.done:
	}

	if batch.err != nil {
		return nil, fmt.Errorf("balance batch on chain %d failed: %w", chainID, batch.err)
	}
	value, ok := batch.results[key]
	if !ok {
		return nil, fmt.Errorf("balance batch on chain %d missed key %s/%s", chainID, token, owner)
	}
	svc.cache.Set(key, value)
	return new(big.Int).Set(value), nil
}

func (svc *Service) join(chainID uint64, token, owner ethcommon.Address) *pendingBatch {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	batch, ok := svc.pending[chainID]
	if !ok {
		batch = newPendingBatch()
		svc.pending[chainID] = batch
		go svc.flushAfterWindow(chainID, batch)
	}
	batch.tokens[token] = struct{}{}
	batch.owners[owner] = struct{}{}
	return batch
}

func (svc *Service) flushAfterWindow(chainID uint64, batch *pendingBatch) {
	time.Sleep(svc.window)

	svc.mu.Lock()
	delete(svc.pending, chainID)
	svc.mu.Unlock()

	svc.flush(chainID, batch)
}

func (svc *Service) flush(chainID uint64, batch *pendingBatch) {
	defer close(batch.done)

	tokens := sortedAddresses(batch.tokens)
	owners := sortedAddresses(batch.owners)

	calls := make([]chain.Call3, 0, len(tokens)*len(owners))
	keys := make([]balanceKey, 0, len(tokens)*len(owners))
	for _, token := range tokens {
		for _, owner := range owners {
			call := chain.Call3{Target: token, CallData: chain.PackBalanceOf(owner)}
			if token == engcommon.ZeroAddress {
				call = chain.Call3{Target: engcommon.Multicall3Address, CallData: chain.PackGetEthBalance(owner)}
			}
			calls = append(calls, call)
			keys = append(keys, balanceKey{chainID: chainID, token: token, owner: owner})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	metrics.BalanceBatchSize.Observe(float64(len(calls)))

	results, err := svc.caller.Aggregate3(ctx, chainID, calls)
	if err != nil {
		batch.err = err
		return
	}
	if len(results) != len(calls) {
		batch.err = fmt.Errorf("expected %d results, got %d", len(calls), len(results))
		return
	}
	for i, res := range results {
		if !res.Success {
			batch.err = fmt.Errorf("call %d in batch reverted", i)
			return
		}
		value, err := chain.UnpackUint256(res.ReturnData)
		if err != nil {
			batch.err = err
			return
		}
		batch.results[keys[i]] = value
	}
}

func sortedAddresses(set map[ethcommon.Address]struct{}) []ethcommon.Address {
	out := make([]ethcommon.Address, 0, len(set))
	for addr := range set {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
