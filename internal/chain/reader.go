package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	engcommon "github.com/across-protocol/quote-engine/internal/common"
	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/domain"
)

const CHAIN_READER_SERVICE = "chain-reader-service"

// Caller is the narrow read surface strategies and the balance cache depend
// on. Production uses ReaderService; tests swap in a stub.
type Caller interface {
	CallContract(ctx context.Context, chainID uint64, to common.Address, data []byte) ([]byte, error)
	Aggregate3(ctx context.Context, chainID uint64, calls []Call3) ([]Call3Result, error)
	EstimateGas(ctx context.Context, chainID uint64, from, to common.Address, value *big.Int, data []byte) (uint64, error)
}

// ReaderService owns one RPC client per configured EVM chain and exposes the
// handful of reads the engine needs. Clients are dialed lazily so a chain
// with a flaky endpoint does not block startup of the rest.
type ReaderService struct {
	container.BaseDIInstance

	chainsCfg *config.ChainsConfig

	mu      sync.RWMutex
	clients map[uint64]*ethclient.Client
}

func (svc *ReaderService) ID() string {
	return CHAIN_READER_SERVICE
}

func (svc *ReaderService) Configure(c container.IContainer) error {
	svc.chainsCfg = c.GetConfig(config.CHAINS_CONFIG_KEY).(*config.ChainsConfig)
	svc.clients = make(map[uint64]*ethclient.Client)
	return nil
}

func (svc *ReaderService) Start() error {
	log.Info().Int("chains", len(svc.chainsCfg.Chains)).Msg("[chainReader] started")
	return nil
}

func (svc *ReaderService) Stop() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	for id, client := range svc.clients {
		client.Close()
		delete(svc.clients, id)
	}
	return nil
}

func (svc *ReaderService) client(chainID uint64) (*ethclient.Client, error) {
	svc.mu.RLock()
	client, ok := svc.clients[chainID]
	svc.mu.RUnlock()
	if ok {
		return client, nil
	}

	cc, ok := svc.chainsCfg.Chain(chainID)
	if !ok {
		return nil, fmt.Errorf("chain %d is not configured", chainID)
	}
	if cc.Ecosystem != domain.EcosystemEVM || cc.RPCURL == "" {
		return nil, fmt.Errorf("chain %d (%s) has no RPC endpoint", chainID, cc.Name)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if client, ok := svc.clients[chainID]; ok {
		return client, nil
	}
	client, err := ethclient.Dial(cc.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain %d: %w", chainID, err)
	}
	svc.clients[chainID] = client
	return client, nil
}

// CallContract performs an eth_call against the latest block.
func (svc *ReaderService) CallContract(ctx context.Context, chainID uint64, to common.Address, data []byte) ([]byte, error) {
	client, err := svc.client(chainID)
	if err != nil {
		return nil, err
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call on chain %d failed: %w", chainID, err)
	}
	return out, nil
}

// Aggregate3 routes a batch of calls through the Multicall3 deployment on the
// target chain. Individual call failures surface as Success=false results;
// only transport-level errors fail the batch.
func (svc *ReaderService) Aggregate3(ctx context.Context, chainID uint64, calls []Call3) ([]Call3Result, error) {
	data, err := PackAggregate3(calls)
	if err != nil {
		return nil, err
	}
	out, err := svc.CallContract(ctx, chainID, engcommon.Multicall3Address, data)
	if err != nil {
		return nil, err
	}
	return UnpackAggregate3(out)
}

// EstimateGas simulates a call and reports gas used. The engine compares this
// against the per-chain destination gas ceiling before handing out calldata.
func (svc *ReaderService) EstimateGas(ctx context.Context, chainID uint64, from, to common.Address, value *big.Int, data []byte) (uint64, error) {
	client, err := svc.client(chainID)
	if err != nil {
		return 0, err
	}
	gas, err := client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
	if err != nil {
		return 0, fmt.Errorf("gas estimation on chain %d failed: %w", chainID, err)
	}
	return gas, nil
}

// TokenBalance reads a single ERC-20 balance. Native balances go through the
// Multicall3 helper so they batch the same way token reads do.
func (svc *ReaderService) TokenBalance(ctx context.Context, chainID uint64, token, owner common.Address) (*big.Int, error) {
	var data []byte
	var target common.Address
	if token == engcommon.ZeroAddress {
		target = engcommon.Multicall3Address
		data = PackGetEthBalance(owner)
	} else {
		target = token
		data = PackBalanceOf(owner)
	}
	out, err := svc.CallContract(ctx, chainID, target, data)
	if err != nil {
		return nil, err
	}
	return UnpackUint256(out)
}

// RequiredValidators reads the attestation quorum the omnichain messenger
// demands for a destination route. Callers treat failures as non-fatal and
// fall back to the configured default.
func (svc *ReaderService) RequiredValidators(ctx context.Context, chainID uint64, messenger common.Address, dstChainID uint64, token common.Address) (uint64, error) {
	out, err := svc.CallContract(ctx, chainID, messenger, PackRequiredValidators(dstChainID, token))
	if err != nil {
		return 0, err
	}
	return UnpackRequiredValidators(out)
}
