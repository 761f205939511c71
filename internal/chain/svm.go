package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/domain"
)

const SVM_READER_SERVICE = "svm-reader-service"

// SVMReaderService answers the one question the quote path asks about the
// non-EVM ecosystem: does the recipient's associated token account exist yet.
// The answer only shifts the fill-time estimate, so callers tolerate errors.
type SVMReaderService struct {
	container.BaseDIInstance

	chainsCfg *config.ChainsConfig

	once   sync.Once
	client *rpc.Client
}

func (svc *SVMReaderService) ID() string {
	return SVM_READER_SERVICE
}

func (svc *SVMReaderService) Configure(c container.IContainer) error {
	svc.chainsCfg = c.GetConfig(config.CHAINS_CONFIG_KEY).(*config.ChainsConfig)
	return nil
}

func (svc *SVMReaderService) Start() error { return nil }
func (svc *SVMReaderService) Stop() error  { return nil }

func (svc *SVMReaderService) rpcClient() (*rpc.Client, error) {
	cc, ok := svc.chainsCfg.Chain(domain.ChainIDSolana)
	if !ok || cc.RPCURL == "" {
		return nil, errors.New("solana RPC endpoint is not configured")
	}
	svc.once.Do(func() {
		svc.client = rpc.New(cc.RPCURL)
	})
	return svc.client, nil
}

// TokenAccountExists probes whether the associated token account for
// (owner, mint) is initialized on chain.
func (svc *SVMReaderService) TokenAccountExists(ctx context.Context, owner, mint solana.PublicKey) (bool, error) {
	client, err := svc.rpcClient()
	if err != nil {
		return false, err
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return false, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	info, err := client.GetAccountInfo(ctx, ata)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to fetch account info: %w", err)
	}
	return info != nil && info.Value != nil, nil
}
