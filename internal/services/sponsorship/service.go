package sponsorship

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	engcommon "github.com/across-protocol/quote-engine/internal/common"
	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/domain"
	"github.com/across-protocol/quote-engine/internal/metrics"
	"github.com/across-protocol/quote-engine/internal/services/balance"
)

const SPONSORSHIP_SERVICE = "sponsorship-service"

// balanceReader is the slice of the balance service this guard needs.
type balanceReader interface {
	GetBalance(ctx context.Context, chainID uint64, token, owner ethcommon.Address) (*big.Int, error)
}

// LimitFlags are the three independent daily-limit verdicts. Callers combine
// them with their own policy; none of them is an error by itself.
type LimitFlags struct {
	GlobalOK     bool
	UserOK       bool
	ActivationOK bool
}

// Sponsored reports whether all three limits pass.
func (f LimitFlags) Sponsored() bool {
	return f.GlobalOK && f.UserOK && f.ActivationOK
}

// Service gates sponsored routes: a pure pre-check, indexer-backed daily
// limits, and the late covering assertion run just before building.
//
// The daily limits are read-then-act with no reservation: two concurrent
// requests can both pass before either is recorded by the indexer.
type Service struct {
	container.BaseDIInstance

	cfg       *config.SponsorshipConfig
	tokensCfg *config.TokensConfig
	counters  CounterSource
	balances  balanceReader
}

func (svc *Service) ID() string {
	return SPONSORSHIP_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.cfg = c.GetConfig(config.SPONSORSHIP_CONFIG_KEY).(*config.SponsorshipConfig)
	svc.tokensCfg = c.GetConfig(config.TOKENS_CONFIG_KEY).(*config.TokensConfig)
	svc.counters = NewIndexerClient(svc.cfg.IndexerBaseURL)
	svc.balances = c.Instance(balance.BALANCE_SERVICE).(*balance.Service)
	return nil
}

func (svc *Service) Start() error { return nil }
func (svc *Service) Stop() error  { return nil }

// NewServiceForTest wires a service directly, bypassing the container.
func NewServiceForTest(cfg *config.SponsorshipConfig, tokens *config.TokensConfig, counters CounterSource, balances balanceReader) *Service {
	return &Service{cfg: cfg, tokensCfg: tokens, counters: counters, balances: balances}
}

// PreCheck decides eligibility from static configuration alone: the pair must
// be whitelisted and the input amount under the per-pair ceiling. It makes no
// external calls.
func (svc *Service) PreCheck(inputToken, outputToken domain.Token, inputAmount *big.Int) bool {
	key := config.PairKey(inputToken.Symbol, outputToken.Symbol)
	if !svc.cfg.EligiblePairs[key] {
		metrics.SponsorshipChecks.WithLabelValues("pair_ineligible").Inc()
		return false
	}
	ceiling := svc.cfg.InputCeiling(inputToken.Symbol, outputToken.Symbol)
	if ceiling != nil && inputAmount.Cmp(ceiling) > 0 {
		metrics.SponsorshipChecks.WithLabelValues("over_ceiling").Inc()
		return false
	}
	metrics.SponsorshipChecks.WithLabelValues("precheck_ok").Inc()
	return true
}

// CheckDailyLimits fetches today's counters and compares each against its
// configured limit. The proposed amount is in base units of the final token.
func (svc *Service) CheckDailyLimits(ctx context.Context, finalTokenSymbol, user string, proposedAmount *big.Int) (LimitFlags, error) {
	counters, err := svc.counters.FetchDailyCounters(ctx, finalTokenSymbol, user)
	if err != nil {
		return LimitFlags{}, fmt.Errorf("failed to fetch sponsorship counters: %w", err)
	}

	flags := LimitFlags{GlobalOK: true, UserOK: true, ActivationOK: true}

	if raw, ok := svc.cfg.GlobalDailyLimit[finalTokenSymbol]; ok {
		limit, _ := new(big.Int).SetString(raw, 10)
		projected := new(big.Int).Add(counters.GlobalSponsored, proposedAmount)
		flags.GlobalOK = projected.Cmp(limit) <= 0
	}

	userLimit, _ := new(big.Int).SetString(svc.cfg.UserDailyLimit, 10)
	projectedUser := new(big.Int).Add(counters.UserSponsored, proposedAmount)
	flags.UserOK = projectedUser.Cmp(userLimit) <= 0

	flags.ActivationOK = counters.Activations < svc.cfg.ActivationDailyLimit

	if !flags.Sponsored() {
		log.Info().
			Str("token", finalTokenSymbol).
			Bool("global", flags.GlobalOK).
			Bool("user", flags.UserOK).
			Bool("activation", flags.ActivationOK).
			Msg("[sponsorship] daily limit check failed")
	}
	return flags, nil
}

// BpsForRoute is the subsidy the reserve must cover, in basis points of the
// sponsored amount. A same-symbol route settling at spot needs no swap, so
// nothing is lost and nothing needs sponsoring.
func BpsForRoute(inputSymbol, outputSymbol string, realizedSlippagePct float64) float64 {
	if strings.EqualFold(inputSymbol, outputSymbol) {
		return 0
	}
	if realizedSlippagePct < 0 {
		return 0
	}
	return realizedSlippagePct * 100
}

// CoverageParams feeds the late-stage covering assertion.
type CoverageParams struct {
	RealizedSlippagePct float64
	SponsorshipBps      float64
	// SponsoredAmount is the worst-case amount drawn from the reserve, in
	// base units of the reserve token.
	SponsoredAmount *big.Int
}

// AssertSponsoredAmountCanBeCovered runs after the exact sponsorship amount
// and swap slippage are known. Each failing check raises its own typed error
// and aborts transaction construction.
func (svc *Service) AssertSponsoredAmountCanBeCovered(ctx context.Context, p CoverageParams) error {
	if p.RealizedSlippagePct > svc.cfg.SlippageTolerancePct {
		return &engcommon.SlippageTooHighError{
			SlippagePct:  p.RealizedSlippagePct,
			TolerancePct: svc.cfg.SlippageTolerancePct,
		}
	}
	if p.SponsorshipBps > svc.cfg.MaxSponsorshipBps {
		return &engcommon.MaxSubsidyTooHighError{
			Bps:        p.SponsorshipBps,
			CeilingBps: svc.cfg.MaxSponsorshipBps,
		}
	}

	available, err := svc.reserveBalance(ctx)
	if err != nil {
		return fmt.Errorf("failed to read donation reserve balance: %w", err)
	}
	if available.Cmp(p.SponsoredAmount) < 0 {
		return &engcommon.DonationReserveInsufficientError{
			Required:  p.SponsoredAmount,
			Available: available,
		}
	}
	return nil
}

func (svc *Service) reserveBalance(ctx context.Context) (*big.Int, error) {
	reserveToken, ok := svc.tokensCfg.BySymbol(svc.cfg.DonationReserveChain, svc.cfg.DonationReserveSymbol)
	if !ok {
		return nil, fmt.Errorf("donation reserve token %s is not registered on chain %d",
			svc.cfg.DonationReserveSymbol, svc.cfg.DonationReserveChain)
	}
	available, err := svc.balances.GetBalance(ctx,
		svc.cfg.DonationReserveChain,
		ethcommon.HexToAddress(reserveToken.Address),
		ethcommon.HexToAddress(svc.cfg.DonationReserveAddress))
	if err != nil {
		return nil, err
	}
	balanceFloat, _ := new(big.Float).SetInt(available).Float64()
	metrics.DonationReserveBalance.Set(balanceFloat)
	return available, nil
}
