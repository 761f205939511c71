package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/andrew-solarstorm/go-packages/common"
)

// SponsorshipConfig holds the subsidy policy: which routes qualify, the daily
// limits compared against indexer counters, and the late-stage covering checks.
type SponsorshipConfig struct {
	// EligiblePairs maps "INSYMBOL->OUTSYMBOL" to eligibility.
	EligiblePairs map[string]bool `json:"eligiblePairs"`

	// InputCeilings caps the sponsored input amount per pair, base units of
	// the input token, decimal string encoded.
	InputCeilings map[string]string `json:"inputCeilings"`

	// Daily limits, compared against aggregate counters from the indexer.
	GlobalDailyLimit     map[string]string `json:"globalDailyLimit"` // per final token symbol
	UserDailyLimit       string            `json:"userDailyLimit"`
	ActivationDailyLimit uint64            `json:"activationDailyLimit"`

	// Late-stage covering checks.
	SlippageTolerancePct float64 `json:"slippageTolerancePct"`
	MaxSponsorshipBps    float64 `json:"maxSponsorshipBps"`

	// Donation reserve coordinates.
	DonationReserveChain   uint64 `json:"donationReserveChain"`
	DonationReserveAddress string `json:"donationReserveAddress"`
	DonationReserveSymbol  string `json:"donationReserveSymbol"`

	IndexerBaseURL string `json:"indexerBaseUrl"`
}

func (c *SponsorshipConfig) Key() string {
	return SPONSORSHIP_CONFIG_KEY
}

func defaultSponsorshipConfig() SponsorshipConfig {
	return SponsorshipConfig{
		EligiblePairs: map[string]bool{
			"USDC->USDC": true,
			"USDT->USDT": true,
			"USDC->HYPE": true,
		},
		InputCeilings: map[string]string{
			"USDC->USDC": "25000000000",
			"USDT->USDT": "25000000000",
			"USDC->HYPE": "5000000000",
		},
		GlobalDailyLimit: map[string]string{
			"USDC": "100000000000",
			"USDT": "100000000000",
			"HYPE": "20000000000",
		},
		UserDailyLimit:       "1000000000",
		ActivationDailyLimit: 1000,
		SlippageTolerancePct: 0.5,
		MaxSponsorshipBps:    50,
		DonationReserveChain: 999,
		DonationReserveAddress: "0xD0aA710000000000000000000000000000000000",
		DonationReserveSymbol:  "USDC",
	}
}

func (c *SponsorshipConfig) Load() error {
	*c = defaultSponsorshipConfig()

	if raw := os.Getenv("SPONSORSHIP_JSON"); raw != "" {
		if err := sonic.UnmarshalString(raw, c); err != nil {
			return fmt.Errorf("failed to parse SPONSORSHIP_JSON: %w", err)
		}
	}

	c.IndexerBaseURL = common.GetEnvOrDefault("INDEXER_BASE_URL", c.IndexerBaseURL)

	return c.Validate()
}

func (c *SponsorshipConfig) Validate() error {
	for pair, ceiling := range c.InputCeilings {
		if _, ok := new(big.Int).SetString(ceiling, 10); !ok {
			return fmt.Errorf("input ceiling for %s is not an integer: %q", pair, ceiling)
		}
	}
	for sym, limit := range c.GlobalDailyLimit {
		if _, ok := new(big.Int).SetString(limit, 10); !ok {
			return fmt.Errorf("global daily limit for %s is not an integer: %q", sym, limit)
		}
	}
	if _, ok := new(big.Int).SetString(c.UserDailyLimit, 10); !ok {
		return fmt.Errorf("user daily limit is not an integer: %q", c.UserDailyLimit)
	}
	if c.SlippageTolerancePct < 0 || c.MaxSponsorshipBps < 0 {
		return fmt.Errorf("sponsorship tolerances must be non-negative")
	}
	return nil
}

// PairKey builds the eligibility key for a token pair.
func PairKey(inSymbol, outSymbol string) string {
	return strings.ToUpper(inSymbol) + "->" + strings.ToUpper(outSymbol)
}

// InputCeiling returns the parsed per-pair ceiling, nil when the pair has none.
func (c *SponsorshipConfig) InputCeiling(inSymbol, outSymbol string) *big.Int {
	raw, ok := c.InputCeilings[PairKey(inSymbol, outSymbol)]
	if !ok {
		return nil
	}
	ceiling, _ := new(big.Int).SetString(raw, 10)
	return ceiling
}
