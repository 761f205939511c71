package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/across-protocol/quote-engine/internal/chain"
	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/engine"
	"github.com/across-protocol/quote-engine/internal/http"
	"github.com/across-protocol/quote-engine/internal/services/balance"
	"github.com/across-protocol/quote-engine/internal/services/fees"
	"github.com/across-protocol/quote-engine/internal/services/filltime"
	"github.com/across-protocol/quote-engine/internal/services/orderbook"
	"github.com/across-protocol/quote-engine/internal/services/price"
	"github.com/across-protocol/quote-engine/internal/services/sponsorship"
	"github.com/across-protocol/quote-engine/internal/services/strategy"
)

// @title Quote Engine API
// @version 1.0
// @description Multi-provider cross-chain bridge quoting API.
// @description
// @description Quotes a token pair on every eligible bridge provider, reconciles
// @description fees into an itemized USD breakdown, and builds unsigned deposit
// @description transactions. Amounts on the wire are always decimal strings in
// @description token base units; floats are never accepted.
// @description
// @description - **Rate Limit**: 10 requests/second (burst: 20)
// @BasePath /
// @schemes https http
// @tag.name quote
// @tag.description Price a swap on every eligible bridge provider
// @tag.name swap
// @tag.description Build unsigned bridge transactions ready for signing
// @tag.name routes
// @tag.description Enumerate serviceable providers for a token pair
// @tag.name limits
// @tag.description Deposit bounds for a route in input token units

func main() {
	// load env
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded")
	}

	// di container config
	conf := container.NewConf(
		&config.GeneralConfig{},
		&config.ChainsConfig{},
		&config.TokensConfig{},
		&config.BridgeConfig{},
		&config.SponsorshipConfig{},
		&config.VenueConfig{},
		&config.PriceConfig{},
	)

	// di container
	dic, err := container.New(
		// config
		conf,

		// chain access
		&chain.ReaderService{},
		&chain.SVMReaderService{},

		// market data
		&balance.Service{},
		&price.Service{},
		&filltime.Service{},
		&orderbook.Client{},
		&orderbook.Simulator{},

		// quoting
		&fees.Service{},
		&sponsorship.Service{},
		&strategy.Registry{},
		&engine.Service{},

		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	// Run() doesn't call Stop(), we must do it manually
	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
