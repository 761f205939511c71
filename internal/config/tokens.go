package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/across-protocol/quote-engine/internal/domain"
)

// TokensConfig is the static token registry. Loaded once, never mutated.
type TokensConfig struct {
	Tokens []domain.Token

	byChainAddress map[string]domain.Token
	byChainSymbol  map[string]domain.Token
}

func (c *TokensConfig) Key() string {
	return TOKENS_CONFIG_KEY
}

func defaultTokens() []domain.Token {
	return []domain.Token{
		{ChainID: domain.ChainIDEthereum, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6},
		{ChainID: domain.ChainIDEthereum, Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Symbol: "USDT", Decimals: 6},
		{ChainID: domain.ChainIDEthereum, Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Symbol: "WETH", Decimals: 18},
		{ChainID: domain.ChainIDEthereum, Address: "0x0000000000000000000000000000000000000000", Symbol: "ETH", Decimals: 18},
		{ChainID: domain.ChainIDOptimism, Address: "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", Symbol: "USDC", Decimals: 6},
		{ChainID: domain.ChainIDOptimism, Address: "0x4200000000000000000000000000000000000006", Symbol: "WETH", Decimals: 18},
		{ChainID: domain.ChainIDPolygon, Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Symbol: "USDC", Decimals: 6},
		{ChainID: domain.ChainIDBase, Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Symbol: "USDC", Decimals: 6},
		{ChainID: domain.ChainIDBase, Address: "0x4200000000000000000000000000000000000006", Symbol: "WETH", Decimals: 18},
		{ChainID: domain.ChainIDArbitrum, Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Symbol: "USDC", Decimals: 6},
		{ChainID: domain.ChainIDArbitrum, Address: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", Symbol: "WETH", Decimals: 18},
		{ChainID: domain.ChainIDArbitrum, Address: "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", Symbol: "USDT", Decimals: 6},
		{ChainID: domain.ChainIDHyperEVM, Address: "0xb88339CB7199b77E23DB6E890353E22632Ba630f", Symbol: "USDC", Decimals: 6},
		{ChainID: domain.ChainIDHyperEVM, Address: "0x9FDBdA0A5e284c32744D2f17Ee5c74B284993463", Symbol: "USDT", Decimals: 6},
		{ChainID: domain.ChainIDHyperCore, Address: "spot:USDC", Symbol: "USDC", Decimals: 8},
		{ChainID: domain.ChainIDHyperCore, Address: "spot:USDT", Symbol: "USDT", Decimals: 8},
		{ChainID: domain.ChainIDHyperCore, Address: "spot:HYPE", Symbol: "HYPE", Decimals: 8},
		{ChainID: domain.ChainIDSolana, Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC", Decimals: 6},
	}
}

// Load merges the built-in registry with an optional TOKENS_JSON override and
// builds the lookup indexes. Overrides replace by (chainId, address).
func (c *TokensConfig) Load() error {
	c.Tokens = defaultTokens()

	if raw := os.Getenv("TOKENS_JSON"); raw != "" {
		var override []domain.Token
		if err := sonic.UnmarshalString(raw, &override); err != nil {
			return fmt.Errorf("failed to parse TOKENS_JSON: %w", err)
		}
		for _, tok := range override {
			replaced := false
			for i, have := range c.Tokens {
				if have.Equals(tok) {
					c.Tokens[i] = tok
					replaced = true
					break
				}
			}
			if !replaced {
				c.Tokens = append(c.Tokens, tok)
			}
		}
	}

	c.byChainAddress = make(map[string]domain.Token, len(c.Tokens))
	c.byChainSymbol = make(map[string]domain.Token, len(c.Tokens))
	for _, tok := range c.Tokens {
		c.byChainAddress[addressKey(tok.ChainID, tok.Address)] = tok
		c.byChainSymbol[symbolKey(tok.ChainID, tok.Symbol)] = tok
	}

	return c.Validate()
}

func (c *TokensConfig) Validate() error {
	for _, tok := range c.Tokens {
		if tok.Symbol == "" {
			return fmt.Errorf("token %s on chain %d has no symbol", tok.Address, tok.ChainID)
		}
	}
	return nil
}

// ByAddress resolves a token by (chainId, address).
func (c *TokensConfig) ByAddress(chainID uint64, address string) (domain.Token, bool) {
	tok, ok := c.byChainAddress[addressKey(chainID, address)]
	return tok, ok
}

// BySymbol resolves a token by (chainId, symbol).
func (c *TokensConfig) BySymbol(chainID uint64, symbol string) (domain.Token, bool) {
	tok, ok := c.byChainSymbol[symbolKey(chainID, symbol)]
	return tok, ok
}

func addressKey(chainID uint64, address string) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(address))
}

func symbolKey(chainID uint64, symbol string) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToUpper(symbol))
}
