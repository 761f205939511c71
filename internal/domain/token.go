package domain

import "strings"

// Ecosystem identifies the address/transaction format a chain uses.
type Ecosystem string

const (
	EcosystemEVM Ecosystem = "evm"
	EcosystemSVM Ecosystem = "svm"
)

// Well-known chain IDs. HyperCore is not an EVM chain; it is addressed through
// the pseudo chain ID below so routes into the settlement venue can be expressed
// with the same (chainId, address) coordinates as everything else.
const (
	ChainIDEthereum  uint64 = 1
	ChainIDOptimism  uint64 = 10
	ChainIDPolygon   uint64 = 137
	ChainIDBase      uint64 = 8453
	ChainIDArbitrum  uint64 = 42161
	ChainIDHyperEVM  uint64 = 999
	ChainIDHyperCore uint64 = 1000000999
	ChainIDSolana    uint64 = 34268394551451
)

// Token is a static registry entry. Loaded once at startup, never mutated.
type Token struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Equals compares by (chainId, address), case-insensitive for EVM hex addresses.
func (t Token) Equals(other Token) bool {
	return t.ChainID == other.ChainID && strings.EqualFold(t.Address, other.Address)
}

// SameSymbol reports whether two tokens represent the same asset on different
// chains (e.g. USDC on Arbitrum and USDC on HyperEVM).
func (t Token) SameSymbol(other Token) bool {
	return strings.EqualFold(t.Symbol, other.Symbol)
}

// TokenAmount couples an integer base-unit amount (decimal string encoded at the
// API boundary) with the token whose decimals it is expressed in.
type TokenAmount struct {
	Token  Token  `json:"token"`
	Amount string `json:"amount"`
}
