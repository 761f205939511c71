// Package convert rescales integer token amounts between decimal precisions.
//
// Rescaling down always truncates toward zero; on-chain contracts divide the
// same way, so rounding up here would quote amounts the bridge cannot deliver.
package convert

import (
	"math/big"

	"github.com/holiman/uint256"
)

var bigTen = big.NewInt(10)

// Converter rescales amounts from one decimal precision to another.
type Converter struct {
	from uint8
	to   uint8
}

// NewConverter builds a converter from `from` decimals to `to` decimals.
func NewConverter(from, to uint8) Converter {
	return Converter{from: from, to: to}
}

// Convert rescales amount. Identity when precisions match, exact multiplication
// when growing precision, truncating division when shrinking. Never mutates the
// input.
func (c Converter) Convert(amount *big.Int) *big.Int {
	return Rescale(amount, c.from, c.to)
}

// Rescale is the function form of Converter.Convert.
func Rescale(amount *big.Int, from, to uint8) *big.Int {
	if amount == nil {
		return nil
	}
	if from == to {
		return new(big.Int).Set(amount)
	}
	if to > from {
		return new(big.Int).Mul(amount, pow10(to-from))
	}
	return new(big.Int).Quo(amount, pow10(from-to))
}

// RescaleCeil rescales like Rescale but rounds up when shrinking precision.
// Used to gross a requested output floor up into input units: truncating there
// would realize an output below the floor whenever the floor is not a multiple
// of the decimal step.
func RescaleCeil(amount *big.Int, from, to uint8) *big.Int {
	if amount == nil {
		return nil
	}
	if to >= from {
		return Rescale(amount, from, to)
	}
	step := pow10(from - to)
	out := new(big.Int).Add(amount, new(big.Int).Sub(step, big.NewInt(1)))
	return out.Quo(out, step)
}

// TruncateToSharedDecimals floors amount, expressed in native decimals, to the
// granularity a message-passing protocol can deliver: the largest multiple of
// 10^(native-shared) not exceeding amount. Amounts already on the grid are
// unchanged.
func TruncateToSharedDecimals(amount *big.Int, native, shared uint8) *big.Int {
	if amount == nil || shared >= native {
		if amount == nil {
			return nil
		}
		return new(big.Int).Set(amount)
	}
	step := pow10(native - shared)
	out := new(big.Int).Quo(amount, step)
	return out.Mul(out, step)
}

// SharedDecimalsStep is the smallest deliverable increment, in native base
// units, for a token with the given shared decimals.
func SharedDecimalsStep(native, shared uint8) *big.Int {
	if shared >= native {
		return big.NewInt(1)
	}
	return pow10(native - shared)
}

// TruncateToSharedDecimalsU256 is the uint256 fast path used by the omnichain
// strategy's min-output floor math, where amounts are known to fit 256 bits.
func TruncateToSharedDecimalsU256(amount *uint256.Int, native, shared uint8) *uint256.Int {
	if shared >= native {
		return new(uint256.Int).Set(amount)
	}
	step := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := uint8(0); i < native-shared; i++ {
		step.Mul(step, ten)
	}
	out := new(uint256.Int).Div(amount, step)
	return out.Mul(out, step)
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}
