package common

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
)

// Sentinel errors for conditions callers branch on with errors.Is.
var (
	ErrNoLiquidity       = errors.New("order book side has no liquidity")
	ErrPairNotConfigured = errors.New("venue pair not configured")
)

// InvalidParamError covers unsupported routes, missing protocol configuration
// and unsupported tokens. It aborts quote generation synchronously.
type InvalidParamError struct {
	Message string
}

func (e *InvalidParamError) Error() string {
	return e.Message
}

func NewInvalidParamError(format string, args ...any) *InvalidParamError {
	return &InvalidParamError{Message: fmt.Sprintf(format, args...)}
}

// AmountTooHighError is raised when a request exceeds relayer or donation
// reserve capacity for the route.
type AmountTooHighError struct {
	Amount *big.Int
	Limit  *big.Int
	Route  string
}

func (e *AmountTooHighError) Error() string {
	return fmt.Sprintf("amount %s exceeds limit %s for route %s", e.Amount, e.Limit, e.Route)
}

// SlippageTooHighError is raised when realized swap slippage breaches the
// configured sponsorship tolerance.
type SlippageTooHighError struct {
	SlippagePct  float64
	TolerancePct float64
}

func (e *SlippageTooHighError) Error() string {
	return fmt.Sprintf("swap slippage %.4f%% exceeds tolerance %.4f%%", e.SlippagePct, e.TolerancePct)
}

// MaxSubsidyTooHighError is raised when the basis points to sponsor exceed the
// configured ceiling.
type MaxSubsidyTooHighError struct {
	Bps        float64
	CeilingBps float64
}

func (e *MaxSubsidyTooHighError) Error() string {
	return fmt.Sprintf("subsidy of %.2f bps exceeds ceiling of %.2f bps", e.Bps, e.CeilingBps)
}

// DonationReserveInsufficientError is raised when the donation reserve cannot
// cover the worst-case sponsored amount.
type DonationReserveInsufficientError struct {
	Required  *big.Int
	Available *big.Int
}

func (e *DonationReserveInsufficientError) Error() string {
	return fmt.Sprintf("donation reserve balance %s below worst-case sponsored amount %s", e.Available, e.Required)
}

// DestinationGasLimitError is raised when a simulated destination call exceeds
// the per-chain gas ceiling. The message names the chain and the ceiling.
type DestinationGasLimitError struct {
	ChainID  uint64
	GasUsed  uint64
	GasLimit uint64
}

func (e *DestinationGasLimitError) Error() string {
	return fmt.Sprintf("destination gas %d exceeds limit %d on chain %d", e.GasUsed, e.GasLimit, e.ChainID)
}

// LiquidityUnavailableError wraps the order-book sentinels with pair context.
type LiquidityUnavailableError struct {
	TokenIn  string
	TokenOut string
	Cause    error
}

func (e *LiquidityUnavailableError) Error() string {
	return fmt.Sprintf("no executable liquidity for %s -> %s: %v", e.TokenIn, e.TokenOut, e.Cause)
}

func (e *LiquidityUnavailableError) Unwrap() error {
	return e.Cause
}

// HttpError represents an HTTP error with status code and message
type HttpError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s %s", e.StatusCode, e.Code, e.Message)
}

func messageOrDefault(msg string, defaultMsg string) string {
	if msg != "" {
		return msg
	}
	return defaultMsg
}

func HTTPErrorBadRequest(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    messageOrDefault(msg, "Bad request"),
	}
}

func HTTPErrorNotFound(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    messageOrDefault(msg, "Not found"),
	}
}

func HTTPErrorUnprocessable(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "UNPROCESSABLE",
		Message:    messageOrDefault(msg, "Unprocessable request"),
	}
}

func HTTPErrorInternalError(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    messageOrDefault(msg, "Internal server error"),
	}
}
