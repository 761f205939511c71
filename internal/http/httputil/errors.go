package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	engcommon "github.com/across-protocol/quote-engine/internal/common"
)

// HandleEngineError maps the engine's typed error taxonomy onto HTTP statuses.
// Parameter problems are 400s, economic and liquidity limits are 422s, and
// anything unrecognized is a 500.
func HandleEngineError(c *gin.Context, err error) {
	var httpErr *engcommon.HttpError
	if errors.As(err, &httpErr) {
		Error(c, httpErr.StatusCode, httpErr.Message)
		return
	}

	var invalid *engcommon.InvalidParamError
	if errors.As(err, &invalid) {
		BadRequest(c, invalid.Message)
		return
	}

	if errors.Is(err, engcommon.ErrPairNotConfigured) {
		NotFound(c, err.Error())
		return
	}

	var (
		tooHigh   *engcommon.AmountTooHighError
		slippage  *engcommon.SlippageTooHighError
		subsidy   *engcommon.MaxSubsidyTooHighError
		reserve   *engcommon.DonationReserveInsufficientError
		gasLimit  *engcommon.DestinationGasLimitError
		liquidity *engcommon.LiquidityUnavailableError
	)
	switch {
	case errors.As(err, &tooHigh),
		errors.As(err, &slippage),
		errors.As(err, &subsidy),
		errors.As(err, &reserve),
		errors.As(err, &gasLimit),
		errors.As(err, &liquidity):
		Error(c, http.StatusUnprocessableEntity, err.Error())
	default:
		InternalError(c, "internal error")
	}
}
