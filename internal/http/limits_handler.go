package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/engine"
	"github.com/across-protocol/quote-engine/internal/http/httputil"
)

type LimitsHandler struct {
	engineSvc *engine.Service
	tokensCfg *config.TokensConfig
}

func NewLimitsHandler(engineSvc *engine.Service, tokensCfg *config.TokensConfig) *LimitsHandler {
	return &LimitsHandler{engineSvc: engineSvc, tokensCfg: tokensCfg}
}

func (h *LimitsHandler) Root() string {
	return "/limits"
}

func (h *LimitsHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getLimits)
}

// LimitsResponse bounds a single deposit for the route, in input token base
// units as decimal strings.
type LimitsResponse struct {
	MinDeposit string `json:"minDeposit"`
	MaxDeposit string `json:"maxDeposit"`
}

// @Summary Get deposit limits for a route
// @Description Converts the configured USD deposit bounds into input token
// @Description units at the current price. The intent relayer capacity caps
// @Description the ceiling when that provider services the pair.
// @Tags limits
// @Produce json
// @Param inputChainId query int true "Origin chain ID"
// @Param outputChainId query int true "Destination chain ID"
// @Param inputToken query string true "Input token symbol or address"
// @Param outputToken query string true "Output token symbol or address"
// @Success 200 {object} LimitsResponse
// @Failure 400 {object} httputil.Response
// @Router /api/v1/limits [get]
func (h *LimitsHandler) getLimits(c *gin.Context) {
	var q RoutePairQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.HandleBadRequest(c, "invalid query parameters: "+err.Error())
		return
	}

	inputToken, ok := resolveToken(h.tokensCfg, q.InputChainID, q.InputToken)
	if !ok {
		httputil.HandleBadRequest(c, "unknown input token "+q.InputToken+" on chain "+strconv.FormatUint(q.InputChainID, 10))
		return
	}
	outputToken, ok := resolveToken(h.tokensCfg, q.OutputChainID, q.OutputToken)
	if !ok {
		httputil.HandleBadRequest(c, "unknown output token "+q.OutputToken+" on chain "+strconv.FormatUint(q.OutputChainID, 10))
		return
	}

	limits, err := h.engineSvc.Limits(c.Request.Context(), inputToken, outputToken)
	if err != nil {
		httputil.HandleEngineError(c, err)
		return
	}

	httputil.HandleSuccess(c, LimitsResponse{
		MinDeposit: limits.MinDeposit.String(),
		MaxDeposit: limits.MaxDeposit.String(),
	})
}
