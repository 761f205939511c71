package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/engine"
	"github.com/across-protocol/quote-engine/internal/http/httputil"
)

type RoutesHandler struct {
	engineSvc *engine.Service
	tokensCfg *config.TokensConfig
}

func NewRoutesHandler(engineSvc *engine.Service, tokensCfg *config.TokensConfig) *RoutesHandler {
	return &RoutesHandler{engineSvc: engineSvc, tokensCfg: tokensCfg}
}

func (h *RoutesHandler) Root() string {
	return "/routes"
}

func (h *RoutesHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.listRoutes)
}

// RoutePairQuery identifies a token pair.
type RoutePairQuery struct {
	InputChainID  uint64 `form:"inputChainId" binding:"required"`
	OutputChainID uint64 `form:"outputChainId" binding:"required"`
	InputToken    string `form:"inputToken" binding:"required"`
	OutputToken   string `form:"outputToken" binding:"required"`
}

// RoutesResponse lists the providers able to service the pair.
type RoutesResponse struct {
	Routes []engine.RouteInfo `json:"routes"`
}

// @Summary List eligible bridge routes for a token pair
// @Description Pure static-configuration lookup of which providers service the
// @Description pair and how each classifies the swap. Never touches the network.
// @Tags routes
// @Produce json
// @Param inputChainId query int true "Origin chain ID"
// @Param outputChainId query int true "Destination chain ID"
// @Param inputToken query string true "Input token symbol or address"
// @Param outputToken query string true "Output token symbol or address"
// @Success 200 {object} RoutesResponse
// @Failure 400 {object} httputil.Response
// @Router /api/v1/routes [get]
func (h *RoutesHandler) listRoutes(c *gin.Context) {
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

	routes := h.engineSvc.Routes(inputToken, outputToken)
	if routes == nil {
		routes = []engine.RouteInfo{}
	}
	httputil.HandleSuccess(c, RoutesResponse{Routes: routes})
}
