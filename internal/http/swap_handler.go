package http

import (
	"math/big"

	"github.com/gin-gonic/gin"

	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/domain"
	"github.com/across-protocol/quote-engine/internal/engine"
	"github.com/across-protocol/quote-engine/internal/http/httputil"
)

type SwapHandler struct {
	engineSvc *engine.Service
	tokensCfg *config.TokensConfig
}

func NewSwapHandler(engineSvc *engine.Service, tokensCfg *config.TokensConfig) *SwapHandler {
	return &SwapHandler{engineSvc: engineSvc, tokensCfg: tokensCfg}
}

func (h *SwapHandler) Root() string {
	return "/swap"
}

func (h *SwapHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("", h.buildSwap)
}

// SwapRequest selects a provider and fixes the full request shape for
// transaction construction. Amounts are decimal strings in base units.
type SwapRequest struct {
	Provider      string  `json:"provider" binding:"required" example:"intent"`
	InputChainID  uint64  `json:"inputChainId" binding:"required"`
	OutputChainID uint64  `json:"outputChainId" binding:"required"`
	InputToken    string  `json:"inputToken" binding:"required"`
	OutputToken   string  `json:"outputToken" binding:"required"`
	Amount        string  `json:"amount" binding:"required"`
	Depositor     string  `json:"depositor" binding:"required"`
	Recipient     string  `json:"recipient" binding:"required"`
	AppFeePercent float64 `json:"appFeePercent"`
	IntegratorID  string  `json:"integratorId"`
}

// UnsignedTxView is the payload the caller signs and submits.
type UnsignedTxView struct {
	ChainID   uint64 `json:"chainId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Data      string `json:"data"`
	Value     string `json:"value"`
	Ecosystem string `json:"ecosystem"`
}

// ApprovalView is the ERC-20 approval to submit before the deposit, absent
// for native-currency inputs.
type ApprovalView struct {
	ChainID uint64 `json:"chainId"`
	To      string `json:"to"`
	Data    string `json:"data"`
}

// SwapResponse carries the re-priced quote and the transaction payloads.
type SwapResponse struct {
	Quote    QuoteView      `json:"quote"`
	Tx       UnsignedTxView `json:"tx"`
	Approval *ApprovalView  `json:"approval,omitempty"`
}

// @Summary Build an unsigned bridge transaction
// @Description Re-quotes the swap on the chosen provider, runs the economic
// @Description guards (sponsorship coverage, depositor balance, destination
// @Description gas ceiling) and returns the unsigned transaction plus the
// @Description ERC-20 approval when one is needed.
// @Tags swap
// @Accept json
// @Produce json
// @Param request body SwapRequest true "Swap request"
// @Success 200 {object} SwapResponse
// @Failure 400 {object} httputil.Response
// @Failure 422 {object} httputil.Response
// @Router /api/v1/swap [post]
func (h *SwapHandler) buildSwap(c *gin.Context) {
	var req SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	kind, ok := providerFromString(req.Provider)
	if !ok {
		httputil.HandleBadRequest(c, "unknown provider "+req.Provider)
		return
	}

	inputToken, ok := resolveToken(h.tokensCfg, req.InputChainID, req.InputToken)
	if !ok {
		httputil.HandleBadRequest(c, "unknown input token "+req.InputToken)
		return
	}
	outputToken, ok := resolveToken(h.tokensCfg, req.OutputChainID, req.OutputToken)
	if !ok {
		httputil.HandleBadRequest(c, "unknown output token "+req.OutputToken)
		return
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		httputil.HandleBadRequest(c, "invalid amount: must be a positive integer")
		return
	}

	res, err := h.engineSvc.Build(c.Request.Context(), domain.CrossSwap{
		InputToken:    inputToken,
		OutputToken:   outputToken,
		Amount:        amount,
		Depositor:     req.Depositor,
		Recipient:     req.Recipient,
		AppFeePercent: req.AppFeePercent,
		IntegratorID:  req.IntegratorID,
	}, kind)
	if err != nil {
		httputil.HandleEngineError(c, err)
		return
	}

	resp := SwapResponse{
		Quote: quoteView(&engine.QuoteResult{Quote: res.Quote}),
		Tx: UnsignedTxView{
			ChainID:   res.Tx.ChainID,
			From:      res.Tx.From,
			To:        res.Tx.To,
			Data:      res.Tx.Data,
			Value:     res.Tx.Value.String(),
			Ecosystem: string(res.Tx.Ecosystem),
		},
	}
	if res.Approval != nil {
		resp.Approval = &ApprovalView{
			ChainID: res.Approval.ChainID,
			To:      res.Approval.To,
			Data:    res.Approval.Data,
		}
	}
	httputil.HandleSuccess(c, resp)
}

func providerFromString(name string) (domain.ProviderKind, bool) {
	for _, kind := range domain.ProviderKinds() {
		if kind.String() == name {
			return kind, true
		}
	}
	return 0, false
}
