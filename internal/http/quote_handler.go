package http

import (
	"math/big"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/domain"
	"github.com/across-protocol/quote-engine/internal/engine"
	"github.com/across-protocol/quote-engine/internal/http/httputil"
)

type QuoteHandler struct {
	engineSvc *engine.Service
	tokensCfg *config.TokensConfig
}

func NewQuoteHandler(engineSvc *engine.Service, tokensCfg *config.TokensConfig) *QuoteHandler {
	return &QuoteHandler{engineSvc: engineSvc, tokensCfg: tokensCfg}
}

func (h *QuoteHandler) Root() string {
	return "/quote"
}

func (h *QuoteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getQuoteExactInput)
	pub.GET("/output", h.getQuoteForOutput)
}

// QuoteQuery is the shared query shape for both quote endpoints. Amounts are
// decimal strings in base units; floats are never accepted on the wire.
type QuoteQuery struct {
	InputChainID  uint64 `form:"inputChainId" binding:"required" example:"1"`
	OutputChainID uint64 `form:"outputChainId" binding:"required" example:"8453"`

	// Tokens are addressed by symbol or by on-chain address.
	InputToken  string `form:"inputToken" binding:"required" example:"USDC"`
	OutputToken string `form:"outputToken" binding:"required" example:"USDC"`

	// Amount is the exact input for /quote and the minimum output for
	// /quote/output, in base units of the respective token.
	Amount string `form:"amount" binding:"required" example:"1000000000"`

	Recipient     string  `form:"recipient" example:"0x1111111111111111111111111111111111111111"`
	Depositor     string  `form:"depositor" example:"0x2222222222222222222222222222222222222222"`
	AppFeePercent float64 `form:"appFeePercent" example:"0.25"`
	IntegratorID  string  `form:"integratorId"`
}

// TokenView mirrors a registry token on the wire.
type TokenView struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// FeeComponentView is one itemized fee. Amount is a decimal string in the
// component token's base units.
type FeeComponentView struct {
	Amount    string   `json:"amount"`
	AmountUsd float64  `json:"amountUsd"`
	Token     string   `json:"token"`
	Pct       *float64 `json:"pct,omitempty"`
}

// FeesView is the reconciled USD breakdown. Total covers the expected output,
// TotalMax the guaranteed minimum.
type FeesView struct {
	Total          FeeComponentView `json:"total"`
	TotalMax       FeeComponentView `json:"totalMax"`
	OriginGas      FeeComponentView `json:"originGas"`
	DestinationGas FeeComponentView `json:"destinationGas"`
	BridgeFee      FeeComponentView `json:"bridgeFee"`
	AppFee         FeeComponentView `json:"appFee"`
	SwapImpact     FeeComponentView `json:"swapImpact"`
	MaxSwapImpact  FeeComponentView `json:"maxSwapImpact"`
}

// QuoteView is one priced route.
type QuoteView struct {
	Provider             string    `json:"provider"`
	Sponsored            bool      `json:"sponsored"`
	InputToken           TokenView `json:"inputToken"`
	OutputToken          TokenView `json:"outputToken"`
	InputAmount          string    `json:"inputAmount"`
	OutputAmount         string    `json:"outputAmount"`
	MinOutputAmount      string    `json:"minOutputAmount"`
	EstimatedFillTimeSec int64     `json:"estimatedFillTimeSec"`
	// Fees is omitted when the USD breakdown is unavailable; the base quote
	// is still actionable.
	Fees *FeesView `json:"fees,omitempty"`
}

// QuotesResponse lists every serviceable route, best guaranteed output first.
type QuotesResponse struct {
	Quotes []QuoteView `json:"quotes"`
}

// @Summary Get bridge quotes for an exact input amount
// @Description Prices the route on every eligible bridge provider and returns
// @Description all quotes sorted by guaranteed output, including an itemized
// @Description USD fee breakdown and an estimated fill time.
// @Tags quote
// @Produce json
// @Param inputChainId query int true "Origin chain ID"
// @Param outputChainId query int true "Destination chain ID"
// @Param inputToken query string true "Input token symbol or address"
// @Param outputToken query string true "Output token symbol or address"
// @Param amount query string true "Exact input amount in base units (decimal string)"
// @Param recipient query string false "Destination recipient"
// @Param depositor query string false "Origin depositor"
// @Param appFeePercent query number false "Application fee in percent of output"
// @Success 200 {object} QuotesResponse
// @Failure 400 {object} httputil.Response
// @Failure 422 {object} httputil.Response
// @Router /api/v1/quote [get]
func (h *QuoteHandler) getQuoteExactInput(c *gin.Context) {
	h.quote(c, engine.TradeExactInput)
}

// @Summary Get bridge quotes for a desired minimum output
// @Description Grosses the requested minimum output up into an input amount on
// @Description every eligible provider and verifies the realized output clears
// @Description the floor, accounting for shared-decimals truncation on
// @Description message-passing routes.
// @Tags quote
// @Produce json
// @Param inputChainId query int true "Origin chain ID"
// @Param outputChainId query int true "Destination chain ID"
// @Param inputToken query string true "Input token symbol or address"
// @Param outputToken query string true "Output token symbol or address"
// @Param amount query string true "Minimum output amount in base units (decimal string)"
// @Param recipient query string false "Destination recipient"
// @Param depositor query string false "Origin depositor"
// @Success 200 {object} QuotesResponse
// @Failure 400 {object} httputil.Response
// @Failure 422 {object} httputil.Response
// @Router /api/v1/quote/output [get]
func (h *QuoteHandler) getQuoteForOutput(c *gin.Context) {
	h.quote(c, engine.TradeExactOutput)
}

func (h *QuoteHandler) quote(c *gin.Context, trade engine.TradeType) {
	swap, ok := h.parseSwap(c)
	if !ok {
		return
	}

	set, err := h.engineSvc.Quote(c.Request.Context(), swap, trade)
	if err != nil {
		httputil.HandleEngineError(c, err)
		return
	}

	resp := QuotesResponse{Quotes: make([]QuoteView, 0, len(set.Quotes))}
	for _, q := range set.Quotes {
		resp.Quotes = append(resp.Quotes, quoteView(q))
	}
	httputil.HandleSuccess(c, resp)
}

func (h *QuoteHandler) parseSwap(c *gin.Context) (domain.CrossSwap, bool) {
	var q QuoteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.HandleBadRequest(c, "invalid query parameters: "+err.Error())
		return domain.CrossSwap{}, false
	}

	inputToken, ok := resolveToken(h.tokensCfg, q.InputChainID, q.InputToken)
	if !ok {
		httputil.HandleBadRequest(c, "unknown input token "+q.InputToken+" on chain "+strconv.FormatUint(q.InputChainID, 10))
		return domain.CrossSwap{}, false
	}
	outputToken, ok := resolveToken(h.tokensCfg, q.OutputChainID, q.OutputToken)
	if !ok {
		httputil.HandleBadRequest(c, "unknown output token "+q.OutputToken+" on chain "+strconv.FormatUint(q.OutputChainID, 10))
		return domain.CrossSwap{}, false
	}

	amount, ok := new(big.Int).SetString(q.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		httputil.HandleBadRequest(c, "invalid amount: must be a positive integer")
		return domain.CrossSwap{}, false
	}

	if q.AppFeePercent < 0 || q.AppFeePercent >= 100 {
		httputil.HandleBadRequest(c, "appFeePercent must be in [0, 100)")
		return domain.CrossSwap{}, false
	}

	return domain.CrossSwap{
		InputToken:    inputToken,
		OutputToken:   outputToken,
		Amount:        amount,
		Recipient:     q.Recipient,
		Depositor:     q.Depositor,
		AppFeePercent: q.AppFeePercent,
		IntegratorID:  q.IntegratorID,
	}, true
}

// resolveToken accepts a symbol first, then an address.
func resolveToken(tokens *config.TokensConfig, chainID uint64, ref string) (domain.Token, bool) {
	if tok, ok := tokens.BySymbol(chainID, ref); ok {
		return tok, true
	}
	return tokens.ByAddress(chainID, ref)
}

func quoteView(q *engine.QuoteResult) QuoteView {
	view := QuoteView{
		Provider:             q.Quote.Provider.String(),
		Sponsored:            q.Quote.Provider.Sponsored(),
		InputToken:           tokenView(q.Quote.InputToken),
		OutputToken:          tokenView(q.Quote.OutputToken),
		InputAmount:          q.Quote.InputAmount.String(),
		OutputAmount:         q.Quote.OutputAmount.String(),
		MinOutputAmount:      q.Quote.MinOutputAmount.String(),
		EstimatedFillTimeSec: q.Quote.EstimatedFillTimeSec,
	}
	if q.Quote.Fees != nil {
		view.Fees = feesView(q.Quote.Fees)
	}
	return view
}

func tokenView(t domain.Token) TokenView {
	return TokenView{ChainID: t.ChainID, Address: t.Address, Symbol: t.Symbol, Decimals: t.Decimals}
}

func feesView(f *domain.SwapFees) *FeesView {
	return &FeesView{
		Total:          componentView(f.Total),
		TotalMax:       componentView(f.TotalMax),
		OriginGas:      componentView(f.OriginGas),
		DestinationGas: componentView(f.DestinationGas),
		BridgeFee:      componentView(f.BridgeFee),
		AppFee:         componentView(f.AppFee),
		SwapImpact:     componentView(f.SwapImpact),
		MaxSwapImpact:  componentView(f.MaxSwapImpact),
	}
}

func componentView(c domain.FeeComponent) FeeComponentView {
	amount := "0"
	if c.Amount != nil {
		amount = c.Amount.String()
	}
	return FeeComponentView{
		Amount:    amount,
		AmountUsd: c.AmountUsd,
		Token:     c.Token.Symbol,
		Pct:       c.Pct,
	}
}
