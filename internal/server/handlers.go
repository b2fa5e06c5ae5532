package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/contactkeval/option-amm/internal/amm"
	"github.com/contactkeval/option-amm/internal/data"
	"github.com/contactkeval/option-amm/internal/logger"
	"github.com/contactkeval/option-amm/internal/onchain"
	"github.com/contactkeval/option-amm/internal/pricing"
	"github.com/contactkeval/option-amm/internal/strategy"
)

// fail maps engine errors onto status codes. Unpriceable inputs are 422
// with the offending field, so clients can render a placeholder.
func (s *Server) fail(c *gin.Context, err error) {
	var in *amm.InputError
	var ce *onchain.ContractError
	switch {
	case errors.As(err, &in):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "field": in.Field})
	case errors.As(err, &ce):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": ce.Code})
	case errors.Is(err, strategy.ErrInvalidStrikeExpression),
		errors.Is(err, strategy.ErrLegIndexOutOfRange),
		errors.Is(err, strategy.ErrUnknownPreset),
		errors.Is(err, strategy.ErrInvalidLeg),
		errors.Is(err, pricing.ErrDeltaOutOfRange):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, data.ErrNoPrice):
		s.metrics.ProviderMiss.Inc()
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		logger.Errorf("event=request_failed path=%s err=%v", c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// pricingInputs holds the optional volatility and rate of a request. The
// request types below declare them beside the embedded engine type so the
// shallower field wins when decoding and a missing field stays nil.
type pricingInputs struct {
	ImpliedVolatility *float64 `json:"implied_volatility"`
	RiskFreeRate      *float64 `json:"risk_free_rate"`
}

// resolve returns the request's volatility and rate, taking the configured
// value for each one left out.
func (s *Server) resolve(in pricingInputs) (iv, rate float64) {
	iv, rate = s.cfg.Pricing.ImpliedVolatility, s.cfg.Pricing.RiskFreeRate
	if in.ImpliedVolatility != nil {
		iv = *in.ImpliedVolatility
	}
	if in.RiskFreeRate != nil {
		rate = *in.RiskFreeRate
	}
	return iv, rate
}

type contractRequest struct {
	pricing.ContractParams
	ImpliedVolatility *float64 `json:"implied_volatility"`
	RiskFreeRate      *float64 `json:"risk_free_rate"`
}

// contract fills the configured volatility and rate where the request left
// them out and validates the result.
func (s *Server) contract(r contractRequest) (pricing.ContractParams, error) {
	p := r.ContractParams
	p.ImpliedVolatility, p.RiskFreeRate = s.resolve(pricingInputs{r.ImpliedVolatility, r.RiskFreeRate})
	return p, amm.CheckContract(p)
}

// underlying returns price, or resolves symbol through the provider chain
// when price is zero.
func (s *Server) underlying(c *gin.Context, symbol string, price float64) (float64, error) {
	if price != 0 || symbol == "" || s.prov == nil {
		return price, nil
	}
	return data.Resolve(c.Request.Context(), s.prov, symbol)
}

type priceResponse struct {
	Price          float64 `json:"price"`
	IntrinsicValue float64 `json:"intrinsic_value"`
	TimeValue      float64 `json:"time_value"`
}

func (s *Server) price(c *gin.Context) {
	var req contractRequest
	if !s.bind(c, &req) {
		return
	}
	p, err := s.contract(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	price := pricing.Price(p)
	intrinsic := pricing.IntrinsicValue(p.WithDefaults().Type, p.UnderlyingPrice, p.StrikePrice)
	c.JSON(http.StatusOK, priceResponse{Price: price, IntrinsicValue: intrinsic, TimeValue: price - intrinsic})
}

func (s *Server) greeks(c *gin.Context) {
	var req contractRequest
	if !s.bind(c, &req) {
		return
	}
	p, err := s.contract(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pricing.ComputeGreeks(p))
}

type ivRequest struct {
	contractRequest
	MarketPrice float64 `json:"market_price"`
}

type ivResponse struct {
	pricing.IVResult
	ImpliedVolatility float64 `json:"implied_volatility"` // percent
}

func (s *Server) impliedVolatility(c *gin.Context) {
	var req ivRequest
	if !s.bind(c, &req) {
		return
	}
	if !(req.MarketPrice > 0) {
		s.fail(c, &amm.InputError{Field: "market_price", Value: req.MarketPrice})
		return
	}
	p, err := s.contract(req.contractRequest)
	if err != nil {
		s.fail(c, err)
		return
	}
	res := pricing.SolveImpliedVolatility(req.MarketPrice, p)
	c.JSON(http.StatusOK, ivResponse{IVResult: res, ImpliedVolatility: res.Sigma * 100})
}

type quoteRequest struct {
	amm.QuoteRequest
	ImpliedVolatility *float64 `json:"implied_volatility"`
	RiskFreeRate      *float64 `json:"risk_free_rate"`
}

func (s *Server) quote(c *gin.Context) {
	var in quoteRequest
	if !s.bind(c, &in) {
		return
	}
	req := in.QuoteRequest
	req.ImpliedVolatility, req.RiskFreeRate = s.resolve(pricingInputs{in.ImpliedVolatility, in.RiskFreeRate})
	q, err := s.engine.Quote(req)
	if err != nil {
		s.metrics.ObserveUnavailable(string(req.Side))
		s.fail(c, err)
		return
	}
	s.metrics.ObserveQuote(string(q.Side), q.Spread, q.PriceImpact)
	c.JSON(http.StatusOK, q)
}

type slippageRequest struct {
	TradeSize     float64 `json:"trade_size"`
	PoolLiquidity float64 `json:"pool_liquidity"`
	OptionPrice   float64 `json:"option_price"`
	Tolerance     float64 `json:"tolerance,omitempty"`
}

func (s *Server) slippage(c *gin.Context) {
	var req slippageRequest
	if !s.bind(c, &req) {
		return
	}
	est, err := s.engine.Slippage(req.TradeSize, req.PoolLiquidity, req.OptionPrice, req.Tolerance)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}

type simulateRequest struct {
	CurrentPrice  float64  `json:"current_price"`
	TradeSize     float64  `json:"trade_size"`
	Side          amm.Side `json:"side"`
	PoolLiquidity float64  `json:"pool_liquidity"`
	TotalVolume   float64  `json:"total_volume"`
}

func (s *Server) simulate(c *gin.Context) {
	var req simulateRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Side == "" {
		req.Side = amm.Buy
	}
	proj, err := s.engine.SimulateImpact(req.CurrentPrice, req.TradeSize, req.Side, req.PoolLiquidity, req.TotalVolume)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, proj)
}

type ticketRequest struct {
	amm.TicketRequest
	ImpliedVolatility *float64 `json:"implied_volatility"`
	RiskFreeRate      *float64 `json:"risk_free_rate"`
}

func (s *Server) ticket(c *gin.Context) {
	var in ticketRequest
	if !s.bind(c, &in) {
		return
	}
	req := in.TicketRequest
	req.ImpliedVolatility, req.RiskFreeRate = s.resolve(pricingInputs{in.ImpliedVolatility, in.RiskFreeRate})
	t, err := s.engine.Ticket(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type chainRequest struct {
	amm.ChainRequest
	ImpliedVolatility *float64 `json:"implied_volatility"`
	RiskFreeRate      *float64 `json:"risk_free_rate"`
	PoolLiquidity     *float64 `json:"pool_liquidity"`
	TotalVolume       *float64 `json:"total_volume"`
}

// chain fills the configured pool snapshot, IV and rate when the request
// leaves them out, and resolves the underlying price by symbol when needed.
func (s *Server) chain(c *gin.Context) {
	var in chainRequest
	if !s.bind(c, &in) {
		return
	}
	req := in.ChainRequest
	req.ImpliedVolatility, req.RiskFreeRate = s.resolve(pricingInputs{in.ImpliedVolatility, in.RiskFreeRate})
	price, err := s.underlying(c, req.Underlying, req.UnderlyingPrice)
	if err != nil {
		s.fail(c, err)
		return
	}
	req.UnderlyingPrice = price
	if req.Now.IsZero() {
		req.Now = s.now()
	}
	req.PoolLiquidity, req.TotalVolume = s.cfg.Pool.Liquidity, s.cfg.Pool.Volume
	if in.PoolLiquidity != nil {
		req.PoolLiquidity = *in.PoolLiquidity
	}
	if in.TotalVolume != nil {
		req.TotalVolume = *in.TotalVolume
	}

	ch, err := s.engine.Chain(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

type rewardsRequest struct {
	LiquidityProvided  float64 `json:"liquidity_provided"`
	TotalPoolLiquidity float64 `json:"total_pool_liquidity"`
	TotalVolume        float64 `json:"total_volume"`
	FeeRate            float64 `json:"fee_rate,omitempty"`
}

func (s *Server) rewards(c *gin.Context) {
	var req rewardsRequest
	if !s.bind(c, &req) {
		return
	}
	c.JSON(http.StatusOK, s.engine.LPRewards(req.LiquidityProvided, req.TotalPoolLiquidity, req.TotalVolume, req.FeeRate))
}

type marketRequest struct {
	strategy.Market
	ImpliedVolatility *float64 `json:"implied_volatility"`
	RiskFreeRate      *float64 `json:"risk_free_rate"`
}

type analyzeRequest struct {
	Preset   string                 `json:"preset,omitempty"`
	Strategy *strategy.StrategySpec `json:"strategy,omitempty"`
	Symbol   string                 `json:"symbol,omitempty"`
	Market   marketRequest          `json:"market"`
	Range    *strategy.Range        `json:"range,omitempty"`
}

func (s *Server) analyze(c *gin.Context) {
	var req analyzeRequest
	if !s.bind(c, &req) {
		return
	}

	var spec strategy.StrategySpec
	switch {
	case req.Strategy != nil:
		spec = *req.Strategy
	case req.Preset != "":
		p, err := strategy.Preset(req.Preset)
		if err != nil {
			s.fail(c, err)
			return
		}
		spec = p
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "one of preset or strategy is required"})
		return
	}

	m := req.Market.Market
	m.ImpliedVolatility, m.RiskFreeRate = s.resolve(pricingInputs{req.Market.ImpliedVolatility, req.Market.RiskFreeRate})
	price, err := s.underlying(c, req.Symbol, m.UnderlyingPrice)
	if err != nil {
		s.fail(c, err)
		return
	}
	m.UnderlyingPrice = price
	if m.StrikeInterval == 0 {
		m.StrikeInterval = s.cfg.Strategy.StrikeInterval
	}

	rng := s.strategyRange()
	if req.Range != nil {
		rng = *req.Range
	}

	legs, err := strategy.Plan(spec, m)
	if err != nil {
		s.fail(c, err)
		return
	}
	a, err := strategy.Analyze(spec.Name, legs, m.UnderlyingPrice, rng)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, a)
}

type onchainPriceRequest struct {
	Pool        onchain.Pool `json:"pool"`
	Quantity    uint64       `json:"quantity"`
	OraclePrice uint64       `json:"oracle_price"`
	BlockHeight uint64       `json:"block_height"`
}

func (s *Server) onchainPrice(c *gin.Context) {
	var req onchainPriceRequest
	if !s.bind(c, &req) {
		return
	}
	b, err := onchain.PriceDetail(req.Pool, req.Quantity, req.OraclePrice, req.BlockHeight)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
