package onchain

import (
	"sync"

	"github.com/contactkeval/option-amm/internal/logger"
	"github.com/contactkeval/option-amm/internal/pricing"
)

// PoolParams are the arguments of create-pool.
type PoolParams struct {
	ID                string             `json:"pool_id"`
	Underlying        string             `json:"underlying"`
	StrikePrice       uint64             `json:"strike_price"`
	ExpirationBlock   uint64             `json:"expiration_block"`
	InitialLiquidity  uint64             `json:"initial_liquidity"`
	Type              pricing.OptionType `json:"option_type"`
	ImpliedVolatility uint64             `json:"implied_volatility"`
}

// Registry is an in-memory stand-in for the contract's pools map.
type Registry struct {
	mu    sync.Mutex
	owner string
	pools map[string]Pool
}

func NewRegistry(owner string) *Registry {
	return &Registry{owner: owner, pools: make(map[string]Pool)}
}

// CreatePool registers a pool with the default utilization and
// collateralization ratios. Only the owner may create pools.
func (r *Registry) CreatePool(sender string, p PoolParams) (Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sender != r.owner {
		return Pool{}, ErrUnauthorized
	}
	if _, ok := r.pools[p.ID]; ok {
		return Pool{}, ErrPoolExists
	}
	if p.InitialLiquidity == 0 {
		return Pool{}, ErrInsufficientLiquidity
	}

	pool := Pool{
		ID:                     p.ID,
		Underlying:             p.Underlying,
		StrikePrice:            p.StrikePrice,
		ExpirationBlock:        p.ExpirationBlock,
		Type:                   p.Type,
		TotalLiquidity:         p.InitialLiquidity,
		TotalLPTokens:          p.InitialLiquidity,
		MaxOpenInterestRatio:   DefaultMaxOpenInterestRatio,
		CollateralizationRatio: DefaultCollateralizationRatio,
		ImpliedVolatility:      p.ImpliedVolatility,
	}
	r.pools[p.ID] = pool
	logger.Debugf("event=onchain_create_pool pool=%s liquidity=%d", p.ID, p.InitialLiquidity)
	return pool, nil
}

// Pool returns a copy of the stored pool.
func (r *Registry) Pool(id string) (Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[id]
	if !ok {
		return Pool{}, ErrInvalidPool
	}
	return p, nil
}

func (r *Registry) Buy(id string, quantity, maxCost, oraclePrice, blockHeight uint64) (uint64, error) {
	p, err := r.Pool(id)
	if err != nil {
		return 0, err
	}
	return Buy(p, quantity, maxCost, oraclePrice, blockHeight)
}

// Sell applies a successful write to the stored pool.
func (r *Registry) Sell(id string, quantity, minPremium, oraclePrice, blockHeight, balance uint64) (SellResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[id]
	if !ok {
		return SellResult{}, ErrInvalidPool
	}
	res, err := Sell(p, quantity, minPremium, oraclePrice, blockHeight, balance)
	if err != nil {
		return SellResult{}, err
	}
	r.pools[id] = res.Pool
	return res, nil
}
