package amm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-amm/internal/amm"
)

func TestSlippage(t *testing.T) {
	e := newEngine()

	t.Run("small trade", func(t *testing.T) {
		// 1000 * 5 / 1e6 = 0.005; 0.005^1.2 * 0.1 = 1.7329e-4.
		s, err := e.Slippage(1000, 1_000_000, 5, 0)
		require.NoError(t, err)
		assert.InDelta(t, 0.0173286, s.EstimatedSlippage, 1e-6)
		assert.True(t, s.IsAcceptable)
		assert.Equal(t, 1000.0, s.MaxRecommendedSize)
		assert.Empty(t, s.Warning)
	})

	t.Run("pool-sized trade", func(t *testing.T) {
		s, err := e.Slippage(200_000, 1_000_000, 5, 0)
		require.NoError(t, err)
		assert.InDelta(t, 10.0, s.EstimatedSlippage, 1e-9)
		assert.False(t, s.IsAcceptable)
		assert.Equal(t, 112246.0, s.MaxRecommendedSize)
		assert.Equal(t, amm.HighSlippageWarning, s.Warning)
	})

	t.Run("warning is independent of tolerance", func(t *testing.T) {
		// ratio 0.4 -> 0.4^1.2 * 0.1 ~= 0.0333: above the 2% warning, within 5% tolerance.
		s, err := e.Slippage(80_000, 1_000_000, 5, 0)
		require.NoError(t, err)
		assert.True(t, s.IsAcceptable)
		assert.Equal(t, amm.HighSlippageWarning, s.Warning)

		// A tight tolerance rejects without warning.
		s, err = e.Slippage(1000, 1_000_000, 5, 0.0001)
		require.NoError(t, err)
		assert.False(t, s.IsAcceptable)
		assert.Empty(t, s.Warning)
	})

	t.Run("zero price never slips", func(t *testing.T) {
		s, err := e.Slippage(1000, 1_000_000, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 0.0, s.EstimatedSlippage)
		assert.True(t, s.IsAcceptable)
	})

	t.Run("unavailable", func(t *testing.T) {
		_, err := e.Slippage(1, 0, 5, 0)
		assert.ErrorIs(t, err, amm.ErrQuoteUnavailable)
		_, err = e.Slippage(-1, 1e6, 5, 0)
		assert.ErrorIs(t, err, amm.ErrQuoteUnavailable)
	})
}

func TestSimulateImpact(t *testing.T) {
	e := newEngine()

	buy, err := e.SimulateImpact(10, 100, amm.Buy, 1_000_000, 50_000)
	require.NoError(t, err)
	assert.InDelta(t, 1_000_500, buy.NewLiquidity, 1e-9)
	assert.InDelta(t, 51_000, buy.NewVolume, 1e-9)
	assert.InDelta(t, 10.0001, buy.NewMidPrice, 1e-12)
	assert.InDelta(t, 0.001, buy.PriceChange, 1e-12)

	sell, err := e.SimulateImpact(10, 100, amm.Sell, 1_000_000, 50_000)
	require.NoError(t, err)
	assert.InDelta(t, 999_500, sell.NewLiquidity, 1e-9)
	assert.InDelta(t, 9.9999, sell.NewMidPrice, 1e-12)
	assert.InDelta(t, -0.001, sell.PriceChange, 1e-12)

	t.Run("floors", func(t *testing.T) {
		p, err := e.SimulateImpact(10, 1_000_000, amm.Sell, 1000, 0)
		require.NoError(t, err)
		assert.Equal(t, 1000.0, p.NewLiquidity)
		assert.Equal(t, 0.01, p.NewMidPrice)
	})

	t.Run("unavailable", func(t *testing.T) {
		_, err := e.SimulateImpact(10, 1, amm.Buy, 0, 0)
		assert.ErrorIs(t, err, amm.ErrQuoteUnavailable)
		_, err = e.SimulateImpact(10, 1, "hold", 1e6, 0)
		assert.ErrorIs(t, err, amm.ErrQuoteUnavailable)
	})
}
