// Package settlement processes expired option positions: it classifies
// positions by time to expiry and settles expired ones at a settlement price.
// Money is carried as decimal.Decimal so totals add up to the cent.
package settlement

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-amm/internal/logger"
	"github.com/contactkeval/option-amm/internal/pricing"
)

var (
	ErrNotExpired      = errors.New("position has not expired")
	ErrAlreadySettled  = errors.New("position already settled")
	ErrInvalidPosition = errors.New("invalid position")
)

// Status of a position.
type Status string

const (
	StatusOpen    Status = "open"
	StatusExpired Status = "expired"
)

// Position is a long option position held to expiration.
type Position struct {
	ID          string             `json:"id"`
	Symbol      string             `json:"symbol"`
	OptionType  pricing.OptionType `json:"option_type"`
	Strike      decimal.Decimal    `json:"strike_price"`
	Expiration  time.Time          `json:"expiration_date"`
	Contracts   int                `json:"contracts"`    // zero means one
	PremiumPaid decimal.Decimal    `json:"premium_paid"` // per contract
	Status      Status             `json:"status"`       // empty means open
}

func (p Position) contracts() int64 {
	if p.Contracts <= 0 {
		return 1
	}
	return int64(p.Contracts)
}

func (p Position) open() bool { return p.Status == "" || p.Status == StatusOpen }

// DaysToExpiration is floor(days until expiration), never below one.
func DaysToExpiration(expiration, now time.Time) int {
	return pricing.DaysUntil(expiration, now)
}

// IsExpired reports whether the expiration instant has passed.
func IsExpired(p Position, now time.Time) bool {
	return now.After(p.Expiration)
}

// Urgency buckets open positions by time left.
type Urgency string

const (
	UrgencyExpired  Urgency = "expired"
	UrgencyCritical Urgency = "critical" // a day or less
	UrgencyWarning  Urgency = "warning"  // three days or less
	UrgencyNormal   Urgency = "normal"
)

// Classify returns the urgency of p at now. Days are whole days remaining,
// truncated.
func Classify(p Position, now time.Time) Urgency {
	if IsExpired(p, now) {
		return UrgencyExpired
	}
	days := int(p.Expiration.Sub(now).Hours() / 24)
	switch {
	case days <= 0:
		return UrgencyExpired
	case days <= 1:
		return UrgencyCritical
	case days <= 3:
		return UrgencyWarning
	}
	return UrgencyNormal
}

// ExpiringWithin returns the open, unexpired positions expiring within
// window of now, soonest first.
func ExpiringWithin(positions []Position, now time.Time, window time.Duration) []Position {
	var out []Position
	limit := now.Add(window)
	for _, p := range positions {
		if p.open() && !p.Expiration.Before(now) && !p.Expiration.After(limit) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Expiration.Before(out[j].Expiration) })
	return out
}

// Expired returns the open positions whose expiration has passed.
func Expired(positions []Position, now time.Time) []Position {
	var out []Position
	for _, p := range positions {
		if p.open() && IsExpired(p, now) {
			out = append(out, p)
		}
	}
	return out
}

// Record is the outcome of settling one position.
type Record struct {
	ID              string             `json:"id"`
	PositionID      string             `json:"position_id"`
	Symbol          string             `json:"symbol"`
	OptionType      pricing.OptionType `json:"option_type"`
	Strike          decimal.Decimal    `json:"strike_price"`
	Expiration      time.Time          `json:"expiration_date"`
	SettlementPrice decimal.Decimal    `json:"settlement_price"`
	Contracts       int64              `json:"contracts"`
	PremiumPaid     decimal.Decimal    `json:"premium_paid"`
	SettlementValue decimal.Decimal    `json:"settlement_value"`
	FinalPnL        decimal.Decimal    `json:"final_pnl"`
	IsExercised     bool               `json:"is_exercised"`
	ProcessedAt     time.Time          `json:"processed_at"`
}

// IntrinsicValue is the per-contract payoff of t at settlement price s.
func IntrinsicValue(t pricing.OptionType, strike, s decimal.Decimal) decimal.Decimal {
	v := s.Sub(strike)
	if t == pricing.Put {
		v = strike.Sub(s)
	}
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// Settle settles an expired open position at settlementPrice. The returned
// record carries a fresh id; the position itself is not modified.
func Settle(p Position, settlementPrice decimal.Decimal, now time.Time) (Record, error) {
	if p.OptionType != pricing.Call && p.OptionType != pricing.Put {
		return Record{}, fmt.Errorf("%w: option type %q", ErrInvalidPosition, p.OptionType)
	}
	if settlementPrice.IsNegative() {
		return Record{}, fmt.Errorf("%w: negative settlement price %s", ErrInvalidPosition, settlementPrice)
	}
	if !p.open() {
		return Record{}, fmt.Errorf("%w: %s", ErrAlreadySettled, p.ID)
	}
	if !IsExpired(p, now) {
		return Record{}, fmt.Errorf("%w: %s expires %s", ErrNotExpired, p.ID, p.Expiration.Format(time.RFC3339))
	}

	n := decimal.NewFromInt(p.contracts())
	value := IntrinsicValue(p.OptionType, p.Strike, settlementPrice).Mul(n)
	rec := Record{
		ID:              uuid.NewString(),
		PositionID:      p.ID,
		Symbol:          p.Symbol,
		OptionType:      p.OptionType,
		Strike:          p.Strike,
		Expiration:      p.Expiration,
		SettlementPrice: settlementPrice,
		Contracts:       p.contracts(),
		PremiumPaid:     p.PremiumPaid,
		SettlementValue: value,
		FinalPnL:        value.Sub(p.PremiumPaid.Mul(n)),
		IsExercised:     value.IsPositive(),
		ProcessedAt:     now,
	}
	logger.Infof("event=position_settled position=%s symbol=%s exercised=%t value=%s pnl=%s",
		p.ID, p.Symbol, rec.IsExercised, rec.SettlementValue, rec.FinalPnL)
	return rec, nil
}

// Summary totals a batch of settlement records.
type Summary struct {
	Count            int             `json:"count"`
	Exercised        int             `json:"exercised"`
	ExpiredWorthless int             `json:"expired_worthless"`
	TotalValue       decimal.Decimal `json:"total_settlement_value"`
	TotalPremium     decimal.Decimal `json:"total_premium"`
	TotalPnL         decimal.Decimal `json:"total_pnl"`
}

func Summarize(records []Record) Summary {
	s := Summary{TotalValue: decimal.Zero, TotalPremium: decimal.Zero, TotalPnL: decimal.Zero}
	for _, r := range records {
		s.Count++
		if r.IsExercised {
			s.Exercised++
		} else {
			s.ExpiredWorthless++
		}
		s.TotalValue = s.TotalValue.Add(r.SettlementValue)
		s.TotalPremium = s.TotalPremium.Add(r.PremiumPaid.Mul(decimal.NewFromInt(r.Contracts)))
		s.TotalPnL = s.TotalPnL.Add(r.FinalPnL)
	}
	return s
}
