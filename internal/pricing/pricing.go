// Package pricing computes session charges and the platform/tutor split.
// Amounts are integer minor units (cents).
package pricing

import (
	"errors"
	"math"
	"time"
)

const (
	DefaultCommissionRate = 0.3

	// MaxPricePerHour caps hourly rates, in major units.
	MaxPricePerHour = 100000.0

	// Largest cent amount float64 still represents exactly.
	maxCents = 1 << 53
)

var (
	ErrInvalidCommissionRate = errors.New("commission rate must be within [0, 1)")
	ErrAmountOutOfRange      = errors.New("amount out of range")
)

type Quote struct {
	AmountCents        int64 `json:"amount_cents"`
	PlatformFeeCents   int64 `json:"platform_fee_cents"`
	TutorEarningsCents int64 `json:"tutor_earnings_cents"`
}

type Engine struct {
	commissionRate float64
}

func NewEngine(commissionRate float64) (*Engine, error) {
	if math.IsNaN(commissionRate) || commissionRate < 0 || commissionRate >= 1 {
		return nil, ErrInvalidCommissionRate
	}
	return &Engine{commissionRate: commissionRate}, nil
}

func (e *Engine) CommissionRate() float64 {
	return e.commissionRate
}

// ToMinorUnits converts a major-unit price such as 99.95 to cents.
func ToMinorUnits(major float64) (int64, error) {
	cents := math.Round(major * 100)
	if !(cents >= 0 && cents <= maxCents) {
		return 0, ErrAmountOutOfRange
	}
	return int64(cents), nil
}

// Quote prices durationHours at pricePerHour. Rates above MaxPricePerHour and
// totals that do not fit in cents return ErrAmountOutOfRange.
func (e *Engine) Quote(pricePerHour, durationHours float64) (Quote, error) {
	if pricePerHour <= 0 || durationHours <= 0 {
		return Quote{}, nil
	}
	if pricePerHour > MaxPricePerHour {
		return Quote{}, ErrAmountOutOfRange
	}
	rate, err := ToMinorUnits(pricePerHour)
	if err != nil {
		return Quote{}, err
	}
	amount := math.Round(float64(rate) * durationHours)
	if !(amount <= maxCents) {
		return Quote{}, ErrAmountOutOfRange
	}
	return e.Split(int64(amount)), nil
}

// QuoteInterval prices the span between start and end.
func (e *Engine) QuoteInterval(pricePerHour float64, start, end time.Time) (Quote, error) {
	return e.Quote(pricePerHour, end.Sub(start).Hours())
}

// Split divides amountCents so that fee + earnings == amount exactly.
func (e *Engine) Split(amountCents int64) Quote {
	if amountCents < 0 {
		amountCents = 0
	}
	fee := int64(math.Round(float64(amountCents) * e.commissionRate))
	return Quote{
		AmountCents:        amountCents,
		PlatformFeeCents:   fee,
		TutorEarningsCents: amountCents - fee,
	}
}

// AverageRating is the arithmetic mean of every rating, or 0 when there are none.
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	total := 0
	for _, rating := range ratings {
		total += rating
	}
	return float64(total) / float64(len(ratings))
}
