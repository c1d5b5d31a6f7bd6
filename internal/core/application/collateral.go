package application

import (
	"math"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/domain"
)

// CollateralParams sizes the collateral requirement: ratio in basis points
// (13_000 = 130%) against a mint target in USD cents.
type CollateralParams struct {
	RatioBps uint32
	UsdCents uint64
}

// RequiredCollateralSats converts a USD-denominated mint target into the
// satoshis required at the given collateralization ratio and BTC/USD price.
// Rounding is always upward so the protocol never under-collateralizes.
// priceUsd must be positive; callers treat a non-positive oracle result as
// "price unavailable" before reaching this point.
func RequiredCollateralSats(priceUsd float64, ratioBps uint32, usdCents uint64) uint64 {
	usd := float64(usdCents) / 100
	ratio := float64(ratioBps) / 10_000
	return uint64(math.Ceil(usd * ratio / priceUsd * domain.SatsPerBtc))
}
