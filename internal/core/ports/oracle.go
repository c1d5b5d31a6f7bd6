package ports

import (
	"context"
	"errors"
)

// ErrPriceUnavailable covers every oracle outcome that cannot be used for
// sizing: transport failure, error result, or a non-positive rate.
var ErrPriceUnavailable = errors.New("price unavailable")

type RateSource interface {
	// GetBtcUsdPrice returns the live BTC/USD price. Implementations must
	// return ErrPriceUnavailable (possibly wrapped) instead of a price <= 0.
	GetBtcUsdPrice(ctx context.Context) (float64, error)
}
