package ports

import (
	"errors"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/domain"
)

// ErrVaultNotPending is returned by Take when the vault id has no pending
// reservation: either it was never reserved, or another finalize attempt
// already took it.
var ErrVaultNotPending = errors.New("vault not pending")

// LiveStore owns the volatile reservation state: the monotonic vault id
// counter and the pending mint records. A pending record must be taken
// (removed) before any awaited finalize step is issued, and restored in every
// failure branch afterwards; that ordering is what makes finalization
// at-most-once without losing in-flight reservations.
type LiveStore interface {
	NextVaultID() uint64
	Reserve(record domain.PendingMint)
	Take(vaultID uint64) (*domain.PendingMint, error)
	Restore(record domain.PendingMint)
	Len() int
}
