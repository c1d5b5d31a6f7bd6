package application

import (
	"errors"
	"fmt"
)

var (
	// ErrVaultSatsUnavailable means no price path was left to size the
	// collateral: live oracle failed, no user override, no fallback price.
	ErrVaultSatsUnavailable = errors.New("vault sats unavailable")
	ErrMissingVaultID       = errors.New("missing vault id")
	ErrTxidUnavailable      = errors.New("txid unavailable")
	ErrInvalidBackendHex    = errors.New("invalid transaction hex from backend")
	ErrInvalidSighash       = errors.New("invalid sighash")
	ErrInvalidTapleafHash   = errors.New("invalid tapleaf hash length")
	ErrInvalidMerkleRoot    = errors.New("invalid merkle root length")
)

type errInsufficientFunds struct {
	available uint64
	required  uint64
}

func (e errInsufficientFunds) Error() string {
	return fmt.Sprintf(
		"insufficient funds: available %d sats, required %d sats",
		e.available, e.required,
	)
}

// ErrInsufficientFunds reports a funding set too small to cover the
// requirement. The mint flow treats it as "no override available" rather
// than a hard failure.
var ErrInsufficientFunds = errors.New("insufficient funds")

func (e errInsufficientFunds) Unwrap() error { return ErrInsufficientFunds }
