package ports

import (
	"context"
	"errors"
)

var (
	ErrInvalidProtocolKeyLength       = errors.New("invalid protocol public key length")
	ErrInvalidProtocolSignatureLength = errors.New("invalid protocol signature length")
)

// ProtocolKey is the per-vault public key derived by the threshold signing
// authority. The matching private key is never materialized anywhere.
type ProtocolKey struct {
	VaultID      uint64
	PublicKeyHex string // 32-byte x-only, hex
	ChainCodeHex string
}

// SchnorrSigner derives vault-scoped BIP-340 keys and signs 32-byte digests
// through a remote signing authority. Sign performs no hashing: the digest
// must already be a transaction sighash. Remote failures are surfaced as-is;
// retry policy belongs to the caller.
type SchnorrSigner interface {
	DerivePublicKey(ctx context.Context, vaultID uint64) (*ProtocolKey, error)
	Sign(ctx context.Context, vaultID uint64, digest [32]byte) ([]byte, error)
}
