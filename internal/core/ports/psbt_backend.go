package ports

import (
	"context"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/domain"
)

// AmountOverrides lets the caller pin one or more satoshi amounts instead of
// the computed defaults. Nil fields are left to the backend.
type AmountOverrides struct {
	OrdinalsSats     *uint64
	FeeRecipientSats *uint64
	VaultSats        *uint64
}

type BuildMintPayload struct {
	Rune              string
	FeeRate           float64
	FeeRecipient      string
	Ordinals          domain.AddressBinding
	Payment           domain.AddressBinding
	Amounts           *AmountOverrides
	VaultID           uint64
	ProtocolPublicKey string
	ProtocolChainCode string
	// Optional pre-selected funding set and output map. The outputs override
	// is an opaque JSON object keyed by address, with a special "data" key
	// carrying the OP_RETURN payload; its exact schema is the backend's
	// concern.
	InputsOverride      []domain.InputRef
	OutputsOverrideJSON string
}

type BuildMintResult struct {
	Rune      string
	FeeRate   float64
	Artifacts domain.MintArtifacts
}

type FinalizeMintResult struct {
	VaultID  uint64
	Hex      string
	Complete bool
	Txid     string
}

type WithdrawInput struct {
	Txid  string
	Vout  uint32
	Value float64
}

type WithdrawPrepareResult struct {
	VaultID         uint64
	Psbt            string
	BurnMetadata    string
	Inputs          []WithdrawInput
	OrdinalsAddress string
	PaymentAddress  string
	VaultAddress    string
}

type WithdrawFinalizePayload struct {
	VaultID              uint64
	SignedPsbt           string
	ProtocolSignatureHex string
}

// WithdrawSignaturePrompt is the backend's intermediate "signature required"
// response: the 32-byte sighash must be routed to the threshold signer and
// the request resubmitted with the resulting signature.
type WithdrawSignaturePrompt struct {
	VaultID      uint64
	TapleafHash  string
	ControlBlock string
	Sighash      string
	MerkleRoot   string
	LeafScript   string
}

type WithdrawFinalizeResult struct {
	SignatureRequired *WithdrawSignaturePrompt
	VaultID           uint64
	Psbt              string
	Hex               string
	Txid              string
}

// PsbtBackend is the off-chain PSBT building service. Transport retries with
// a small bounded attempt count are the implementation's concern; HTTP error
// statuses are surfaced without retry.
type PsbtBackend interface {
	BuildMint(ctx context.Context, payload BuildMintPayload) (*BuildMintResult, error)
	FinalizeMint(ctx context.Context, signedPsbt string, pending domain.PendingMint) (*FinalizeMintResult, error)
	PrepareWithdraw(ctx context.Context, vaultID uint64) (*WithdrawPrepareResult, error)
	FinalizeWithdraw(ctx context.Context, payload WithdrawFinalizePayload) (*WithdrawFinalizeResult, error)
	ListVaults(ctx context.Context, paymentAddress string) ([]domain.Vault, error)
}
