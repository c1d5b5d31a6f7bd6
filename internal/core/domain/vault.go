package domain

import "fmt"

const SatsPerBtc = 100_000_000

// InputRef references a funding outpoint consumed by a mint transaction.
type InputRef struct {
	Txid string `json:"txid"`
	Vout uint32 `json:"vout"`
}

func (i InputRef) String() string {
	return fmt.Sprintf("%s:%d", i.Txid, i.Vout)
}

// ChangeOutput is the leftover of the funding inputs paid back to the user's
// payment address.
type ChangeOutput struct {
	Address   string `json:"address"`
	AmountBtc string `json:"amountBtc"`
}

// AddressBinding ties a user-facing address to the public key controlling it.
type AddressBinding struct {
	Address     string `json:"address"`
	AddressType string `json:"addressType"`
	PublicKey   string `json:"publicKey"`
}

// MintArtifacts is everything the off-chain backend produced for a vault:
// derived addresses, descriptor, PSBT stages and the selected inputs.
type MintArtifacts struct {
	Wallet            string
	VaultID           uint64
	VaultAddress      string
	ProtocolPublicKey string
	ProtocolChainCode string
	Descriptor        string
	OriginalPsbt      string
	PatchedPsbt       string
	RawTransactionHex string
	Inputs            []InputRef
	ChangeOutput      *ChangeOutput
	CollateralSats    uint64
	Rune              string
	FeeRate           float64
	OrdinalsAddress   string
	PaymentAddress    string
}

// PendingMint is an in-flight, not-yet-broadcast vault reservation. It lives
// exclusively in the volatile reservation store between a successful PSBT
// build and a successful broadcast.
type PendingMint struct {
	Artifacts   MintArtifacts
	BtcPriceUsd float64
	MintTokens  uint64
	MintUsd     uint64 // cents
	CreatedAt   int64
}

// Vault is the durable, post-broadcast record. Created exactly once per vault
// id at finalize time; updated only by confirmation tracking and withdrawal.
type Vault struct {
	VaultID            uint64 `badgerhold:"key"`
	PaymentAddress     string
	OrdinalsAddress    string
	VaultAddress       string
	ProtocolPublicKey  string
	ProtocolChainCode  string
	Descriptor         string
	CollateralSats     uint64
	Rune               string
	FeeRate            float64
	CreatedAt          int64
	Txid               string
	WithdrawTxid       string
	Confirmations      uint32
	MinConfirmations   uint32
	Withdrawable       bool
	MintTokens         uint64
	MintUsdCents       uint64
	CollateralRatioBps uint32
	BtcPriceUsd        float64
	Health             string
}

// Vault health states as tracked by the confirmation poller.
const (
	VaultHealthPending   = "pending"
	VaultHealthActive    = "active"
	VaultHealthWithdrawn = "withdrawn"
)

func (v Vault) LockedCollateralBtc() float64 {
	return float64(v.CollateralSats) / SatsPerBtc
}

func (v Vault) IsConfirmed() bool {
	return v.Confirmations >= v.MinConfirmations
}
