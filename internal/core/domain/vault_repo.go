package domain

import "context"

type VaultRepository interface {
	// AddVault persists a finalized vault. It fails if a vault with the same
	// id already exists: a vault id is finalized at most once.
	AddVault(ctx context.Context, vault Vault) error
	GetVault(ctx context.Context, vaultID uint64) (*Vault, error)
	GetVaultsForPayment(ctx context.Context, paymentAddress string) ([]Vault, error)
	GetUnconfirmedVaults(ctx context.Context) ([]Vault, error)
	UpdateVault(ctx context.Context, vault Vault) error
	Close()
}
