package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/domain"
)

const vaultStoreDir = "vaults"

type vaultRepository struct {
	store *badgerhold.Store
}

func NewVaultRepository(config ...interface{}) (domain.VaultRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, vaultStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault store: %s", err)
	}

	return &vaultRepository{store}, nil
}

func (r *vaultRepository) AddVault(ctx context.Context, vault domain.Vault) error {
	if err := r.store.Insert(vault.VaultID, vault); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("vault %d already finalized", vault.VaultID)
		}
		return err
	}
	return nil
}

func (r *vaultRepository) GetVault(ctx context.Context, vaultID uint64) (*domain.Vault, error) {
	var vault domain.Vault
	if err := r.store.Get(vaultID, &vault); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("vault %d not found", vaultID)
		}
		return nil, err
	}
	return &vault, nil
}

func (r *vaultRepository) GetVaultsForPayment(
	ctx context.Context, paymentAddress string,
) ([]domain.Vault, error) {
	query := badgerhold.Where("PaymentAddress").Eq(paymentAddress)
	return r.findVaults(query)
}

func (r *vaultRepository) GetUnconfirmedVaults(ctx context.Context) ([]domain.Vault, error) {
	query := badgerhold.Where("Withdrawable").Eq(false).
		And("WithdrawTxid").Eq("").
		And("Txid").Ne("")
	return r.findVaults(query)
}

func (r *vaultRepository) UpdateVault(ctx context.Context, vault domain.Vault) error {
	return r.store.Update(vault.VaultID, vault)
}

func (r *vaultRepository) Close() {
	// nolint:all
	r.store.Close()
}

func (r *vaultRepository) findVaults(query *badgerhold.Query) ([]domain.Vault, error) {
	var vaults []domain.Vault
	if err := r.store.Find(&vaults, query); err != nil {
		return nil, err
	}
	return vaults, nil
}
