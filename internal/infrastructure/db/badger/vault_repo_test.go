package badgerdb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/domain"
	badgerdb "github.com/Bhanu-Sai-Enamala/bitICP/internal/infrastructure/db/badger"
)

func newTestRepo(t *testing.T) domain.VaultRepository {
	t.Helper()

	// Empty base dir gives an in-memory store.
	repo, err := badgerdb.NewVaultRepository("", nil)
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return repo
}

func testVault(vaultID uint64) domain.Vault {
	return domain.Vault{
		VaultID:          vaultID,
		PaymentAddress:   "tb1qtestpayment",
		VaultAddress:     "tb1ptestvault",
		CollateralSats:   25811,
		Txid:             "sometxid",
		MinConfirmations: 6,
		Health:           domain.VaultHealthPending,
	}
}

func TestAddAndGetVault(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	vault := testVault(1)
	require.NoError(t, repo.AddVault(ctx, vault))

	got, err := repo.GetVault(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, vault, *got)

	// Finalization is exactly-once per vault id.
	err = repo.AddVault(ctx, vault)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already finalized")

	_, err = repo.GetVault(ctx, 99)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestGetVaultsForPayment(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := uint64(1); i <= 3; i++ {
		vault := testVault(i)
		if i == 3 {
			vault.PaymentAddress = "tb1qother"
		}
		require.NoError(t, repo.AddVault(ctx, vault))
	}

	vaults, err := repo.GetVaultsForPayment(ctx, "tb1qtestpayment")
	require.NoError(t, err)
	require.Len(t, vaults, 2)

	vaults, err = repo.GetVaultsForPayment(ctx, "tb1qnobody")
	require.NoError(t, err)
	require.Empty(t, vaults)
}

func TestGetUnconfirmedVaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	pending := testVault(1)
	require.NoError(t, repo.AddVault(ctx, pending))

	confirmed := testVault(2)
	confirmed.Withdrawable = true
	confirmed.Health = domain.VaultHealthActive
	require.NoError(t, repo.AddVault(ctx, confirmed))

	withdrawn := testVault(3)
	withdrawn.WithdrawTxid = "withdrawtxid"
	withdrawn.Health = domain.VaultHealthWithdrawn
	require.NoError(t, repo.AddVault(ctx, withdrawn))

	// A record without a mint txid is not trackable.
	unbroadcast := testVault(4)
	unbroadcast.Txid = ""
	require.NoError(t, repo.AddVault(ctx, unbroadcast))

	vaults, err := repo.GetUnconfirmedVaults(ctx)
	require.NoError(t, err)
	require.Len(t, vaults, 1)
	require.Equal(t, uint64(1), vaults[0].VaultID)
}

func TestUpdateVault(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	vault := testVault(1)
	require.NoError(t, repo.AddVault(ctx, vault))

	vault.Confirmations = 6
	vault.Withdrawable = true
	vault.Health = domain.VaultHealthActive
	require.NoError(t, repo.UpdateVault(ctx, vault))

	got, err := repo.GetVault(ctx, 1)
	require.NoError(t, err)
	require.True(t, got.Withdrawable)
	require.Equal(t, uint32(6), got.Confirmations)
	require.Equal(t, domain.VaultHealthActive, got.Health)
}

func TestInvalidRepositoryConfig(t *testing.T) {
	_, err := badgerdb.NewVaultRepository()
	require.Error(t, err)

	_, err = badgerdb.NewVaultRepository(42, nil)
	require.Error(t, err)
}
