package inmemorylivestore_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/domain"
	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/ports"
	inmemorylivestore "github.com/Bhanu-Sai-Enamala/bitICP/internal/infrastructure/live-store/inmemory"
)

func pendingMint(vaultID uint64) domain.PendingMint {
	return domain.PendingMint{
		Artifacts: domain.MintArtifacts{
			VaultID:        vaultID,
			VaultAddress:   "tb1ptestvault",
			CollateralSats: 25811,
		},
		BtcPriceUsd: 100734.10,
		MintTokens:  10,
		MintUsd:     1000,
		CreatedAt:   1700000000,
	}
}

func TestNextVaultIDMonotonic(t *testing.T) {
	store := inmemorylivestore.NewLiveStore()

	ids := make(map[uint64]struct{})
	prev := uint64(0)
	for i := 0; i < 100; i++ {
		id := store.NextVaultID()
		require.Greater(t, id, prev)
		_, seen := ids[id]
		require.False(t, seen)
		ids[id] = struct{}{}
		prev = id
	}
}

func TestNextVaultIDConcurrent(t *testing.T) {
	store := inmemorylivestore.NewLiveStore()

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	ids := make(map[uint64]struct{}, workers*perWorker)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := store.NextVaultID()
				mu.Lock()
				ids[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, ids, workers*perWorker)
}

func TestReserveTakeRestore(t *testing.T) {
	store := inmemorylivestore.NewLiveStore()

	record := pendingMint(42)
	store.Reserve(record)
	require.Equal(t, 1, store.Len())

	taken, err := store.Take(42)
	require.NoError(t, err)
	require.Equal(t, record, *taken)
	require.Zero(t, store.Len())

	// Once taken, a second take must fail instead of racing the first.
	_, err = store.Take(42)
	require.ErrorIs(t, err, ports.ErrVaultNotPending)

	// Restoring brings back an identical record for the retry.
	store.Restore(*taken)
	require.Equal(t, 1, store.Len())

	retaken, err := store.Take(42)
	require.NoError(t, err)
	require.Equal(t, record, *retaken)
}

func TestTakeUnknownVault(t *testing.T) {
	store := inmemorylivestore.NewLiveStore()

	_, err := store.Take(7)
	require.ErrorIs(t, err, ports.ErrVaultNotPending)
}

func TestReserveIsIdempotentPerVault(t *testing.T) {
	store := inmemorylivestore.NewLiveStore()

	store.Reserve(pendingMint(1))
	store.Reserve(pendingMint(1))
	require.Equal(t, 1, store.Len())

	store.Reserve(pendingMint(2))
	require.Equal(t, 2, store.Len())
}
