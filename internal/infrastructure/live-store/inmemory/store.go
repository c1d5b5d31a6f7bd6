package inmemorylivestore

import (
	"sync"
	"time"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/domain"
	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/ports"
)

type liveStore struct {
	lock        sync.Mutex
	nextVaultID uint64
	pending     map[uint64]domain.PendingMint
}

// NewLiveStore returns the volatile reservation store. The vault id counter
// is seeded from the current time so that ids stay strictly increasing across
// restarts without any persisted counter.
func NewLiveStore() ports.LiveStore {
	return &liveStore{
		nextVaultID: 1,
		pending:     make(map[uint64]domain.PendingMint),
	}
}

func (s *liveStore) NextVaultID() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := uint64(time.Now().UnixNano())
	if now > s.nextVaultID {
		s.nextVaultID = now
	}
	id := s.nextVaultID
	s.nextVaultID++
	return id
}

func (s *liveStore) Reserve(record domain.PendingMint) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.pending[record.Artifacts.VaultID] = record
}

// Take removes and returns the pending record. Removal is atomic with respect
// to concurrent finalize attempts: the second caller for the same vault id
// observes ErrVaultNotPending instead of racing the first.
func (s *liveStore) Take(vaultID uint64) (*domain.PendingMint, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	record, ok := s.pending[vaultID]
	if !ok {
		return nil, ports.ErrVaultNotPending
	}
	delete(s.pending, vaultID)
	return &record, nil
}

func (s *liveStore) Restore(record domain.PendingMint) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.pending[record.Artifacts.VaultID] = record
}

func (s *liveStore) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.pending)
}
