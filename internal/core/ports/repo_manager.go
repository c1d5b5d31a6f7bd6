package ports

import "github.com/Bhanu-Sai-Enamala/bitICP/internal/core/domain"

type RepoManager interface {
	Vaults() domain.VaultRepository
	Close()
}
