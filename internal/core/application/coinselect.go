package application

import (
	"sort"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/ports"
)

// CoinSelection is the result of selecting funding outputs for a mint
// transaction.
type CoinSelection struct {
	Inputs     []ports.Utxo
	TotalSats  uint64
	ChangeSats uint64
}

// SelectUtxos greedily accumulates outputs in ascending (value, vout) order
// until the running sum covers totalRequired. The ordering is deterministic
// on purpose: the same spendable set and requirement always select the same
// subset, so the selection is auditable. Fee-optimality and privacy are
// explicitly not goals.
func SelectUtxos(utxos []ports.Utxo, totalRequired uint64) (*CoinSelection, error) {
	sorted := make([]ports.Utxo, len(utxos))
	copy(sorted, utxos)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Value != sorted[j].Value {
			return sorted[i].Value < sorted[j].Value
		}
		return sorted[i].Vout < sorted[j].Vout
	})

	selected := make([]ports.Utxo, 0, len(sorted))
	var sum uint64
	for _, utxo := range sorted {
		sum += utxo.Value
		selected = append(selected, utxo)
		if sum >= totalRequired {
			break
		}
	}

	if sum < totalRequired {
		return nil, errInsufficientFunds{available: sum, required: totalRequired}
	}

	return &CoinSelection{
		Inputs:     selected,
		TotalSats:  sum,
		ChangeSats: sum - totalRequired,
	}, nil
}
