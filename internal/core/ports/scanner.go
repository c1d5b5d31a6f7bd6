package ports

import "context"

// Utxo is a spendable output of a funding address as reported by the
// blockchain source.
type Utxo struct {
	Txid  string
	Vout  uint32
	Value uint64
}

type BlockchainScanner interface {
	GetSpendableUtxos(ctx context.Context, address string) ([]Utxo, error)
	Broadcast(ctx context.Context, txHex string) error
	GetTxStatus(ctx context.Context, txid string) (confirmed bool, blockHeight int64, err error)
	GetTipHeight(ctx context.Context) (int64, error)
}
