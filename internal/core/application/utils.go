package application

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/wire"
)

// txidFromRawHex recomputes the transaction id of a raw serialized
// transaction, used when the backend omits the txid from a finalize
// response.
func txidFromRawHex(rawHex string) (string, error) {
	var tx wire.MsgTx
	if err := tx.Deserialize(hex.NewDecoder(strings.NewReader(rawHex))); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidBackendHex, err)
	}
	return tx.TxHash().String(), nil
}

// decodeDigest accepts a 32-byte digest either raw or as 64 ASCII hex
// characters.
func decodeDigest(buf []byte) ([32]byte, error) {
	var digest [32]byte
	switch len(buf) {
	case 32:
		copy(digest[:], buf)
		return digest, nil
	case 64:
		decoded, err := hex.DecodeString(string(buf))
		if err != nil || len(decoded) != 32 {
			return digest, ErrInvalidSighash
		}
		copy(digest[:], decoded)
		return digest, nil
	default:
		return digest, ErrInvalidSighash
	}
}
