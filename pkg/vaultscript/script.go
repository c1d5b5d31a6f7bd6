package vaultscript

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

var (
	// ErrInvalidKeyEncoding is returned when a component key is neither a
	// 32-byte x-only key nor a 33-byte compressed key.
	ErrInvalidKeyEncoding = errors.New("invalid public key encoding")
	// ErrInvalidComponentKey is returned when the key bytes do not lift to a
	// valid curve point.
	ErrInvalidComponentKey = errors.New("invalid component key")
)

// ParseComponentKey normalizes a hex-encoded public key to its x-only form.
// Both 32-byte x-only and 33-byte compressed (0x02/0x03 prefix) encodings are
// accepted; the compression parity byte is discarded.
func ParseComponentKey(keyHex string) (*secp256k1.PublicKey, error) {
	buf, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(keyHex)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKeyEncoding, err)
	}

	switch len(buf) {
	case 32:
	case 33:
		if buf[0] != 0x02 && buf[0] != 0x03 {
			return nil, fmt.Errorf("%w: bad compression prefix 0x%02x", ErrInvalidKeyEncoding, buf[0])
		}
		buf = buf[1:]
	default:
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeyEncoding, len(buf))
	}

	key, err := schnorr.ParsePubKey(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidComponentKey, err)
	}
	return key, nil
}

// MultisigClosure is a k-of-n tapscript spending condition over x-only keys,
// encoded as a multi_a script: the first key is followed by OP_CHECKSIG, each
// subsequent key by OP_CHECKSIGADD, and the accumulated count is compared to
// the threshold with OP_NUMEQUAL. Key order is significant and must match the
// witness stack order at spend time.
type MultisigClosure struct {
	Keys      []*secp256k1.PublicKey
	Threshold int
}

func (f *MultisigClosure) Leaf() (*txscript.TapLeaf, error) {
	if len(f.Keys) == 0 {
		return nil, fmt.Errorf("missing keys")
	}
	if f.Threshold <= 0 || f.Threshold > len(f.Keys) {
		return nil, fmt.Errorf("invalid threshold %d for %d keys", f.Threshold, len(f.Keys))
	}

	builder := txscript.NewScriptBuilder()
	for i, key := range f.Keys {
		builder.AddData(schnorr.SerializePubKey(key))
		if i == 0 {
			builder.AddOp(txscript.OP_CHECKSIG)
		} else {
			builder.AddOp(txscript.OP_CHECKSIGADD)
		}
	}
	builder.AddInt64(int64(f.Threshold))
	builder.AddOp(txscript.OP_NUMEQUAL)

	script, err := builder.Script()
	if err != nil {
		return nil, err
	}

	tapLeaf := txscript.NewBaseTapLeaf(script)
	return &tapLeaf, nil
}

func (f *MultisigClosure) Decode(script []byte) (bool, error) {
	keys := make([]*secp256k1.PublicKey, 0)

	pos := 0
	for pos+34 <= len(script) && script[pos] == txscript.OP_DATA_32 {
		key, err := schnorr.ParsePubKey(script[pos+1 : pos+33])
		if err != nil {
			return false, err
		}

		op := script[pos+33]
		if len(keys) == 0 && op != txscript.OP_CHECKSIG {
			return false, nil
		}
		if len(keys) > 0 && op != txscript.OP_CHECKSIGADD {
			return false, nil
		}

		keys = append(keys, key)
		pos += 34
	}

	if len(keys) == 0 || pos+2 != len(script) {
		return false, nil
	}

	thresholdOp := script[pos]
	if thresholdOp < txscript.OP_1 || thresholdOp > txscript.OP_16 {
		return false, nil
	}
	if script[pos+1] != txscript.OP_NUMEQUAL {
		return false, nil
	}

	f.Keys = keys
	f.Threshold = int(thresholdOp-txscript.OP_1) + 1

	rebuilt, err := f.Leaf()
	if err != nil {
		return false, err
	}

	return bytes.Equal(rebuilt.Script, script), nil
}
