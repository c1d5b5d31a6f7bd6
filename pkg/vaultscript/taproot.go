package vaultscript

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

type Network struct {
	Name string
	Hrp  string
}

var (
	Mainnet = Network{Name: "mainnet", Hrp: "bc"}
	Testnet = Network{Name: "testnet", Hrp: "tb"}
	Regtest = Network{Name: "regtest", Hrp: "bcrt"}
)

func (n Network) ChainParams() (*chaincfg.Params, error) {
	switch n.Name {
	case Mainnet.Name:
		return &chaincfg.MainNetParams, nil
	case Testnet.Name:
		return &chaincfg.TestNet3Params, nil
	case Regtest.Name:
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %s", n.Name)
	}
}

func NetworkFromName(name string) (Network, error) {
	switch name {
	case Mainnet.Name:
		return Mainnet, nil
	case Testnet.Name:
		return Testnet, nil
	case Regtest.Name:
		return Regtest, nil
	default:
		return Network{}, fmt.Errorf("unknown network %s", name)
	}
}

// VaultScripts is the fully assembled taproot output for a vault: the two
// alternative spending leaves, the merkle root committing to them and the
// tweaked output key.
type VaultScripts struct {
	InternalKey *secp256k1.PublicKey
	LeafA       txscript.TapLeaf
	LeafB       txscript.TapLeaf
	MerkleRoot  chainhash.Hash
	OutputKey   *secp256k1.PublicKey
}

// BuildVaultScripts combines the two 2-of-2 leaves into a single taproot
// output key tweaking the guardian internal key. Leaf A is the {protocol key,
// user key} path, leaf B the {guardian quorum A, guardian quorum B} path. The
// result is a pure function of its inputs: any party holding the component
// keys can recompute and audit the output.
func BuildVaultScripts(
	internalKey *secp256k1.PublicKey,
	leafAKeys, leafBKeys []*secp256k1.PublicKey,
) (*VaultScripts, error) {
	if internalKey == nil {
		return nil, fmt.Errorf("missing internal key")
	}

	leafA, err := (&MultisigClosure{Keys: leafAKeys, Threshold: 2}).Leaf()
	if err != nil {
		return nil, fmt.Errorf("leaf A: %w", err)
	}
	leafB, err := (&MultisigClosure{Keys: leafBKeys, Threshold: 2}).Leaf()
	if err != nil {
		return nil, fmt.Errorf("leaf B: %w", err)
	}

	tapTree := txscript.AssembleTaprootScriptTree(*leafA, *leafB)
	root := tapTree.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(internalKey, root[:])

	return &VaultScripts{
		InternalKey: internalKey,
		LeafA:       *leafA,
		LeafB:       *leafB,
		MerkleRoot:  root,
		OutputKey:   outputKey,
	}, nil
}

// Address encodes the output key as a witness v1 bech32m address for the
// given network.
func (s *VaultScripts) Address(net Network) (string, error) {
	params, err := net.ChainParams()
	if err != nil {
		return "", err
	}

	addr, err := btcutil.NewAddressTaproot(
		schnorr.SerializePubKey(s.OutputKey), params,
	)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// Descriptor renders a tr() descriptor with the two raw leaf scripts, useful
// for cross-checking against the off-chain backend's view of the vault.
func (s *VaultScripts) Descriptor() string {
	return fmt.Sprintf(
		"tr(%s,{raw(%s),raw(%s)})",
		hex.EncodeToString(schnorr.SerializePubKey(s.InternalKey)),
		hex.EncodeToString(s.LeafA.Script),
		hex.EncodeToString(s.LeafB.Script),
	)
}

// VaultAddress derives the deposit address for a vault in one call.
func VaultAddress(
	net Network,
	internalKey *secp256k1.PublicKey,
	leafAKeys, leafBKeys []*secp256k1.PublicKey,
) (string, error) {
	scripts, err := BuildVaultScripts(internalKey, leafAKeys, leafBKeys)
	if err != nil {
		return "", err
	}
	return scripts.Address(net)
}
