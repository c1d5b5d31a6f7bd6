package httpschnorr

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/ports"
)

const (
	schnorrKeyAlgorithm = "bip340secp256k1"

	protocolDomainLabel = "usdb"
	protocolRoleLabel   = "proto"
)

type service struct {
	url     string
	keyName string
	client  *http.Client
}

// NewService returns a SchnorrSigner talking to a remote threshold signing
// authority over JSON/HTTP. The signer holds the key material; this client
// only carries derivation paths and digests.
func NewService(baseURL, keyName string) (ports.SchnorrSigner, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid signer url: %s", err)
	}
	if keyName == "" {
		return nil, fmt.Errorf("missing signer key name")
	}
	return &service{
		url:     baseURL,
		keyName: keyName,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// DerivationPath is the fixed vault key-derivation path: protocol domain
// label, role label and the vault id as 8 big-endian bytes. It is stable for
// a given vault id and collision-free across ids.
func DerivationPath(vaultID uint64) [][]byte {
	idBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(idBuf, vaultID)
	return [][]byte{
		[]byte(protocolDomainLabel),
		[]byte(protocolRoleLabel),
		idBuf,
	}
}

type publicKeyRequest struct {
	KeyName        string   `json:"keyName"`
	Algorithm      string   `json:"algorithm"`
	DerivationPath []string `json:"derivationPath"`
}

type publicKeyResponse struct {
	PublicKey string `json:"publicKey"`
	ChainCode string `json:"chainCode"`
}

type signRequest struct {
	KeyName        string   `json:"keyName"`
	Algorithm      string   `json:"algorithm"`
	DerivationPath []string `json:"derivationPath"`
	Message        string   `json:"message"`
}

type signResponse struct {
	Signature string `json:"signature"`
}

func (s *service) DerivePublicKey(ctx context.Context, vaultID uint64) (*ports.ProtocolKey, error) {
	request := publicKeyRequest{
		KeyName:        s.keyName,
		Algorithm:      schnorrKeyAlgorithm,
		DerivationPath: hexPath(vaultID),
	}

	var response publicKeyResponse
	if err := s.post(ctx, "schnorr/public-key", request, &response); err != nil {
		return nil, err
	}

	pubkey, err := hex.DecodeString(response.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrInvalidProtocolKeyLength, err)
	}
	// Accept either x-only 32 bytes (expected) or compressed 33 bytes.
	if len(pubkey) == 33 && (pubkey[0] == 0x02 || pubkey[0] == 0x03) {
		pubkey = pubkey[1:]
	}
	if len(pubkey) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ports.ErrInvalidProtocolKeyLength, len(pubkey))
	}

	log.WithFields(log.Fields{
		"vault_id":   vaultID,
		"public_key": hex.EncodeToString(pubkey),
	}).Debug("derived protocol key")

	return &ports.ProtocolKey{
		VaultID:      vaultID,
		PublicKeyHex: hex.EncodeToString(pubkey),
		ChainCodeHex: response.ChainCode,
	}, nil
}

func (s *service) Sign(ctx context.Context, vaultID uint64, digest [32]byte) ([]byte, error) {
	request := signRequest{
		KeyName:        s.keyName,
		Algorithm:      schnorrKeyAlgorithm,
		DerivationPath: hexPath(vaultID),
		Message:        hex.EncodeToString(digest[:]),
	}

	var response signResponse
	if err := s.post(ctx, "schnorr/sign", request, &response); err != nil {
		return nil, err
	}

	signature, err := hex.DecodeString(response.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrInvalidProtocolSignatureLength, err)
	}
	if len(signature) != 64 {
		return nil, fmt.Errorf(
			"%w: got %d bytes", ports.ErrInvalidProtocolSignatureLength, len(signature),
		)
	}
	return signature, nil
}

func (s *service) post(ctx context.Context, path string, request, response interface{}) error {
	endpoint, err := url.JoinPath(s.url, path)
	if err != nil {
		return err
	}

	body, err := json.Marshal(request)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, bytes.NewReader(body),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		content, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("signer responded with status %s: %s", resp.Status, content)
	}

	return json.NewDecoder(resp.Body).Decode(response)
}

func hexPath(vaultID uint64) []string {
	path := DerivationPath(vaultID)
	encoded := make([]string, 0, len(path))
	for _, segment := range path {
		encoded = append(encoded, hex.EncodeToString(segment))
	}
	return encoded
}
