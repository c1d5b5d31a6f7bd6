package psbtbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/domain"
	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/ports"
)

// maxRetries bounds re-sends on transport failures. HTTP error statuses are
// never retried, the backend is not idempotent across builds.
const maxRetries = 2

type service struct {
	url    string
	apiKey string
	wallet string
	client *http.Client
}

// NewService returns a PsbtBackend talking to the off-chain transaction
// building service over JSON/HTTP. Requests carry the configured API key and
// a correlation id.
func NewService(baseURL, apiKey, wallet string) (ports.PsbtBackend, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid backend url: %s", err)
	}
	if wallet == "" {
		return nil, fmt.Errorf("missing backend wallet name")
	}
	return &service{
		url:    baseURL,
		apiKey: apiKey,
		wallet: wallet,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type addressBindingDTO struct {
	Address     string `json:"address"`
	AddressType string `json:"addressType"`
	PublicKey   string `json:"publicKey"`
}

type amountOverridesDTO struct {
	OrdinalsSats     *uint64 `json:"ordinalsSats,omitempty"`
	FeeRecipientSats *uint64 `json:"feeRecipientSats,omitempty"`
	VaultSats        *uint64 `json:"vaultSats,omitempty"`
}

type buildMintRequest struct {
	Wallet            string              `json:"wallet"`
	Rune              string              `json:"rune"`
	FeeRate           float64             `json:"feeRate"`
	FeeRecipient      string              `json:"feeRecipient"`
	Ordinals          addressBindingDTO   `json:"ordinals"`
	Payment           addressBindingDTO   `json:"payment"`
	Amounts           *amountOverridesDTO `json:"amounts,omitempty"`
	VaultID           string              `json:"vaultId"`
	ProtocolPublicKey string              `json:"protocolPublicKey"`
	ProtocolChainCode string              `json:"protocolChainCode"`
	Inputs            []domain.InputRef   `json:"inputs,omitempty"`
	Outputs           json.RawMessage     `json:"outputs,omitempty"`
}

type changeOutputDTO struct {
	Address   string `json:"address"`
	AmountBtc string `json:"amountBtc"`
}

type buildMintResultDTO struct {
	Wallet            string            `json:"wallet"`
	VaultID           string            `json:"vaultId"`
	VaultAddress      string            `json:"vaultAddress"`
	ProtocolPublicKey string            `json:"protocolPublicKey"`
	ProtocolChainCode string            `json:"protocolChainCode"`
	Descriptor        string            `json:"descriptor"`
	OriginalPsbt      string            `json:"originalPsbt"`
	PatchedPsbt       string            `json:"patchedPsbt"`
	RawTransactionHex string            `json:"rawTransactionHex"`
	Inputs            []domain.InputRef `json:"inputs"`
	ChangeOutput      *changeOutputDTO  `json:"changeOutput,omitempty"`
	CollateralSats    uint64            `json:"collateralSats"`
	OrdinalsAddress   string            `json:"ordinalsAddress"`
	PaymentAddress    string            `json:"paymentAddress"`
}

type buildMintResponse struct {
	Rune    string             `json:"rune"`
	FeeRate float64            `json:"feeRate"`
	Result  buildMintResultDTO `json:"result"`
}

func (s *service) BuildMint(
	ctx context.Context, payload ports.BuildMintPayload,
) (*ports.BuildMintResult, error) {
	request := buildMintRequest{
		Wallet:            s.wallet,
		Rune:              payload.Rune,
		FeeRate:           payload.FeeRate,
		FeeRecipient:      payload.FeeRecipient,
		Ordinals:          toBindingDTO(payload.Ordinals),
		Payment:           toBindingDTO(payload.Payment),
		VaultID:           strconv.FormatUint(payload.VaultID, 10),
		ProtocolPublicKey: payload.ProtocolPublicKey,
		ProtocolChainCode: payload.ProtocolChainCode,
		Inputs:            payload.InputsOverride,
	}
	if payload.Amounts != nil {
		request.Amounts = &amountOverridesDTO{
			OrdinalsSats:     payload.Amounts.OrdinalsSats,
			FeeRecipientSats: payload.Amounts.FeeRecipientSats,
			VaultSats:        payload.Amounts.VaultSats,
		}
	}
	if payload.OutputsOverrideJSON != "" {
		request.Outputs = json.RawMessage(payload.OutputsOverrideJSON)
	}

	var response buildMintResponse
	status, err := s.post(ctx, "mint/build-psbt", request, &response)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("backend build-psbt responded with status %d", status)
	}

	vaultID, err := parseVaultID(response.Result.VaultID)
	if err != nil {
		return nil, err
	}

	artifacts := domain.MintArtifacts{
		Wallet:            response.Result.Wallet,
		VaultID:           vaultID,
		VaultAddress:      response.Result.VaultAddress,
		ProtocolPublicKey: response.Result.ProtocolPublicKey,
		ProtocolChainCode: response.Result.ProtocolChainCode,
		Descriptor:        response.Result.Descriptor,
		OriginalPsbt:      response.Result.OriginalPsbt,
		PatchedPsbt:       response.Result.PatchedPsbt,
		RawTransactionHex: response.Result.RawTransactionHex,
		Inputs:            response.Result.Inputs,
		CollateralSats:    response.Result.CollateralSats,
		Rune:              response.Rune,
		FeeRate:           response.FeeRate,
		OrdinalsAddress:   response.Result.OrdinalsAddress,
		PaymentAddress:    response.Result.PaymentAddress,
	}
	if response.Result.ChangeOutput != nil {
		artifacts.ChangeOutput = &domain.ChangeOutput{
			Address:   response.Result.ChangeOutput.Address,
			AmountBtc: response.Result.ChangeOutput.AmountBtc,
		}
	}
	// Backend fields win only when present, derived values are authoritative.
	if artifacts.ProtocolPublicKey == "" {
		artifacts.ProtocolPublicKey = payload.ProtocolPublicKey
	}
	if artifacts.ProtocolChainCode == "" {
		artifacts.ProtocolChainCode = payload.ProtocolChainCode
	}
	if artifacts.VaultID == 0 {
		artifacts.VaultID = payload.VaultID
	}

	return &ports.BuildMintResult{
		Rune:      response.Rune,
		FeeRate:   response.FeeRate,
		Artifacts: artifacts,
	}, nil
}

type vaultDTO struct {
	VaultAddress      string  `json:"vaultAddress"`
	ProtocolPublicKey string  `json:"protocolPublicKey"`
	ProtocolChainCode string  `json:"protocolChainCode"`
	Descriptor        string  `json:"descriptor"`
	CollateralSats    uint64  `json:"collateralSats"`
	Rune              string  `json:"rune"`
	FeeRate           float64 `json:"feeRate"`
	OrdinalsAddress   string  `json:"ordinalsAddress"`
	PaymentAddress    string  `json:"paymentAddress"`
	MintTokens        uint64  `json:"mintTokens"`
	MintUsdCents      uint64  `json:"mintUsdCents"`
	BtcPriceUsd       float64 `json:"btcPriceUsd"`
}

type finalizeMintRequest struct {
	Wallet    string   `json:"wallet"`
	Psbt      string   `json:"psbt"`
	VaultID   string   `json:"vaultId"`
	Broadcast bool     `json:"broadcast"`
	Vault     vaultDTO `json:"vault"`
}

type finalizeMintResponse struct {
	VaultID  string `json:"vaultId"`
	Hex      string `json:"hex"`
	Complete bool   `json:"complete"`
	Txid     string `json:"txid"`
}

func (s *service) FinalizeMint(
	ctx context.Context, signedPsbt string, pending domain.PendingMint,
) (*ports.FinalizeMintResult, error) {
	artifacts := pending.Artifacts
	request := finalizeMintRequest{
		Wallet:  s.wallet,
		Psbt:    signedPsbt,
		VaultID: strconv.FormatUint(artifacts.VaultID, 10),
		// The broadcast happens on our side after local verification.
		Broadcast: false,
		Vault: vaultDTO{
			VaultAddress:      artifacts.VaultAddress,
			ProtocolPublicKey: artifacts.ProtocolPublicKey,
			ProtocolChainCode: artifacts.ProtocolChainCode,
			Descriptor:        artifacts.Descriptor,
			CollateralSats:    artifacts.CollateralSats,
			Rune:              artifacts.Rune,
			FeeRate:           artifacts.FeeRate,
			OrdinalsAddress:   artifacts.OrdinalsAddress,
			PaymentAddress:    artifacts.PaymentAddress,
			MintTokens:        pending.MintTokens,
			MintUsdCents:      pending.MintUsd,
			BtcPriceUsd:       pending.BtcPriceUsd,
		},
	}

	var response finalizeMintResponse
	status, err := s.post(ctx, "mint/finalize", request, &response)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("backend mint finalize responded with status %d", status)
	}

	vaultID, err := parseVaultID(response.VaultID)
	if err != nil {
		return nil, err
	}
	return &ports.FinalizeMintResult{
		VaultID:  vaultID,
		Hex:      response.Hex,
		Complete: response.Complete,
		Txid:     response.Txid,
	}, nil
}

type withdrawPrepareRequest struct {
	Wallet  string `json:"wallet"`
	VaultID string `json:"vaultId"`
}

type withdrawInputDTO struct {
	Txid  string  `json:"txid"`
	Vout  uint32  `json:"vout"`
	Value float64 `json:"value"`
}

type withdrawPrepareResponse struct {
	VaultID         string             `json:"vaultId"`
	Psbt            string             `json:"psbt"`
	BurnMetadata    string             `json:"burnMetadata"`
	Inputs          []withdrawInputDTO `json:"inputs"`
	OrdinalsAddress string             `json:"ordinalsAddress"`
	PaymentAddress  string             `json:"paymentAddress"`
	VaultAddress    string             `json:"vaultAddress"`
}

func (s *service) PrepareWithdraw(
	ctx context.Context, vaultID uint64,
) (*ports.WithdrawPrepareResult, error) {
	request := withdrawPrepareRequest{
		Wallet:  s.wallet,
		VaultID: strconv.FormatUint(vaultID, 10),
	}

	var response withdrawPrepareResponse
	status, err := s.post(ctx, "withdraw/prepare", request, &response)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("backend withdraw prepare responded with status %d", status)
	}

	id, err := parseVaultID(response.VaultID)
	if err != nil {
		return nil, err
	}
	inputs := make([]ports.WithdrawInput, 0, len(response.Inputs))
	for _, in := range response.Inputs {
		inputs = append(inputs, ports.WithdrawInput{
			Txid:  in.Txid,
			Vout:  in.Vout,
			Value: in.Value,
		})
	}
	return &ports.WithdrawPrepareResult{
		VaultID:         id,
		Psbt:            response.Psbt,
		BurnMetadata:    response.BurnMetadata,
		Inputs:          inputs,
		OrdinalsAddress: response.OrdinalsAddress,
		PaymentAddress:  response.PaymentAddress,
		VaultAddress:    response.VaultAddress,
	}, nil
}

type withdrawFinalizeRequest struct {
	Wallet            string `json:"wallet"`
	VaultID           string `json:"vaultId"`
	SignedPsbt        string `json:"signedPsbt"`
	ProtocolSignature string `json:"protocolSignature,omitempty"`
}

type withdrawSignatureRequiredResponse struct {
	VaultID      string `json:"vaultId"`
	TapleafHash  string `json:"tapleafHash"`
	ControlBlock string `json:"controlBlock"`
	Sighash      string `json:"sighash"`
	MerkleRoot   string `json:"merkleRoot"`
	LeafScript   string `json:"leafScript"`
}

type withdrawFinalizeResponse struct {
	VaultID string `json:"vaultId"`
	Psbt    string `json:"psbt"`
	Hex     string `json:"hex"`
	Txid    string `json:"txid"`
}

func (s *service) FinalizeWithdraw(
	ctx context.Context, payload ports.WithdrawFinalizePayload,
) (*ports.WithdrawFinalizeResult, error) {
	request := withdrawFinalizeRequest{
		Wallet:            s.wallet,
		VaultID:           strconv.FormatUint(payload.VaultID, 10),
		SignedPsbt:        payload.SignedPsbt,
		ProtocolSignature: payload.ProtocolSignatureHex,
	}

	var raw json.RawMessage
	status, err := s.post(ctx, "withdraw/finalize", request, &raw)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusAccepted:
		// The vault leaf needs the protocol co-signature before the backend
		// can finalize; the caller routes the sighash to the signer and
		// resubmits.
		var prompt withdrawSignatureRequiredResponse
		if err := json.Unmarshal(raw, &prompt); err != nil {
			return nil, err
		}
		id, err := parseVaultID(prompt.VaultID)
		if err != nil {
			return nil, err
		}
		return &ports.WithdrawFinalizeResult{
			VaultID: id,
			SignatureRequired: &ports.WithdrawSignaturePrompt{
				VaultID:      id,
				TapleafHash:  prompt.TapleafHash,
				ControlBlock: prompt.ControlBlock,
				Sighash:      prompt.Sighash,
				MerkleRoot:   prompt.MerkleRoot,
				LeafScript:   prompt.LeafScript,
			},
		}, nil
	case http.StatusOK:
		var response withdrawFinalizeResponse
		if err := json.Unmarshal(raw, &response); err != nil {
			return nil, err
		}
		id, err := parseVaultID(response.VaultID)
		if err != nil {
			return nil, err
		}
		return &ports.WithdrawFinalizeResult{
			VaultID: id,
			Psbt:    response.Psbt,
			Hex:     response.Hex,
			Txid:    response.Txid,
		}, nil
	default:
		return nil, fmt.Errorf("backend withdraw finalize responded with status %d", status)
	}
}

type vaultListEntry struct {
	VaultID           string  `json:"vaultId"`
	PaymentAddress    string  `json:"paymentAddress"`
	OrdinalsAddress   string  `json:"ordinalsAddress"`
	VaultAddress      string  `json:"vaultAddress"`
	ProtocolPublicKey string  `json:"protocolPublicKey"`
	Descriptor        string  `json:"descriptor"`
	CollateralSats    uint64  `json:"collateralSats"`
	Rune              string  `json:"rune"`
	Txid              string  `json:"txid"`
	WithdrawTxid      string  `json:"withdrawTxid"`
	MintTokens        uint64  `json:"mintTokens"`
	MintUsdCents      uint64  `json:"mintUsdCents"`
	BtcPriceUsd       float64 `json:"btcPriceUsd"`
	CreatedAt         int64   `json:"createdAt"`
}

type vaultListResponse struct {
	Vaults []vaultListEntry `json:"vaults"`
}

func (s *service) ListVaults(
	ctx context.Context, paymentAddress string,
) ([]domain.Vault, error) {
	endpoint, err := url.JoinPath(s.url, "vaults")
	if err != nil {
		return nil, err
	}
	endpoint = fmt.Sprintf("%s?payment=%s", endpoint, url.QueryEscape(paymentAddress))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	s.decorate(req)

	resp, err := s.do(req, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		content, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf(
			"backend vault list responded with status %s: %s", resp.Status, content,
		)
	}

	var response vaultListResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	vaults := make([]domain.Vault, 0, len(response.Vaults))
	for _, entry := range response.Vaults {
		id, err := parseVaultID(entry.VaultID)
		if err != nil {
			log.WithError(err).WithField("vault_id", entry.VaultID).
				Warn("skipping vault with malformed id")
			continue
		}
		vaults = append(vaults, domain.Vault{
			VaultID:           id,
			PaymentAddress:    entry.PaymentAddress,
			OrdinalsAddress:   entry.OrdinalsAddress,
			VaultAddress:      entry.VaultAddress,
			ProtocolPublicKey: entry.ProtocolPublicKey,
			Descriptor:        entry.Descriptor,
			CollateralSats:    entry.CollateralSats,
			Rune:              entry.Rune,
			Txid:              entry.Txid,
			WithdrawTxid:      entry.WithdrawTxid,
			MintTokens:        entry.MintTokens,
			MintUsdCents:      entry.MintUsdCents,
			BtcPriceUsd:       entry.BtcPriceUsd,
			CreatedAt:         entry.CreatedAt,
		})
	}
	return vaults, nil
}

func (s *service) post(
	ctx context.Context, path string, request, response interface{},
) (int, error) {
	endpoint, err := url.JoinPath(s.url, path)
	if err != nil {
		return 0, err
	}

	body, err := json.Marshal(request)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, bytes.NewReader(body),
	)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	s.decorate(req)

	resp, err := s.do(req, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		content, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf(
			"backend responded with status %s: %s", resp.Status, content,
		)
	}

	if response != nil {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

// do sends the request, re-sending up to maxRetries times on transport
// failures only. body is the marshalled payload reused to rebuild the request
// body between attempts; nil for GETs.
func (s *service) do(req *http.Request, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if body != nil {
				req.Body = io.NopCloser(bytes.NewReader(body))
			}
			log.WithError(lastErr).WithFields(log.Fields{
				"attempt": attempt,
				"url":     req.URL.String(),
			}).Warn("retrying backend request")
		}
		resp, err := s.client.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (s *service) decorate(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}
	req.Header.Set("x-request-id", uuid.NewString())
}

func toBindingDTO(binding domain.AddressBinding) addressBindingDTO {
	return addressBindingDTO{
		Address:     binding.Address,
		AddressType: binding.AddressType,
		PublicKey:   binding.PublicKey,
	}
}

func parseVaultID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed vault id %q: %s", raw, err)
	}
	return id, nil
}
