package web

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/application"
	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/domain"
	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/ports"
)

type handler struct {
	svc application.Service
}

// NewHandler returns the JSON API surface over the vault service.
func NewHandler(svc application.Service) http.Handler {
	h := &handler{svc: svc}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /v1/collateral", h.collateralPreview)
	mux.HandleFunc("POST /v1/mint/build", h.buildMint)
	mux.HandleFunc("POST /v1/mint/finalize", h.finalizeMint)
	mux.HandleFunc("POST /v1/withdraw/prepare", h.prepareWithdraw)
	mux.HandleFunc("POST /v1/withdraw/finalize", h.finalizeWithdraw)
	mux.HandleFunc("POST /v1/withdraw/sign", h.signWithdraw)
	mux.HandleFunc("POST /v1/signature/verify", h.verifySignature)
	mux.HandleFunc("GET /v1/vaults", h.listVaults)
	return mux
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type collateralPreviewResponse struct {
	BtcPriceUsd        float64 `json:"btcPriceUsd"`
	RequiredSats       uint64  `json:"requiredSats"`
	CollateralRatioBps uint32  `json:"collateralRatioBps"`
	MintUsdCents       uint64  `json:"mintUsdCents"`
	UsingFallbackPrice bool    `json:"usingFallbackPrice"`
}

func (h *handler) collateralPreview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.svc.GetCollateralPreview(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collateralPreviewResponse{
		BtcPriceUsd:        preview.Price,
		RequiredSats:       preview.Sats,
		CollateralRatioBps: preview.RatioBps,
		MintUsdCents:       preview.UsdCents,
		UsingFallbackPrice: preview.UsingFallbackPrice,
	})
}

type amountOverridesBody struct {
	OrdinalsSats     *uint64 `json:"ordinalsSats,omitempty"`
	FeeRecipientSats *uint64 `json:"feeRecipientSats,omitempty"`
	VaultSats        *uint64 `json:"vaultSats,omitempty"`
}

type buildMintBody struct {
	Rune         string                `json:"rune"`
	FeeRate      float64               `json:"feeRate"`
	FeeRecipient string                `json:"feeRecipient"`
	Ordinals     domain.AddressBinding `json:"ordinals"`
	Payment      domain.AddressBinding `json:"payment"`
	Amounts      *amountOverridesBody  `json:"amounts,omitempty"`
}

func (h *handler) buildMint(w http.ResponseWriter, r *http.Request) {
	var body buildMintBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if body.Payment.Address == "" || body.Payment.PublicKey == "" {
		writeBadRequest(w, "missing payment address or public key")
		return
	}

	req := application.BuildMintRequest{
		Rune:         body.Rune,
		FeeRate:      body.FeeRate,
		FeeRecipient: body.FeeRecipient,
		Ordinals:     body.Ordinals,
		Payment:      body.Payment,
	}
	if body.Amounts != nil {
		req.Amounts = &ports.AmountOverrides{
			OrdinalsSats:     body.Amounts.OrdinalsSats,
			FeeRecipientSats: body.Amounts.FeeRecipientSats,
			VaultSats:        body.Amounts.VaultSats,
		}
	}

	resp, err := h.svc.BuildMint(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMintResponseBody(resp))
}

type changeOutputBody struct {
	Address   string `json:"address"`
	AmountBtc string `json:"amountBtc"`
}

type inputRefBody struct {
	Txid string `json:"txid"`
	Vout uint32 `json:"vout"`
}

type mintResponseBody struct {
	Rune              string            `json:"rune"`
	FeeRate           float64           `json:"feeRate"`
	VaultID           string            `json:"vaultId"`
	VaultAddress      string            `json:"vaultAddress"`
	ProtocolPublicKey string            `json:"protocolPublicKey"`
	ProtocolChainCode string            `json:"protocolChainCode"`
	Descriptor        string            `json:"descriptor"`
	OriginalPsbt      string            `json:"originalPsbt"`
	PatchedPsbt       string            `json:"patchedPsbt"`
	RawTransactionHex string            `json:"rawTransactionHex"`
	Inputs            []inputRefBody    `json:"inputs,omitempty"`
	ChangeOutput      *changeOutputBody `json:"changeOutput,omitempty"`
	CollateralSats    uint64            `json:"collateralSats"`
	OrdinalsAddress   string            `json:"ordinalsAddress"`
	PaymentAddress    string            `json:"paymentAddress"`
}

func toMintResponseBody(resp *application.MintResponse) mintResponseBody {
	artifacts := resp.Artifacts
	body := mintResponseBody{
		Rune:              resp.Rune,
		FeeRate:           resp.FeeRate,
		VaultID:           strconv.FormatUint(artifacts.VaultID, 10),
		VaultAddress:      artifacts.VaultAddress,
		ProtocolPublicKey: artifacts.ProtocolPublicKey,
		ProtocolChainCode: artifacts.ProtocolChainCode,
		Descriptor:        artifacts.Descriptor,
		OriginalPsbt:      artifacts.OriginalPsbt,
		PatchedPsbt:       artifacts.PatchedPsbt,
		RawTransactionHex: artifacts.RawTransactionHex,
		CollateralSats:    artifacts.CollateralSats,
		OrdinalsAddress:   artifacts.OrdinalsAddress,
		PaymentAddress:    artifacts.PaymentAddress,
	}
	for _, in := range artifacts.Inputs {
		body.Inputs = append(body.Inputs, inputRefBody{Txid: in.Txid, Vout: in.Vout})
	}
	if artifacts.ChangeOutput != nil {
		body.ChangeOutput = &changeOutputBody{
			Address:   artifacts.ChangeOutput.Address,
			AmountBtc: artifacts.ChangeOutput.AmountBtc,
		}
	}
	return body
}

type finalizeMintBody struct {
	VaultID    string `json:"vaultId"`
	SignedPsbt string `json:"signedPsbt"`
}

type finalizeMintResponseBody struct {
	VaultID string `json:"vaultId"`
	Txid    string `json:"txid"`
	Hex     string `json:"hex"`
}

func (h *handler) finalizeMint(w http.ResponseWriter, r *http.Request) {
	var body finalizeMintBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	vaultID, ok := parseVaultID(w, body.VaultID)
	if !ok {
		return
	}
	if body.SignedPsbt == "" {
		writeBadRequest(w, "missing signed psbt")
		return
	}

	resp, err := h.svc.FinalizeMint(r.Context(), application.FinalizeMintRequest{
		VaultID:    vaultID,
		SignedPsbt: body.SignedPsbt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, finalizeMintResponseBody{
		VaultID: strconv.FormatUint(resp.VaultID, 10),
		Txid:    resp.Txid,
		Hex:     resp.Hex,
	})
}

type withdrawPrepareBody struct {
	VaultID string `json:"vaultId"`
}

type withdrawInputBody struct {
	Txid  string  `json:"txid"`
	Vout  uint32  `json:"vout"`
	Value float64 `json:"value"`
}

type withdrawPrepareResponseBody struct {
	VaultID         string              `json:"vaultId"`
	Psbt            string              `json:"psbt"`
	BurnMetadata    string              `json:"burnMetadata,omitempty"`
	Inputs          []withdrawInputBody `json:"inputs,omitempty"`
	OrdinalsAddress string              `json:"ordinalsAddress"`
	PaymentAddress  string              `json:"paymentAddress"`
	VaultAddress    string              `json:"vaultAddress"`
}

func (h *handler) prepareWithdraw(w http.ResponseWriter, r *http.Request) {
	var body withdrawPrepareBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	vaultID, ok := parseVaultID(w, body.VaultID)
	if !ok {
		return
	}

	result, err := h.svc.PrepareWithdraw(r.Context(), vaultID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := withdrawPrepareResponseBody{
		VaultID:         strconv.FormatUint(result.VaultID, 10),
		Psbt:            result.Psbt,
		BurnMetadata:    result.BurnMetadata,
		OrdinalsAddress: result.OrdinalsAddress,
		PaymentAddress:  result.PaymentAddress,
		VaultAddress:    result.VaultAddress,
	}
	for _, in := range result.Inputs {
		resp.Inputs = append(resp.Inputs, withdrawInputBody{
			Txid:  in.Txid,
			Vout:  in.Vout,
			Value: in.Value,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type withdrawFinalizeBody struct {
	VaultID    string `json:"vaultId"`
	SignedPsbt string `json:"signedPsbt"`
}

func (h *handler) finalizeWithdraw(w http.ResponseWriter, r *http.Request) {
	var body withdrawFinalizeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	vaultID, ok := parseVaultID(w, body.VaultID)
	if !ok {
		return
	}

	resp, err := h.svc.FinalizeWithdraw(r.Context(), application.WithdrawFinalizeRequest{
		VaultID:    vaultID,
		SignedPsbt: body.SignedPsbt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, finalizeMintResponseBody{
		VaultID: strconv.FormatUint(resp.VaultID, 10),
		Txid:    resp.Txid,
		Hex:     resp.Hex,
	})
}

type withdrawSignBody struct {
	VaultID      string `json:"vaultId"`
	TapleafHash  string `json:"tapleafHash"`
	ControlBlock string `json:"controlBlock,omitempty"`
	Sighash      string `json:"sighash"`
	MerkleRoot   string `json:"merkleRoot,omitempty"`
}

type withdrawSignResponseBody struct {
	Signature string `json:"signature"`
}

func (h *handler) signWithdraw(w http.ResponseWriter, r *http.Request) {
	var body withdrawSignBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	vaultID, ok := parseVaultID(w, body.VaultID)
	if !ok {
		return
	}

	tapleaf, err := hex.DecodeString(body.TapleafHash)
	if err != nil {
		writeBadRequest(w, "malformed tapleaf hash")
		return
	}
	controlBlock, err := hex.DecodeString(body.ControlBlock)
	if err != nil {
		writeBadRequest(w, "malformed control block")
		return
	}
	sighash, err := hex.DecodeString(body.Sighash)
	if err != nil {
		writeBadRequest(w, "malformed sighash")
		return
	}
	merkleRoot, err := hex.DecodeString(body.MerkleRoot)
	if err != nil {
		writeBadRequest(w, "malformed merkle root")
		return
	}

	resp, err := h.svc.SignWithdraw(r.Context(), application.WithdrawSignRequest{
		VaultID:      vaultID,
		TapleafHash:  tapleaf,
		ControlBlock: controlBlock,
		Sighash:      sighash,
		MerkleRoot:   merkleRoot,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawSignResponseBody{
		Signature: hex.EncodeToString(resp.Signature),
	})
}

type verifySignatureBody struct {
	VaultID   string `json:"vaultId"`
	Sighash   string `json:"sighash"`
	Signature string `json:"signature"`
}

type verifySignatureResponseBody struct {
	Valid bool `json:"valid"`
}

func (h *handler) verifySignature(w http.ResponseWriter, r *http.Request) {
	var body verifySignatureBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	vaultID, ok := parseVaultID(w, body.VaultID)
	if !ok {
		return
	}

	valid, err := h.svc.VerifyProtocolSignature(r.Context(), vaultID, body.Sighash, body.Signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verifySignatureResponseBody{Valid: valid})
}

type vaultSummaryBody struct {
	VaultID             string  `json:"vaultId"`
	VaultAddress        string  `json:"vaultAddress"`
	CollateralSats      uint64  `json:"collateralSats"`
	LockedCollateralBtc float64 `json:"lockedCollateralBtc"`
	ProtocolPublicKey   string  `json:"protocolPublicKey"`
	CreatedAt           int64   `json:"createdAt"`
	Rune                string  `json:"rune"`
	FeeRate             float64 `json:"feeRate"`
	OrdinalsAddress     string  `json:"ordinalsAddress"`
	PaymentAddress      string  `json:"paymentAddress"`
	Txid                string  `json:"txid"`
	WithdrawTxid        string  `json:"withdrawTxid,omitempty"`
	Confirmations       uint32  `json:"confirmations"`
	MinConfirmations    uint32  `json:"minConfirmations"`
	Withdrawable        bool    `json:"withdrawable"`
	BtcPriceUsd         float64 `json:"btcPriceUsd"`
	CollateralRatioBps  uint32  `json:"collateralRatioBps"`
	MintTokens          uint64  `json:"mintTokens"`
	MintUsdCents        uint64  `json:"mintUsdCents"`
	Health              string  `json:"health"`
}

type vaultListResponseBody struct {
	Vaults []vaultSummaryBody `json:"vaults"`
}

func (h *handler) listVaults(w http.ResponseWriter, r *http.Request) {
	payment := r.URL.Query().Get("payment")
	if payment == "" {
		writeBadRequest(w, "missing payment query parameter")
		return
	}

	summaries, err := h.svc.ListUserVaults(r.Context(), payment)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := vaultListResponseBody{Vaults: make([]vaultSummaryBody, 0, len(summaries))}
	for _, summary := range summaries {
		resp.Vaults = append(resp.Vaults, vaultSummaryBody{
			VaultID:             strconv.FormatUint(summary.VaultID, 10),
			VaultAddress:        summary.VaultAddress,
			CollateralSats:      summary.CollateralSats,
			LockedCollateralBtc: summary.LockedCollateralBtc,
			ProtocolPublicKey:   summary.ProtocolPublicKey,
			CreatedAt:           summary.CreatedAt,
			Rune:                summary.Rune,
			FeeRate:             summary.FeeRate,
			OrdinalsAddress:     summary.OrdinalsAddress,
			PaymentAddress:      summary.PaymentAddress,
			Txid:                summary.Txid,
			WithdrawTxid:        summary.WithdrawTxid,
			Confirmations:       summary.Confirmations,
			MinConfirmations:    summary.MinConfirmations,
			Withdrawable:        summary.Withdrawable,
			BtcPriceUsd:         summary.BtcPriceUsd,
			CollateralRatioBps:  summary.CollateralRatioBps,
			MintTokens:          summary.MintTokens,
			MintUsdCents:        summary.MintUsdCents,
			Health:              summary.Health,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type errorBody struct {
	Error string `json:"error"`
}

func parseVaultID(w http.ResponseWriter, raw string) (uint64, bool) {
	if raw == "" {
		writeBadRequest(w, "missing vault id")
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeBadRequest(w, "malformed vault id")
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ports.ErrVaultNotPending):
		status = http.StatusConflict
	case errors.Is(err, application.ErrMissingVaultID),
		errors.Is(err, application.ErrInvalidSighash),
		errors.Is(err, application.ErrInvalidTapleafHash),
		errors.Is(err, application.ErrInvalidMerkleRoot),
		errors.Is(err, application.ErrInsufficientFunds):
		status = http.StatusBadRequest
	case errors.Is(err, ports.ErrPriceUnavailable),
		errors.Is(err, application.ErrVaultSatsUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("failed to write response body")
	}
}
