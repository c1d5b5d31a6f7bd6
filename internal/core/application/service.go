package application

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	log "github.com/sirupsen/logrus"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/domain"
	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/ports"
	"github.com/Bhanu-Sai-Enamala/bitICP/pkg/vaultscript"
)

const (
	txFeeBufferSats     = 3_000
	defaultOrdinalsSats = 1_000
	defaultFeeSats      = 1_000
	defaultRuneHex      = "00dde905020a00"
)

// GuardianKeys are the process-wide taproot components: the internal key the
// output key is tweaked from, and the two guardian quorum keys forming the
// recovery leaf.
type GuardianKeys struct {
	InternalKey *secp256k1.PublicKey
	QuorumKeyA  *secp256k1.PublicKey
	QuorumKeyB  *secp256k1.PublicKey
}

// FeeConfig carries the protocol-side outputs added to every mint
// transaction.
type FeeConfig struct {
	OrdinalsSats        uint64
	FeeRecipientSats    uint64
	FeeRecipientAddress string
	RuneOpReturnHex     string
}

type BuildMintRequest struct {
	Rune         string
	FeeRate      float64
	FeeRecipient string
	Ordinals     domain.AddressBinding
	Payment      domain.AddressBinding
	Amounts      *ports.AmountOverrides
}

type MintResponse struct {
	Rune      string
	FeeRate   float64
	Artifacts domain.MintArtifacts
}

type FinalizeMintRequest struct {
	VaultID    uint64
	SignedPsbt string
}

type FinalizeMintResponse struct {
	VaultID uint64
	Txid    string
	Hex     string
}

type WithdrawFinalizeRequest struct {
	VaultID    uint64
	SignedPsbt string
}

type WithdrawFinalizeResponse struct {
	VaultID uint64
	Txid    string
	Hex     string
}

type WithdrawSignRequest struct {
	VaultID      uint64
	TapleafHash  []byte
	ControlBlock []byte
	Sighash      []byte
	MerkleRoot   []byte
}

type WithdrawSignResponse struct {
	Signature []byte
}

type CollateralPreview struct {
	Price              float64
	Sats               uint64
	RatioBps           uint32
	UsdCents           uint64
	UsingFallbackPrice bool
}

type VaultSummary struct {
	VaultID             uint64
	VaultAddress        string
	CollateralSats      uint64
	LockedCollateralBtc float64
	ProtocolPublicKey   string
	CreatedAt           int64
	Rune                string
	FeeRate             float64
	OrdinalsAddress     string
	PaymentAddress      string
	Txid                string
	WithdrawTxid        string
	Confirmations       uint32
	MinConfirmations    uint32
	Withdrawable        bool
	BtcPriceUsd         float64
	CollateralRatioBps  uint32
	MintTokens          uint64
	MintUsdCents        uint64
	Health              string
}

type Service interface {
	Start() error
	Stop()

	GetCollateralPreview(ctx context.Context) (*CollateralPreview, error)
	BuildMint(ctx context.Context, req BuildMintRequest) (*MintResponse, error)
	FinalizeMint(ctx context.Context, req FinalizeMintRequest) (*FinalizeMintResponse, error)
	PrepareWithdraw(ctx context.Context, vaultID uint64) (*ports.WithdrawPrepareResult, error)
	FinalizeWithdraw(ctx context.Context, req WithdrawFinalizeRequest) (*WithdrawFinalizeResponse, error)
	SignWithdraw(ctx context.Context, req WithdrawSignRequest) (*WithdrawSignResponse, error)
	VerifyProtocolSignature(ctx context.Context, vaultID uint64, sighashHex, sigHex string) (bool, error)
	ListUserVaults(ctx context.Context, paymentAddress string) ([]VaultSummary, error)
}

type service struct {
	network          vaultscript.Network
	guardians        GuardianKeys
	collateral       CollateralParams
	fees             FeeConfig
	fallbackPriceUsd float64
	mintTokens       uint64
	mintUsdCents     uint64
	minConfirmations uint32
	pollInterval     time.Duration

	signer    ports.SchnorrSigner
	oracle    ports.RateSource
	backend   ports.PsbtBackend
	scanner   ports.BlockchainScanner
	liveStore ports.LiveStore
	repo      ports.RepoManager
	scheduler ports.SchedulerService
}

func NewService(
	network vaultscript.Network,
	guardians GuardianKeys,
	collateral CollateralParams,
	fees FeeConfig,
	fallbackPriceUsd float64,
	mintTokens, mintUsdCents uint64,
	minConfirmations uint32,
	pollInterval time.Duration,
	signer ports.SchnorrSigner,
	oracle ports.RateSource,
	backend ports.PsbtBackend,
	scanner ports.BlockchainScanner,
	liveStore ports.LiveStore,
	repo ports.RepoManager,
	scheduler ports.SchedulerService,
) (Service, error) {
	if guardians.InternalKey == nil || guardians.QuorumKeyA == nil || guardians.QuorumKeyB == nil {
		return nil, fmt.Errorf("guardian keys must be configured")
	}
	if collateral.RatioBps == 0 || collateral.UsdCents == 0 {
		return nil, fmt.Errorf("collateral params must be configured")
	}

	return &service{
		network:          network,
		guardians:        guardians,
		collateral:       collateral,
		fees:             fees,
		fallbackPriceUsd: fallbackPriceUsd,
		mintTokens:       mintTokens,
		mintUsdCents:     mintUsdCents,
		minConfirmations: minConfirmations,
		pollInterval:     pollInterval,
		signer:           signer,
		oracle:           oracle,
		backend:          backend,
		scanner:          scanner,
		liveStore:        liveStore,
		repo:             repo,
		scheduler:        scheduler,
	}, nil
}

func (s *service) Start() error {
	if s.scheduler == nil {
		return nil
	}
	if err := s.scheduler.ScheduleTaskEvery(s.pollInterval, s.trackConfirmations); err != nil {
		return err
	}
	s.scheduler.Start()
	return nil
}

func (s *service) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *service) GetCollateralPreview(ctx context.Context) (*CollateralPreview, error) {
	price, usingFallback, err := s.btcUsdPrice(ctx)
	if err != nil {
		return nil, err
	}

	return &CollateralPreview{
		Price:              price,
		Sats:               RequiredCollateralSats(price, s.collateral.RatioBps, s.collateral.UsdCents),
		RatioBps:           s.collateral.RatioBps,
		UsdCents:           s.collateral.UsdCents,
		UsingFallbackPrice: usingFallback,
	}, nil
}

func (s *service) BuildMint(ctx context.Context, req BuildMintRequest) (*MintResponse, error) {
	price := s.fallbackPriceUsd
	usingFallback := true

	var vaultSats uint64
	livePrice, err := s.oracle.GetBtcUsdPrice(ctx)
	switch {
	case err == nil:
		price = livePrice
		usingFallback = false
		vaultSats = RequiredCollateralSats(livePrice, s.collateral.RatioBps, s.collateral.UsdCents)
	case req.Amounts != nil && req.Amounts.VaultSats != nil:
		log.WithError(err).Warn("oracle price unavailable, using caller vault sats override")
		vaultSats = *req.Amounts.VaultSats
	case s.fallbackPriceUsd > 0:
		log.WithError(err).Warnf("oracle price unavailable, sizing with fallback price %f", s.fallbackPriceUsd)
		vaultSats = RequiredCollateralSats(s.fallbackPriceUsd, s.collateral.RatioBps, s.collateral.UsdCents)
	default:
		return nil, ErrVaultSatsUnavailable
	}

	amounts := req.Amounts
	if amounts == nil {
		amounts = &ports.AmountOverrides{}
	}
	amounts.VaultSats = &vaultSats

	vaultID := s.liveStore.NextVaultID()

	protocolKey, err := s.signer.DerivePublicKey(ctx, vaultID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive protocol key: %w", err)
	}

	vaultAddress, descriptor, err := s.deriveVaultAddress(
		protocolKey.PublicKeyHex, req.Payment.PublicKey,
	)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"vault_id":      vaultID,
		"vault_address": vaultAddress,
		"vault_sats":    vaultSats,
	}).Info("new vault assignment")

	payload := ports.BuildMintPayload{
		Rune:              req.Rune,
		FeeRate:           req.FeeRate,
		FeeRecipient:      req.FeeRecipient,
		Ordinals:          req.Ordinals,
		Payment:           req.Payment,
		Amounts:           amounts,
		VaultID:           vaultID,
		ProtocolPublicKey: protocolKey.PublicKeyHex,
		ProtocolChainCode: protocolKey.ChainCodeHex,
	}

	if overrides, err := s.buildMintOverrides(
		ctx, req.Payment.Address, req.Ordinals.Address, vaultAddress, vaultSats,
	); err != nil {
		log.WithError(err).Warn("skipping utxo override payload")
	} else if overrides != nil {
		payload.InputsOverride = overrides.inputs
		payload.OutputsOverrideJSON = overrides.outputsJSON
	}

	result, err := s.backend.BuildMint(ctx, payload)
	if err != nil {
		return nil, err
	}

	if result.Artifacts.PatchedPsbt != "" {
		if _, err := psbt.NewFromRawBytes(
			strings.NewReader(result.Artifacts.PatchedPsbt), true,
		); err != nil {
			return nil, fmt.Errorf("backend returned malformed psbt: %w", err)
		}
	}

	if result.Artifacts.VaultAddress != vaultAddress {
		log.WithFields(log.Fields{
			"derived": vaultAddress,
			"backend": result.Artifacts.VaultAddress,
		}).Warn("backend vault address differs from locally derived address")
	}
	switch {
	case result.Artifacts.Descriptor == "":
		result.Artifacts.Descriptor = descriptor
	case result.Artifacts.Descriptor != descriptor:
		log.WithFields(log.Fields{
			"derived": descriptor,
			"backend": result.Artifacts.Descriptor,
		}).Warn("backend descriptor differs from locally derived descriptor")
	}

	s.liveStore.Reserve(domain.PendingMint{
		Artifacts:   result.Artifacts,
		BtcPriceUsd: price,
		MintTokens:  s.mintTokens,
		MintUsd:     s.mintUsdCents,
		CreatedAt:   time.Now().Unix(),
	})

	if usingFallback {
		log.WithField("vault_id", vaultID).Warn("pending mint priced under fallback")
	}

	return &MintResponse{
		Rune:      result.Rune,
		FeeRate:   result.FeeRate,
		Artifacts: result.Artifacts,
	}, nil
}

// FinalizeMint drives the Pending -> Finalized transition. The pending record
// is removed from the reservation store before the first awaited call and
// re-inserted unchanged on every failure branch until the broadcast succeeds.
func (s *service) FinalizeMint(ctx context.Context, req FinalizeMintRequest) (*FinalizeMintResponse, error) {
	if req.VaultID == 0 {
		return nil, ErrMissingVaultID
	}

	pending, err := s.liveStore.Take(req.VaultID)
	if err != nil {
		return nil, err
	}

	result, err := s.backend.FinalizeMint(ctx, req.SignedPsbt, *pending)
	if err != nil {
		s.liveStore.Restore(*pending)
		return nil, err
	}

	txid := result.Txid
	if txid == "" {
		txid, err = txidFromRawHex(result.Hex)
		if err != nil {
			s.liveStore.Restore(*pending)
			return nil, ErrTxidUnavailable
		}
	}

	if err := s.scanner.Broadcast(ctx, result.Hex); err != nil {
		s.liveStore.Restore(*pending)
		return nil, fmt.Errorf("failed to broadcast mint transaction: %w", err)
	}

	vault := s.storedVaultFromPending(*pending, txid)
	if err := s.repo.Vaults().AddVault(ctx, vault); err != nil {
		// The transaction is already on-chain: restoring the reservation here
		// would permit a second broadcast attempt for the same vault id.
		log.WithError(err).WithField("vault_id", req.VaultID).
			Error("mint broadcast but vault record not persisted")
		return nil, fmt.Errorf("failed to persist finalized vault: %w", err)
	}

	log.WithFields(log.Fields{
		"vault_id": req.VaultID,
		"txid":     txid,
	}).Info("vault finalized")

	return &FinalizeMintResponse{
		VaultID: req.VaultID,
		Txid:    txid,
		Hex:     result.Hex,
	}, nil
}

func (s *service) PrepareWithdraw(ctx context.Context, vaultID uint64) (*ports.WithdrawPrepareResult, error) {
	if vaultID == 0 {
		return nil, ErrMissingVaultID
	}
	return s.backend.PrepareWithdraw(ctx, vaultID)
}

func (s *service) FinalizeWithdraw(ctx context.Context, req WithdrawFinalizeRequest) (*WithdrawFinalizeResponse, error) {
	if req.VaultID == 0 {
		return nil, ErrMissingVaultID
	}

	payload := ports.WithdrawFinalizePayload{
		VaultID:    req.VaultID,
		SignedPsbt: req.SignedPsbt,
	}

	result, err := s.backend.FinalizeWithdraw(ctx, payload)
	if err != nil {
		return nil, err
	}

	if prompt := result.SignatureRequired; prompt != nil {
		sighashBuf, err := hex.DecodeString(prompt.Sighash)
		if err != nil || len(sighashBuf) != 32 {
			return nil, ErrInvalidSighash
		}
		var digest [32]byte
		copy(digest[:], sighashBuf)

		if prompt.MerkleRoot != "" {
			log.WithField("vault_id", req.VaultID).
				Debug("ignoring merkle root for script-path signature")
		}

		signature, err := s.signer.Sign(ctx, req.VaultID, digest)
		if err != nil {
			return nil, err
		}

		payload.ProtocolSignatureHex = hex.EncodeToString(signature)
		result, err = s.backend.FinalizeWithdraw(ctx, payload)
		if err != nil {
			return nil, err
		}
		if result.SignatureRequired != nil {
			return nil, fmt.Errorf("backend still requires a signature after resubmission")
		}
	}

	if err := s.scanner.Broadcast(ctx, result.Hex); err != nil {
		return nil, fmt.Errorf("failed to broadcast withdraw transaction: %w", err)
	}

	txid := result.Txid
	if txid == "" {
		if computed, err := txidFromRawHex(result.Hex); err == nil {
			txid = computed
		}
	}

	s.markVaultWithdrawn(ctx, req.VaultID, txid)

	return &WithdrawFinalizeResponse{
		VaultID: req.VaultID,
		Txid:    txid,
		Hex:     result.Hex,
	}, nil
}

func (s *service) SignWithdraw(ctx context.Context, req WithdrawSignRequest) (*WithdrawSignResponse, error) {
	if req.VaultID == 0 {
		return nil, ErrMissingVaultID
	}
	if len(req.TapleafHash) != 32 {
		return nil, ErrInvalidTapleafHash
	}
	if len(req.MerkleRoot) > 0 && len(req.MerkleRoot) != 32 {
		return nil, ErrInvalidMerkleRoot
	}

	digest, err := decodeDigest(req.Sighash)
	if err != nil {
		return nil, err
	}

	if len(req.MerkleRoot) > 0 {
		log.WithField("vault_id", req.VaultID).
			Debug("ignoring merkle root for script-path signature")
	}

	signature, err := s.signer.Sign(ctx, req.VaultID, digest)
	if err != nil {
		return nil, err
	}
	return &WithdrawSignResponse{Signature: signature}, nil
}

// VerifyProtocolSignature re-derives the vault's protocol key and checks a
// BIP-340 signature against a sighash, for operational sanity checks.
func (s *service) VerifyProtocolSignature(
	ctx context.Context, vaultID uint64, sighashHex, sigHex string,
) (bool, error) {
	protocolKey, err := s.signer.DerivePublicKey(ctx, vaultID)
	if err != nil {
		return false, err
	}

	keyBuf, err := hex.DecodeString(protocolKey.PublicKeyHex)
	if err != nil {
		return false, err
	}
	pubkey, err := schnorr.ParsePubKey(keyBuf)
	if err != nil {
		return false, err
	}

	msg, err := hex.DecodeString(sighashHex)
	if err != nil || len(msg) != 32 {
		return false, ErrInvalidSighash
	}

	sigBuf, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, err
	}
	signature, err := schnorr.ParseSignature(sigBuf)
	if err != nil {
		return false, err
	}

	return signature.Verify(msg, pubkey), nil
}

func (s *service) ListUserVaults(ctx context.Context, paymentAddress string) ([]VaultSummary, error) {
	if strings.TrimSpace(paymentAddress) == "" {
		return nil, fmt.Errorf("missing payment address")
	}

	vaults, err := s.repo.Vaults().GetVaultsForPayment(ctx, strings.ToLower(paymentAddress))
	if err != nil {
		return nil, err
	}
	if len(vaults) == 0 {
		// Nothing stored locally, serve from the backend's view.
		vaults, err = s.backend.ListVaults(ctx, paymentAddress)
		if err != nil {
			return nil, err
		}
	}

	summaries := make([]VaultSummary, 0, len(vaults))
	for _, vault := range vaults {
		summaries = append(summaries, vaultToSummary(vault))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt > summaries[j].CreatedAt
	})
	return summaries, nil
}

func (s *service) btcUsdPrice(ctx context.Context) (price float64, usingFallback bool, err error) {
	price, oracleErr := s.oracle.GetBtcUsdPrice(ctx)
	if oracleErr == nil {
		return price, false, nil
	}
	if s.fallbackPriceUsd <= 0 {
		return 0, false, fmt.Errorf("%w: no fallback price configured", ports.ErrPriceUnavailable)
	}
	log.WithError(oracleErr).Warnf("oracle price unavailable, using fallback %f", s.fallbackPriceUsd)
	return s.fallbackPriceUsd, true, nil
}

func (s *service) deriveVaultAddress(
	protocolKeyHex, userKeyHex string,
) (address, descriptor string, err error) {
	protocolKey, err := vaultscript.ParseComponentKey(protocolKeyHex)
	if err != nil {
		return "", "", fmt.Errorf("protocol key: %w", err)
	}
	userKey, err := vaultscript.ParseComponentKey(userKeyHex)
	if err != nil {
		return "", "", fmt.Errorf("user payment key: %w", err)
	}

	scripts, err := vaultscript.BuildVaultScripts(
		s.guardians.InternalKey,
		[]*secp256k1.PublicKey{protocolKey, userKey},
		[]*secp256k1.PublicKey{s.guardians.QuorumKeyA, s.guardians.QuorumKeyB},
	)
	if err != nil {
		return "", "", err
	}

	address, err = scripts.Address(s.network)
	if err != nil {
		return "", "", err
	}
	return address, scripts.Descriptor(), nil
}

type mintOverrides struct {
	inputs      []domain.InputRef
	outputsJSON string
}

// buildMintOverrides pre-selects the funding set and assembles the output map
// for the backend. A nil result (no error) means no override is available and
// the backend does its own selection.
func (s *service) buildMintOverrides(
	ctx context.Context,
	paymentAddress, ordinalsAddress, vaultAddress string,
	vaultSats uint64,
) (*mintOverrides, error) {
	if s.fees.FeeRecipientAddress == "" || s.fees.RuneOpReturnHex == "" {
		return nil, nil
	}

	ordinalsSats := s.fees.OrdinalsSats
	if ordinalsSats == 0 {
		ordinalsSats = defaultOrdinalsSats
	}
	feeSats := s.fees.FeeRecipientSats
	if feeSats == 0 {
		feeSats = defaultFeeSats
	}
	runeHex := s.fees.RuneOpReturnHex
	if runeHex == "" {
		runeHex = defaultRuneHex
	}

	totalRequired := ordinalsSats + feeSats + vaultSats + txFeeBufferSats

	utxos, err := s.scanner.GetSpendableUtxos(ctx, paymentAddress)
	if err != nil {
		return nil, err
	}
	if len(utxos) == 0 {
		return nil, fmt.Errorf("no utxos available for %s", paymentAddress)
	}

	selection, err := SelectUtxos(utxos, totalRequired)
	if err != nil {
		return nil, err
	}

	outputs := map[string]interface{}{"data": runeHex}
	outputs[ordinalsAddress] = satsToBtc(ordinalsSats)
	outputs[s.fees.FeeRecipientAddress] = satsToBtc(feeSats)
	outputs[vaultAddress] = satsToBtc(vaultSats)
	if selection.ChangeSats > 0 {
		outputs[paymentAddress] = satsToBtc(selection.ChangeSats)
	}

	outputsJSON, err := json.Marshal(outputs)
	if err != nil {
		return nil, err
	}

	inputs := make([]domain.InputRef, 0, len(selection.Inputs))
	for _, utxo := range selection.Inputs {
		inputs = append(inputs, domain.InputRef{Txid: utxo.Txid, Vout: utxo.Vout})
	}

	return &mintOverrides{inputs: inputs, outputsJSON: string(outputsJSON)}, nil
}

func (s *service) storedVaultFromPending(pending domain.PendingMint, txid string) domain.Vault {
	artifacts := pending.Artifacts
	return domain.Vault{
		VaultID:            artifacts.VaultID,
		PaymentAddress:     strings.ToLower(artifacts.PaymentAddress),
		OrdinalsAddress:    artifacts.OrdinalsAddress,
		VaultAddress:       artifacts.VaultAddress,
		ProtocolPublicKey:  artifacts.ProtocolPublicKey,
		ProtocolChainCode:  artifacts.ProtocolChainCode,
		Descriptor:         artifacts.Descriptor,
		CollateralSats:     artifacts.CollateralSats,
		Rune:               artifacts.Rune,
		FeeRate:            artifacts.FeeRate,
		CreatedAt:          pending.CreatedAt,
		Txid:               txid,
		MinConfirmations:   s.minConfirmations,
		MintTokens:         pending.MintTokens,
		MintUsdCents:       pending.MintUsd,
		CollateralRatioBps: s.collateral.RatioBps,
		BtcPriceUsd:        pending.BtcPriceUsd,
		Health:             domain.VaultHealthPending,
	}
}

func (s *service) markVaultWithdrawn(ctx context.Context, vaultID uint64, txid string) {
	vault, err := s.repo.Vaults().GetVault(ctx, vaultID)
	if err != nil {
		log.WithError(err).WithField("vault_id", vaultID).
			Warn("withdraw broadcast for unknown vault record")
		return
	}
	vault.WithdrawTxid = txid
	vault.Withdrawable = false
	vault.Health = domain.VaultHealthWithdrawn
	if err := s.repo.Vaults().UpdateVault(ctx, *vault); err != nil {
		log.WithError(err).WithField("vault_id", vaultID).
			Warn("failed to record withdraw txid")
	}
}

// trackConfirmations refreshes confirmation counts for vaults that have not
// yet reached their withdrawability threshold.
func (s *service) trackConfirmations() {
	ctx := context.Background()

	vaults, err := s.repo.Vaults().GetUnconfirmedVaults(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to list unconfirmed vaults")
		return
	}
	if len(vaults) == 0 {
		return
	}

	tip, err := s.scanner.GetTipHeight(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to fetch chain tip")
		return
	}

	for _, vault := range vaults {
		confirmed, blockHeight, err := s.scanner.GetTxStatus(ctx, vault.Txid)
		if err != nil {
			log.WithError(err).WithField("vault_id", vault.VaultID).
				Warn("failed to fetch tx status")
			continue
		}
		if !confirmed {
			continue
		}
		if blockHeight > tip {
			// The tip query can lag the tx status when esplora answers
			// from different nodes.
			log.WithFields(log.Fields{
				"vault_id":     vault.VaultID,
				"tip":          tip,
				"block_height": blockHeight,
			}).Warn("chain tip behind confirmed tx height, retrying next poll")
			continue
		}

		vault.Confirmations = uint32(tip - blockHeight + 1)
		vault.Health = domain.VaultHealthActive
		vault.Withdrawable = vault.IsConfirmed()

		if err := s.repo.Vaults().UpdateVault(ctx, vault); err != nil {
			log.WithError(err).WithField("vault_id", vault.VaultID).
				Warn("failed to update vault confirmations")
		}
	}
}

func satsToBtc(sats uint64) float64 {
	return float64(sats) / domain.SatsPerBtc
}

func vaultToSummary(vault domain.Vault) VaultSummary {
	return VaultSummary{
		VaultID:             vault.VaultID,
		VaultAddress:        vault.VaultAddress,
		CollateralSats:      vault.CollateralSats,
		LockedCollateralBtc: vault.LockedCollateralBtc(),
		ProtocolPublicKey:   vault.ProtocolPublicKey,
		CreatedAt:           vault.CreatedAt,
		Rune:                vault.Rune,
		FeeRate:             vault.FeeRate,
		OrdinalsAddress:     vault.OrdinalsAddress,
		PaymentAddress:      vault.PaymentAddress,
		Txid:                vault.Txid,
		WithdrawTxid:        vault.WithdrawTxid,
		Confirmations:       vault.Confirmations,
		MinConfirmations:    vault.MinConfirmations,
		Withdrawable:        vault.Withdrawable,
		BtcPriceUsd:         vault.BtcPriceUsd,
		CollateralRatioBps:  vault.CollateralRatioBps,
		MintTokens:          vault.MintTokens,
		MintUsdCents:        vault.MintUsdCents,
		Health:              vault.Health,
	}
}
