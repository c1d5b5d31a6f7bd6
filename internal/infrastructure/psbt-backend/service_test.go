package psbtbackend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/domain"
	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/ports"
	psbtbackend "github.com/Bhanu-Sai-Enamala/bitICP/internal/infrastructure/psbt-backend"
)

func TestBuildMint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mint/build-psbt", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("x-api-key"))
		require.NotEmpty(t, r.Header.Get("x-request-id"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "testwallet", req["wallet"])
		require.Equal(t, "42", req["vaultId"])
		require.Equal(t, "deadbeef", req["protocolPublicKey"])

		outputs, ok := req["outputs"].(map[string]interface{})
		require.True(t, ok)
		require.Equal(t, "00dde905020a00", outputs["data"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"rune":    "TESTRUNE",
			"feeRate": 2.5,
			"result": map[string]interface{}{
				"wallet":            "testwallet",
				"vaultId":           "42",
				"vaultAddress":      "tb1ptestvault",
				"descriptor":        "tr(...)",
				"originalPsbt":      "cHNidP8=",
				"patchedPsbt":       "cHNidP8=",
				"rawTransactionHex": "0200",
				"inputs":            []map[string]interface{}{{"txid": "aa", "vout": 0}},
				"changeOutput":      map[string]string{"address": "tb1qchange", "amountBtc": "0.001"},
				"collateralSats":    25811,
				"ordinalsAddress":   "tb1qordinals",
				"paymentAddress":    "tb1qpayment",
			},
		})
	}))
	defer server.Close()

	backend, err := psbtbackend.NewService(server.URL, "secret", "testwallet")
	require.NoError(t, err)

	result, err := backend.BuildMint(context.Background(), ports.BuildMintPayload{
		VaultID:             42,
		ProtocolPublicKey:   "deadbeef",
		ProtocolChainCode:   "00",
		OutputsOverrideJSON: `{"data":"00dde905020a00"}`,
	})
	require.NoError(t, err)
	require.Equal(t, "TESTRUNE", result.Rune)
	require.Equal(t, uint64(42), result.Artifacts.VaultID)
	require.Equal(t, uint64(25811), result.Artifacts.CollateralSats)
	require.Len(t, result.Artifacts.Inputs, 1)
	require.NotNil(t, result.Artifacts.ChangeOutput)
	// Derived key material is kept when the backend omits it.
	require.Equal(t, "deadbeef", result.Artifacts.ProtocolPublicKey)
	require.Equal(t, "00", result.Artifacts.ProtocolChainCode)
}

func TestBuildMintErrorStatusNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "invalid fee rate", http.StatusBadRequest)
	}))
	defer server.Close()

	backend, err := psbtbackend.NewService(server.URL, "", "testwallet")
	require.NoError(t, err)

	_, err = backend.BuildMint(context.Background(), ports.BuildMintPayload{VaultID: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid fee rate")
	require.Equal(t, 1, calls)
}

func TestFinalizeMint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mint/finalize", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "cHNidP8=", req["psbt"])
		require.Equal(t, "7", req["vaultId"])
		require.Equal(t, false, req["broadcast"])

		vault, ok := req["vault"].(map[string]interface{})
		require.True(t, ok)
		require.Equal(t, "tb1ptestvault", vault["vaultAddress"])
		require.Equal(t, float64(25811), vault["collateralSats"])
		require.Equal(t, float64(10), vault["mintTokens"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"vaultId":  "7",
			"hex":      "0200",
			"complete": true,
			"txid":     "finalizedtxid",
		})
	}))
	defer server.Close()

	backend, err := psbtbackend.NewService(server.URL, "", "testwallet")
	require.NoError(t, err)

	result, err := backend.FinalizeMint(context.Background(), "cHNidP8=", domain.PendingMint{
		Artifacts: domain.MintArtifacts{
			VaultID:        7,
			VaultAddress:   "tb1ptestvault",
			CollateralSats: 25811,
		},
		MintTokens: 10,
		MintUsd:    1000,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(7), result.VaultID)
	require.True(t, result.Complete)
	require.Equal(t, "finalizedtxid", result.Txid)
}

func TestFinalizeWithdrawSignatureRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/withdraw/finalize", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"vaultId":     "9",
			"tapleafHash": "aa",
			"sighash":     "bb",
			"merkleRoot":  "cc",
		})
	}))
	defer server.Close()

	backend, err := psbtbackend.NewService(server.URL, "", "testwallet")
	require.NoError(t, err)

	result, err := backend.FinalizeWithdraw(context.Background(), ports.WithdrawFinalizePayload{
		VaultID:    9,
		SignedPsbt: "cHNidP8=",
	})
	require.NoError(t, err)
	require.NotNil(t, result.SignatureRequired)
	require.Equal(t, uint64(9), result.VaultID)
	require.Equal(t, "bb", result.SignatureRequired.Sighash)
}

func TestFinalizeWithdrawComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "cafe", req["protocolSignature"])

		json.NewEncoder(w).Encode(map[string]string{
			"vaultId": "9",
			"hex":     "0200",
			"txid":    "withdrawtxid",
		})
	}))
	defer server.Close()

	backend, err := psbtbackend.NewService(server.URL, "", "testwallet")
	require.NoError(t, err)

	result, err := backend.FinalizeWithdraw(context.Background(), ports.WithdrawFinalizePayload{
		VaultID:              9,
		SignedPsbt:           "cHNidP8=",
		ProtocolSignatureHex: "cafe",
	})
	require.NoError(t, err)
	require.Nil(t, result.SignatureRequired)
	require.Equal(t, "withdrawtxid", result.Txid)
}

func TestPrepareWithdraw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/withdraw/prepare", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"vaultId":      "3",
			"psbt":         "cHNidP8=",
			"burnMetadata": "burn",
			"inputs": []map[string]interface{}{
				{"txid": "aa", "vout": 1, "value": 0.00025811},
			},
			"vaultAddress": "tb1ptestvault",
		})
	}))
	defer server.Close()

	backend, err := psbtbackend.NewService(server.URL, "", "testwallet")
	require.NoError(t, err)

	result, err := backend.PrepareWithdraw(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, uint64(3), result.VaultID)
	require.Len(t, result.Inputs, 1)
	require.InDelta(t, 0.00025811, result.Inputs[0].Value, 1e-12)
}

func TestListVaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vaults", r.URL.Path)
		require.Equal(t, "tb1qpayment", r.URL.Query().Get("payment"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"vaults": []map[string]interface{}{
				{"vaultId": "1", "paymentAddress": "tb1qpayment", "collateralSats": 25811},
				{"vaultId": "not-a-number"},
				{"vaultId": "2", "paymentAddress": "tb1qpayment"},
			},
		})
	}))
	defer server.Close()

	backend, err := psbtbackend.NewService(server.URL, "", "testwallet")
	require.NoError(t, err)

	vaults, err := backend.ListVaults(context.Background(), "tb1qpayment")
	require.NoError(t, err)
	// The malformed entry is skipped, not fatal.
	require.Len(t, vaults, 2)
	require.Equal(t, uint64(25811), vaults[0].CollateralSats)
}
