package esplorascanner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/ports"
)

type service struct {
	url    string
	client *http.Client
}

// NewService returns a BlockchainScanner backed by an esplora instance
// (blockstream.info-compatible API).
func NewService(baseURL string) (ports.BlockchainScanner, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid esplora url: %s", err)
	}
	return &service{
		url:    baseURL,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type esploraUtxo struct {
	Txid   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  uint64 `json:"value"`
	Status struct {
		Confirmed bool `json:"confirmed"`
	} `json:"status"`
}

type esploraTx struct {
	Status struct {
		Confirmed   bool  `json:"confirmed"`
		BlockHeight int64 `json:"block_height"`
	} `json:"status"`
}

func (s *service) GetSpendableUtxos(ctx context.Context, address string) ([]ports.Utxo, error) {
	endpoint, err := url.JoinPath(s.url, "address", address, "utxo")
	if err != nil {
		return nil, err
	}

	body, err := s.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var response []esploraUtxo
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, err
	}

	utxos := make([]ports.Utxo, 0, len(response))
	for _, utxo := range response {
		utxos = append(utxos, ports.Utxo{
			Txid:  utxo.Txid,
			Vout:  utxo.Vout,
			Value: utxo.Value,
		})
	}
	return utxos, nil
}

func (s *service) Broadcast(ctx context.Context, txHex string) error {
	endpoint, err := url.JoinPath(s.url, "tx")
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, strings.NewReader(txHex),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		content, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return fmt.Errorf("failed to broadcast transaction: %s (%s)", resp.Status, content)
	}

	return nil
}

func (s *service) GetTxStatus(ctx context.Context, txid string) (bool, int64, error) {
	endpoint, err := url.JoinPath(s.url, "tx", txid)
	if err != nil {
		return false, 0, err
	}

	body, err := s.get(ctx, endpoint)
	if err != nil {
		return false, 0, err
	}
	defer body.Close()

	var response esploraTx
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return false, 0, err
	}

	return response.Status.Confirmed, response.Status.BlockHeight, nil
}

func (s *service) GetTipHeight(ctx context.Context) (int64, error) {
	endpoint, err := url.JoinPath(s.url, "blocks", "tip", "height")
	if err != nil {
		return 0, err
	}

	body, err := s.get(ctx, endpoint)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	content, err := io.ReadAll(body)
	if err != nil {
		return 0, err
	}

	return strconv.ParseInt(strings.TrimSpace(string(content)), 10, 64)
}

func (s *service) get(ctx context.Context, endpoint string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("esplora endpoint HTTP error: %s", resp.Status)
	}

	return resp.Body, nil
}
