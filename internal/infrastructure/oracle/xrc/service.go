package xrc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/ports"
)

type service struct {
	url    string
	client *http.Client
}

// NewService returns a RateSource backed by an exchange-rate HTTP API
// exposing scaled integer quotes.
func NewService(baseURL string) (ports.RateSource, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid oracle url: %s", err)
	}
	return &service{
		url:    baseURL,
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type unavailable struct{}

// NewUnavailable returns a RateSource that always reports the price as
// unavailable, for deployments without an exchange-rate endpoint.
func NewUnavailable() ports.RateSource {
	return unavailable{}
}

func (unavailable) GetBtcUsdPrice(context.Context) (float64, error) {
	return 0, fmt.Errorf("%w: no oracle configured", ports.ErrPriceUnavailable)
}

type rateResponse struct {
	Rate     uint64 `json:"rate"`
	Decimals uint32 `json:"decimals"`
}

func (s *service) GetBtcUsdPrice(ctx context.Context) (float64, error) {
	endpoint, err := url.JoinPath(s.url, "exchange-rate")
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ports.ErrPriceUnavailable, err)
	}
	endpoint = fmt.Sprintf("%s?base=BTC&quote=USD", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ports.ErrPriceUnavailable, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ports.ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		content, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf(
			"%w: oracle responded with status %s: %s",
			ports.ErrPriceUnavailable, resp.Status, content,
		)
	}

	var rate rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&rate); err != nil {
		return 0, fmt.Errorf("%w: %s", ports.ErrPriceUnavailable, err)
	}

	price := float64(rate.Rate) / math.Pow10(int(rate.Decimals))
	if price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return 0, fmt.Errorf("%w: non-positive quote %f", ports.ErrPriceUnavailable, price)
	}
	return price, nil
}
