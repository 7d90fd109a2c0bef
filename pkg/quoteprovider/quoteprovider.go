// Package quoteprovider fetches quotes from the upstream 1inch Fusion+
// pricing service (§4.6), or — under DEV_MODE — synthesizes a fixed quote
// template so the coordinator can run without network access to the
// upstream service.
package quoteprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crosschain-labs/swap-coordinator/pkg/coordinatorerr"
	"github.com/crosschain-labs/swap-coordinator/pkg/domain"
)

const defaultTimeout = 10 * time.Second

// Params is the set of quote-request parameters a maker supplies to
// GET /quoter/v1.0/quote/receive.
type Params struct {
	SrcChainID    domain.ChainID
	DstChainID    domain.ChainID
	SrcTokenAddr  string
	DstTokenAddr  string
	Amount        string
	WalletAddress string
}

// Provider fetches or synthesizes quotes.
type Provider struct {
	baseURL string
	apiKey  string
	devMode bool
	client  *http.Client
	logger  *zap.Logger
}

// New builds a Provider. When devMode is true, Fetch never calls the
// network and instead returns a fixed preset template.
func New(baseURL, apiKey string, devMode bool, logger *zap.Logger) *Provider {
	return &Provider{
		baseURL: baseURL,
		apiKey:  apiKey,
		devMode: devMode,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

// Fetch retrieves a quote for the given parameters, assigning it a fresh
// quote id.
func (p *Provider) Fetch(ctx context.Context, params Params) (*domain.QuoteEntry, error) {
	quoteID := uuid.New().String()

	if p.devMode {
		return p.devModeQuote(quoteID, params), nil
	}

	reqURL := p.baseURL + "/quoter/v1.0/quote/receive?" + url.Values{
		"srcChain":        {params.SrcChainID.String()},
		"dstChain":        {params.DstChainID.String()},
		"srcTokenAddress": {params.SrcTokenAddr},
		"dstTokenAddress": {params.DstTokenAddr},
		"amount":          {params.Amount},
		"walletAddress":   {params.WalletAddress},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream quote request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.KindUpstreamUnavailable, "call upstream quote service", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.KindUpstreamUnavailable, "read upstream quote response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, coordinatorerr.New(coordinatorerr.KindUpstreamUnavailable,
			fmt.Sprintf("upstream quote service returned %d", resp.StatusCode))
	}

	var upstream struct {
		SrcTokenAddress  string           `json:"srcTokenAddress"`
		DstTokenAddress  string           `json:"dstTokenAddress"`
		SrcSafetyDeposit string           `json:"srcSafetyDeposit"`
		Timelocks        domain.Timelocks `json:"timelocks"`
		Preset           domain.Preset    `json:"preset"`
	}
	if err := json.Unmarshal(body, &upstream); err != nil {
		p.logger.Warn("upstream quote body did not match expected schema", zap.Error(err))
	}

	deposit := parseBigIntOrZero(upstream.SrcSafetyDeposit)

	return &domain.QuoteEntry{
		QuoteID:          quoteID,
		SrcChainID:       params.SrcChainID,
		DstChainID:       params.DstChainID,
		SrcTokenAddress:  params.SrcTokenAddr,
		DstTokenAddress:  params.DstTokenAddr,
		SrcSafetyDeposit: deposit,
		Timelocks:        upstream.Timelocks,
		Preset:           upstream.Preset,
		Raw:              json.RawMessage(body),
	}, nil
}

// devModeQuote returns a fixed template so local/dev deployments can submit
// and track orders without an upstream pricing service. Per spec §7, this
// is only wired when DEV_MODE is enabled.
func (p *Provider) devModeQuote(quoteID string, params Params) *domain.QuoteEntry {
	fixed := domain.Timelocks{
		SrcWithdrawal:         10,
		SrcPublicWithdrawal:   120,
		SrcCancellation:       121,
		SrcPublicCancellation: 122,
		DstWithdrawal:         10,
		DstPublicWithdrawal:   100,
		DstCancellation:       101,
	}
	preset := domain.Preset{
		Points:          []int64{0, 100},
		InitialRateBump: 0,
		SrcUSDPrice:     "1.00",
		DstUSDPrice:     "1.00",
	}
	raw, _ := json.Marshal(map[string]any{
		"devMode": true,
		"preset":  preset,
	})
	return &domain.QuoteEntry{
		QuoteID:          quoteID,
		SrcChainID:       params.SrcChainID,
		DstChainID:       params.DstChainID,
		SrcTokenAddress:  params.SrcTokenAddr,
		DstTokenAddress:  params.DstTokenAddr,
		SrcSafetyDeposit: big.NewInt(0),
		Timelocks:        fixed,
		Preset:           preset,
		Raw:              raw,
	}
}

func parseBigIntOrZero(s string) *big.Int {
	if s == "" {
		return big.NewInt(0)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}
