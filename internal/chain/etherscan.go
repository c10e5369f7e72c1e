package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EtherscanClient uses the Etherscan proxy module (eth_getTransactionByHash).
type EtherscanClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewEtherscanClient(baseURL, apiKey string) *EtherscanClient {
	return &EtherscanClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type proxyResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	// Present on account-module style errors (e.g. rate limits).
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

type proxyTransaction struct {
	Hash    string  `json:"hash"`
	To      *string `json:"to"`
	Value   string  `json:"value"`
	ChainID string  `json:"chainId"`
}

func (c *EtherscanClient) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("apikey", c.APIKey)
	endpoint := fmt.Sprintf("%s?%s", c.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("api error: %s (status: %d)", string(respBody), resp.StatusCode)
	}

	return respBody, nil
}

func (c *EtherscanClient) Lookup(ctx context.Context, reference string) (*Transaction, error) {
	body, err := c.doRequest(ctx, url.Values{
		"module": {"proxy"},
		"action": {"eth_getTransactionByHash"},
		"txhash": {reference},
	})
	if err != nil {
		return nil, err
	}

	var envelope proxyResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("api error: %s (code: %d)", envelope.Error.Message, envelope.Error.Code)
	}

	result := bytes.TrimSpace(envelope.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrNotFound
	}
	if result[0] == '"' {
		// {"status":"0","message":"NOTOK","result":"Invalid API Key"}
		var msg string
		_ = json.Unmarshal(result, &msg)
		return nil, fmt.Errorf("api error: %s %s", envelope.Message, msg)
	}

	var raw proxyTransaction
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, ErrNotFound
	}
	return raw.toTransaction(reference)
}

func (p proxyTransaction) toTransaction(reference string) (*Transaction, error) {
	if p.To == nil || !common.IsHexAddress(*p.To) {
		return nil, ErrNotFound
	}
	value, err := decodeQuantity(p.Value)
	if err != nil {
		return nil, ErrNotFound
	}
	chainID, err := decodeQuantity(p.ChainID)
	if err != nil {
		return nil, ErrNotFound
	}

	hash := p.Hash
	if hash == "" {
		hash = reference
	}
	return &Transaction{
		Hash:    hash,
		To:      common.HexToAddress(*p.To),
		Value:   value,
		ChainID: chainID,
	}, nil
}

// decodeQuantity accepts JSON-RPC quantities, tolerating leading zeros some
// explorers emit.
func decodeQuantity(s string) (*big.Int, error) {
	if v, err := hexutil.DecodeBig(s); err == nil {
		return v, nil
	}
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		if v, ok := new(big.Int).SetString(s[2:], 16); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("invalid quantity %q", s)
}
