package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gagliardetto/solana-go"
)

// Jupiter routes swaps through the Jupiter aggregator API: quote first, then
// a swap call that returns a serialized transaction to submit ourselves.
type Jupiter struct {
	baseURL     string
	httpClient  *http.Client
	mint        solana.PublicKey
	slippageBps int
}

func newJupiter(deps Deps) (Backend, error) {
	return &Jupiter{
		baseURL:     deps.Cfg.JupiterBaseURL,
		httpClient:  newHTTPClient(),
		mint:        deps.Mint,
		slippageBps: deps.Cfg.SwapSlippageBps,
	}, nil
}

// BuildBuy quotes SOL into the target token for the given lamports.
func (j *Jupiter) BuildBuy(ctx context.Context, wallet solana.PrivateKey, lamports uint64) (*Outcome, error) {
	return j.build(ctx, wallet, solana.SolMint, j.mint, lamports)
}

// BuildSell quotes the target token back into SOL for the given minor units.
func (j *Jupiter) BuildSell(ctx context.Context, wallet solana.PrivateKey, minorUnits uint64) (*Outcome, error) {
	return j.build(ctx, wallet, j.mint, solana.SolMint, minorUnits)
}

func (j *Jupiter) build(ctx context.Context, wallet solana.PrivateKey, input, output solana.PublicKey, amount uint64) (*Outcome, error) {
	quote, err := j.quote(ctx, input, output, amount)
	if err != nil {
		return nil, err
	}

	txBase64, err := j.swap(ctx, quote, wallet.PublicKey())
	if err != nil {
		return nil, err
	}

	tx, err := decodeAndSign(txBase64, wallet)
	if err != nil {
		return nil, err
	}
	return &Outcome{Tx: tx}, nil
}

func (j *Jupiter) quote(ctx context.Context, input, output solana.PublicKey, amount uint64) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/quote?inputMint=%s&outputMint=%s&amount=%d&slippageBps=%d&swapMode=ExactIn",
		j.baseURL, input, output, amount, j.slippageBps)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote request: %w", err)
	}

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote failed: status %d", resp.StatusCode)
	}

	var quote json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}

	var check struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(quote, &check); err == nil && check.Error != "" {
		return nil, fmt.Errorf("quote error: %s", check.Error)
	}
	return quote, nil
}

func (j *Jupiter) swap(ctx context.Context, quote json.RawMessage, user solana.PublicKey) (string, error) {
	payload := map[string]interface{}{
		"quoteResponse":    quote,
		"userPublicKey":    user.String(),
		"wrapAndUnwrapSol": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal swap payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to build swap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("swap build failed: status %d", resp.StatusCode)
	}

	var result struct {
		SwapTransaction string `json:"swapTransaction"`
		Error           string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode swap response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("swap error: %s", result.Error)
	}
	if result.SwapTransaction == "" {
		return "", fmt.Errorf("no swapTransaction in response")
	}
	return result.SwapTransaction, nil
}
