package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gagliardetto/solana-go"
)

// Raydium routes swaps through the Raydium trade API against the configured
// AMM pool: compute the route, then request a serialized transaction.
type Raydium struct {
	baseURL     string
	httpClient  *http.Client
	mint        solana.PublicKey
	poolID      string
	slippageBps int
}

func newRaydium(deps Deps) (Backend, error) {
	return &Raydium{
		baseURL:     deps.Cfg.RaydiumBaseURL,
		httpClient:  newHTTPClient(),
		mint:        deps.Mint,
		poolID:      deps.Cfg.PoolID,
		slippageBps: deps.Cfg.SwapSlippageBps,
	}, nil
}

func (r *Raydium) BuildBuy(ctx context.Context, wallet solana.PrivateKey, lamports uint64) (*Outcome, error) {
	return r.build(ctx, wallet, solana.SolMint, r.mint, lamports)
}

func (r *Raydium) BuildSell(ctx context.Context, wallet solana.PrivateKey, minorUnits uint64) (*Outcome, error) {
	return r.build(ctx, wallet, r.mint, solana.SolMint, minorUnits)
}

func (r *Raydium) build(ctx context.Context, wallet solana.PrivateKey, input, output solana.PublicKey, amount uint64) (*Outcome, error) {
	compute, err := r.compute(ctx, input, output, amount)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"wallet":       wallet.PublicKey().String(),
		"poolId":       r.poolID,
		"swapResponse": compute,
		"txVersion":    "V0",
		"wrapSol":      input.Equals(solana.SolMint),
		"unwrapSol":    output.Equals(solana.SolMint),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/transaction/swap-base-in", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build swap transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transaction build failed: status %d", resp.StatusCode)
	}

	var result struct {
		Success bool `json:"success"`
		Data    []struct {
			Transaction string `json:"transaction"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode transaction response: %w", err)
	}
	if !result.Success || len(result.Data) == 0 || result.Data[0].Transaction == "" {
		return nil, fmt.Errorf("no transaction in raydium response")
	}

	tx, err := decodeAndSign(result.Data[0].Transaction, wallet)
	if err != nil {
		return nil, err
	}
	return &Outcome{Tx: tx}, nil
}

func (r *Raydium) compute(ctx context.Context, input, output solana.PublicKey, amount uint64) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/compute/swap-base-in?inputMint=%s&outputMint=%s&amount=%d&slippageBps=%d&txVersion=V0",
		r.baseURL, input, output, amount, r.slippageBps)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to compute swap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("compute failed: status %d", resp.StatusCode)
	}

	var compute json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&compute); err != nil {
		return nil, fmt.Errorf("failed to decode compute response: %w", err)
	}
	return compute, nil
}
