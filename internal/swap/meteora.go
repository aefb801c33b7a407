package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Takhi77/Solana-meteora-volume-bot/internal/client"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/executor"
)

// Meteora routes swaps through a Meteora pool API. Unlike the other
// backends it submits the transaction itself and hands back the signature.
// The DLMM variant discovers the pool from the mint pair; the dynamic-AMM
// variant addresses the configured pool directly.
type Meteora struct {
	name        string
	swapURL     string
	httpClient  *http.Client
	mint        solana.PublicKey
	slippageBps int

	ledger client.Ledger
	exec   *executor.Executor
}

func newMeteoraDLMM(deps Deps) (Backend, error) {
	return &Meteora{
		name:        "METEORA",
		swapURL:     deps.Cfg.MeteoraDLMMURL + "/swap",
		httpClient:  newHTTPClient(),
		mint:        deps.Mint,
		slippageBps: deps.Cfg.SwapSlippageBps,
		ledger:      deps.Ledger,
		exec:        deps.Exec,
	}, nil
}

func newMeteoraDyn(deps Deps) (Backend, error) {
	return &Meteora{
		name:        "METEORA_DYN",
		swapURL:     fmt.Sprintf("%s/pools/%s/swap", deps.Cfg.MeteoraDynammURL, deps.Cfg.PoolID),
		httpClient:  newHTTPClient(),
		mint:        deps.Mint,
		slippageBps: deps.Cfg.SwapSlippageBps,
		ledger:      deps.Ledger,
		exec:        deps.Exec,
	}, nil
}

func (m *Meteora) BuildBuy(ctx context.Context, wallet solana.PrivateKey, lamports uint64) (*Outcome, error) {
	return m.swapAndSubmit(ctx, wallet, solana.SolMint, m.mint, lamports)
}

func (m *Meteora) BuildSell(ctx context.Context, wallet solana.PrivateKey, minorUnits uint64) (*Outcome, error) {
	return m.swapAndSubmit(ctx, wallet, m.mint, solana.SolMint, minorUnits)
}

func (m *Meteora) swapAndSubmit(ctx context.Context, wallet solana.PrivateKey, input, output solana.PublicKey, amount uint64) (*Outcome, error) {
	payload := map[string]interface{}{
		"user":        wallet.PublicKey().String(),
		"inputMint":   input.String(),
		"outputMint":  output.String(),
		"inAmount":    amount,
		"slippageBps": m.slippageBps,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal swap payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.swapURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s swap: %w", m.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s swap build failed: status %d", m.name, resp.StatusCode)
	}

	var result struct {
		Transaction string `json:"transaction"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode %s swap response: %w", m.name, err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%s swap error: %s", m.name, result.Error)
	}
	if result.Transaction == "" {
		return nil, fmt.Errorf("no transaction in %s response", m.name)
	}

	tx, err := decodeAndSign(result.Transaction, wallet)
	if err != nil {
		return nil, err
	}

	bh, err := m.ledger.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	sig, err := m.exec.Execute(ctx, tx, []solana.PrivateKey{wallet}, bh, rpc.ConfirmationStatusConfirmed)
	if err != nil {
		return nil, err
	}
	return &Outcome{Signature: sig}, nil
}
