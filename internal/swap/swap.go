// Package swap provides a uniform interface over the interchangeable swap
// backends. Each backend is a black-box quote+build service: it either hands
// back a signed transaction for the submitter, or submits on its own and
// returns the signature.
package swap

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/Takhi77/Solana-meteora-volume-bot/internal/client"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/config"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/executor"
)

// Outcome is what a backend produces for one swap. Exactly one of Tx and
// Signature is set: Tx when the backend returns a prebuilt transaction for
// the caller to submit, Signature when the backend already submitted.
type Outcome struct {
	Tx        *solana.Transaction
	Signature solana.Signature
}

// Submitted reports whether the backend broadcast the swap itself.
func (o *Outcome) Submitted() bool {
	return !o.Signature.IsZero()
}

// Backend builds swap transactions for one routing strategy.
//
// Amount semantics are backend-independent at this boundary: BuildBuy takes
// base-asset lamports to spend, BuildSell takes token minor units to sell.
// Failures surface as errors, never panics.
type Backend interface {
	BuildBuy(ctx context.Context, wallet solana.PrivateKey, lamports uint64) (*Outcome, error)
	BuildSell(ctx context.Context, wallet solana.PrivateKey, minorUnits uint64) (*Outcome, error)
}

// Deps carries the collaborators a backend may need.
type Deps struct {
	Cfg    *config.Config
	Ledger client.Ledger
	Exec   *executor.Executor
	Mint   solana.PublicKey
}

// Factory constructs a backend from its dependencies.
type Factory func(Deps) (Backend, error)

var registry = map[string]Factory{
	"JUPITER":     newJupiter,
	"RAYDIUM":     newRaydium,
	"METEORA":     newMeteoraDLMM,
	"METEORA_DYN": newMeteoraDyn,
}

// New resolves the configured routing strategy to a backend. Called once at
// startup; the choice is static for the process lifetime.
func New(strategy string, deps Deps) (Backend, error) {
	factory, ok := registry[strategy]
	if !ok {
		return nil, fmt.Errorf("unknown swap routing %q", strategy)
	}
	return factory(deps)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

// decodeAndSign turns a backend's base64-serialized transaction into a
// signed one ready for submission.
func decodeAndSign(txBase64 string, wallet solana.PrivateKey) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode swap transaction: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize swap transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if wallet.PublicKey().Equals(key) {
			return &wallet
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign swap transaction: %w", err)
	}
	return tx, nil
}
