package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Takhi77/Solana-meteora-volume-bot/internal/client"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultPollLimit    = 60
)

// Executor broadcasts transactions and waits for confirmation. It refreshes
// stale blockhashes before broadcast: the network only accepts a blockhash
// for a bounded number of slots, and resubmitting an expired one can never
// succeed.
type Executor struct {
	ledger       client.Ledger
	pollInterval time.Duration
	pollLimit    int
}

// New creates an Executor on top of a ledger client.
func New(ledger client.Ledger) *Executor {
	return &Executor{
		ledger:       ledger,
		pollInterval: defaultPollInterval,
		pollLimit:    defaultPollLimit,
	}
}

// Execute signs off on a single broadcast-and-confirm round. bh must be the
// blockhash the transaction was built against; if the chain has moved past
// its validity window the transaction is rebuilt against a fresh one and
// re-signed with signers. The signature is returned only once confirmation
// reaches level. Every failure category comes back as an error so callers
// can retry by loop-and-recheck.
func (e *Executor) Execute(
	ctx context.Context,
	tx *solana.Transaction,
	signers []solana.PrivateKey,
	bh client.Blockhash,
	level rpc.ConfirmationStatusType,
) (solana.Signature, error) {
	height, err := e.ledger.BlockHeight(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to check blockhash freshness: %w", err)
	}
	if height > bh.LastValidBlockHeight {
		fresh, err := e.ledger.LatestBlockhash(ctx)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("failed to refresh blockhash: %w", err)
		}
		if err := resign(tx, fresh.Hash, signers); err != nil {
			return solana.Signature{}, err
		}
	}

	sig, err := e.ledger.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}

	if err := e.confirm(ctx, sig, level); err != nil {
		return solana.Signature{}, err
	}
	return sig, nil
}

// confirm polls signature status until the requested level or the poll
// budget runs out.
func (e *Executor) confirm(ctx context.Context, sig solana.Signature, level rpc.ConfirmationStatusType) error {
	for i := 0; i < e.pollLimit; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.pollInterval):
		}

		status, err := e.ledger.SignatureStatus(ctx, sig)
		if err != nil {
			continue
		}
		if status == nil {
			continue
		}
		if status.TxErr != nil {
			return fmt.Errorf("transaction %s failed on chain: %v", sig, status.TxErr)
		}
		if reaches(status.Confirmation, level) {
			return nil
		}
	}
	return fmt.Errorf("transaction %s not confirmed at %s within %v",
		sig, level, time.Duration(e.pollLimit)*e.pollInterval)
}

// reaches reports whether got satisfies the requested confirmation level.
func reaches(got, want rpc.ConfirmationStatusType) bool {
	rank := func(s rpc.ConfirmationStatusType) int {
		switch s {
		case rpc.ConfirmationStatusProcessed:
			return 1
		case rpc.ConfirmationStatusConfirmed:
			return 2
		case rpc.ConfirmationStatusFinalized:
			return 3
		}
		return 0
	}
	return rank(got) >= rank(want)
}

// resign rewrites the transaction's blockhash and re-signs it. Existing
// signatures are invalid for the new message and must be discarded.
func resign(tx *solana.Transaction, hash solana.Hash, signers []solana.PrivateKey) error {
	tx.Message.RecentBlockhash = hash
	tx.Signatures = nil
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to re-sign transaction: %w", err)
	}
	return nil
}
