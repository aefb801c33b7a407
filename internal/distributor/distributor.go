// Package distributor implements the one-shot fan-out of the main wallet's
// balance across freshly generated sub-wallets.
package distributor

import (
	"context"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Takhi77/Solana-meteora-volume-bot/internal/client"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/common"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/config"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/wallet"
)

const (
	// Total submission attempts for the distribution transaction.
	distributeAttempts = 6

	computeUnitLimit          = 100_000
	computeUnitPriceMicroLamp = 250_000
)

// Share is one funded sub-wallet handed to a cycle scheduler.
type Share struct {
	Wallet   solana.PrivateKey
	Lamports uint64
}

// submitter is the slice of the executor the distributor needs.
type submitter interface {
	Execute(ctx context.Context, tx *solana.Transaction, signers []solana.PrivateKey, bh client.Blockhash, level rpc.ConfirmationStatusType) (solana.Signature, error)
}

// recordAppender is the slice of the wallet store the distributor needs.
type recordAppender interface {
	Append(recs ...wallet.Record) error
}

// Distributor splits the main balance across N new wallets in one broadcast.
type Distributor struct {
	ledger client.Ledger
	exec   submitter
	store  recordAppender
	main   solana.PrivateKey
	count  int
}

// New creates a distributor. count is capped at the configured maximum.
func New(ledger client.Ledger, exec submitter, store recordAppender, main solana.PrivateKey, count int) *Distributor {
	if count > config.MaxDistributeWallets {
		count = config.MaxDistributeWallets
	}
	return &Distributor{
		ledger: ledger,
		exec:   exec,
		store:  store,
		main:   main,
		count:  count,
	}
}

// Distribute generates d.count fresh wallets, persists their records, then
// moves an even share of the main balance to each in a single transaction.
//
// Records hit the wallet file before the transfer is broadcast: a crash
// between broadcast and persistence could otherwise orphan funded wallets.
// On retry exhaustion the persisted records are the only leftover state, so
// the wallets stay discoverable for out-of-band funding.
func (d *Distributor) Distribute(ctx context.Context) ([]Share, error) {
	mainBal, err := d.ledger.Balance(ctx, d.main.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("failed to read main wallet balance: %w", err)
	}
	if mainBal <= common.FeeBufferLamports || mainBal <= common.ReserveFloorLamports {
		return nil, fmt.Errorf("main wallet balance is not enough: %s SOL", common.LamportsToSOL(mainBal))
	}

	perWallet := (mainBal - common.ReserveFloorLamports) / uint64(d.count)
	log.Printf("[INFO] distributing %s SOL to each of %d wallets", common.LamportsToSOL(perWallet), d.count)

	ixs := []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstructionBuilder().
			SetUnits(computeUnitLimit).Build(),
		computebudget.NewSetComputeUnitPriceInstructionBuilder().
			SetMicroLamports(computeUnitPriceMicroLamp).Build(),
	}

	shares := make([]Share, 0, d.count)
	records := make([]wallet.Record, 0, d.count)
	for i := 0; i < d.count; i++ {
		w := solana.NewWallet()
		shares = append(shares, Share{Wallet: w.PrivateKey, Lamports: perWallet})
		records = append(records, wallet.NewRecord(w.PrivateKey))

		ixs = append(ixs, system.NewTransferInstruction(
			perWallet,
			d.main.PublicKey(),
			w.PublicKey(),
		).Build())
	}

	if err := d.store.Append(records...); err != nil {
		return nil, fmt.Errorf("failed to persist wallet records: %w", err)
	}

	for attempt := 1; attempt <= distributeAttempts; attempt++ {
		sig, err := d.submit(ctx, ixs)
		if err != nil {
			log.Printf("[WARN] distribution attempt %d/%d failed: %v", attempt, distributeAttempts, err)
			continue
		}
		log.Printf("[INFO] SOL distributed, https://solscan.io/tx/%s", sig)
		return shares, nil
	}

	return nil, fmt.Errorf("distribution failed after %d attempts", distributeAttempts)
}

func (d *Distributor) submit(ctx context.Context, ixs []solana.Instruction) (solana.Signature, error) {
	bh, err := d.ledger.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	tx, err := solana.NewTransaction(ixs, bh.Hash, solana.TransactionPayer(d.main.PublicKey()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build distribution transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if d.main.PublicKey().Equals(key) {
			return &d.main
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign distribution transaction: %w", err)
	}

	return d.exec.Execute(ctx, tx, []solana.PrivateKey{d.main}, bh, rpc.ConfirmationStatusFinalized)
}
