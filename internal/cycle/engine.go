// Package cycle drives one lineage of wallets through repeated
// buy→sell→rotate cycles. A lineage is the logical chain of wallets produced
// by successive rotations: one continuous actor whose underlying identity
// changes each cycle.
package cycle

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Takhi77/Solana-meteora-volume-bot/internal/client"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/common"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/config"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/executor"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/notifier"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/recorder"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/swap"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/wallet"
)

// Phase is one state of the per-lineage cycle machine.
type Phase int

const (
	PhaseBuyFirst Phase = iota
	PhaseBuySecond
	PhaseAwaitBuyWindow
	PhaseSell
	PhaseAwaitSellWindow
	PhaseRotate
)

func (p Phase) String() string {
	switch p {
	case PhaseBuyFirst:
		return "buy-first"
	case PhaseBuySecond:
		return "buy-second"
	case PhaseAwaitBuyWindow:
		return "await-buy-window"
	case PhaseSell:
		return "sell"
	case PhaseAwaitSellWindow:
		return "await-sell-window"
	case PhaseRotate:
		return "rotate"
	}
	return "unknown"
}

const (
	// swapAttempts is the total attempt budget for each buy and sell phase:
	// one initial attempt plus ten retries, fixed backoff between them.
	swapAttempts = 11
	swapBackoff  = 2 * time.Second

	// rotateAttempts is the total attempt budget for the rotation transfer.
	rotateAttempts = 6

	// StaggerDelay spaces out lineage start times so first buys don't land
	// on the network simultaneously.
	StaggerDelay = 30 * time.Second

	rotateComputeUnitLimit          = 600_000
	rotateComputeUnitPriceMicroLamp = 20_000

	// sellDustBound is the exclusive upper bound on the random dust left
	// unsold, in token minor units. Some pools fail to close a fully
	// drained token account cleanly.
	sellDustBound = 100
)

// Submitter is the slice of the executor a lineage needs.
type Submitter interface {
	Execute(ctx context.Context, tx *solana.Transaction, signers []solana.PrivateKey, bh client.Blockhash, level rpc.ConfirmationStatusType) (solana.Signature, error)
}

// RecordStore is the slice of the wallet store a lineage needs.
type RecordStore interface {
	Append(recs ...wallet.Record) error
	Load() ([]wallet.Record, error)
}

// Deps carries a lineage's collaborators.
type Deps struct {
	Cfg      *config.Config
	Mint     solana.PublicKey
	Ledger   client.Ledger
	Exec     Submitter
	Backend  swap.Backend
	Store    RecordStore
	Notifier notifier.Notifier
	Recorder recorder.Recorder

	// Sleep and Rand are injectable for tests; nil means real time and a
	// time-seeded source.
	Sleep func(time.Duration)
	Rand  *rand.Rand
}

// Lineage holds the in-memory state of one wallet chain: the currently
// active keypair and the tranche split carried between the two buy phases.
type Lineage struct {
	index  int
	wallet solana.PrivateKey

	cfg     *config.Config
	mint    solana.PublicKey
	ledger  client.Ledger
	exec    Submitter
	backend swap.Backend
	store   RecordStore
	notify  notifier.Notifier
	record  recorder.Recorder
	sleep   func(time.Duration)
	rnd     *rand.Rand

	tranche1 uint64
	tranche2 uint64
}

// NewLineage creates a lineage starting from an already funded wallet.
func NewLineage(index int, w solana.PrivateKey, deps Deps) *Lineage {
	sleep := deps.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	rnd := deps.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano() + int64(index)))
	}
	return &Lineage{
		index:   index,
		wallet:  w,
		cfg:     deps.Cfg,
		mint:    deps.Mint,
		ledger:  deps.Ledger,
		exec:    deps.Exec,
		backend: deps.Backend,
		store:   deps.Store,
		notify:  deps.Notifier,
		record:  deps.Recorder,
		sleep:   sleep,
		rnd:     rnd,
	}
}

// Run drives the lineage until a terminal failure: balance under the reserve
// floor or an exhausted retry budget. Termination is logged, never escalated;
// other lineages keep running.
func (l *Lineage) Run(ctx context.Context) {
	phase := PhaseBuyFirst
	for {
		next, err := l.step(ctx, phase)
		if err != nil {
			log.Printf("[WARN] lineage %d (%s) terminated in %s: %v",
				l.index, notifier.Obfuscate(l.wallet.PublicKey().String()), phase, err)
			return
		}
		phase = next
	}
}

func (l *Lineage) step(ctx context.Context, phase Phase) (Phase, error) {
	switch phase {
	case PhaseBuyFirst:
		return l.stepBuyFirst(ctx)
	case PhaseBuySecond:
		return l.stepBuySecond(ctx)
	case PhaseAwaitBuyWindow:
		l.wait(l.cfg.BuyIntervalMin, l.cfg.BuyIntervalMax)
		return PhaseSell, nil
	case PhaseSell:
		return l.stepSell(ctx)
	case PhaseAwaitSellWindow:
		l.wait(l.cfg.SellIntervalMin, l.cfg.SellIntervalMax)
		return PhaseRotate, nil
	case PhaseRotate:
		return l.stepRotate(ctx)
	}
	return 0, fmt.Errorf("invalid phase %d", phase)
}

// stepBuyFirst sizes the whole cycle's buy budget, splits it into two
// tranches and deploys the first one.
func (l *Lineage) stepBuyFirst(ctx context.Context) (Phase, error) {
	addr := l.wallet.PublicKey()

	bal, err := l.ledger.Balance(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	if bal < common.ReserveFloorLamports+common.FeeBufferLamports {
		return 0, fmt.Errorf("balance %s SOL below reserve floor", common.LamportsToSOL(bal))
	}

	spendable := bal - common.ReserveFloorLamports - common.FeeBufferLamports
	pct := l.rnd.Float64()*(l.cfg.BuyUpperPercent-l.cfg.BuyLowerPercent) + l.cfg.BuyLowerPercent
	l.tranche1 = uint64(float64(spendable) * pct / 100)
	l.tranche2 = spendable - l.tranche1

	log.Printf("[INFO] lineage %d balance: %s SOL, first: %s, second: %s",
		l.index, common.LamportsToSOL(bal), common.LamportsToSOL(l.tranche1), common.LamportsToSOL(l.tranche2))

	if err := l.attempt(ctx, swapAttempts, swapBackoff, func() error {
		return l.buy(ctx, l.tranche1)
	}); err != nil {
		return 0, fmt.Errorf("first buy failed: %w", err)
	}
	return PhaseBuySecond, nil
}

// stepBuySecond deploys the remainder of the cycle's buy budget.
func (l *Lineage) stepBuySecond(ctx context.Context) (Phase, error) {
	if err := l.attempt(ctx, swapAttempts, swapBackoff, func() error {
		return l.buy(ctx, l.tranche2)
	}); err != nil {
		return 0, fmt.Errorf("second buy failed: %w", err)
	}
	return PhaseAwaitBuyWindow, nil
}

func (l *Lineage) stepSell(ctx context.Context) (Phase, error) {
	if err := l.attempt(ctx, swapAttempts, swapBackoff, func() error {
		return l.sellOnce(ctx)
	}); err != nil {
		return 0, fmt.Errorf("sell failed: %w", err)
	}
	return PhaseAwaitSellWindow, nil
}

// stepRotate sweeps everything above the reserve floor into a brand new
// wallet and makes it the lineage's active identity.
func (l *Lineage) stepRotate(ctx context.Context) (Phase, error) {
	addr := l.wallet.PublicKey()

	bal, err := l.ledger.Balance(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	if bal < common.ReserveFloorLamports {
		return 0, fmt.Errorf("balance %s SOL below reserve floor, cannot rotate", common.LamportsToSOL(bal))
	}

	var next solana.PrivateKey
	if err := l.attempt(ctx, rotateAttempts, 0, func() error {
		dest := solana.NewWallet()

		// The record must be durable before any funds move toward the new
		// wallet, or a crash could strand lamports at an unknown address.
		if err := l.store.Append(wallet.NewRecord(dest.PrivateKey)); err != nil {
			return executor.Terminal(fmt.Errorf("failed to persist rotation wallet: %w", err))
		}

		sig, err := l.transfer(ctx, dest.PublicKey(), bal-common.ReserveFloorLamports)
		if err != nil {
			return err
		}

		next = dest.PrivateKey
		log.Printf("[INFO] lineage %d rotated to new wallet, https://solscan.io/tx/%s", l.index, sig)
		return nil
	}); err != nil {
		// Funds stay in the old wallet; its record is persisted, so they are
		// recoverable out of band.
		return 0, fmt.Errorf("rotation failed: %w", err)
	}

	l.wallet = next
	return PhaseBuyFirst, nil
}

// buy obtains a buy transaction for amount lamports and submits it.
func (l *Lineage) buy(ctx context.Context, amount uint64) error {
	if amount == 0 {
		return executor.Terminal(fmt.Errorf("buy amount is zero"))
	}

	outcome, err := l.backend.BuildBuy(ctx, l.wallet, amount)
	if err != nil {
		return err
	}

	sig, err := l.submitOutcome(ctx, outcome, rpc.ConfirmationStatusConfirmed)
	if err != nil {
		return err
	}

	log.Printf("[INFO] lineage %d bought %s SOL worth, https://solscan.io/tx/%s",
		l.index, common.LamportsToSOL(amount), sig)
	if err := l.record.RecordSwap(&recorder.SwapEvent{
		Wallet:     l.wallet.PublicKey().String(),
		Side:       recorder.SideBuy,
		Signature:  sig.String(),
		Amount:     amount,
		ExecutedAt: time.Now(),
	}); err != nil {
		log.Printf("[WARN] failed to record buy: %v", err)
	}
	return nil
}

// sellOnce attempts one full sell: read the token balance, leave a little
// random dust behind and swap the rest back to SOL.
func (l *Lineage) sellOnce(ctx context.Context) error {
	recs, err := l.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load wallet records: %w", err)
	}
	if len(recs) == 0 {
		// Distribution persistence has not landed yet; transient.
		return fmt.Errorf("no wallet records on disk yet")
	}

	addr := l.wallet.PublicKey()
	ata, _, err := solana.FindAssociatedTokenAddress(addr, l.mint)
	if err != nil {
		return executor.Terminal(fmt.Errorf("failed to derive token account: %w", err))
	}

	tokenBal, err := l.ledger.TokenBalance(ctx, ata)
	if err != nil {
		return fmt.Errorf("failed to read token balance: %w", err)
	}

	dust := uint64(l.rnd.Intn(sellDustBound))
	if tokenBal.Amount <= dust {
		// Nothing meaningful to sell; never hand the backend a
		// zero or negative amount.
		return fmt.Errorf("token balance %d too small to sell", tokenBal.Amount)
	}
	sellAmount := tokenBal.Amount - dust

	before, err := l.ledger.Balance(ctx, addr)
	if err != nil {
		before = 0
	}

	outcome, err := l.backend.BuildSell(ctx, l.wallet, sellAmount)
	if err != nil {
		return err
	}

	// Sell settles at default commitment; waiting for finalized here only
	// adds latency, and the rotation step re-reads the balance anyway.
	sig, err := l.submitOutcome(ctx, outcome, rpc.ConfirmationStatusConfirmed)
	if err != nil {
		return err
	}

	after, err := l.ledger.Balance(ctx, addr)
	if err != nil {
		after = before
	}

	log.Printf("[INFO] lineage %d sold %d %s, https://solscan.io/tx/%s",
		l.index, sellAmount, l.cfg.TokenName, sig)

	l.notify.NotifySell(notifier.SellNote{
		Wallet:         addr.String(),
		Signature:      sig.String(),
		TokenName:      l.cfg.TokenName,
		SoldMinorUnits: sellAmount,
		GotLamports:    int64(after) - int64(before),
	})
	if err := l.record.RecordSwap(&recorder.SwapEvent{
		Wallet:     addr.String(),
		Side:       recorder.SideSell,
		Signature:  sig.String(),
		Amount:     sellAmount,
		ExecutedAt: time.Now(),
	}); err != nil {
		log.Printf("[WARN] failed to record sell: %v", err)
	}
	return nil
}

// transfer builds and submits the rotation sweep, requiring finalized
// commitment: the old wallet is abandoned right after, so the funds must be
// durably moved first.
func (l *Lineage) transfer(ctx context.Context, to solana.PublicKey, lamports uint64) (solana.Signature, error) {
	ixs := []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstructionBuilder().
			SetUnits(rotateComputeUnitLimit).Build(),
		computebudget.NewSetComputeUnitPriceInstructionBuilder().
			SetMicroLamports(rotateComputeUnitPriceMicroLamp).Build(),
		system.NewTransferInstruction(lamports, l.wallet.PublicKey(), to).Build(),
	}

	bh, err := l.ledger.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	tx, err := solana.NewTransaction(ixs, bh.Hash, solana.TransactionPayer(l.wallet.PublicKey()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build rotation transaction: %w", err)
	}
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if l.wallet.PublicKey().Equals(key) {
			return &l.wallet
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign rotation transaction: %w", err)
	}

	return l.exec.Execute(ctx, tx, []solana.PrivateKey{l.wallet}, bh, rpc.ConfirmationStatusFinalized)
}

// submitOutcome submits a backend outcome unless the backend already did.
func (l *Lineage) submitOutcome(ctx context.Context, outcome *swap.Outcome, level rpc.ConfirmationStatusType) (solana.Signature, error) {
	if outcome.Submitted() {
		return outcome.Signature, nil
	}
	bh, err := l.ledger.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	return l.exec.Execute(ctx, outcome.Tx, []solana.PrivateKey{l.wallet}, bh, level)
}

// wait sleeps a uniformly random number of seconds in [min, max].
func (l *Lineage) wait(minSec, maxSec int) {
	span := maxSec - minSec
	secs := minSec
	if span > 0 {
		secs += l.rnd.Intn(span + 1)
	}
	l.sleep(time.Duration(secs) * time.Second)
}

// attempt runs op up to budget times total, sleeping backoff between failed
// attempts. Terminal errors abort immediately: retrying cannot fix an
// undercapitalized wallet.
func (l *Lineage) attempt(ctx context.Context, budget int, backoff time.Duration, op func() error) error {
	var lastErr error
	for i := 0; i < budget; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if executor.IsTerminal(lastErr) {
			return lastErr
		}
		if i < budget-1 && backoff > 0 {
			l.sleep(backoff)
		}
	}
	return fmt.Errorf("retry budget exhausted after %d attempts: %w", budget, lastErr)
}
