package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Takhi77/Solana-meteora-volume-bot/internal/client"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/common"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/config"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/cycle"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/distributor"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/executor"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/notifier"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/recorder"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/swap"
	"github.com/Takhi77/Solana-meteora-volume-bot/internal/wallet"
)

func main() {
	log.SetFlags(log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}

	mainKey, err := cfg.MainWallet()
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	mint, err := cfg.Mint()
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	ledger := client.NewSolanaClient(cfg.RPCEndpoint)
	exec := executor.New(ledger)
	store := wallet.NewStore(cfg.WalletFile, []byte(cfg.WalletStorePassphrase))

	backend, err := swap.New(cfg.SwapRouting, swap.Deps{
		Cfg:    cfg,
		Ledger: ledger,
		Exec:   exec,
		Mint:   mint,
	})
	if err != nil {
		log.Fatalf("[FATAL] init swap backend: %v", err)
	}

	var notify notifier.Notifier = notifier.NewNoopNotifier()
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notify = notifier.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.WishWord)
		log.Println("[INFO] telegram notifications enabled")
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		} else {
			rec = sr
			defer sr.Close()
		}
	}

	ctx := context.Background()

	balance, err := ledger.Balance(ctx, mainKey.PublicKey())
	if err != nil {
		log.Fatalf("[FATAL] read main wallet balance: %v", err)
	}

	log.Println("[INFO] volume bot is running")
	log.Printf("[INFO] wallet address: %s", mainKey.PublicKey())
	log.Printf("[INFO] pool token mint: %s", mint)
	log.Printf("[INFO] wallet SOL balance: %s SOL", common.LamportsToSOL(balance))
	log.Printf("[INFO] buying wait time: %d-%ds", cfg.BuyIntervalMin, cfg.BuyIntervalMax)
	log.Printf("[INFO] selling wait time: %d-%ds", cfg.SellIntervalMin, cfg.SellIntervalMax)
	log.Printf("[INFO] buy percent bounds: %.1f%%-%.1f%%", cfg.BuyLowerPercent, cfg.BuyUpperPercent)
	log.Printf("[INFO] swap routing: %s", cfg.SwapRouting)
	log.Printf("[INFO] distributing SOL to %d wallets", cfg.DistributeWalletNum)

	dist := distributor.New(ledger, exec, store, mainKey, cfg.DistributeWalletNum)
	shares, err := dist.Distribute(ctx)
	if err != nil {
		log.Fatalf("[FATAL] distribution failed: %v", err)
	}

	deps := cycle.Deps{
		Cfg:      cfg,
		Mint:     mint,
		Ledger:   ledger,
		Exec:     exec,
		Backend:  backend,
		Store:    store,
		Notifier: notify,
		Recorder: rec,
	}

	var wg sync.WaitGroup
	for i, share := range shares {
		wg.Add(1)
		go func(index int, share distributor.Share) {
			defer wg.Done()
			// Stagger start times so first buys don't thunder in together.
			time.Sleep(time.Duration(index) * cycle.StaggerDelay)
			cycle.NewLineage(index, share.Wallet, deps).Run(ctx)
		}(i, share)
	}

	wg.Wait()
	log.Println("[INFO] all lineages terminated, exiting")
}
