package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Blockhash is a recent blockhash together with the last block height the
// network will still accept it at.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

// TokenAmount is a token account balance in minor units plus its decimals.
type TokenAmount struct {
	Amount   uint64
	Decimals uint8
	UiAmount float64
}

// SignatureStatus is the confirmation state of a submitted transaction.
// TxErr is non-nil when the transaction landed on chain but failed.
type SignatureStatus struct {
	Confirmation rpc.ConfirmationStatusType
	TxErr        interface{}
}

// Ledger is the RPC surface the bot needs from the chain. Components take
// this interface so tests can substitute a fake.
type Ledger interface {
	Balance(ctx context.Context, addr solana.PublicKey) (uint64, error)
	LatestBlockhash(ctx context.Context) (Blockhash, error)
	BlockHeight(ctx context.Context) (uint64, error)
	TokenBalance(ctx context.Context, account solana.PublicKey) (TokenAmount, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)
}

// SolanaClient implements Ledger over a Solana JSON-RPC endpoint.
type SolanaClient struct {
	rpcClient *rpc.Client
	rpcURL    string
}

// NewSolanaClient creates a new Solana client for the given RPC endpoint.
func NewSolanaClient(rpcURL string) *SolanaClient {
	return &SolanaClient{
		rpcClient: rpc.New(rpcURL),
		rpcURL:    rpcURL,
	}
}

// Balance gets the SOL balance in lamports for an address.
func (c *SolanaClient) Balance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	balance, err := c.rpcClient.GetBalance(ctx, addr, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get SOL balance: %w", err)
	}
	return balance.Value, nil
}

// LatestBlockhash fetches a fresh blockhash and its expiry height.
func (c *SolanaClient) LatestBlockhash(ctx context.Context) (Blockhash, error) {
	recent, err := c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return Blockhash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	return Blockhash{
		Hash:                 recent.Value.Blockhash,
		LastValidBlockHeight: recent.Value.LastValidBlockHeight,
	}, nil
}

// BlockHeight returns the current block height.
func (c *SolanaClient) BlockHeight(ctx context.Context) (uint64, error) {
	height, err := c.rpcClient.GetBlockHeight(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get block height: %w", err)
	}
	return height, nil
}

// TokenBalance gets a token account balance in minor units. A missing token
// account reads as a zero balance: the wallet simply has not bought yet.
func (c *SolanaClient) TokenBalance(ctx context.Context, account solana.PublicKey) (TokenAmount, error) {
	balance, err := c.rpcClient.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		if isAccountNotFoundError(err) {
			return TokenAmount{}, nil
		}
		return TokenAmount{}, fmt.Errorf("failed to get token account balance: %w", err)
	}
	if balance.Value == nil {
		return TokenAmount{}, nil
	}

	amount, err := strconv.ParseUint(balance.Value.Amount, 10, 64)
	if err != nil {
		return TokenAmount{}, fmt.Errorf("failed to parse token balance amount: %w", err)
	}

	out := TokenAmount{Amount: amount, Decimals: balance.Value.Decimals}
	if balance.Value.UiAmount != nil {
		out.UiAmount = *balance.Value.UiAmount
	}
	return out, nil
}

// SendTransaction broadcasts a signed transaction. Preflight is skipped: the
// submitter owns retry and confirmation, and preflight only adds latency.
func (c *SolanaClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpcClient.SendTransactionWithOpts(
		ctx,
		tx,
		rpc.TransactionOpts{
			SkipPreflight:       true,
			PreflightCommitment: rpc.CommitmentConfirmed,
		},
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

// SignatureStatus returns the confirmation state of a signature, or nil if
// the network does not know it yet.
func (c *SolanaClient) SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	statuses, err := c.rpcClient.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to get signature status: %w", err)
	}
	if len(statuses.Value) == 0 || statuses.Value[0] == nil {
		return nil, nil
	}
	st := statuses.Value[0]
	return &SignatureStatus{
		Confirmation: st.ConfirmationStatus,
		TxErr:        st.Err,
	}, nil
}

// isAccountNotFoundError checks if error indicates that an account doesn't exist
func isAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "could not find account") ||
		strings.Contains(errStr, "not found")
}
