package swap

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/Takhi77/Solana-meteora-volume-bot/internal/config"
)

// serializedTransfer builds a small real transaction signed by wallet and
// returns its base64 wire form, standing in for what a swap API would return.
func serializedTransfer(t *testing.T, wallet solana.PrivateKey) string {
	t.Helper()
	var hash solana.Hash
	hash[0] = 7

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, wallet.PublicKey(), solana.NewWallet().PublicKey()).Build(),
		},
		hash,
		solana.TransactionPayer(wallet.PublicKey()),
	)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if wallet.PublicKey().Equals(key) {
			return &wallet
		}
		return nil
	}); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestNewUnknownStrategy(t *testing.T) {
	_, err := New("ORCA", Deps{Cfg: &config.Config{}})
	if err == nil {
		t.Fatal("expected error for unknown routing strategy")
	}
}

func TestNewKnownStrategies(t *testing.T) {
	cfg := &config.Config{PoolID: solana.NewWallet().PublicKey().String()}
	for _, strategy := range []string{"JUPITER", "RAYDIUM", "METEORA", "METEORA_DYN"} {
		if _, err := New(strategy, Deps{Cfg: cfg}); err != nil {
			t.Errorf("New(%s): %v", strategy, err)
		}
	}
}

func TestJupiterBuy(t *testing.T) {
	wallet := solana.NewWallet().PrivateKey
	mint := solana.NewWallet().PublicKey()
	txBase64 := serializedTransfer(t, wallet)

	var quoteQuery, swapUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			quoteQuery = r.URL.RawQuery
			fmt.Fprint(w, `{"inputMint":"x","outAmount":"42"}`)
		case "/swap":
			var req struct {
				UserPublicKey string `json:"userPublicKey"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode swap payload: %v", err)
			}
			swapUser = req.UserPublicKey
			fmt.Fprintf(w, `{"swapTransaction":%q}`, txBase64)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	backend, err := New("JUPITER", Deps{
		Cfg:  &config.Config{JupiterBaseURL: srv.URL, SwapSlippageBps: 100},
		Mint: mint,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	outcome, err := backend.BuildBuy(context.Background(), wallet, 5_000_000)
	if err != nil {
		t.Fatalf("BuildBuy: %v", err)
	}
	if outcome.Submitted() {
		t.Error("jupiter backend should hand back a transaction, not submit")
	}
	if outcome.Tx == nil || len(outcome.Tx.Signatures) == 0 || outcome.Tx.Signatures[0].IsZero() {
		t.Fatal("returned transaction is not signed")
	}

	wantQuery := fmt.Sprintf("inputMint=%s&outputMint=%s&amount=5000000&slippageBps=100&swapMode=ExactIn",
		solana.SolMint, mint)
	if quoteQuery != wantQuery {
		t.Errorf("quote query = %q, want %q", quoteQuery, wantQuery)
	}
	if swapUser != wallet.PublicKey().String() {
		t.Errorf("swap user = %q, want the buying wallet", swapUser)
	}
}

func TestJupiterSellReversesMints(t *testing.T) {
	wallet := solana.NewWallet().PrivateKey
	mint := solana.NewWallet().PublicKey()
	txBase64 := serializedTransfer(t, wallet)

	var quoteQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			quoteQuery = r.URL.RawQuery
			fmt.Fprint(w, `{"outAmount":"1"}`)
		case "/swap":
			fmt.Fprintf(w, `{"swapTransaction":%q}`, txBase64)
		}
	}))
	defer srv.Close()

	backend, err := New("JUPITER", Deps{
		Cfg:  &config.Config{JupiterBaseURL: srv.URL, SwapSlippageBps: 50},
		Mint: mint,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := backend.BuildSell(context.Background(), wallet, 1_000); err != nil {
		t.Fatalf("BuildSell: %v", err)
	}
	wantQuery := fmt.Sprintf("inputMint=%s&outputMint=%s&amount=1000&slippageBps=50&swapMode=ExactIn",
		mint, solana.SolMint)
	if quoteQuery != wantQuery {
		t.Errorf("quote query = %q, want %q", quoteQuery, wantQuery)
	}
}

func TestJupiterQuoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"no route found"}`)
	}))
	defer srv.Close()

	backend, err := New("JUPITER", Deps{Cfg: &config.Config{JupiterBaseURL: srv.URL}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = backend.BuildBuy(context.Background(), solana.NewWallet().PrivateKey, 1_000)
	if err == nil {
		t.Fatal("expected error when the quote carries an error field")
	}
}

func TestJupiterHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	backend, err := New("JUPITER", Deps{Cfg: &config.Config{JupiterBaseURL: srv.URL}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = backend.BuildBuy(context.Background(), solana.NewWallet().PrivateKey, 1_000)
	if err == nil {
		t.Fatal("expected error on non-200 quote status")
	}
}

func TestDecodeAndSign(t *testing.T) {
	wallet := solana.NewWallet().PrivateKey
	txBase64 := serializedTransfer(t, wallet)

	tx, err := decodeAndSign(txBase64, wallet)
	if err != nil {
		t.Fatalf("decodeAndSign: %v", err)
	}
	if len(tx.Signatures) == 0 || tx.Signatures[0].IsZero() {
		t.Error("transaction not signed")
	}

	if _, err := decodeAndSign("not base64!!", wallet); err == nil {
		t.Error("expected error for malformed base64")
	}
	if _, err := decodeAndSign(base64.StdEncoding.EncodeToString([]byte("junk")), wallet); err == nil {
		t.Error("expected error for undecodable transaction bytes")
	}
}
