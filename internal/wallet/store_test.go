package wallet

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func newRecords(n int) []Record {
	recs := make([]Record, n)
	for i := range recs {
		recs[i] = NewRecord(solana.NewWallet().PrivateKey)
	}
	return recs
}

func TestAppendLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	store := NewStore(path, nil)

	first := newRecords(3)
	if err := store.Append(first...); err != nil {
		t.Fatalf("Append: %v", err)
	}
	second := newRecords(2)
	if err := store.Append(second...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := append(first, second...)
	if len(got) != len(want) {
		t.Fatalf("loaded %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v (append order must be preserved)", i, got[i], want[i])
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.json"), nil)

	recs, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("loaded %d records from a missing file", len(recs))
	}
}

func TestReopenSamePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")

	recs := newRecords(2)
	if err := NewStore(path, nil).Append(recs...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := NewStore(path, nil).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0] != recs[0] || got[1] != recs[1] {
		t.Errorf("reopened store returned %+v, want %+v", got, recs)
	}
}

func TestConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	store := NewStore(path, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Append(NewRecord(solana.NewWallet().PrivateKey)); err != nil {
				t.Errorf("Append: %v", err)
			}
		}()
	}
	wg.Wait()

	n, err := store.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 8 {
		t.Errorf("store holds %d records after 8 concurrent appends", n)
	}
}

func TestSealedAtRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	store := NewStore(path, []byte("hunter2"))

	key := solana.NewWallet().PrivateKey
	if err := store.Append(NewRecord(key)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wallet file: %v", err)
	}
	if strings.Contains(string(raw), key.String()) {
		t.Fatal("private key is on disk in the clear")
	}
	if !strings.Contains(string(raw), "sealed:") {
		t.Fatal("wallet file does not carry a sealed key")
	}
	if !strings.Contains(string(raw), key.PublicKey().String()) {
		t.Error("public key should stay readable in a sealed store")
	}

	recs, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if recs[0].PrivateKey != key.String() {
		t.Error("Load did not open the sealed key back to base58")
	}
	got, err := recs[0].Keypair()
	if err != nil {
		t.Fatalf("Keypair: %v", err)
	}
	if !got.PublicKey().Equals(key.PublicKey()) {
		t.Error("recovered keypair does not match the original")
	}
}

func TestSealedWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	if err := NewStore(path, []byte("right")).Append(NewRecord(solana.NewWallet().PrivateKey)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if _, err := NewStore(path, []byte("wrong")).Load(); err == nil {
		t.Fatal("expected error opening sealed keys with the wrong passphrase")
	}
}

func TestSealOpenRoundtrip(t *testing.T) {
	sealer := NewSealer([]byte("passphrase"))
	plain := solana.NewWallet().PrivateKey.String()

	sealed, err := sealer.Seal(plain)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !IsSealed(sealed) {
		t.Fatal("sealed value missing prefix")
	}
	if IsSealed(plain) {
		t.Fatal("plain base58 misreported as sealed")
	}

	got, err := sealer.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != plain {
		t.Error("opened key differs from the original")
	}
}

func TestRecordKeypair(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	rec := NewRecord(key)

	if rec.PubKey != key.PublicKey().String() {
		t.Errorf("record pubkey = %s, want %s", rec.PubKey, key.PublicKey())
	}
	got, err := rec.Keypair()
	if err != nil {
		t.Fatalf("Keypair: %v", err)
	}
	if !got.PublicKey().Equals(key.PublicKey()) {
		t.Error("keypair roundtrip lost the key")
	}
}
