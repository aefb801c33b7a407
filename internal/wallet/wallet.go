package wallet

import (
	"github.com/gagliardetto/solana-go"
)

// Record is one persisted wallet credential. Records are appended to the
// store when a wallet is created and are never rewritten or deleted, so
// funds can always be recovered out of band from the file alone.
type Record struct {
	PrivateKey string `json:"privateKey"`
	PubKey     string `json:"pubkey"`
}

// NewRecord builds a Record for a freshly generated keypair. The private key
// is base58, matching the wallet file's reversible encoding.
func NewRecord(key solana.PrivateKey) Record {
	return Record{
		PrivateKey: key.String(),
		PubKey:     key.PublicKey().String(),
	}
}

// Keypair recovers the private key from a plain (unsealed) record.
func (r Record) Keypair() (solana.PrivateKey, error) {
	return solana.PrivateKeyFromBase58(r.PrivateKey)
}
