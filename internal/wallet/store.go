package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is the durable, append-only record of every wallet the bot has ever
// generated. Appends are serialized by a mutex; the file is rewritten as a
// whole through a tmp-and-rename so a crash mid-write cannot corrupt it.
type Store struct {
	path   string
	sealer *Sealer

	mu sync.Mutex
}

// NewStore creates a store backed by the given file. When passphrase is
// non-empty, private keys are sealed at rest; public keys stay readable
// either way.
func NewStore(path string, passphrase []byte) *Store {
	var sealer *Sealer
	if len(passphrase) > 0 {
		sealer = NewSealer(passphrase)
	}
	return &Store{path: path, sealer: sealer}
}

// Append durably persists new records. It returns only after the records are
// on disk: callers rely on this ordering to guarantee a funded wallet can
// never exist without a persisted credential.
func (s *Store) Append(recs ...Record) error {
	if len(recs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return err
	}

	for _, rec := range recs {
		if s.sealer != nil {
			sealed, err := s.sealer.Seal(rec.PrivateKey)
			if err != nil {
				return fmt.Errorf("failed to seal private key: %w", err)
			}
			rec.PrivateKey = sealed
		}
		existing = append(existing, rec)
	}

	return s.write(existing)
}

// Load returns every record ever appended, in order. Sealed private keys are
// opened when a sealer is configured.
func (s *Store) Load() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load()
	if err != nil {
		return nil, err
	}

	if s.sealer != nil {
		for i := range recs {
			if !IsSealed(recs[i].PrivateKey) {
				continue
			}
			plain, err := s.sealer.Open(recs[i].PrivateKey)
			if err != nil {
				return nil, fmt.Errorf("failed to open sealed key for %s: %w", recs[i].PubKey, err)
			}
			recs[i].PrivateKey = plain
		}
	}
	return recs, nil
}

// Count returns the number of persisted records.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

func (s *Store) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read wallet file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("failed to parse wallet file %s: %w", s.path, err)
	}
	return recs, nil
}

func (s *Store) write(recs []Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create wallet dir: %w", err)
	}

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wallet records: %w", err)
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write wallet file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace wallet file: %w", err)
	}
	return nil
}
