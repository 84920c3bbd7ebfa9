package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"fast-swap/pkg/permit2"
)

const (
	DefaultFileName = ".fast-swap-intents.json"
)

// Status of a journaled intent
type Status string

const (
	StatusSigned   Status = "signed"   // signed locally, not sent
	StatusRelayed  Status = "relayed"  // accepted by the relay endpoint
	StatusRejected Status = "rejected" // relay returned an error
)

// Entry is one intent signed by the CLI
type Entry struct {
	ID           string    `json:"id"`
	Created      time.Time `json:"created"`
	LastUpdated  time.Time `json:"last_updated"`
	Owner        string    `json:"owner"`
	InputSymbol  string    `json:"input_symbol"`
	OutputSymbol string    `json:"output_symbol"`
	AmountIn     string    `json:"amount_in"`
	MinAmountOut string    `json:"min_amount_out"`
	Nonce        string    `json:"nonce"`
	Deadline     int64     `json:"deadline"`
	Signature    string    `json:"signature"`
	Status       Status    `json:"status"`
	Message      string    `json:"message,omitempty"`
}

type fileFormat struct {
	Intents map[string]*Entry `json:"intents"`
}

// Journal persists signed intents in a JSON file
type Journal struct {
	filePath string
	mu       sync.RWMutex
	entries  map[string]*Entry
}

// Open loads the journal at filePath, defaulting to the home directory.
// A missing file is created on first write.
func Open(filePath string) (*Journal, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultFileName)
	}

	j := &Journal{
		filePath: filePath,
		entries:  make(map[string]*Entry),
	}
	if err := j.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load journal: %w", err)
	}
	return j, nil
}

func (j *Journal) load() error {
	data, err := os.ReadFile(j.filePath)
	if err != nil {
		return err
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to unmarshal intents: %w", err)
	}
	if f.Intents != nil {
		j.entries = f.Intents
	}
	return nil
}

// save writes the journal atomically; callers hold the write lock
func (j *Journal) save() error {
	data, err := json.MarshalIndent(fileFormat{Intents: j.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal intents: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(j.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := j.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write intents: %w", err)
	}
	if err := os.Rename(tempFile, j.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Record stores a new entry, assigning its ID and timestamps
func (j *Journal) Record(e *Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now().UTC()
	e.ID = uuid.New().String()
	e.Created = now
	e.LastUpdated = now
	e.Owner = strings.ToLower(e.Owner)
	if e.Status == "" {
		e.Status = StatusSigned
	}

	j.entries[e.ID] = e
	return j.save()
}

// SetStatus updates an entry after a relay attempt
func (j *Journal) SetStatus(id string, status Status, message string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	e, ok := j.entries[id]
	if !ok {
		return fmt.Errorf("intent '%s' not found", id)
	}
	e.Status = status
	e.Message = message
	e.LastUpdated = time.Now().UTC()
	return j.save()
}

// Get returns the entry with id
func (j *Journal) Get(id string) (*Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	e, ok := j.entries[id]
	if !ok {
		return nil, fmt.Errorf("intent '%s' not found", id)
	}
	return e, nil
}

// List returns entries oldest first, optionally filtered by owner
func (j *Journal) List(owner string) []*Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	owner = strings.ToLower(owner)
	out := make([]*Entry, 0, len(j.entries))
	for _, e := range j.entries {
		if owner == "" || e.Owner == owner {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].Created.Before(out[b].Created)
	})
	return out
}

// Reservations returns every journaled nonce, so the nonce search skips
// nonces already signed locally but not yet spent on chain.
func (j *Journal) Reservations() *permit2.Reservations {
	j.mu.RLock()
	defer j.mu.RUnlock()

	r := permit2.NewReservations()
	for _, e := range j.entries {
		nonce, ok := new(big.Int).SetString(e.Nonce, 10)
		if !ok || !common.IsHexAddress(e.Owner) {
			continue
		}
		r.Reserve(common.HexToAddress(e.Owner), nonce)
	}
	return r
}

// Count returns the number of entries for every owner
func (j *Journal) Count() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

// FilePath is where the journal is stored
func (j *Journal) FilePath() string {
	return j.filePath
}

// Spent reports whether the nonce of entry id has been consumed on chain
func (j *Journal) Spent(ctx context.Context, reader permit2.BitmapReader, id string) (bool, error) {
	e, err := j.Get(id)
	if err != nil {
		return false, err
	}
	nonce, ok := new(big.Int).SetString(e.Nonce, 10)
	if !ok || !common.IsHexAddress(e.Owner) {
		return false, fmt.Errorf("intent '%s' has no valid owner or nonce", id)
	}
	return permit2.IsUsed(ctx, reader, common.HexToAddress(e.Owner), nonce)
}
