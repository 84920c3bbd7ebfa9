package permit2

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// BitsPerWord is the width of one nonceBitmap word
const BitsPerWord = 256

// BitmapReader reads Permit2's nonceBitmap(owner, wordPos)
type BitmapReader interface {
	NonceBitmap(ctx context.Context, owner common.Address, wordPos *big.Int) (*big.Int, error)
}

// Reservations tracks nonces handed out but not yet spent on chain
type Reservations struct {
	mu    sync.Mutex
	taken map[string]struct{}
}

// NewReservations creates an empty reservation set
func NewReservations() *Reservations {
	return &Reservations{taken: make(map[string]struct{})}
}

func reservationKey(owner common.Address, nonce *big.Int) string {
	return strings.ToLower(owner.Hex()) + ":" + nonce.String()
}

// Reserve marks nonce as used for owner. It reports false when the nonce
// was already reserved.
func (r *Reservations) Reserve(owner common.Address, nonce *big.Int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := reservationKey(owner, nonce)
	if _, exists := r.taken[key]; exists {
		return false
	}
	r.taken[key] = struct{}{}
	return true
}

// Has reports whether nonce is reserved for owner
func (r *Reservations) Has(owner common.Address, nonce *big.Int) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.taken[reservationKey(owner, nonce)]
	return exists
}

// ComposeNonce packs a word position and bit position into a nonce
func ComposeNonce(wordPos *big.Int, bitPos uint) *big.Int {
	n := new(big.Int).Lsh(wordPos, 8)
	return n.Or(n, big.NewInt(int64(bitPos)))
}

// SplitNonce is the inverse of ComposeNonce
func SplitNonce(nonce *big.Int) (*big.Int, uint) {
	wordPos := new(big.Int).Rsh(nonce, 8)
	bitPos := uint(new(big.Int).And(nonce, big.NewInt(0xff)).Uint64())
	return wordPos, bitPos
}

// NextNonce returns the lowest nonce whose bit is unset in the owner's
// bitmap and which is not reserved. Words are searched from 0 up to
// wordLimit-1. A nil reservations set is treated as empty.
func NextNonce(ctx context.Context, reader BitmapReader, owner common.Address, wordLimit int, reserved *Reservations) (*big.Int, error) {
	if wordLimit <= 0 {
		return nil, fmt.Errorf("word limit must be positive")
	}

	for word := int64(0); word < int64(wordLimit); word++ {
		wordPos := big.NewInt(word)
		bitmap, err := reader.NonceBitmap(ctx, owner, wordPos)
		if err != nil {
			return nil, fmt.Errorf("failed to read nonce bitmap word %d: %w", word, err)
		}

		for bit := uint(0); bit < BitsPerWord; bit++ {
			if bitmap.Bit(int(bit)) == 1 {
				continue
			}
			nonce := ComposeNonce(wordPos, bit)
			if reserved.Has(owner, nonce) {
				continue
			}
			return nonce, nil
		}
	}

	return nil, fmt.Errorf("no free nonce in the first %d bitmap words for %s", wordLimit, owner.Hex())
}

// IsUsed reports whether nonce is already spent according to the bitmap
func IsUsed(ctx context.Context, reader BitmapReader, owner common.Address, nonce *big.Int) (bool, error) {
	wordPos, bitPos := SplitNonce(nonce)
	bitmap, err := reader.NonceBitmap(ctx, owner, wordPos)
	if err != nil {
		return false, fmt.Errorf("failed to read nonce bitmap: %w", err)
	}
	return bitmap.Bit(int(bitPos)) == 1, nil
}
