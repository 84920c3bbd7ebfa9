package permit2

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBitmap struct {
	words map[int64]*big.Int
	err   error
	calls int
}

func (f *fakeBitmap) NonceBitmap(_ context.Context, _ common.Address, wordPos *big.Int) (*big.Int, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if w, ok := f.words[wordPos.Int64()]; ok {
		return w, nil
	}
	return new(big.Int), nil
}

func fullWord() *big.Int {
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
}

var owner = common.HexToAddress("0x4444444444444444444444444444444444444444")

func TestNextNonceEmptyBitmap(t *testing.T) {
	n, err := NextNonce(context.Background(), &fakeBitmap{}, owner, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n.Int64())
}

func TestNextNonceLowestUnsetBit(t *testing.T) {
	reader := &fakeBitmap{words: map[int64]*big.Int{0: big.NewInt(0b1011)}}

	n, err := NextNonce(context.Background(), reader, owner, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n.Int64())
}

func TestNextNonceAdvancesWords(t *testing.T) {
	reader := &fakeBitmap{words: map[int64]*big.Int{0: fullWord(), 1: big.NewInt(1)}}

	n, err := NextNonce(context.Background(), reader, owner, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1<<8|1), n.Int64())
	assert.Equal(t, 2, reader.calls)
}

func TestNextNonceSkipsReserved(t *testing.T) {
	reserved := NewReservations()
	require.True(t, reserved.Reserve(owner, big.NewInt(0)))
	require.True(t, reserved.Reserve(owner, big.NewInt(1)))
	assert.False(t, reserved.Reserve(owner, big.NewInt(1)))

	n, err := NextNonce(context.Background(), &fakeBitmap{}, owner, 1, reserved)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n.Int64())

	other := common.HexToAddress("0x5555555555555555555555555555555555555555")
	n, err = NextNonce(context.Background(), &fakeBitmap{}, other, 1, reserved)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n.Int64())
}

func TestNextNonceExhausted(t *testing.T) {
	reader := &fakeBitmap{words: map[int64]*big.Int{0: fullWord(), 1: fullWord()}}

	_, err := NextNonce(context.Background(), reader, owner, 2, nil)
	assert.Error(t, err)
}

func TestNextNonceReaderError(t *testing.T) {
	_, err := NextNonce(context.Background(), &fakeBitmap{err: errors.New("rpc down")}, owner, 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc down")
}

func TestNextNonceInvalidLimit(t *testing.T) {
	_, err := NextNonce(context.Background(), &fakeBitmap{}, owner, 0, nil)
	assert.Error(t, err)
}

func TestComposeSplitNonce(t *testing.T) {
	n := ComposeNonce(big.NewInt(3), 17)
	assert.Equal(t, int64(3*256+17), n.Int64())

	word, bit := SplitNonce(n)
	assert.Equal(t, int64(3), word.Int64())
	assert.Equal(t, uint(17), bit)
}

func TestIsUsed(t *testing.T) {
	reader := &fakeBitmap{words: map[int64]*big.Int{1: big.NewInt(1 << 5)}}

	used, err := IsUsed(context.Background(), reader, owner, ComposeNonce(big.NewInt(1), 5))
	require.NoError(t, err)
	assert.True(t, used)

	used, err = IsUsed(context.Background(), reader, owner, ComposeNonce(big.NewInt(1), 6))
	require.NoError(t, err)
	assert.False(t, used)
}
