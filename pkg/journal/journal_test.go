package journal

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "0x1111111111111111111111111111111111111111"

func tempJournal(t *testing.T) (*Journal, string) {
	path := filepath.Join(t.TempDir(), "intents.json")
	j, err := Open(path)
	require.NoError(t, err)
	return j, path
}

func TestRecordPersistsAcrossOpen(t *testing.T) {
	j, path := tempJournal(t)

	e := &Entry{Owner: "0x1111111111111111111111111111111111111111", InputSymbol: "USDC", OutputSymbol: "WETH", AmountIn: "100000000", Nonce: "5"}
	require.NoError(t, j.Record(e))
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, StatusSigned, e.Status)

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Count())
	got, err := reopened.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "USDC", got.InputSymbol)
}

func TestSetStatus(t *testing.T) {
	j, _ := tempJournal(t)
	e := &Entry{Owner: owner, Nonce: "1"}
	require.NoError(t, j.Record(e))

	require.NoError(t, j.SetStatus(e.ID, StatusRejected, "Invalid intent: user"))
	got, _ := j.Get(e.ID)
	assert.Equal(t, StatusRejected, got.Status)
	assert.Equal(t, "Invalid intent: user", got.Message)

	assert.Error(t, j.SetStatus("missing", StatusRelayed, ""))
}

func TestListFiltersByOwner(t *testing.T) {
	j, _ := tempJournal(t)
	require.NoError(t, j.Record(&Entry{Owner: owner, Nonce: "1"}))
	require.NoError(t, j.Record(&Entry{Owner: "0x2222222222222222222222222222222222222222", Nonce: "1"}))
	require.NoError(t, j.Record(&Entry{Owner: "0x1111111111111111111111111111111111111111", Nonce: "2"}))

	assert.Len(t, j.List(""), 3)
	mine := j.List("0x1111111111111111111111111111111111111111")
	require.Len(t, mine, 2)
	assert.ElementsMatch(t, []string{"1", "2"}, []string{mine[0].Nonce, mine[1].Nonce})
}

func TestReservationsCoverJournaledNonces(t *testing.T) {
	j, _ := tempJournal(t)
	require.NoError(t, j.Record(&Entry{Owner: owner, Nonce: "256"}))
	require.NoError(t, j.Record(&Entry{Owner: "not-an-address", Nonce: "3"}))
	require.NoError(t, j.Record(&Entry{Owner: owner, Nonce: "garbage"}))

	r := j.Reservations()
	assert.True(t, r.Has(common.HexToAddress(owner), big.NewInt(256)))
	assert.False(t, r.Has(common.HexToAddress(owner), big.NewInt(3)))
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intents.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := Open(path)
	assert.Error(t, err)
}

type wordBitmap map[string]*big.Int

func (w wordBitmap) NonceBitmap(_ context.Context, _ common.Address, wordPos *big.Int) (*big.Int, error) {
	if b, ok := w[wordPos.String()]; ok {
		return b, nil
	}
	return new(big.Int), nil
}

func TestSpent(t *testing.T) {
	j, _ := tempJournal(t)
	spent := &Entry{Owner: owner, Nonce: "5"}
	pending := &Entry{Owner: owner, Nonce: "261"}
	require.NoError(t, j.Record(spent))
	require.NoError(t, j.Record(pending))

	reader := wordBitmap{"0": big.NewInt(1 << 5)}

	used, err := j.Spent(context.Background(), reader, spent.ID)
	require.NoError(t, err)
	assert.True(t, used)

	used, err = j.Spent(context.Background(), reader, pending.ID)
	require.NoError(t, err)
	assert.False(t, used)

	_, err = j.Spent(context.Background(), reader, "missing")
	assert.Error(t, err)
}
