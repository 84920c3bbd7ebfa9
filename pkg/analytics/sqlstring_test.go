package analytics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSubstitutesNamedPlaceholders(t *testing.T) {
	sql, err := Format("SELECT * FROM t WHERE a = lower(:addr) LIMIT :limit", map[string]interface{}{
		"addr":  "0xabc",
		"limit": 15,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a = lower('0xabc') LIMIT 15", sql)
}

func TestFormatEscapesQuotes(t *testing.T) {
	sql, err := Format("SELECT :name", map[string]interface{}{"name": "O'Brien'; DROP TABLE x; --"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 'O''Brien''; DROP TABLE x; --'", sql)
}

func TestFormatLeavesCastsAndUnknownPlaceholders(t *testing.T) {
	sql, err := Format("SELECT :v::numeric, :other, ::limit", map[string]interface{}{"v": 1.5, "limit": 3})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1.5::numeric, :other, ::limit", sql)
}

func TestFormatDoesNotMatchPrefixes(t *testing.T) {
	sql, err := Format("SELECT :addr, :address", map[string]interface{}{"addr": "a"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 'a', :address", sql)
}

func TestFormatNoParamsTrims(t *testing.T) {
	sql, err := Format("  SELECT :x  \n", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT :x", sql)
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, "NULL"},
		{true, "TRUE"},
		{false, "FALSE"},
		{int64(-4), "-4"},
		{uint(7), "7"},
		{0.25, "0.25"},
		{json.Number("12.5"), "12.5"},
		{[]string{"a", "b'c"}, "('a', 'b''c')"},
		{[]interface{}{1, "x", nil}, "(1, 'x', NULL)"},
	}
	for _, c := range cases {
		got, err := FormatValue(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestFormatValueRejects(t *testing.T) {
	for _, v := range []interface{}{
		math.NaN(),
		math.Inf(1),
		map[string]int{"a": 1},
		[]interface{}{[]int{1}},
		[]interface{}{true},
		json.Number("1; DROP"),
	} {
		_, err := FormatValue(v)
		assert.Error(t, err, "%v", v)
	}
}
