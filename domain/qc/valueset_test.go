package qc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyqc/domain/core"
	"studyqc/domain/table"
)

func TestParseValueSetNumber(t *testing.T) {
	set, err := ParseValueSet(5.0)
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.Num(5)}, set)

	set, err = ParseValueSet(7)
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.Num(7)}, set)
}

func TestParseValueSetDelimitedString(t *testing.T) {
	set, err := ParseValueSet("1, 2,3")
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.Num(1), table.Num(2), table.Num(3)}, set)

	set, err = ParseValueSet("a, b ,c")
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.Str("a"), table.Str("b"), table.Str("c")}, set)
}

func TestParseValueSetLetterForcesAllStrings(t *testing.T) {
	// One alphabetic element coerces the entire set to strings
	set, err := ParseValueSet([]any{1.0, 2.0, "c"})
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.Str("1"), table.Str("2"), table.Str("c")}, set)

	// Without letters, numeric parsing succeeds for numeric-looking strings
	set, err = ParseValueSet([]any{1.0, 2.0, "3"})
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.Num(1), table.Num(2), table.Num(3)}, set)
}

func TestParseValueSetMixedNumericWithUnparsableToken(t *testing.T) {
	// No letters anywhere: "?" fails the numeric parse and stays verbatim
	set, err := ParseValueSet("1,?,3")
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.Num(1), table.Str("?"), table.Num(3)}, set)
}

func TestParseValueSetInvalidInput(t *testing.T) {
	_, err := ParseValueSet(struct{}{})
	assert.ErrorIs(t, err, core.ErrInvalidValueSet)

	_, err = ParseValueSet(nil)
	assert.ErrorIs(t, err, core.ErrInvalidValueSet)

	_, err = ParseValueSet([]any{1.0, map[string]int{}})
	assert.ErrorIs(t, err, core.ErrInvalidValueSet)
}

func TestValueInSet(t *testing.T) {
	numeric, err := ParseValueSet("1,2,3")
	require.NoError(t, err)

	assert.True(t, ValueInSet(table.Num(2), numeric))
	assert.True(t, ValueInSet(table.Str("2"), numeric), "numeric strings match numeric sets")
	assert.False(t, ValueInSet(table.Num(4), numeric))
	assert.False(t, ValueInSet(table.Null(), numeric), "null is a member of nothing")

	strSet, err := ParseValueSet("M,F")
	require.NoError(t, err)
	assert.True(t, ValueInSet(table.Str("M"), strSet))
	assert.False(t, ValueInSet(table.Str("m"), strSet), "membership is case sensitive")
}

func TestLooksLikeExpression(t *testing.T) {
	assert.True(t, looksLikeExpression("sex == 'M'"))
	assert.True(t, looksLikeExpression("visit > 2"))
	assert.True(t, looksLikeExpression("a & b"))
	assert.False(t, looksLikeExpression("1,2,3"))
	assert.False(t, looksLikeExpression("M"))
}
