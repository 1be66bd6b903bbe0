package main

import (
	"testing"

	snesanalyze "snes-analyze"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerArgParsesHexWithOptionalPrefix(t *testing.T) {
	v, err := integerArg([]string{"$8000"}, 0, "pc")
	require.NoError(t, err)
	assert.Equal(t, 0x8000, v)

	v, err = integerArg([]string{"0x8000"}, 0, "pc")
	require.NoError(t, err)
	assert.Equal(t, 0x8000, v)

	v, err = integerArg([]string{"8000"}, 0, "pc")
	require.NoError(t, err)
	assert.Equal(t, 0x8000, v)
}

func TestIntegerArgMissingReportsMissingArg(t *testing.T) {
	_, err := integerArg(nil, 0, "pc")
	require.Error(t, err)
	kind, _ := snesanalyze.AsKind(err)
	assert.Equal(t, snesanalyze.ErrMissingArg, kind)
}

func TestIntegerArgInvalidReportsParseErr(t *testing.T) {
	_, err := integerArg([]string{"zzz"}, 0, "pc")
	require.Error(t, err)
	kind, _ := snesanalyze.AsKind(err)
	assert.Equal(t, snesanalyze.ErrParseInt, kind)
}

func TestRangeArgParsesBothEnds(t *testing.T) {
	lo, hi, err := rangeArg([]string{"$8000..$8010"}, 0, "range")
	require.NoError(t, err)
	assert.Equal(t, 0x8000, lo)
	assert.Equal(t, 0x8010, hi)
}

func TestRangeArgRejectsMalformed(t *testing.T) {
	_, _, err := rangeArg([]string{"$8000"}, 0, "range")
	require.Error(t, err)
	kind, _ := snesanalyze.AsKind(err)
	assert.Equal(t, snesanalyze.ErrParseInt, kind)
}

func TestStringArgReturnsVerbatim(t *testing.T) {
	v, err := stringArg([]string{"hello"}, 0, "name")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestRestArgsReturnsRemainder(t *testing.T) {
	assert.Equal(t, []string{"b", "c"}, restArgs([]string{"a", "b", "c"}, 1))
	assert.Nil(t, restArgs([]string{"a"}, 5))
}
