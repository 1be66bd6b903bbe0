package snesanalyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeOpcode(t *testing.T) {
	op := decodeOpcode(0xA9)
	assert.Equal(t, LDA, op.Op)
	assert.Equal(t, ImmediateM, op.AddrMode)

	op = decodeOpcode(0x20)
	assert.Equal(t, JSR, op.Op)
	assert.Equal(t, Absolute, op.AddrMode)
}

func TestDescribeKnownAndUnknown(t *testing.T) {
	desc, ok := Describe(LDA)
	assert.True(t, ok)
	assert.NotEmpty(t, desc)

	_, ok = Describe(Op("ZZZ"))
	assert.False(t, ok)
}

func TestArgumentSizesCoverEveryMode(t *testing.T) {
	for mode := Implied; mode <= PeiDirectPageIndirect; mode++ {
		_, ok := argumentSizes[mode]
		assert.True(t, ok, "mode %d missing from argumentSizes", mode)
	}
}
