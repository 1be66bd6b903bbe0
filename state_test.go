package snesanalyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateFromMX(t *testing.T) {
	s := StateFromMX(true, false)
	assert.True(t, s.M())
	assert.False(t, s.X())
}

func TestStateFromExpr(t *testing.T) {
	s, err := StateFromExpr("m=0,x=1")
	require.NoError(t, err)
	assert.False(t, s.M())
	assert.True(t, s.X())

	s, err = StateFromExpr("x=0,m=1")
	require.NoError(t, err)
	assert.True(t, s.M())
	assert.False(t, s.X())

	_, err = StateFromExpr("m=1")
	assert.Error(t, err)

	_, err = StateFromExpr("m=1,z=0")
	assert.Error(t, err)
}

func TestStateSizes(t *testing.T) {
	s := StateFromMX(true, true)
	assert.Equal(t, 1, s.ASize())
	assert.Equal(t, 1, s.XSize())

	s.Reset(0b0011_0000)
	assert.Equal(t, 2, s.ASize())
	assert.Equal(t, 2, s.XSize())
}

func TestStateSetReset(t *testing.T) {
	s := NewState(0b0000_0000)

	s.Set(0b0000_0000)
	assert.EqualValues(t, 0b0000_0000, s.P())

	s.Set(0b1111_1111)
	assert.EqualValues(t, 0b0011_0000, s.P())

	s2 := NewState(0b1111_1111)
	s2.Reset(0b0000_0000)
	assert.EqualValues(t, 0b1111_1111, s2.P())

	s2.Reset(0b1111_1111)
	assert.EqualValues(t, 0b1100_1111, s2.P())
}

func TestStateSetResetMX(t *testing.T) {
	s := NewState(0)

	s.SetM(true)
	s.SetX(true)
	assert.True(t, s.M())
	assert.True(t, s.X())

	s.SetM(false)
	s.SetX(false)
	assert.False(t, s.M())
	assert.False(t, s.X())
}

func TestStateChangeString(t *testing.T) {
	assert.Equal(t, "none", NewEmptyStateChange().String())
	assert.Equal(t, "unknown", NewUnknownStateChange(Unknown).String())

	m := true
	change := NewStateChange(&m, nil)
	assert.Equal(t, "m=1", change.String())

	x := false
	change = NewStateChange(&m, &x)
	assert.Equal(t, "m=1,x=0", change.String())
}

func TestStateChangeFromExpr(t *testing.T) {
	c, err := StateChangeFromExpr("none")
	require.NoError(t, err)
	assert.False(t, c.IsUnknown())
	assert.Nil(t, c.M)
	assert.Nil(t, c.X)

	c, err = StateChangeFromExpr("unknown")
	require.NoError(t, err)
	assert.True(t, c.IsUnknown())

	c, err = StateChangeFromExpr("m=1,x=0")
	require.NoError(t, err)
	require.NotNil(t, c.M)
	require.NotNil(t, c.X)
	assert.True(t, *c.M)
	assert.False(t, *c.X)

	_, err = StateChangeFromExpr("q=1")
	assert.Error(t, err)
}

func TestStateChangeApplyInference(t *testing.T) {
	m := true
	c := NewStateChange(&m, nil)
	inferred := StateChange{M: &m}
	c.ApplyInference(inferred)
	assert.Nil(t, c.M)
}

func TestStateChangeSimplify(t *testing.T) {
	m := true
	c := NewStateChange(&m, nil)
	state := StateFromMX(true, false)
	simplified := c.Simplify(state)
	assert.Nil(t, simplified.M)
}

func TestStateChangeSetReset(t *testing.T) {
	var c StateChange
	c.Set(1 << mBit)
	require.NotNil(t, c.M)
	assert.True(t, *c.M)

	c.Reset(1 << xBit)
	require.NotNil(t, c.X)
	assert.False(t, *c.X)
}

func TestStateChangeEqual(t *testing.T) {
	m := true
	a := NewStateChange(&m, nil)
	b := NewStateChange(&m, nil)
	assert.True(t, a.Equal(b))

	c := NewUnknownStateChange(IndirectJump)
	d := NewUnknownStateChange(IndirectJump)
	assert.True(t, c.Equal(d))
	assert.False(t, a.Equal(c))
}

func TestUnknownReasonString(t *testing.T) {
	assert.Equal(t, "indirect jump", IndirectJump.String())
	assert.Equal(t, "multiple return states", MultipleReturnStates.String())
	assert.Equal(t, "mutable code", MutableCode.String())
}
