package snesanalyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLabels(t *testing.T) {
	assert.Equal(t, "sub_808000", defaultSubroutineLabel(0x808000))
	assert.Equal(t, "loc_808000", defaultLocalLabel(0x808000))
}

func TestValidateLabelName(t *testing.T) {
	name, err := validateLabelName("main_loop", nil)
	require.NoError(t, err)
	assert.Equal(t, "main_loop", name)
}

func TestValidateLabelNameLocal(t *testing.T) {
	name, err := validateLabelName(".inner", nil)
	require.NoError(t, err)
	assert.Equal(t, ".inner", name)
}

func TestValidateLabelNameRejectsReservedPrefix(t *testing.T) {
	_, err := validateLabelName("sub_123456", nil)
	require.Error(t, err)
	kind, _ := AsKind(err)
	assert.Equal(t, ErrReservedLabel, kind)
}

func TestValidateLabelNameRejectsInvalidIdentifier(t *testing.T) {
	_, err := validateLabelName("1abc", nil)
	require.Error(t, err)
	kind, _ := AsKind(err)
	assert.Equal(t, ErrInvalidLabel, kind)
}

func TestValidateLabelNameRejectsAlreadyUsed(t *testing.T) {
	_, err := validateLabelName("taken", func(string) bool { return true })
	require.Error(t, err)
	kind, _ := AsKind(err)
	assert.Equal(t, ErrLabelAlreadyUsed, kind)
}
