package snesanalyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoROM(t *testing.T) *ROM {
	t.Helper()
	data := make([]byte, 0x10000)
	rom := &ROM{Path: "test.sfc", data: data, RomType: LoROM}

	titleOff := rom.Translate(headerTitle)
	copy(data[titleOff:], "TEST GAME")

	resetOff := rom.Translate(headerReset)
	data[resetOff] = 0x00
	data[resetOff+1] = 0x80

	nmiOff := rom.Translate(headerNMI)
	data[nmiOff] = 0x10
	data[nmiOff+1] = 0x80

	sizeOff := rom.Translate(headerSize)
	data[sizeOff] = 0x0B // 0x400 << 0x0B, arbitrary but nonzero

	return rom
}

func TestROMReadByteWord(t *testing.T) {
	rom := newTestLoROM(t)
	rom.data[rom.Translate(0x8000)] = 0xAB
	rom.data[rom.Translate(0x8001)] = 0xCD

	assert.EqualValues(t, 0xAB, rom.ReadByte(0x8000))
	assert.EqualValues(t, 0xCDAB, rom.ReadWord(0x8000))
}

func TestROMReadAddress(t *testing.T) {
	rom := newTestLoROM(t)
	off := rom.Translate(0x8000)
	rom.data[off] = 0x34
	rom.data[off+1] = 0x12
	rom.data[off+2] = 0x80

	assert.Equal(t, 0x801234, rom.ReadAddress(0x8000))
}

func TestROMTitle(t *testing.T) {
	rom := newTestLoROM(t)
	assert.Equal(t, "TEST GAME", rom.Title())
}

func TestROMVectors(t *testing.T) {
	rom := newTestLoROM(t)
	assert.Equal(t, 0x8000, rom.ResetVector())
	assert.Equal(t, 0x8010, rom.NMIVector())
}

func TestROMTranslateLoROM(t *testing.T) {
	rom := &ROM{RomType: LoROM}
	assert.Equal(t, rom.Translate(0x8000), rom.Translate(0x808000))
}

func TestROMTranslateHiROM(t *testing.T) {
	rom := &ROM{RomType: HiROM}
	assert.Equal(t, 0x001234, rom.Translate(0xC01234))
}

func TestIsRAM(t *testing.T) {
	assert.True(t, IsRAM(0x0000))
	assert.True(t, IsRAM(0x7E1000))
	assert.False(t, IsRAM(0x808000))
}

func TestLoadROMMissingFile(t *testing.T) {
	_, err := LoadROM("/nonexistent/path/to/rom.sfc")
	require.Error(t, err)
	kind, ok := AsKind(err)
	require.True(t, ok)
	assert.Equal(t, ErrIO, kind)
}

func TestROMTypeString(t *testing.T) {
	assert.Equal(t, "LoROM", LoROM.String())
	assert.Equal(t, "HiROM", HiROM.String())
	assert.Equal(t, "Unknown", ROMUnknown.String())
}
