package snesanalyze

import "os"

// ROMType classifies the memory-mapping scheme of a cartridge image.
type ROMType int

const (
	ROMUnknown ROMType = iota
	LoROM
	HiROM
	ExLoROM
	ExHiROM
)

func (t ROMType) String() string {
	switch t {
	case LoROM:
		return "LoROM"
	case HiROM:
		return "HiROM"
	case ExLoROM:
		return "ExLoROM"
	case ExHiROM:
		return "ExHiROM"
	default:
		return "Unknown"
	}
}

// Header field offsets, fixed by the SNES cartridge header layout.
const (
	headerTitleLen = 21
	headerTitle    = 0xFFC0
	headerMarkup   = 0xFFD5
	headerType     = 0xFFD6
	headerSize     = 0xFFD7
	headerNMI      = 0xFFEA
	headerReset    = 0xFFFC
)

// ROM is a read-only view of a cartridge image.
type ROM struct {
	Path    string
	data    []byte
	RomType ROMType
}

// LoadROM reads path fully into memory and auto-detects its memory-mapping
// scheme from the header.
func LoadROM(path string) (*ROM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapError(ErrIO, err)
	}
	rom := &ROM{Path: path, data: data}
	rom.RomType = rom.discoverType()
	rom.RomType = rom.discoverSubtype()
	return rom, nil
}

// ReadByte reads a single byte at the given SNES address.
func (r *ROM) ReadByte(address int) byte {
	return r.data[r.Translate(address)]
}

// ReadWord reads a little-endian 16-bit value at the given SNES address.
func (r *ROM) ReadWord(address int) int {
	lo := int(r.ReadByte(address))
	hi := int(r.ReadByte(address + 1))
	return (hi << 8) | lo
}

// ReadAddress reads a little-endian 24-bit value at the given SNES address.
func (r *ROM) ReadAddress(address int) int {
	lo := r.ReadWord(address)
	hi := int(r.ReadByte(address + 2))
	return (hi << 16) | lo
}

// Size returns the ROM size as indicated by the header.
func (r *ROM) Size() int {
	return 0x400 << r.ReadByte(headerSize)
}

// ActualSize returns the size of the underlying file.
func (r *ROM) ActualSize() int {
	return len(r.data)
}

// Title returns the NUL-terminated 21-byte cartridge title.
func (r *ROM) Title() string {
	var b []byte
	for i := 0; i < headerTitleLen; i++ {
		c := r.ReadByte(headerTitle + i)
		if c == 0x00 {
			break
		}
		b = append(b, c)
	}
	return string(b)
}

// ResetVector returns the ROM's entry point.
func (r *ROM) ResetVector() int {
	return r.ReadWord(headerReset)
}

// NMIVector returns the VBLANK handler entry point.
func (r *ROM) NMIVector() int {
	return r.ReadWord(headerNMI)
}

// IsRAM reports whether address falls in a RAM range that must not be
// traced into.
func IsRAM(address int) bool {
	return address <= 0x001FFF || (address >= 0x7E0000 && address <= 0x7FFFFF)
}

// Translate converts a SNES address into a file offset, per the ROM's
// detected memory-mapping scheme.
func (r *ROM) Translate(address int) int {
	switch r.RomType {
	case LoROM:
		return ((address & 0x7F0000) >> 1) | (address & 0x7FFF)
	case HiROM:
		return address & 0x3FFFFF
	case ExLoROM:
		if address&0x800000 != 0 {
			return ((address & 0x7F0000) >> 1) | (address & 0x7FFF)
		}
		return ((address & 0x7F0000) >> 1) | ((address & 0x7FFF) + 0x400000)
	case ExHiROM:
		if address&0xC00000 != 0xC00000 {
			return (address & 0x3FFFFF) | 0x400000
		}
		return address & 0x3FFFFF
	default:
		return address & 0x3FFFFF
	}
}

func (r *ROM) discoverType() ROMType {
	if len(r.data) <= 0x8000 {
		return LoROM
	}
	lorom := r.typeScore(LoROM)
	hirom := r.typeScore(HiROM)
	if hirom > lorom {
		return HiROM
	}
	return LoROM
}

func (r *ROM) discoverSubtype() ROMType {
	markup := r.ReadByte(headerMarkup)
	switch r.RomType {
	case LoROM:
		if markup&0b010 != 0 {
			return ExLoROM
		}
	case HiROM:
		if markup&0b100 != 0 {
			return ExHiROM
		}
	}
	return r.RomType
}

// typeScore estimates the likelihood that the ROM is of the given type by
// scoring the title region at that type's candidate offset: printable or
// whitespace bytes score 2, NUL scores 1, anything else disqualifies the
// candidate outright.
func (r *ROM) typeScore(romType ROMType) int {
	var title int
	switch romType {
	case LoROM:
		title = headerTitle - 0x8000
	case HiROM:
		title = headerTitle
	default:
		return 0
	}

	score := 0
	for i := 0; i < headerTitleLen; i++ {
		if title+i < 0 || title+i >= len(r.data) {
			return 0
		}
		c := r.data[title+i]
		switch {
		case c == 0x00:
			score++
		case isASCIIGraphicOrWhitespace(c):
			score += 2
		default:
			return 0
		}
	}
	return score
}

func isASCIIGraphicOrWhitespace(c byte) bool {
	if c >= '!' && c <= '~' {
		return true
	}
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}
