package adl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFieldsPartition(t *testing.T) {
	core := loadFixtureCore(t, "testdata/rv32.xml")
	fields, err := BuildFields(core)
	require.NoError(t, err)

	// Every field lands in exactly one of the two partitions.
	assert.Equal(t, len(fields.All), len(fields.Refs)+len(fields.Imms))
	for name := range fields.All {
		_, isRef := fields.Refs[name]
		_, isImm := fields.Imms[name]
		assert.True(t, isRef != isImm, name)
	}

	rd := fields.Refs["rd"]
	require.NotNil(t, rd)
	assert.Equal(t, "GPR", rd.Ref)
	assert.Equal(t, []BitRange{{11, 7}}, rd.Bits)
	assert.Equal(t, 32, rd.Entries())

	rdc := fields.Refs["rdc"]
	require.NotNil(t, rdc)
	assert.Equal(t, 8, rdc.Offset)
	assert.Equal(t, 8, rdc.Entries())

	rdnz := fields.Refs["rdnz"]
	require.NotNil(t, rdnz)
	assert.True(t, rdnz.Excludes(0))
	assert.False(t, rdnz.Excludes(1))

	imm := fields.Imms["imm12"]
	require.NotNil(t, imm)
	assert.True(t, imm.Signed)
	assert.Equal(t, 12, imm.Size)
	assert.Equal(t, "R_RISCV_LO12_I", imm.Reloc)

	j := fields.Imms["jimm20"]
	require.NotNil(t, j)
	assert.Equal(t, []BitRange{{31, 31}, {19, 12}, {20, 20}, {30, 21}}, j.Bits)
	assert.Equal(t, 20, j.Size)
	assert.Equal(t, 1, j.Shift)

	assert.Empty(t, fields.Validate())
}

func TestFieldRangeNormalization(t *testing.T) {
	core := parseCore(t, `
<instrfields>
  <instrfield name="split">
    <bits>
      <range><int>12</int><int>10</int></range>
      <range><int>9</int><int>7</int></range>
      <range><int>12</int><int>10</int></range>
      <range><int>2</int><int>4</int></range>
    </bits>
  </instrfield>
</instrfields>`)
	fields, err := BuildFields(core)
	require.NoError(t, err)
	f := fields.Imms["split"]
	require.NotNil(t, f)
	// The repeat is dropped, 12:10 and 9:7 merge, and the reversed pair is
	// put back in high-low order.
	assert.Equal(t, []BitRange{{12, 7}, {4, 2}}, f.Bits)
	assert.Equal(t, 9, f.Width)
}

func TestFieldWidthMismatchIsAccepted(t *testing.T) {
	core := parseCore(t, `
<instrfields>
  <instrfield name="odd"><bits><str>7:0</str></bits><width><int>6</int></width></instrfield>
</instrfields>`)
	fields, err := BuildFields(core)
	require.NoError(t, err)
	assert.Equal(t, 6, fields.Imms["odd"].Width)

	warnings := fields.Validate()
	require.Len(t, warnings, 1)
	assert.Equal(t, WidthMismatch, warnings[0].Kind)
	assert.Equal(t, "odd", warnings[0].Subject)
}

func TestBuildFieldsStructuralErrors(t *testing.T) {
	tests := map[string]string{
		"no bits":   `<instrfields><instrfield name="f"><width><int>3</int></width></instrfield></instrfields>`,
		"bad bits":  `<instrfields><instrfield name="f"><bits><str>7:x</str></bits></instrfield></instrfields>`,
		"duplicate": `<instrfields><instrfield name="f"><bits><str>1</str></bits></instrfield><instrfield name="f"><bits><str>2</str></bits></instrfield></instrfields>`,
		"no name":   `<instrfields><instrfield><bits><str>1</str></bits></instrfield></instrfields>`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := BuildFields(parseCore(t, body))
			var serr *StructuralError
			assert.True(t, errors.As(err, &serr), "got %v", err)
		})
	}
}

func TestImmFieldExtract(t *testing.T) {
	core := loadFixtureCore(t, "testdata/rv32.xml")
	fields, err := BuildFields(core)
	require.NoError(t, err)

	j := fields.Imms["jimm20"]
	assert.EqualValues(t, 2048, j.Extract(1<<20))
	assert.EqualValues(t, 2, j.Extract(1<<21))
	assert.EqualValues(t, -1<<20, j.Extract(1<<31))

	imm := fields.Imms["imm12"]
	assert.EqualValues(t, -1, imm.Extract(0xfff00000))
	assert.EqualValues(t, 2047, imm.Extract(0x7ff00000))

	c := fields.Imms["cuimm7"]
	assert.EqualValues(t, 4, c.Extract(1<<6))
	assert.EqualValues(t, 64, c.Extract(1<<5))
	assert.EqualValues(t, 8, c.Extract(1<<10))
}

func TestEncodeValueRoundTrip(t *testing.T) {
	core := loadFixtureCore(t, "testdata/rv32.xml")
	fields, err := BuildFields(core)
	require.NoError(t, err)

	s := fields.Imms["simm12s"]
	val, mask := encodeValue(s.Bits, uint64(0xfff&-20))
	assert.Equal(t, bits64(0xfe000f80), mask)
	assert.EqualValues(t, -20, s.Extract(uint64(val)))
}

func TestDecodeStepString(t *testing.T) {
	assert.Equal(t, "(inst & 0b00000000000000000000111110000000) >> 7",
		DecodeStep{Mask: rangeMask(11, 7), RightShift: 7}.String())
	assert.Equal(t, "(inst & 0b00000000000000000000000001111100)",
		DecodeStep{Mask: rangeMask(6, 2), RightShift: 0}.String())
	assert.Equal(t, "(inst & 0b00000000000000000000000000100000) << 1",
		DecodeStep{Mask: rangeMask(5, 5), RightShift: -1}.String())
}
