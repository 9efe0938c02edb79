package adl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImmKeyNaming(t *testing.T) {
	tests := []struct {
		key       ImmKey
		name      string
		predicate string
	}{
		{
			key:       ImmKey{Signed: true, Size: 12},
			name:      "simm12",
			predicate: "isInt<12>(Imm)",
		},
		{
			key:       ImmKey{Size: 20},
			name:      "uimm20",
			predicate: "isUInt<20>(Imm)",
		},
		{
			key:       ImmKey{Size: 5, Shift: 2, Excluded: "0"},
			name:      "uimm7_lsb00NonZero",
			predicate: "isShiftedUInt<5, 2>(Imm) && Imm != 0",
		},
		{
			key:       ImmKey{Signed: true, Size: 20, Shift: 1},
			name:      "simm21_lsb0",
			predicate: "isShiftedInt<20, 1>(Imm)",
		},
		{
			key:       ImmKey{Signed: true, Size: 6, Excluded: "-1,0"},
			name:      "simm6NonMinusOneNonZero",
			predicate: "isInt<6>(Imm) && Imm != -1 && Imm != 0",
		},
		{
			key:       ImmKey{Signed: true, Size: 6, SignExtension: 20},
			name:      "simm6_sext20",
			predicate: "((Imm >= 0 && Imm <= 31) || (Imm >= 1048544 && Imm <= 1048575))",
		},
		{
			key:       ImmKey{Signed: true, Size: 6, Shift: 4, SignExtension: 10},
			name:      "simm10_lsb0000_sext10",
			predicate: "((Imm >= 0 && Imm <= 496) || (Imm >= 15872 && Imm <= 16368)) && (Imm % 16) == 0",
		},
		{
			key:       ImmKey{Size: 9, Shift: 4, OneExtended: true},
			name:      "uimm14_lsb0000_neg",
			predicate: "Imm < 0 && isShiftedInt<10, 4>(Imm)",
		},
		{
			// A sign extension no wider than the field says nothing.
			key:       ImmKey{Signed: true, Size: 12, SignExtension: 12},
			name:      "simm12",
			predicate: "isInt<12>(Imm)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.key.Name())
			assert.Equal(t, tt.predicate, tt.key.Predicate())
		})
	}
}

func TestImmKeyLegal(t *testing.T) {
	simm12 := ImmKey{Signed: true, Size: 12}
	assert.True(t, simm12.Legal(2047))
	assert.True(t, simm12.Legal(-2048))
	assert.False(t, simm12.Legal(2048))
	assert.False(t, simm12.Legal(-2049))

	nz := ImmKey{Size: 5, Shift: 2, Excluded: "0"}
	assert.False(t, nz.Legal(0))
	assert.True(t, nz.Legal(4))
	assert.False(t, nz.Legal(6))
	assert.True(t, nz.Legal(124))
	assert.False(t, nz.Legal(128))
	assert.False(t, nz.Legal(-4))

	sext := ImmKey{Signed: true, Size: 6, SignExtension: 20}
	assert.True(t, sext.Legal(31))
	assert.False(t, sext.Legal(32))
	assert.True(t, sext.Legal(1048544))
	assert.False(t, sext.Legal(-1))

	neg := ImmKey{Size: 9, Shift: 4, OneExtended: true}
	assert.True(t, neg.Legal(-16))
	assert.True(t, neg.Legal(-8192))
	assert.False(t, neg.Legal(-8208))
	assert.False(t, neg.Legal(16))
	assert.False(t, neg.Legal(-8))
}

func TestClassifyImmediatesFixture(t *testing.T) {
	core := loadFixtureCore(t, "testdata/rv32.xml")
	fields, err := BuildFields(core)
	require.NoError(t, err)
	cfg, err := LoadConfig("testdata/config.yaml")
	require.NoError(t, err)

	table := ClassifyImmediates(fields, cfg)
	// Encoding-only fields such as opcode are immediates too.
	assert.Len(t, table.Classes, 8)
	op, ok := table.ClassOf("opcode")
	require.True(t, ok)
	assert.Equal(t, "uimm7", op.Name)
	assert.Equal(t, []string{"funct7", "opcode"}, op.Fields)

	// Fields with equal keys share one class.
	simm12, ok := table.ClassOf("imm12")
	require.True(t, ok)
	assert.Equal(t, "simm12", simm12.Name)
	assert.Equal(t, []string{"imm12", "simm12s"}, simm12.Fields)
	assert.Equal(t, "isInt<12>(Imm)", simm12.Predicate)
	assert.Equal(t, 12, simm12.DecodeWidth)
	assert.True(t, simm12.Signed)
	assert.Equal(t, "decodeSImmOperand<12>", simm12.DecoderMethod)
	assert.Equal(t, "getImmOpValue", simm12.EncoderMethod)

	c, ok := table.ClassOf("cuimm7")
	require.True(t, ok)
	assert.Equal(t, "uimm7_lsb00NonZero", c.Name)
	assert.Equal(t, "isShiftedUInt<5, 2>(Imm) && Imm != 0", c.Predicate)
	assert.Equal(t, "decodeUImmNonZeroOperand<7>", c.DecoderMethod)
	assert.False(t, c.Legal(0))

	j, ok := table.ClassOf("jimm20")
	require.True(t, ok)
	assert.Equal(t, "simm21_lsb0", j.Name)
	assert.Equal(t, "decodeSImmOperandAndLsl1<21>", j.DecoderMethod)

	nz, ok := table.ClassOf("nzimm6")
	require.True(t, ok)
	assert.Equal(t, "simm6NonZero", nz.Name)
}

func TestClassifyIsDeterministic(t *testing.T) {
	core := loadFixtureCore(t, "testdata/rv32.xml")
	fields, err := BuildFields(core)
	require.NoError(t, err)

	first := ClassifyImmediates(fields, DefaultConfig())
	for i := 0; i < 10; i++ {
		again := ClassifyImmediates(fields, DefaultConfig())
		assert.Equal(t, first, again)
	}
	for name, f := range fields.Imms {
		assert.Equal(t, first.ByField[name], Classify(f))
	}
}

func TestNumeralIdent(t *testing.T) {
	tests := map[int64]string{
		0:     "Zero",
		1:     "One",
		-1:    "MinusOne",
		13:    "Thirteen",
		21:    "TwentyOne",
		40:    "Forty",
		100:   "OneHundred",
		115:   "OneHundredFifteen",
		1000:  "OneThousand",
		-2048: "MinusTwoThousandFortyEight",
	}
	for v, want := range tests {
		assert.Equal(t, want, numeralIdent(v), "%d", v)
	}
}
