package adl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
class_aliases:
  XPR: GPR
side_effect_attributes: [csr_access]
`))
	require.NoError(t, err)
	assert.Equal(t, "GPR", cfg.classAlias("XPR"))
	assert.Equal(t, "FPR", cfg.classAlias("FPR"))
	assert.Equal(t, []string{"GPR", "XPR"}, cfg.GPRFiles)
	assert.Equal(t, []string{"CSR"}, cfg.CSRFiles)

	effects := classifyEffects(AttrSet{"csr_access": {}}, cfg)
	assert.Equal(t, Effects{HasSideEffects: true}, effects)
}

func TestLoadConfigFixture(t *testing.T) {
	cfg, err := LoadConfig("testdata/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"fp"}, cfg.RegisterAliases["x8"])
	assert.Equal(t, "HasStdExtC", cfg.Predicates["rv32c"])
	assert.True(t, cfg.ignoresInstruction("anything", AttrSet{"deprecated": {}}))
	assert.False(t, cfg.ignoresInstruction("add", AttrSet{"rv32i": {}}))
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig("testdata/missing.yaml")
	assert.Error(t, err)

	_, err = ParseConfig([]byte("predicates: [not, a, map]"))
	assert.Error(t, err)
}

func TestClassifyEffectsVocabulary(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, Effects{MayLoad: true}, classifyEffects(AttrSet{"load": {}}, cfg))
	assert.Equal(t, Effects{IsBranch: true}, classifyEffects(AttrSet{"branch": {}}, cfg))
	assert.Equal(t, Effects{MayLoad: true, MayStore: true}, classifyEffects(AttrSet{"load": {}, "store": {}}, cfg))
	assert.Equal(t, Effects{HasSideEffects: true}, classifyEffects(AttrSet{"trap": {}}, cfg))
	assert.Equal(t, Effects{}, classifyEffects(AttrSet{"rv32i": {}}, cfg))
}

func TestParseArch(t *testing.T) {
	a := ParseArch("rv64gc")
	assert.Equal(t, XLen64, a.XLen)
	assert.Equal(t, []Extension{'I', 'M', 'A', 'F', 'D', 'C'}, a.Extensions)
	assert.Equal(t, "RV64IMAFDC", a.String())

	a = ParseArch("rv32imac_zicsr")
	assert.Equal(t, XLen32, a.XLen)
	assert.True(t, a.Has('A'))
	assert.False(t, a.Has('Z'))
	assert.Equal(t, "rv32imac_zicsr", a.Raw)

	a = ParseArch("x86")
	assert.Equal(t, XLenInvalid, a.XLen)
	assert.Equal(t, "x86", a.String())
}

func TestRelocationsStructuralErrors(t *testing.T) {
	_, err := BuildRelocations(parseCore(t, `<relocations><reloc name="R"><width><int>4</int></width></reloc></relocations>`))
	var serr *StructuralError
	assert.True(t, errors.As(err, &serr))

	_, err = BuildRelocations(parseCore(t, `<relocations>
		<reloc name="R"><value><int>1</int></value></reloc>
		<reloc name="R"><value><int>2</int></value></reloc></relocations>`))
	assert.True(t, errors.As(err, &serr))

	relocs, err := BuildRelocations(parseCore(t, ``))
	require.NoError(t, err)
	assert.Empty(t, relocs)
}

func TestErrorMessages(t *testing.T) {
	rerr := &ResolutionError{Instruction: "add", Ref: "rq", Msg: "unknown instruction field"}
	assert.Equal(t, `instruction "add": unknown instruction field (rq)`, rerr.Error())

	serr := structuralf("regfile", "GPR", "missing <%s>", "size")
	assert.Equal(t, `regfile "GPR": missing <size>`, serr.Error())

	agg := &AggregateError{Core: "c", Errors: []*ResolutionError{rerr}}
	assert.Contains(t, agg.Error(), `core "c": 1 instruction(s) failed to resolve`)
	assert.True(t, errors.Is(agg, rerr))
}
