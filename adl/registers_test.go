package adl

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRegistersFixture(t *testing.T) {
	core := loadFixtureCore(t, "testdata/rv32.xml")
	regs, err := BuildRegisters(core, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, regs, 3)

	gpr := regs["GPR"]
	require.NotNil(t, gpr)
	assert.Equal(t, KindGPR, gpr.Kind)
	assert.True(t, gpr.File)
	assert.Equal(t, 32, gpr.Width)
	assert.Equal(t, 32, gpr.Size)
	assert.Equal(t, "x", gpr.Prefix)
	assert.Equal(t, 0, gpr.DebugIndex)
	assert.Equal(t, 4, gpr.Alignment)
	assert.Equal(t, "General purpose registers", gpr.Doc)

	// Entries, syntax and names stay parallel.
	assert.Len(t, gpr.Entries, gpr.Size)
	assert.Len(t, gpr.Syntax, gpr.Size)
	assert.Len(t, gpr.Names, gpr.Size)
	assert.Equal(t, "x0", gpr.Names[0])
	assert.Equal(t, "zero", gpr.Syntax[0])
	assert.Equal(t, "x31", gpr.Names[31])
	assert.Equal(t, "t6", gpr.Syntax[31])

	assert.Equal(t, 10, gpr.IndexOf("a0"))
	assert.Equal(t, 10, gpr.IndexOf("x10"))
	assert.Equal(t, 10, gpr.IndexOf("10"))
	assert.Equal(t, -1, gpr.IndexOf("q7"))

	pc := regs["PC"]
	require.NotNil(t, pc)
	assert.False(t, pc.File)
	assert.Equal(t, KindGeneric, pc.Kind)
	assert.Equal(t, 1, pc.Size)
	assert.Equal(t, []int{0}, pc.Entries)
	assert.Equal(t, -1, pc.DebugIndex)
	assert.True(t, pc.Attributes.Has("cia"))

	csr := regs["CSR"]
	require.NotNil(t, csr)
	assert.Equal(t, KindCSR, csr.Kind)
	assert.Equal(t, "mstatus", csr.Names[0x300])
	assert.Equal(t, "CSR1", csr.Names[1])
}

func TestCallingConventionUnion(t *testing.T) {
	core := loadFixtureCore(t, "testdata/rv32.xml")
	regs, err := BuildRegisters(core, DefaultConfig())
	require.NoError(t, err)

	var args []string
	for i := 10; i <= 17; i++ {
		args = append(args, fmt.Sprintf("x%d", i))
	}
	// File-level x10, x11 come first; the per-entry options append the
	// rest without repeating them.
	assert.Equal(t, args, regs["GPR"].CallingConvention["arg"])
	assert.Equal(t, []string{"x10", "x11"}, regs["GPR"].CallingConvention["ret"])
}

func TestBuildRegistersParallelLists(t *testing.T) {
	core := parseCore(t, `
<regfiles>
  <regfile name="VR">
    <doc>vectors</doc><width><int>128</int></width><size><int>4</int></size>
    <entries><entry name="2"><syntax><str>vtwo</str></syntax></entry></entries>
  </regfile>
</regfiles>`)
	regs, err := BuildRegisters(core, DefaultConfig())
	require.NoError(t, err)

	vr := regs["VR"]
	assert.Equal(t, []int{0, 1, 2, 3}, vr.Entries)
	assert.Equal(t, []string{"VR0", "VR1", "vtwo", "VR3"}, vr.Names)
	assert.Equal(t, []string{"VR0", "VR1", "vtwo", "VR3"}, vr.Syntax)
	assert.Equal(t, KindGeneric, vr.Kind)
}

func TestBuildRegistersStructuralErrors(t *testing.T) {
	tests := map[string]string{
		"missing width": `<regfiles><regfile name="A"><doc>d</doc><size><int>2</int></size></regfile></regfiles>`,
		"missing size":  `<regfiles><regfile name="A"><doc>d</doc><width><int>8</int></width></regfile></regfiles>`,
		"missing doc":   `<regs><register name="R"><width><int>8</int></width></register></regs>`,
		"entry range": `<regfiles><regfile name="A"><doc>d</doc><width><int>8</int></width><size><int>2</int></size>
			<entries><entry name="2"/></entries></regfile></regfiles>`,
		"duplicate": `<regs>
			<register name="R"><doc>d</doc><width><int>8</int></width></register>
			<register name="R"><doc>d</doc><width><int>8</int></width></register></regs>`,
		"bad convention": `<regfiles><regfile name="A"><doc>d</doc><width><int>8</int></width><size><int>2</int></size>
			<calling_convention><option name="arg"><str>A7</str></option></calling_convention></regfile></regfiles>`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := BuildRegisters(parseCore(t, body), DefaultConfig())
			require.Error(t, err)
			var serr *StructuralError
			assert.True(t, errors.As(err, &serr), "got %T: %s", err, err)
		})
	}
}

func TestClassifyRegisterFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GPRFiles = append(cfg.GPRFiles, "R")
	core := parseCore(t, `<regfiles><regfile name="R"><doc>d</doc><width><int>64</int></width><size><int>8</int></size></regfile></regfiles>`)
	regs, err := BuildRegisters(core, cfg)
	require.NoError(t, err)
	assert.Equal(t, KindGPR, regs["R"].Kind)
}
