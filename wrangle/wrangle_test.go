package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "../adl/testdata/rv32.xml"

func fixtureFlags() *globalFlags {
	return &globalFlags{configFile: "../adl/testdata/config.yaml"}
}

func TestTreeCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newTreeCmd(fixtureFlags())
	cmd.SetOut(&out)
	cmd.SetArgs([]string{fixture})
	require.NoError(t, cmd.Execute())

	s := out.String()
	assert.Contains(t, s, "rv32 (RV32IMC)")
	assert.Contains(t, s, "GPRNo0 [x1 x2")
	assert.Contains(t, s, "uimm7_lsb00NonZero: isShiftedUInt<5, 2>(Imm) && Imm != 0")
	assert.Contains(t, s, "constraint: $rdnz = $rdnz_wb")
	assert.Contains(t, s, "alias of addi")
	assert.Contains(t, s, "rd: (inst & 0b00000000000000000000111110000000) >> 7")
}

func TestCheckCommandReportsDropped(t *testing.T) {
	var out bytes.Buffer
	cmd := newCheckCmd(fixtureFlags())
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{fixture})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, out.String(), "rv32: 11 instructions, 1 dropped, 0 warnings")
	assert.Contains(t, out.String(), `instruction "bogus"`)
}

func TestSnapshotAndDiffCommands(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	snap := newSnapshotCmd(fixtureFlags())
	snap.SetOut(&out)
	snap.SetArgs([]string{fixture})
	require.NoError(t, snap.Execute())
	a := filepath.Join(dir, "a.json")
	require.NoError(t, os.WriteFile(a, out.Bytes(), 0o644))

	diff := newDiffCmd(fixtureFlags())
	out.Reset()
	diff.SetOut(&out)
	diff.SetArgs([]string{a, a})
	require.NoError(t, diff.Execute())
	assert.Contains(t, out.String(), "snapshots match")

	snap = newSnapshotCmd(fixtureFlags())
	snap.SetArgs([]string{fixture, "--out", dir})
	require.NoError(t, snap.Execute())
	_, err := os.Stat(filepath.Join(dir, "rv32", "instructions.json"))
	assert.NoError(t, err)
}

func TestLoadModelsSelectsCore(t *testing.T) {
	flags := fixtureFlags()
	flags.core = "rv32"
	models, err := loadModels(fixture, flags)
	require.NoError(t, err)
	require.Len(t, models, 1)

	flags.core = "rv64"
	_, err = loadModels(fixture, flags)
	assert.Error(t, err)

	flags.core = ""
	flags.strict = true
	_, err = loadModels(fixture, flags)
	assert.Error(t, err)
}
