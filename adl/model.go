package adl

import (
	"fmt"
	"sort"

	"github.com/apparentlymart/adl-meta/log"
)

type Options struct {
	// Strict turns any dropped instruction into a failure of the whole
	// core. Warnings never fail a build.
	Strict bool
}

// AsmConfig is the tooling information a core carries alongside its model.
type AsmConfig struct {
	Arch       Arch
	Attributes []string
	Comments   []string
}

// Model is everything derived from one core of a document. Models share
// nothing, so several cores may be built independently.
type Model struct {
	Name      string
	AsmConfig AsmConfig

	Registers   map[string]*Register
	Fields      *FieldSet
	Relocations map[string]*Relocation

	Immediates *ImmTable
	Classes    *ClassSet

	Instructions map[string]*OperandModel
	Diagnostics  Diagnostics
}

// Build runs the whole pipeline over one core node.
func Build(core *Node, cfg *Config, opts Options) (*Model, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	name := core.Name()
	if name == "" {
		name = "core"
	}
	m := &Model{
		Name:         name,
		AsmConfig:    buildAsmConfig(core.Child("asm_config")),
		Instructions: make(map[string]*OperandModel),
	}
	diag := &m.Diagnostics
	log.Debug(log.ModelModule, "building model", "core", name, "arch", m.AsmConfig.Arch)

	var err error
	m.Registers, err = BuildRegisters(core, cfg)
	if err != nil {
		return nil, err
	}
	m.Fields, err = BuildFields(core)
	if err != nil {
		return nil, err
	}
	diag.Warnings = append(diag.Warnings, m.Fields.Validate()...)
	m.Relocations, err = BuildRelocations(core)
	if err != nil {
		return nil, err
	}

	instrs := BuildInstructions(core, m.Fields, cfg, diag)
	repairRegisterWidths(m.Registers, m.Fields, diag)

	m.Immediates = ClassifyImmediates(m.Fields, cfg)
	m.Classes = DeriveClasses(m.Registers, m.Fields, instrs, cfg, diag)

	env := &AssemblyEnv{
		Registers:    m.Registers,
		Fields:       m.Fields,
		Classes:      m.Classes,
		Immediates:   m.Immediates,
		Relocations:  m.Relocations,
		Instructions: make(map[string]*Instruction, len(instrs)),
		Config:       cfg,
		Diag:         diag,
	}
	for _, in := range instrs {
		env.Instructions[in.Name] = in
	}
	for _, in := range instrs {
		om, err := Assemble(in, env)
		if err != nil {
			rerr, ok := err.(*ResolutionError)
			if !ok {
				return nil, err
			}
			log.Debug(log.AssemblyModule, "dropping instruction", "instr", in.Name, "err", rerr.Msg)
			diag.addError(rerr)
			continue
		}
		m.Instructions[in.Name] = om
	}

	for _, w := range diag.Warnings {
		log.Debug(log.ModelModule, "warning", "core", name, "kind", string(w.Kind), "subject", w.Subject, "msg", w.Msg)
	}
	log.Info(log.ModelModule, "built model",
		"core", name,
		"registers", len(m.Registers),
		"fields", len(m.Fields.All),
		"instructions", len(m.Instructions),
		"dropped", len(diag.Errors),
		"warnings", len(diag.Warnings),
	)

	if opts.Strict && len(diag.Errors) > 0 {
		return m, &AggregateError{Core: name, Errors: diag.Errors}
	}
	return m, nil
}

// BuildDocument builds every core of a document. The first fatal error
// stops the run.
func BuildDocument(root *Node, cfg *Config, opts Options) ([]*Model, error) {
	cores := Cores(root)
	if len(cores) == 0 {
		return nil, structuralf("document", root.Tag, "no cores")
	}
	ret := make([]*Model, 0, len(cores))
	for _, core := range cores {
		m, err := Build(core, cfg, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to build core %q: %w", core.Name(), err)
		}
		ret = append(ret, m)
	}
	return ret, nil
}

// repairRegisterWidths widens each register file to the largest register
// width any of its fields demands. It runs once, after fields are known
// and before anything reads register widths.
func repairRegisterWidths(regs map[string]*Register, fields *FieldSet, diag *Diagnostics) {
	names := make([]string, 0, len(fields.Refs))
	for name := range fields.Refs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := fields.Refs[name]
		r, ok := regs[f.Ref]
		if !ok || f.RegWidth <= r.Width {
			continue
		}
		diag.warnf(AmbiguityWarning, r.Name, "field %s needs %d-bit registers, widening from %d", f.Name, f.RegWidth, r.Width)
		r.Width = f.RegWidth
	}
}

func buildAsmConfig(n *Node) AsmConfig {
	arch, _ := n.ChildValue("arch")
	return AsmConfig{
		Arch:       ParseArch(arch),
		Attributes: n.Child("attributes").Values(),
		Comments:   n.Child("comments").Values(),
	}
}

// SortedRegisters returns the register files and bare registers ordered
// by name.
func (m *Model) SortedRegisters() []*Register {
	ret := make([]*Register, 0, len(m.Registers))
	for _, r := range m.Registers {
		ret = append(ret, r)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

func (m *Model) SortedInstructions() []*OperandModel {
	return SortedOperandModels(m.Instructions)
}

// SortedImmediates returns the immediate classes ordered by name.
func (m *Model) SortedImmediates() []*ImmediateClass {
	ret := make([]*ImmediateClass, 0, len(m.Immediates.Classes))
	for _, c := range m.Immediates.Classes {
		ret = append(ret, c)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

func (m *Model) SortedRelocations() []*Relocation {
	ret := make([]*Relocation, 0, len(m.Relocations))
	for _, r := range m.Relocations {
		ret = append(ret, r)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}
