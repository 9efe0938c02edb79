package adl

import (
	"sort"
	"strings"

	"github.com/apparentlymart/adl-meta/log"
)

type OperandKind int

const (
	OperandRegister OperandKind = iota
	OperandImmediate
	OperandLiteral
)

func (k OperandKind) String() string {
	switch k {
	case OperandRegister:
		return "reg"
	case OperandImmediate:
		return "imm"
	default:
		return "literal"
	}
}

func (k OperandKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Operand is one entry of an instruction's input, output or literal list.
type Operand struct {
	Name string
	Kind OperandKind

	// Class is the register class, pair or immediate class name. Literal
	// operands have none.
	Class string

	// Position is the operand's slot in the disassembly syntax, or -1 for
	// an operand that is encoded but not written.
	Position int
	Mem      bool
	Paired   bool
	Bits     []BitRange
	Reloc    string
	Value    int64
}

// OperandModel is the assembled form of one instruction.
type OperandModel struct {
	Name      string
	Mnemonic  string
	AsmString string
	Width     int

	Ins      []Operand
	Outs     []Operand
	Literals []Operand

	// Constraints holds tie constraints such as "$rd = $rd_wb".
	Constraints []string

	// Uses and Defs are registers read or written implicitly.
	Uses []string
	Defs []string

	Effects
	Predicates []string

	Match bits64
	Mask  bits64

	Intrinsic    *Intrinsic
	AliasOf      string
	AliasSources map[string]string
	AliasMiscs   map[string]int64
}

// AssemblyEnv is everything the assembler resolves instruction fields
// against. All of it is built before assembly starts; only the class set
// grows, when a Mem class is first asked for.
type AssemblyEnv struct {
	Registers    map[string]*Register
	Fields       *FieldSet
	Classes      *ClassSet
	Immediates   *ImmTable
	Relocations  map[string]*Relocation
	Instructions map[string]*Instruction
	Config       *Config
	Diag         *Diagnostics
}

const writeBackSuffix = "_wb"

// Assemble resolves an instruction's syntax and fields into its operand
// model.
func Assemble(in *Instruction, env *AssemblyEnv) (*OperandModel, error) {
	a := &assembler{in: in, env: env}
	if err := a.run(); err != nil {
		return nil, err
	}
	return a.m, nil
}

type assembler struct {
	in  *Instruction
	env *AssemblyEnv
	m   *OperandModel

	inputs, outputs []string // raw expressions after alias renaming
	reads, writes   map[string]bool
	paired          map[string]bool
	placed          map[string]bool
}

func (a *assembler) fail(ref, msg string) error {
	return &ResolutionError{Instruction: a.in.Name, Ref: ref, Msg: msg}
}

func (a *assembler) run() error {
	in := a.in
	a.m = &OperandModel{
		Name:      in.Name,
		Mnemonic:  in.Mnemonic,
		AsmString: in.Syntax,
		Width:     in.Width,
		Intrinsic: in.Intrinsic,
	}
	if in.DSyntax != "" {
		a.m.AsmString = in.DSyntax
	}
	a.inputs, a.outputs = in.Inputs, in.Outputs
	attrs := in.Attributes

	if in.Alias != nil {
		target, err := a.resolveAlias()
		if err != nil {
			return err
		}
		if len(attrs) == 0 {
			attrs = target.Attributes
		}
	}

	a.m.Effects = classifyEffects(attrs, a.env.Config)
	if err := a.collectExprs(); err != nil {
		return err
	}
	if err := a.checkFieldValues(); err != nil {
		return err
	}
	if err := a.placeSyntaxOperands(); err != nil {
		return err
	}
	if err := a.placeHiddenOperands(); err != nil {
		return err
	}
	if err := a.checkUnplaced(); err != nil {
		return err
	}
	a.tieReadModifyWrite()
	a.m.Predicates = predicatesFor(attrs, a.env.Config)
	return nil
}

// resolveAlias checks the alias target and its field bindings, and takes
// over the target's operand expressions when the alias has none of its
// own, renamed through the source bindings.
func (a *assembler) resolveAlias() (*Instruction, error) {
	al := a.in.Alias
	target, ok := a.env.Instructions[al.Target]
	if !ok {
		return nil, a.fail(al.Target, "alias target not found")
	}
	a.m.AliasOf = target.Name
	a.m.AliasSources = make(map[string]string)
	a.m.AliasMiscs = make(map[string]int64)

	rename := make(map[string]string)
	for _, s := range al.Sources {
		if _, ok := a.env.Fields.Lookup(s.Field); !ok {
			return nil, a.fail(s.Field, "alias source names unknown field")
		}
		if _, ok := a.env.Fields.Lookup(s.Value); !ok {
			return nil, a.fail(s.Value, "alias source value is not a field")
		}
		a.m.AliasSources[s.Field] = s.Value
		rename[s.Field] = s.Value
	}
	for _, m := range al.Miscs {
		f, ok := a.env.Fields.Lookup(m.Field)
		if !ok {
			return nil, a.fail(m.Field, "alias misc names unknown field")
		}
		v, err := parseInt(m.Value)
		if err != nil {
			return nil, a.fail(m.Field, "alias misc value is not a number")
		}
		a.m.AliasMiscs[m.Field] = v
		a.addEncodingLiteral(m.Field, f, v)
	}

	for _, name := range target.FieldOrder {
		fv := target.Fields[name]
		if fv.Kind != ValueLiteral {
			continue
		}
		f, _ := a.env.Fields.Lookup(name)
		a.addEncodingLiteral(name, f, fv.Literal)
	}

	if len(a.inputs) == 0 && len(a.outputs) == 0 {
		a.inputs = renameExprs(target.Inputs, rename)
		a.outputs = renameExprs(target.Outputs, rename)
	}
	return target, nil
}

func renameExprs(exprs []string, rename map[string]string) []string {
	ret := make([]string, 0, len(exprs))
	for _, raw := range exprs {
		e := ParseRegExpr(raw)
		to, ok := rename[e.Field]
		if e.Field == "" || !ok {
			ret = append(ret, raw)
			continue
		}
		s := e.File + "(" + to
		if e.Adjacent {
			s += "+1"
		}
		ret = append(ret, s+")")
	}
	return ret
}

// collectExprs reads the input and output expressions into the field
// direction sets and the implicit use/def lists.
func (a *assembler) collectExprs() error {
	a.reads = make(map[string]bool)
	a.writes = make(map[string]bool)
	a.paired = make(map[string]bool)
	for _, f := range pairedFields(&Instruction{Inputs: a.inputs, Outputs: a.outputs}) {
		a.paired[f] = true
	}

	for i, list := range [][]string{a.inputs, a.outputs} {
		output := i == 1
		for _, raw := range list {
			e := ParseRegExpr(raw)
			switch {
			case e.Bare == "Mem":
				if output {
					a.m.MayStore = true
				} else {
					a.m.MayLoad = true
				}
			case e.Bare != "":
				if output {
					a.m.Defs = appendUnique(a.m.Defs, e.Bare)
				} else {
					a.m.Uses = appendUnique(a.m.Uses, e.Bare)
				}
			case e.Adjacent:
				// The second register of a pair is implied by the first.
			default:
				if _, ok := a.env.Fields.Lookup(e.Field); !ok {
					return a.fail(e.Field, "operand expression names unknown field")
				}
				if output {
					a.writes[e.Field] = true
				} else {
					a.reads[e.Field] = true
				}
			}
		}
	}
	return nil
}

// checkFieldValues places the encoding literals and makes sure every
// sentinel agrees with the kind of field it fills.
func (a *assembler) checkFieldValues() error {
	for _, name := range a.in.FieldOrder {
		fv := a.in.Fields[name]
		f, ok := a.env.Fields.Lookup(name)
		if !ok {
			return a.fail(name, "unknown instruction field")
		}
		switch fv.Kind {
		case ValueLiteral:
			a.addEncodingLiteral(name, f, fv.Literal)
		case ValueReg:
			if _, ok := f.(*RegField); !ok {
				return a.fail(name, "register value for an immediate field")
			}
		case ValueImm:
			if _, ok := f.(*ImmField); !ok {
				return a.fail(name, "immediate value for a register field")
			}
		}
	}
	return nil
}

func (a *assembler) addEncodingLiteral(name string, f Field, v int64) {
	val, mask := encodeValue(f.Ranges(), uint64(v))
	a.m.Match = (a.m.Match &^ mask) | val
	a.m.Mask |= mask
	for i := range a.m.Literals {
		if a.m.Literals[i].Name == name {
			a.m.Literals[i].Value = v
			return
		}
	}
	a.m.Literals = append(a.m.Literals, Operand{
		Name:     name,
		Kind:     OperandLiteral,
		Position: -1,
		Bits:     f.Ranges(),
		Value:    v,
	})
}

func (a *assembler) placeSyntaxOperands() error {
	a.placed = make(map[string]bool)
	for _, tok := range a.in.Operands() {
		if a.placed[tok.Text] {
			continue
		}
		f, ok := a.env.Fields.Lookup(tok.Text)
		if !ok {
			if err := a.placeSyntaxLiteral(tok); err != nil {
				return err
			}
			continue
		}
		if fv, ok := a.in.Fields[tok.Text]; ok && fv.Kind == ValueLiteral {
			// Fixed by the encoding; already recorded as a literal.
			continue
		}
		if err := a.placeField(f, tok.Position, tok.Mem); err != nil {
			return err
		}
		a.placed[tok.Text] = true
	}
	return nil
}

// placeSyntaxLiteral accepts numbers and register spellings written
// directly into the syntax. Anything else names a field that does not
// exist.
func (a *assembler) placeSyntaxLiteral(tok SyntaxToken) error {
	if v, err := parseInt(tok.Text); err == nil {
		a.m.Literals = append(a.m.Literals, Operand{
			Name:     tok.Text,
			Kind:     OperandLiteral,
			Position: tok.Position,
			Value:    v,
		})
		return nil
	}
	if !a.isRegisterSpelling(tok.Text) {
		return a.fail(tok.Text, "syntax operand is neither a field nor a literal")
	}
	a.m.Literals = append(a.m.Literals, Operand{
		Name:     tok.Text,
		Kind:     OperandLiteral,
		Position: tok.Position,
		Mem:      tok.Mem,
	})
	return nil
}

func (a *assembler) isRegisterSpelling(s string) bool {
	for _, r := range a.env.Registers {
		if r.IndexOf(s) >= 0 {
			return true
		}
	}
	for _, alts := range a.env.Classes.Aliases {
		if containsString(alts, s) {
			return true
		}
	}
	return false
}

// placeHiddenOperands adds operands the encoding fills but the syntax does
// not show, in field declaration order.
func (a *assembler) placeHiddenOperands() error {
	for _, name := range a.in.FieldOrder {
		if a.placed[name] || a.in.Fields[name].Kind == ValueLiteral {
			continue
		}
		f, _ := a.env.Fields.Lookup(name)
		if err := a.placeField(f, -1, false); err != nil {
			return err
		}
		a.placed[name] = true
	}
	return nil
}

// checkUnplaced rejects operand expressions naming a field that is
// neither encoded by the instruction nor shown in its syntax.
func (a *assembler) checkUnplaced() error {
	var names []string
	for _, set := range []map[string]bool{a.reads, a.writes} {
		for name := range set {
			if !a.placed[name] && !a.isLiteral(name) {
				names = appendUnique(names, name)
			}
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return a.fail(names[0], "operand expression names a field the instruction does not encode")
}

func (a *assembler) isLiteral(name string) bool {
	for _, op := range a.m.Literals {
		if op.Name == name {
			return true
		}
	}
	return false
}

func (a *assembler) placeField(f Field, pos int, mem bool) error {
	switch f := f.(type) {
	case *RegField:
		return a.placeRegister(f, pos, mem)
	case *ImmField:
		return a.placeImmediate(f, pos, mem)
	}
	return a.fail(f.FieldName(), "unsupported field kind")
}

func (a *assembler) placeRegister(f *RegField, pos int, mem bool) error {
	cls, ok := a.env.Classes.ClassOf(f.Name)
	if !ok {
		return a.fail(f.Name, "register field has no register class")
	}
	op := Operand{
		Name:     f.Name,
		Kind:     OperandRegister,
		Class:    cls.Name,
		Position: pos,
		Bits:     f.Bits,
	}
	op.Mem = mem && a.m.Effects.memory()
	switch {
	case a.paired[f.Name]:
		// Aliases can inherit pairing from their target, so the pair class
		// may not exist yet.
		op.Class = a.env.Classes.pair(cls).Name
		op.Paired = true
	case op.Mem:
		op.Class = a.env.Classes.Mem(cls.Name).Name
	}

	if a.writes[f.Name] {
		a.m.Outs = append(a.m.Outs, op)
	}
	if a.reads[f.Name] || !a.writes[f.Name] {
		a.m.Ins = append(a.m.Ins, op)
	}
	return nil
}

func (a *assembler) placeImmediate(f *ImmField, pos int, mem bool) error {
	cls, ok := a.env.Immediates.ClassOf(f.Name)
	if !ok {
		return a.fail(f.Name, "immediate field has no class")
	}
	op := Operand{
		Name:     f.Name,
		Kind:     OperandImmediate,
		Class:    cls.Name,
		Position: pos,
		Mem:      mem,
		Bits:     f.Bits,
		Reloc:    f.Reloc,
	}
	if f.Reloc != "" {
		if _, ok := a.env.Relocations[f.Reloc]; !ok {
			a.env.Diag.warnf(UnknownReloc, a.in.Name, "field %s names unknown relocation %s", f.Name, f.Reloc)
		}
	}
	a.m.Ins = append(a.m.Ins, op)
	return nil
}

// tieReadModifyWrite rewrites every register that is both read and written
// into a tied write-back output, so the output list never repeats an
// input name.
func (a *assembler) tieReadModifyWrite() {
	inNames := make(map[string]bool)
	for _, op := range a.m.Ins {
		inNames[op.Name] = true
	}
	for i := range a.m.Outs {
		op := &a.m.Outs[i]
		if op.Kind != OperandRegister || !inNames[op.Name] {
			continue
		}
		base := op.Name
		op.Name = base + writeBackSuffix
		a.m.Constraints = append(a.m.Constraints, "$"+base+" = $"+op.Name)
		log.Trace(log.AssemblyModule, "tied read-modify-write operand", "instr", a.in.Name, "field", base)
	}
}

func predicatesFor(attrs AttrSet, cfg *Config) []string {
	var ret []string
	for _, name := range attrs.Sorted() {
		if p, ok := cfg.Predicates[name]; ok {
			ret = appendUnique(ret, p)
		}
	}
	return ret
}

func appendUnique(list []string, s string) []string {
	if containsString(list, s) {
		return list
	}
	return append(list, s)
}

// SortedOperandModels returns models ordered by instruction name.
func SortedOperandModels(models map[string]*OperandModel) []*OperandModel {
	ret := make([]*OperandModel, 0, len(models))
	for _, m := range models {
		ret = append(ret, m)
	}
	sort.Slice(ret, func(i, j int) bool {
		return strings.Compare(ret[i].Name, ret[j].Name) < 0
	})
	return ret
}
