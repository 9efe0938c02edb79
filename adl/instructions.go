package adl

import (
	"sort"
	"strings"

	"github.com/apparentlymart/adl-meta/log"
)

type FieldValueKind int

const (
	ValueLiteral FieldValueKind = iota
	ValueReg                    // sentinel "reg": a register operand
	ValueImm                    // sentinel "imm": an immediate operand
)

// FieldValue is what an instruction puts into one of its fields: either a
// fixed encoding literal or a sentinel saying the operand fills it.
type FieldValue struct {
	Kind    FieldValueKind
	Literal int64
}

// SyntaxToken is one operand slot of an assembly syntax string.
type SyntaxToken struct {
	Text     string
	Position int
	Mem      bool // inside the parenthesized address-mode part
}

type IntrinsicArg struct {
	Name string
	Type string
}

type Intrinsic struct {
	Name    string
	Returns string
	Args    []IntrinsicArg
}

// AliasMapping binds a field of the alias target either to one of the
// alias instruction's own operands or to a constant.
type AliasMapping struct {
	Field string
	Value string
}

type InstrAlias struct {
	Target  string
	Sources []AliasMapping
	Miscs   []AliasMapping
}

// Instruction is an instruction as described by the document, before its
// operands are assembled.
type Instruction struct {
	Name       string
	Doc        string
	Width      int
	Mnemonic   string
	Syntax     string
	DSyntax    string
	Attributes AttrSet

	Fields     map[string]FieldValue
	FieldOrder []string

	// Inputs and Outputs are the raw expressions, e.g. "GPR(rs1)",
	// "GPR(rs1+1)" or a bare register name such as "PC".
	Inputs  []string
	Outputs []string

	Intrinsic *Intrinsic
	Alias     *InstrAlias
}

// Operands tokenizes the disassembly syntax when there is one, since that
// is the order operand lists follow.
func (in *Instruction) Operands() []SyntaxToken {
	src := in.DSyntax
	if src == "" {
		src = in.Syntax
	}
	_, toks := ParseSyntax(src)
	return toks
}

// ParseSyntax splits an assembly syntax string such as "lw rd,imm(rs1)"
// into its mnemonic and operand tokens. Parenthesized operands are marked
// as address-mode positions.
func ParseSyntax(s string) (string, []SyntaxToken) {
	s = strings.TrimSpace(s)
	mnemonic, rest := s, ""
	if idx := strings.IndexAny(s, " \t"); idx >= 0 {
		mnemonic, rest = s[:idx], strings.TrimSpace(s[idx+1:])
	}

	var toks []SyntaxToken
	add := func(text string, mem bool) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		toks = append(toks, SyntaxToken{Text: text, Position: len(toks), Mem: mem})
	}
	for _, part := range strings.Split(rest, ",") {
		outer, inner := partition(part, "(")
		add(outer, false)
		if inner != "" {
			inner, _ = partition(inner, ")")
			add(inner, true)
		}
	}
	return mnemonic, toks
}

// expandSyntax substitutes the operand names of the "%f" form, so that
// ("add %f,%f,%f", rd, rs1, rs2) becomes "add rd,rs1,rs2".
func expandSyntax(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	format, args := vals[0], vals[1:]
	if !strings.Contains(format, "%f") {
		return format
	}
	var b strings.Builder
	for {
		idx := strings.Index(format, "%f")
		if idx < 0 {
			b.WriteString(format)
			break
		}
		b.WriteString(format[:idx])
		if len(args) > 0 {
			b.WriteString(args[0])
			args = args[1:]
		} else {
			b.WriteString("%f")
		}
		format = format[idx+2:]
	}
	return b.String()
}

// BuildInstructions builds every usable instruction of a core. Malformed
// entries are reported into diag and left out; they never stop the rest.
func BuildInstructions(core *Node, fields *FieldSet, cfg *Config, diag *Diagnostics) []*Instruction {
	var ret []*Instruction
	seen := make(map[string]bool)
	for _, n := range core.Find("instrs").ChildrenNamed("instruction") {
		if cfg.ignoresInstruction(n.Name(), parseAttributes(n)) {
			log.Debug(log.ModelModule, "ignoring instruction", "instr", n.Name())
			continue
		}
		instr, rerr := buildInstruction(n, fields)
		if rerr != nil {
			log.Debug(log.ModelModule, "dropping instruction", "instr", rerr.Instruction, "err", rerr.Msg)
			diag.addError(rerr)
			continue
		}
		if seen[instr.Name] {
			diag.addError(&ResolutionError{Instruction: instr.Name, Msg: "defined more than once"})
			continue
		}
		seen[instr.Name] = true
		ret = append(ret, instr)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Name < ret[j].Name
	})
	return ret
}

func buildInstruction(n *Node, fields *FieldSet) (*Instruction, *ResolutionError) {
	name := n.Name()
	if name == "" {
		return nil, &ResolutionError{Instruction: "<unnamed>", Msg: "missing name"}
	}
	fail := func(ref, msg string) *ResolutionError {
		return &ResolutionError{Instruction: name, Ref: ref, Msg: msg}
	}

	in := &Instruction{
		Name:       name,
		Attributes: parseAttributes(n),
		Fields:     make(map[string]FieldValue),
	}
	in.Doc, _ = n.ChildValue("doc")
	width, _, err := n.ChildInt("width")
	if err != nil {
		return nil, fail("width", err.Error())
	}
	in.Width = int(width)

	in.Syntax = expandSyntax(n.Child("syntax").Values())
	in.DSyntax = expandSyntax(n.Child("dsyntax").Values())
	if in.Syntax == "" {
		in.Syntax = in.DSyntax
	}
	if in.Syntax == "" {
		return nil, fail("syntax", "missing syntax")
	}
	in.Mnemonic, _ = ParseSyntax(in.Syntax)
	in.Inputs = n.Child("inputs").Values()
	in.Outputs = n.Child("outputs").Values()

	if an := n.Find("aliases", "alias"); an != nil {
		in.Alias = buildAlias(an)
		if in.Alias.Target == "" {
			return nil, fail("alias", "alias without a target")
		}
	}

	fn := n.Child("fields")
	if fn == nil && in.Alias == nil {
		return nil, fail("fields", "missing fields")
	}
	for _, f := range fn.ChildrenNamed("field") {
		fname := f.Name()
		field, ok := fields.Lookup(fname)
		if !ok {
			return nil, fail(fname, "unknown instruction field")
		}
		fv, ok := parseFieldValue(field, f.Value())
		if !ok {
			return nil, fail(fname, "unrecognized field value "+f.Value())
		}
		if _, dup := in.Fields[fname]; !dup {
			in.FieldOrder = append(in.FieldOrder, fname)
		}
		in.Fields[fname] = fv
	}

	if inn := n.Child("intrinsic"); inn != nil {
		in.Intrinsic = buildIntrinsic(inn)
	}
	return in, nil
}

func parseFieldValue(field Field, raw string) (FieldValue, bool) {
	switch strings.ToLower(raw) {
	case "reg":
		return FieldValue{Kind: ValueReg}, true
	case "imm":
		return FieldValue{Kind: ValueImm}, true
	case "":
		switch field.(type) {
		case *RegField:
			return FieldValue{Kind: ValueReg}, true
		case *ImmField:
			return FieldValue{Kind: ValueImm}, true
		}
	}
	v, err := parseInt(raw)
	if err != nil {
		return FieldValue{}, false
	}
	return FieldValue{Kind: ValueLiteral, Literal: v}, true
}

func buildAlias(n *Node) *InstrAlias {
	ret := &InstrAlias{Target: n.Name()}
	mapping := func(m *Node) AliasMapping {
		f, _ := m.ChildValue("field")
		v, _ := m.ChildValue("value")
		return AliasMapping{Field: f, Value: v}
	}
	for _, s := range n.Find("sources").ChildrenNamed("source") {
		ret.Sources = append(ret.Sources, mapping(s))
	}
	for _, m := range n.Find("miscs").ChildrenNamed("misc") {
		ret.Miscs = append(ret.Miscs, mapping(m))
	}
	return ret
}

func buildIntrinsic(n *Node) *Intrinsic {
	ret := &Intrinsic{Name: n.Name()}
	ret.Returns, _ = n.ChildValue("type")
	for _, a := range n.ChildrenNamed("arg") {
		typ, _ := a.Attr("type")
		ret.Args = append(ret.Args, IntrinsicArg{Name: a.Name(), Type: typ})
	}
	return ret
}
