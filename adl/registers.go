package adl

import (
	"fmt"
	"strconv"
	"strings"
)

type RegisterKind int

const (
	KindGeneric RegisterKind = iota
	KindGPR
	KindCSR
)

func (k RegisterKind) String() string {
	switch k {
	case KindGPR:
		return "GPR"
	case KindCSR:
		return "CSR"
	default:
		return "Generic"
	}
}

func (k RegisterKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Register is either a register file or a bare register. A bare register
// is modelled as a file of one entry so that every register belongs to
// exactly one file.
type Register struct {
	Name   string
	Kind   RegisterKind
	File   bool
	Width  int
	Size   int
	Prefix string
	Doc    string

	// Entries, Syntax and Names are parallel: the architectural index of
	// each entry, its assembly spelling and its canonical name.
	Entries []int
	Syntax  []string
	Names   []string

	DebugIndex int // -1 when the description has no DWARF number
	Shared     bool
	Alignment  int
	Pseudo     bool
	Attributes AttrSet

	// CallingConvention maps an allocation sequence name to the ordered
	// canonical names of the registers satisfying it.
	CallingConvention map[string][]string
}

// IndexOf finds an entry by canonical name, assembly spelling or number.
func (r *Register) IndexOf(name string) int {
	for i := range r.Names {
		if r.Names[i] == name || r.Syntax[i] == name {
			return i
		}
	}
	if v, err := strconv.Atoi(name); err == nil {
		for i, e := range r.Entries {
			if e == v {
				return i
			}
		}
	}
	return -1
}

// BuildRegisters builds every register file and bare register of a core.
func BuildRegisters(core *Node, cfg *Config) (map[string]*Register, error) {
	ret := make(map[string]*Register)

	for _, n := range core.Find("regfiles").ChildrenNamed("regfile") {
		reg, err := buildRegisterFile(n, cfg)
		if err != nil {
			return nil, err
		}
		if _, exists := ret[reg.Name]; exists {
			return nil, structuralf("regfile", reg.Name, "defined more than once")
		}
		ret[reg.Name] = reg
	}

	for _, n := range core.Find("regs").ChildrenNamed("register") {
		reg, err := buildBareRegister(n, cfg)
		if err != nil {
			return nil, err
		}
		if _, exists := ret[reg.Name]; exists {
			return nil, structuralf("register", reg.Name, "defined more than once")
		}
		ret[reg.Name] = reg
	}

	return ret, nil
}

func buildRegisterFile(n *Node, cfg *Config) (*Register, error) {
	reg, err := buildRegisterCommon("regfile", n, cfg)
	if err != nil {
		return nil, err
	}
	reg.File = true

	size, ok, err := n.ChildInt("size")
	if err != nil {
		return nil, structuralf("regfile", reg.Name, "%s", err)
	}
	if !ok || size <= 0 {
		return nil, structuralf("regfile", reg.Name, "missing or invalid <size>")
	}
	reg.Size = int(size)
	reg.Prefix, _ = n.ChildValue("prefix")

	// Entries may be sparse (CSR files name only the implemented ones), so
	// every index gets a default spelling first and named entries
	// overwrite it.
	reg.Entries = make([]int, reg.Size)
	reg.Syntax = make([]string, reg.Size)
	reg.Names = make([]string, reg.Size)
	for i := 0; i < reg.Size; i++ {
		reg.Entries[i] = i
		reg.Names[i] = reg.defaultEntryName(i)
		reg.Syntax[i] = reg.Names[i]
	}

	entries := n.Find("entries").ChildrenNamed("entry")
	for _, en := range entries {
		idx, err := strconv.ParseInt(strings.TrimSpace(en.Name()), 0, 64)
		if err != nil {
			return nil, structuralf("regfile", reg.Name, "entry %q is not a number", en.Name())
		}
		if idx < 0 || int(idx) >= reg.Size {
			return nil, structuralf("regfile", reg.Name, "entry %d outside [0,%d)", idx, reg.Size)
		}
		if syn := en.Child("syntax").Values(); len(syn) > 0 {
			reg.Syntax[idx] = syn[0]
			if reg.Prefix == "" {
				reg.Names[idx] = syn[0]
			}
		}
	}

	if err := reg.buildCallingConvention(n, entries); err != nil {
		return nil, err
	}

	reg.Kind = classifyRegister(reg, cfg)
	return reg, nil
}

func buildBareRegister(n *Node, cfg *Config) (*Register, error) {
	reg, err := buildRegisterCommon("register", n, cfg)
	if err != nil {
		return nil, err
	}
	reg.Size = 1
	reg.Entries = []int{0}
	reg.Names = []string{reg.Name}
	reg.Syntax = []string{reg.Name}
	if syn := n.Child("syntax").Values(); len(syn) > 0 {
		reg.Syntax[0] = syn[0]
	}
	reg.CallingConvention = make(map[string][]string)
	reg.Kind = classifyRegister(reg, cfg)
	return reg, nil
}

func buildRegisterCommon(entity string, n *Node, cfg *Config) (*Register, error) {
	name := n.Name()
	if name == "" {
		return nil, structuralf(entity, "", "missing name")
	}
	reg := &Register{
		Name:       name,
		DebugIndex: -1,
		Attributes: parseAttributes(n),
	}

	width, ok, err := n.ChildInt("width")
	if err != nil {
		return nil, structuralf(entity, name, "%s", err)
	}
	if !ok || width <= 0 {
		return nil, structuralf(entity, name, "missing or invalid <width>")
	}
	reg.Width = int(width)

	doc, ok := n.ChildValue("doc")
	if !ok {
		return nil, structuralf(entity, name, "missing <doc>")
	}
	reg.Doc = doc

	if dbg, ok, err := n.ChildInt("debug"); err != nil {
		return nil, structuralf(entity, name, "%s", err)
	} else if ok {
		reg.DebugIndex = int(dbg)
	}
	if align, ok, err := n.ChildInt("alignment"); err != nil {
		return nil, structuralf(entity, name, "%s", err)
	} else if ok {
		reg.Alignment = int(align)
	}
	reg.Shared = n.ChildBool("shared")
	reg.Pseudo = n.ChildBool("pseudo") || reg.Attributes.Has("pseudo")
	return reg, nil
}

func (r *Register) defaultEntryName(i int) string {
	if r.Prefix != "" {
		return r.Prefix + strconv.Itoa(i)
	}
	return r.Name + strconv.Itoa(i)
}

// buildCallingConvention accumulates convention options from the file-level
// table and from each entry. A convention key that recurs appends to the
// registers already listed rather than replacing them, since one register
// may satisfy several allocation orders.
func (r *Register) buildCallingConvention(n *Node, entries []*Node) error {
	r.CallingConvention = make(map[string][]string)

	for _, opt := range n.Find("calling_convention").ChildrenNamed("option") {
		key := opt.Name()
		if key == "" {
			return structuralf("regfile", r.Name, "calling convention option without a name")
		}
		for _, ref := range opt.Values() {
			idx := r.IndexOf(ref)
			if idx < 0 {
				return structuralf("regfile", r.Name, "calling convention %q names unknown register %q", key, ref)
			}
			r.addConvention(key, r.Names[idx])
		}
	}

	for _, en := range entries {
		cc := en.Child("calling_convention")
		if cc == nil {
			continue
		}
		idx, err := strconv.ParseInt(strings.TrimSpace(en.Name()), 0, 64)
		if err != nil {
			return structuralf("regfile", r.Name, "entry %q is not a number", en.Name())
		}
		var keys []string
		for _, opt := range cc.ChildrenNamed("option") {
			keys = append(keys, opt.Values()...)
		}
		keys = append(keys, cc.Values()...)
		for _, key := range keys {
			r.addConvention(key, r.Names[idx])
		}
	}
	return nil
}

func (r *Register) addConvention(key, name string) {
	if containsString(r.CallingConvention[key], name) {
		return
	}
	r.CallingConvention[key] = append(r.CallingConvention[key], name)
}

func classifyRegister(r *Register, cfg *Config) RegisterKind {
	upper := strings.ToUpper(r.Name)
	switch {
	case containsString(cfg.GPRFiles, r.Name) || r.Attributes.Has("gpr"):
		return KindGPR
	case containsString(cfg.CSRFiles, r.Name) || strings.HasPrefix(upper, "CSR") || r.Attributes.Has("csr"):
		return KindCSR
	}
	return KindGeneric
}

func (r *Register) String() string {
	if !r.File {
		return fmt.Sprintf("%s (%s, %d bits)", r.Name, r.Kind, r.Width)
	}
	return fmt.Sprintf("%s (%s, %d x %d bits)", r.Name, r.Kind, r.Size, r.Width)
}
