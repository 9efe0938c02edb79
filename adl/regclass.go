package adl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/apparentlymart/adl-meta/log"
)

// RegisterClass is a named, ordered set of registers that may fill a
// register operand. Derived classes keep the name of the class they were
// narrowed from in Base.
type RegisterClass struct {
	Name     string
	File     string
	Base     string
	Offset   int
	Width    int
	Excluded []int64
	Mem      bool
	Members  []string
}

// RegisterPair holds the even-numbered registers of a class, for operands
// that name two consecutive registers.
type RegisterPair struct {
	Name    string
	Base    string
	Members []string
}

// ClassSet is the deriver's output. Mem classes are added lazily the
// first time the assembler asks for one.
type ClassSet struct {
	Classes map[string]*RegisterClass
	Pairs   map[string]*RegisterPair

	// Aliases maps a canonical register name to its other spellings.
	Aliases map[string][]string

	// ByField is the class every register field resolves to.
	ByField map[string]string

	// pairOf maps a field class name to its pair class name.
	pairOf map[string]string
}

func (cs *ClassSet) ClassOf(field string) (*RegisterClass, bool) {
	name, ok := cs.ByField[field]
	if !ok {
		return nil, false
	}
	c, ok := cs.Classes[name]
	return c, ok
}

// PairOf returns the pair class derived for a field class, if any
// instruction uses that class as a register pair.
func (cs *ClassSet) PairOf(class string) (*RegisterPair, bool) {
	name, ok := cs.pairOf[class]
	if !ok {
		return nil, false
	}
	p, ok := cs.Pairs[name]
	return p, ok
}

// Mem returns the address-mode variant of a class, creating it on first
// use. The name is derived from the class name alone, so repeated calls
// agree.
func (cs *ClassSet) Mem(class string) *RegisterClass {
	c, ok := cs.Classes[class]
	if !ok {
		return nil
	}
	if c.Mem {
		return c
	}
	name := class + "Mem"
	if mc, ok := cs.Classes[name]; ok {
		return mc
	}
	mc := &RegisterClass{
		Name:     name,
		File:     c.File,
		Base:     c.Name,
		Offset:   c.Offset,
		Width:    c.Width,
		Excluded: c.Excluded,
		Mem:      true,
		Members:  append([]string(nil), c.Members...),
	}
	cs.Classes[name] = mc
	return mc
}

// SortedClasses returns the classes ordered by name.
func (cs *ClassSet) SortedClasses() []*RegisterClass {
	ret := make([]*RegisterClass, 0, len(cs.Classes))
	for _, c := range cs.Classes {
		ret = append(ret, c)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

func (cs *ClassSet) SortedPairs() []*RegisterPair {
	ret := make([]*RegisterPair, 0, len(cs.Pairs))
	for _, p := range cs.Pairs {
		ret = append(ret, p)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

// DeriveClasses groups registers into classes per register field. For each
// field the alias is resolved first, since it renames the base that offset
// slicing, exclusion and pairing all key off.
func DeriveClasses(regs map[string]*Register, fields *FieldSet, instrs []*Instruction, cfg *Config, diag *Diagnostics) *ClassSet {
	cs := &ClassSet{
		Classes: make(map[string]*RegisterClass),
		Pairs:   make(map[string]*RegisterPair),
		Aliases: deriveAliases(regs, cfg),
		ByField: make(map[string]string),
		pairOf:  make(map[string]string),
	}

	names := make([]string, 0, len(fields.Refs))
	for name := range fields.Refs {
		names = append(names, name)
	}
	sort.Strings(names)

	// Slices settle their widths across all fields before any exclusion
	// subclass copies their members.
	sliced := make(map[string]*RegisterClass)
	for _, name := range names {
		f := fields.Refs[name]
		file, ok := regs[f.Ref]
		if !ok {
			log.Debug(log.ModelModule, "field references unknown register file", "field", name, "ref", f.Ref)
			continue
		}
		cls := cs.baseClass(cfg.classAlias(f.Ref), file)
		if f.Offset != 0 {
			cls = cs.slice(cls, file, f, diag)
			if cls == nil {
				continue
			}
		}
		sliced[name] = cls
	}
	for _, name := range names {
		cls, ok := sliced[name]
		if !ok {
			continue
		}
		if f := fields.Refs[name]; len(f.ExcludedValues) > 0 {
			cls = cs.exclude(cls, f.ExcludedValues)
		}
		cs.ByField[name] = cls.Name
	}

	for _, in := range instrs {
		for _, field := range pairedFields(in) {
			cls, ok := cs.ClassOf(field)
			if !ok {
				continue
			}
			cs.pair(cls)
		}
	}

	return cs
}

func (cs *ClassSet) baseClass(name string, file *Register) *RegisterClass {
	c, ok := cs.Classes[name]
	if !ok {
		c = &RegisterClass{Name: name, File: file.Name}
		cs.Classes[name] = c
	}
	// An alias may merge several files into one class; each contributes
	// the registers not already present.
	for _, reg := range file.Names {
		if !containsString(c.Members, reg) {
			c.Members = append(c.Members, reg)
		}
	}
	c.Width = len(c.Members)
	return c
}

// slice derives the class covering [offset, offset+width) of the file.
// Two fields may ask for the same slice with different widths; the wider
// one wins and the disagreement is reported.
func (cs *ClassSet) slice(base *RegisterClass, file *Register, f *RegField, diag *Diagnostics) *RegisterClass {
	if f.Offset < 0 || f.Offset >= file.Size {
		diag.warnf(AmbiguityWarning, f.Name, "offset %d outside register file %s of size %d", f.Offset, file.Name, file.Size)
		return nil
	}
	width := f.Entries()
	if f.Offset+width > file.Size {
		width = file.Size - f.Offset
	}

	name := fmt.Sprintf("%s_%d", base.Name, f.Offset)
	c, ok := cs.Classes[name]
	if ok {
		if c.Width == width {
			return c
		}
		if width < c.Width {
			diag.warnf(AmbiguityWarning, name, "field %s wants %d registers, keeping the wider %d", f.Name, width, c.Width)
			return c
		}
		diag.warnf(AmbiguityWarning, name, "field %s widens the class from %d to %d registers", f.Name, c.Width, width)
	} else {
		c = &RegisterClass{Name: name, File: file.Name, Base: base.Name, Offset: f.Offset}
		cs.Classes[name] = c
	}
	c.Width = width
	c.Members = append([]string(nil), file.Names[f.Offset:f.Offset+width]...)
	return c
}

// exclude derives the subclass without the registers the field may not
// encode. Excluded values index into the parent class.
func (cs *ClassSet) exclude(parent *RegisterClass, excluded []int64) *RegisterClass {
	name := parent.Name + exclusionSuffix(excluded)
	if c, ok := cs.Classes[name]; ok {
		return c
	}
	c := &RegisterClass{
		Name:     name,
		File:     parent.File,
		Base:     parent.Name,
		Offset:   parent.Offset,
		Excluded: excluded,
	}
	for i, reg := range parent.Members {
		if !containsInt(excluded, int64(i)) {
			c.Members = append(c.Members, reg)
		}
	}
	c.Width = len(c.Members)
	cs.Classes[name] = c
	return c
}

// pair derives the pair class of a field class: the even-indexed members
// of its unexcluded parent, minus whatever the field class excludes.
func (cs *ClassSet) pair(cls *RegisterClass) *RegisterPair {
	if name, ok := cs.pairOf[cls.Name]; ok {
		return cs.Pairs[name]
	}
	parent := cls
	if len(cls.Excluded) > 0 {
		if p, ok := cs.Classes[cls.Base]; ok {
			parent = p
		}
	}

	// Odd indices are never pair bases.
	var excluded []int64
	for _, v := range cls.Excluded {
		if v%2 == 0 {
			excluded = append(excluded, v)
		}
	}
	name := parent.Name + "P" + exclusionSuffix(excluded)
	p, ok := cs.Pairs[name]
	if !ok {
		p = &RegisterPair{Name: name, Base: parent.Name}
		for i := 0; i < len(parent.Members); i += 2 {
			if containsInt(excluded, int64(i)) {
				continue
			}
			p.Members = append(p.Members, parent.Members[i])
		}
		cs.Pairs[name] = p
	}
	cs.pairOf[cls.Name] = name
	return p
}

func exclusionSuffix(excluded []int64) string {
	var b strings.Builder
	for _, v := range excluded {
		b.WriteString("No")
		b.WriteString(strconv.FormatInt(v, 10))
	}
	return b.String()
}

func containsInt(list []int64, v int64) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func deriveAliases(regs map[string]*Register, cfg *Config) map[string][]string {
	ret := make(map[string][]string)
	add := func(canon, alt string) {
		if alt == "" || alt == canon || containsString(ret[canon], alt) {
			return
		}
		ret[canon] = append(ret[canon], alt)
	}

	names := make([]string, 0, len(regs))
	for name := range regs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := regs[name]
		for i, canon := range r.Names {
			add(canon, r.Syntax[i])
		}
	}

	canons := make([]string, 0, len(cfg.RegisterAliases))
	for canon := range cfg.RegisterAliases {
		canons = append(canons, canon)
	}
	sort.Strings(canons)
	for _, canon := range canons {
		for _, alt := range cfg.RegisterAliases[canon] {
			add(canon, alt)
		}
	}
	return ret
}

// RegExpr is a parsed input/output expression.
type RegExpr struct {
	File     string
	Field    string
	Adjacent bool // "+1": the register after the one the field names
	Bare     string
}

// ParseRegExpr understands "GPR(rs1)", "GPR(rs1+1)" and bare register
// names such as "PC" or "CSR[mstatus]".
func ParseRegExpr(s string) RegExpr {
	s = strings.TrimSpace(s)
	file, rest := partition(s, "(")
	if rest == "" || !strings.HasSuffix(rest, ")") {
		return RegExpr{Bare: s}
	}
	inner := strings.TrimSpace(strings.TrimSuffix(rest, ")"))
	ret := RegExpr{File: strings.TrimSpace(file), Field: inner}
	if f, off := partition(inner, "+"); off != "" && strings.TrimSpace(off) == "1" {
		ret.Field = strings.TrimSpace(f)
		ret.Adjacent = true
	}
	return ret
}

// pairedFields returns the fields an instruction references both directly
// and with a "+1" adjacency marker.
func pairedFields(in *Instruction) []string {
	plain := make(map[string]bool)
	adjacent := make(map[string]bool)
	for _, list := range [][]string{in.Inputs, in.Outputs} {
		for _, raw := range list {
			e := ParseRegExpr(raw)
			if e.Field == "" {
				continue
			}
			if e.Adjacent {
				adjacent[e.Field] = true
			} else {
				plain[e.Field] = true
			}
		}
	}
	var ret []string
	for f := range adjacent {
		if plain[f] {
			ret = append(ret, f)
		}
	}
	sort.Strings(ret)
	return ret
}
