package adl

import (
	"fmt"
	"sort"
)

// Field is an instruction field: exactly one of *RegField or *ImmField.
// Code that needs the concrete kind switches over both.
type Field interface {
	FieldName() string
	Ranges() []BitRange
	DeclaredWidth() int
	DecodeSteps() []DecodeStep
	isField()
}

// RegField is an instruction field whose value selects a register from the
// register file named by Ref.
type RegField struct {
	Name           string
	Doc            string
	Bits           []BitRange
	Width          int
	Ref            string
	Offset         int
	ExcludedValues []int64

	// RegWidth is the register width the operand requires, when the field
	// demands more than the file declares. Zero means no demand.
	RegWidth int
}

// ImmField is an instruction field holding an immediate value.
type ImmField struct {
	Name  string
	Doc   string
	Bits  []BitRange
	Width int

	Size           int
	Shift          int
	Signed         bool
	SignExtension  int
	OneExtended    bool
	ExcludedValues []int64
	Reloc          string
}

func (f *RegField) FieldName() string  { return f.Name }
func (f *RegField) Ranges() []BitRange { return f.Bits }
func (f *RegField) DeclaredWidth() int { return f.Width }
func (*RegField) isField()             {}

func (f *ImmField) FieldName() string  { return f.Name }
func (f *ImmField) Ranges() []BitRange { return f.Bits }
func (f *ImmField) DeclaredWidth() int { return f.Width }
func (*ImmField) isField()             {}

// Entries is the number of registers the field can address.
func (f *RegField) Entries() int {
	return 1 << uint(totalWidth(f.Bits))
}

func (f *RegField) Excludes(v int64) bool {
	for _, ex := range f.ExcludedValues {
		if ex == v {
			return true
		}
	}
	return false
}

func (f *ImmField) DecodeSteps() []DecodeStep { return decodeSteps(f.Bits) }
func (f *RegField) DecodeSteps() []DecodeStep { return decodeSteps(f.Bits) }

// Extract decodes the field's value from an encoding word, applying the
// implicit low-order shift and the sign or one extension.
func (f *ImmField) Extract(word uint64) int64 {
	var raw uint64
	for _, step := range f.DecodeSteps() {
		raw |= step.apply(word)
	}
	n := uint(totalWidth(f.Bits))
	switch {
	case f.OneExtended:
		raw |= ^uint64(0) << n
	case f.Signed && n > 0 && raw&(uint64(1)<<(n-1)) != 0:
		raw |= ^uint64(0) << n
	}
	return int64(raw) << uint(f.Shift)
}

// FieldSet is the resolver's output together with its partition into
// register and immediate fields. Every field lands in exactly one of Refs
// and Imms.
type FieldSet struct {
	All  map[string]Field
	Refs map[string]*RegField
	Imms map[string]*ImmField
}

func (fs *FieldSet) Lookup(name string) (Field, bool) {
	f, ok := fs.All[name]
	return f, ok
}

// Names returns every field name in sorted order.
func (fs *FieldSet) Names() []string {
	ret := make([]string, 0, len(fs.All))
	for name := range fs.All {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

func (fs *FieldSet) add(f Field) {
	fs.All[f.FieldName()] = f
	switch f := f.(type) {
	case *RegField:
		fs.Refs[f.Name] = f
	case *ImmField:
		fs.Imms[f.Name] = f
	}
}

// Validate reports fields whose declared width differs from the width of
// their bit ranges. The description is the source of truth, so these are
// accepted and only flagged.
func (fs *FieldSet) Validate() []Warning {
	var ret []Warning
	for _, name := range fs.Names() {
		f := fs.All[name]
		if f.DeclaredWidth() == 0 {
			continue
		}
		got := totalWidth(f.Ranges())
		if got != f.DeclaredWidth() {
			ret = append(ret, Warning{
				Kind:    WidthMismatch,
				Subject: name,
				Msg:     fmt.Sprintf("declared width %d, bit ranges cover %d", f.DeclaredWidth(), got),
			})
		}
	}
	return ret
}

// BuildFields resolves every instrfield of a core into a typed Field.
func BuildFields(core *Node) (*FieldSet, error) {
	ret := &FieldSet{
		All:  make(map[string]Field),
		Refs: make(map[string]*RegField),
		Imms: make(map[string]*ImmField),
	}
	for _, n := range core.Find("instrfields").ChildrenNamed("instrfield") {
		f, err := buildField(n)
		if err != nil {
			return nil, err
		}
		if _, exists := ret.All[f.FieldName()]; exists {
			return nil, structuralf("instrfield", f.FieldName(), "defined more than once")
		}
		ret.add(f)
	}
	return ret, nil
}

func buildField(n *Node) (Field, error) {
	name := n.Name()
	if name == "" {
		return nil, structuralf("instrfield", "", "missing name")
	}
	bits, err := fieldRanges(n)
	if err != nil {
		return nil, structuralf("instrfield", name, "%s", err)
	}
	if len(bits) == 0 {
		return nil, structuralf("instrfield", name, "missing <bits>")
	}

	ints := map[string]int64{}
	for _, tag := range []string{"width", "size", "shift", "offset", "sign_extension", "reg_width"} {
		v, _, err := n.ChildInt(tag)
		if err != nil {
			return nil, structuralf("instrfield", name, "%s", err)
		}
		ints[tag] = v
	}
	excluded, err := excludedValues(n)
	if err != nil {
		return nil, structuralf("instrfield", name, "%s", err)
	}
	doc, _ := n.ChildValue("doc")

	width := int(ints["width"])
	if width == 0 {
		width = totalWidth(bits)
	}

	if ref, ok := n.ChildValue("ref"); ok && ref != "" {
		return &RegField{
			Name:           name,
			Doc:            doc,
			Bits:           bits,
			Width:          width,
			Ref:            ref,
			Offset:         int(ints["offset"]),
			ExcludedValues: excluded,
			RegWidth:       int(ints["reg_width"]),
		}, nil
	}

	size := int(ints["size"])
	if size == 0 {
		size = width
	}
	reloc, _ := n.ChildValue("reloc")
	return &ImmField{
		Name:           name,
		Doc:            doc,
		Bits:           bits,
		Width:          width,
		Size:           size,
		Shift:          int(ints["shift"]),
		Signed:         n.ChildBool("signed"),
		SignExtension:  int(ints["sign_extension"]),
		OneExtended:    n.ChildBool("one_extended"),
		ExcludedValues: excluded,
		Reloc:          reloc,
	}, nil
}

// fieldRanges accepts <range><int>hi</int><int>lo</int></range> children,
// a single <int> bit, or the compact "hi:lo,hi:lo" text form.
func fieldRanges(n *Node) ([]BitRange, error) {
	bn := n.Child("bits")
	if bn == nil {
		return nil, nil
	}
	var ret []BitRange
	if rs := bn.ChildrenNamed("range"); len(rs) > 0 {
		for _, r := range rs {
			vals := r.Values()
			if len(vals) != 2 {
				return nil, fmt.Errorf("bit range needs two bounds, got %d", len(vals))
			}
			hi, err := parseInt(vals[0])
			if err != nil {
				return nil, err
			}
			lo, err := parseInt(vals[1])
			if err != nil {
				return nil, err
			}
			ret = append(ret, makeBitRange(int(hi), int(lo)))
		}
		return normalizeRanges(ret), nil
	}
	for _, raw := range bn.Values() {
		rs, err := parseBitRanges(raw)
		if err != nil {
			return nil, err
		}
		ret = append(ret, rs...)
	}
	return normalizeRanges(ret), nil
}

func excludedValues(n *Node) ([]int64, error) {
	ex := n.Child("excluded_values")
	if ex == nil {
		return nil, nil
	}
	var ret []int64
	for _, raw := range ex.Values() {
		v, err := parseInt(raw)
		if err != nil {
			return nil, fmt.Errorf("excluded value %q: %w", raw, err)
		}
		ret = append(ret, v)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return dedupInts(ret), nil
}

func dedupInts(sorted []int64) []int64 {
	var ret []int64
	for i, v := range sorted {
		if i > 0 && sorted[i-1] == v {
			continue
		}
		ret = append(ret, v)
	}
	return ret
}
