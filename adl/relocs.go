package adl

// Relocation is a symbolic-addressing fixup an immediate field may carry.
type Relocation struct {
	Name       string
	Value      int64
	Abbrev     string
	Width      int
	PCRel      bool
	RightShift int
}

// BuildRelocations reads the relocations table. Every entry needs its
// numeric value, since that is what an object file records.
func BuildRelocations(core *Node) (map[string]*Relocation, error) {
	ret := make(map[string]*Relocation)
	for _, n := range core.Find("relocations").ChildrenNamed("reloc") {
		name := n.Name()
		if name == "" {
			return nil, structuralf("reloc", "", "missing name")
		}
		if _, exists := ret[name]; exists {
			return nil, structuralf("reloc", name, "defined more than once")
		}
		value, ok, err := n.ChildInt("value")
		if err != nil {
			return nil, structuralf("reloc", name, "%s", err)
		}
		if !ok {
			return nil, structuralf("reloc", name, "missing <value>")
		}
		width, _, err := n.ChildInt("width")
		if err != nil {
			return nil, structuralf("reloc", name, "%s", err)
		}
		shift, _, err := n.ChildInt("right_shift")
		if err != nil {
			return nil, structuralf("reloc", name, "%s", err)
		}
		abbrev, _ := n.ChildValue("abbrev")
		ret[name] = &Relocation{
			Name:       name,
			Value:      value,
			Abbrev:     abbrev,
			Width:      int(width),
			PCRel:      n.ChildBool("pcrel"),
			RightShift: int(shift),
		}
	}
	return ret, nil
}
