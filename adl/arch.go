package adl

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type Extension byte
type XLen uint8

const (
	XLenInvalid XLen = 0
	XLen32      XLen = 32
	XLen64      XLen = 64
	XLen128     XLen = 128
)

// Arch is the parsed form of an asm_config architecture string such as
// "rv32imac".
type Arch struct {
	Raw        string
	XLen       XLen
	Extensions []Extension
}

func (a Arch) Has(ext Extension) bool {
	for _, e := range a.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (a Arch) String() string {
	if a.XLen == XLenInvalid {
		return a.Raw
	}
	var b strings.Builder
	fmt.Fprintf(&b, "RV%d", a.XLen)
	for _, e := range a.Extensions {
		b.WriteByte(byte(e))
	}
	return b.String()
}

// ParseArch understands the single-letter extension form. Multi-letter
// extensions (after an underscore) are kept in Raw only.
func ParseArch(s string) Arch {
	ret := Arch{Raw: s}
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "rv") {
		return ret
	}
	s = s[2:]
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	bits, err := strconv.Atoi(s[:i])
	if err != nil {
		return ret
	}
	switch XLen(bits) {
	case XLen32, XLen64, XLen128:
		ret.XLen = XLen(bits)
	default:
		return ret
	}
	letters, _ := partition(s[i:], "_")
	for _, r := range letters {
		ext := Extension(strings.ToUpper(string(r))[0])
		if ext == 'G' {
			// G is shorthand for IMAFD.
			for _, e := range "IMAFD" {
				if !ret.Has(Extension(e)) {
					ret.Extensions = append(ret.Extensions, Extension(e))
				}
			}
			continue
		}
		if !ret.Has(ext) {
			ret.Extensions = append(ret.Extensions, ext)
		}
	}
	return ret
}

// AttrSet is the set of attribute names attached to a register or an
// instruction.
type AttrSet map[string]struct{}

func (as AttrSet) Has(name string) bool {
	_, ok := as[name]
	return ok
}

func (as AttrSet) Add(name string) {
	as[name] = struct{}{}
}

func (as AttrSet) Sorted() []string {
	ret := make([]string, 0, len(as))
	for name := range as {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// MarshalJSON writes the set as a sorted list.
func (as AttrSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(as.Sorted())
}

func (as AttrSet) String() string {
	return strings.Join(as.Sorted(), ", ")
}

// parseAttributes accepts both <attribute name="x"/> children and plain
// scalar lists.
func parseAttributes(n *Node) AttrSet {
	ret := make(AttrSet)
	attrs := n.Child("attributes")
	if attrs == nil {
		return ret
	}
	for _, a := range attrs.ChildrenNamed("attribute") {
		if name := a.Name(); name != "" {
			ret.Add(name)
		} else if v := a.Value(); v != "" {
			ret.Add(v)
		}
	}
	for _, v := range attrs.Values() {
		ret.Add(v)
	}
	return ret
}
