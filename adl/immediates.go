package adl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ImmKey is the classification tuple of an immediate field. Two fields with
// equal keys always share one immediate class; the textual class name is
// only generated from the key when it is needed.
type ImmKey struct {
	Signed        bool
	Size          int
	Shift         int
	SignExtension int
	OneExtended   bool

	// Excluded is the sorted excluded value list, comma-joined so the key
	// stays comparable.
	Excluded string
}

func KeyOf(f *ImmField) ImmKey {
	ex := make([]string, len(f.ExcludedValues))
	for i, v := range f.ExcludedValues {
		ex[i] = strconv.FormatInt(v, 10)
	}
	return ImmKey{
		Signed:        f.Signed,
		Size:          f.Size,
		Shift:         f.Shift,
		SignExtension: f.SignExtension,
		OneExtended:   f.OneExtended,
		Excluded:      strings.Join(ex, ","),
	}
}

func (k ImmKey) excluded() []int64 {
	if k.Excluded == "" {
		return nil
	}
	parts := strings.Split(k.Excluded, ",")
	ret := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, _ := strconv.ParseInt(p, 10, 64)
		ret = append(ret, v)
	}
	return ret
}

// Bits is the width of the value the field denotes: the encoded bits, the
// implicit low-order bits and, for one-extended fields, the implicit sign.
func (k ImmKey) Bits() int {
	n := k.Size + k.Shift
	if k.OneExtended {
		n++
	}
	return n
}

// sext reports whether the two-interval sign-extension test applies. A
// sign-extension width that does not exceed the field is meaningless and
// is ignored.
func (k ImmKey) sext() bool {
	return k.SignExtension > k.Size && k.Size > 0 && k.SignExtension+k.Shift < 63
}

func (k ImmKey) Name() string {
	var b strings.Builder
	if k.Signed {
		b.WriteString("simm")
	} else {
		b.WriteString("uimm")
	}
	b.WriteString(strconv.Itoa(k.Bits()))
	if k.Shift > 0 {
		b.WriteString("_lsb")
		b.WriteString(strings.Repeat("0", k.Shift))
	}
	if k.OneExtended {
		b.WriteString("_neg")
	}
	if k.sext() {
		fmt.Fprintf(&b, "_sext%d", k.SignExtension)
	}
	for _, v := range k.excluded() {
		b.WriteString("Non")
		b.WriteString(numeralIdent(v))
	}
	return b.String()
}

// Predicate is the MCOperand legality check for the class, written against
// an operand value named Imm.
func (k ImmKey) Predicate() string {
	var base string
	switch {
	case k.OneExtended:
		base = fmt.Sprintf("Imm < 0 && isShiftedInt<%d, %d>(Imm)", k.Size+1, k.Shift)
	case k.sext():
		posMax, negMin, negMax := k.sextBounds()
		base = fmt.Sprintf("((Imm >= 0 && Imm <= %d) || (Imm >= %d && Imm <= %d))", posMax, negMin, negMax)
		if k.Shift > 0 {
			base += fmt.Sprintf(" && (Imm %% %d) == 0", int64(1)<<uint(k.Shift))
		}
	case k.Shift > 0 && k.Signed:
		base = fmt.Sprintf("isShiftedInt<%d, %d>(Imm)", k.Size, k.Shift)
	case k.Shift > 0:
		base = fmt.Sprintf("isShiftedUInt<%d, %d>(Imm)", k.Size, k.Shift)
	case k.Signed:
		base = fmt.Sprintf("isInt<%d>(Imm)", k.Size)
	default:
		base = fmt.Sprintf("isUInt<%d>(Imm)", k.Size)
	}
	for _, v := range k.excluded() {
		base += fmt.Sprintf(" && Imm != %d", v)
	}
	return base
}

// sextBounds gives the positive range [0, posMax] and the sign-extended
// negative tail [negMin, negMax], already scaled by the shift.
func (k ImmKey) sextBounds() (posMax, negMin, negMax int64) {
	half := int64(1) << uint(k.Size-1)
	top := int64(1) << uint(k.SignExtension)
	scale := uint(k.Shift)
	return (half - 1) << scale, (top - half) << scale, (top - 1) << scale
}

// Legal evaluates Predicate for a concrete value.
func (k ImmKey) Legal(v int64) bool {
	var ok bool
	switch {
	case k.OneExtended:
		ok = v < 0 && isShiftedInt(k.Size+1, k.Shift, v)
	case k.sext():
		posMax, negMin, negMax := k.sextBounds()
		ok = (v >= 0 && v <= posMax) || (v >= negMin && v <= negMax)
		if k.Shift > 0 {
			ok = ok && v%(int64(1)<<uint(k.Shift)) == 0
		}
	case k.Shift > 0 && k.Signed:
		ok = isShiftedInt(k.Size, k.Shift, v)
	case k.Shift > 0:
		ok = isShiftedUInt(k.Size, k.Shift, v)
	case k.Signed:
		ok = isInt(k.Size, v)
	default:
		ok = isUInt(k.Size, v)
	}
	if !ok {
		return false
	}
	for _, ex := range k.excluded() {
		if v == ex {
			return false
		}
	}
	return true
}

func isInt(n int, v int64) bool {
	if n >= 64 {
		return true
	}
	if n <= 0 {
		return v == 0
	}
	return v >= -(int64(1)<<uint(n-1)) && v <= (int64(1)<<uint(n-1))-1
}

func isUInt(n int, v int64) bool {
	if v < 0 {
		return false
	}
	if n >= 63 {
		return true
	}
	return v < int64(1)<<uint(n)
}

func isShiftedInt(n, s int, v int64) bool {
	return v%(int64(1)<<uint(s)) == 0 && isInt(n+s, v)
}

func isShiftedUInt(n, s int, v int64) bool {
	return v%(int64(1)<<uint(s)) == 0 && isUInt(n+s, v)
}

// Classify returns the immediate class name of a field.
func Classify(f *ImmField) string {
	return KeyOf(f).Name()
}

// ImmediateClass is one deduplicated operand type for immediates.
type ImmediateClass struct {
	Key           ImmKey
	Name          string
	Predicate     string
	DecodeWidth   int
	Signed        bool
	DecoderMethod string
	EncoderMethod string

	// Fields lists, sorted, every field classified into this class.
	Fields []string
}

func (c *ImmediateClass) Legal(v int64) bool {
	return c.Key.Legal(v)
}

// ImmTable is the classification of every immediate field of a core.
type ImmTable struct {
	Classes map[string]*ImmediateClass
	ByField map[string]string
}

func (t *ImmTable) ClassOf(field string) (*ImmediateClass, bool) {
	name, ok := t.ByField[field]
	if !ok {
		return nil, false
	}
	c, ok := t.Classes[name]
	return c, ok
}

// ClassifyImmediates groups the immediate fields by classification key.
func ClassifyImmediates(fields *FieldSet, cfg *Config) *ImmTable {
	ret := &ImmTable{
		Classes: make(map[string]*ImmediateClass),
		ByField: make(map[string]string),
	}
	byKey := make(map[ImmKey]*ImmediateClass)

	names := make([]string, 0, len(fields.Imms))
	for name := range fields.Imms {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key := KeyOf(fields.Imms[name])
		c, ok := byKey[key]
		if !ok {
			c = newImmediateClass(key, cfg)
			byKey[key] = c
			ret.Classes[c.Name] = c
		}
		c.Fields = append(c.Fields, name)
		ret.ByField[name] = c.Name
	}
	return ret
}

func newImmediateClass(key ImmKey, cfg *Config) *ImmediateClass {
	name := key.Name()
	c := &ImmediateClass{
		Key:           key,
		Name:          name,
		Predicate:     key.Predicate(),
		DecodeWidth:   key.Bits(),
		Signed:        key.Signed || key.OneExtended,
		EncoderMethod: "getImmOpValue",
	}

	sign := "U"
	if c.Signed {
		sign = "S"
	}
	if key.Shift > 0 {
		c.DecoderMethod = fmt.Sprintf("decode%sImmOperandAndLsl%d<%d>", sign, key.Shift, c.DecodeWidth)
	} else {
		c.DecoderMethod = fmt.Sprintf("decode%sImmOperand<%d>", sign, c.DecodeWidth)
	}
	if m, ok := cfg.DecoderMethods[name]; ok {
		c.DecoderMethod = m
	}
	if m, ok := cfg.EncoderMethods[name]; ok {
		c.EncoderMethod = m
	}
	return c
}
