package adl

import (
	"fmt"
	"strconv"
	"strings"
)

type bits64 uint64

func (v bits64) String() string {
	return fmt.Sprintf("0b%032b", uint64(v))
}

func (v bits64) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("0x%x", uint64(v))), nil
}

func rangeMask(top, bottom uint) bits64 {
	if top >= 63 {
		return bits64(^uint64(0) - (uint64(1) << bottom) + 1)
	}
	return bits64((uint64(1) << (top + 1)) - (uint64(1) << bottom))
}

// BitRange is an inclusive slice of an encoding word, Hi >= Lo.
type BitRange struct {
	Hi int
	Lo int
}

func (r BitRange) Width() int {
	return r.Hi - r.Lo + 1
}

func (r BitRange) String() string {
	if r.Hi == r.Lo {
		return strconv.Itoa(r.Hi)
	}
	return fmt.Sprintf("%d:%d", r.Hi, r.Lo)
}

func totalWidth(rs []BitRange) int {
	w := 0
	for _, r := range rs {
		w += r.Width()
	}
	return w
}

// parseBitRanges reads the compact form "31:25,11:7" (or a lone bit "7").
func parseBitRanges(raw string) ([]BitRange, error) {
	var ret []BitRange
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		rawHi, rawLo := partition(part, ":")
		if rawLo == "" {
			rawLo = rawHi
		}
		hi, err := strconv.Atoi(strings.TrimSpace(rawHi))
		if err != nil {
			return nil, fmt.Errorf("invalid bit range %q", part)
		}
		lo, err := strconv.Atoi(strings.TrimSpace(rawLo))
		if err != nil {
			return nil, fmt.Errorf("invalid bit range %q", part)
		}
		ret = append(ret, makeBitRange(hi, lo))
	}
	return ret, nil
}

func makeBitRange(a, b int) BitRange {
	if a < b {
		a, b = b, a
	}
	return BitRange{Hi: a, Lo: b}
}

// normalizeRanges keeps declaration order, which is value order from the
// most significant bits down, drops exact repeats and merges a range into
// its predecessor when the two are physically adjacent.
func normalizeRanges(in []BitRange) []BitRange {
	var ret []BitRange
	seen := make(map[BitRange]bool)
	for _, r := range in {
		if seen[r] {
			continue
		}
		seen[r] = true
		if n := len(ret); n > 0 && ret[n-1].Lo == r.Hi+1 {
			ret[n-1].Lo = r.Lo
			continue
		}
		ret = append(ret, r)
	}
	return ret
}

// DecodeStep is one "mask, then shift" operation; the results of all of a
// field's steps ORed together give the field's raw value.
type DecodeStep struct {
	Mask       bits64
	RightShift int
}

func (s DecodeStep) String() string {
	switch {
	case s.RightShift == 0:
		return fmt.Sprintf("(inst & %s)", s.Mask.String())
	case s.RightShift < 0:
		return fmt.Sprintf("(inst & %s) << %d", s.Mask.String(), -s.RightShift)
	default:
		return fmt.Sprintf("(inst & %s) >> %d", s.Mask.String(), s.RightShift)
	}
}

func (s DecodeStep) apply(word uint64) uint64 {
	v := word & uint64(s.Mask)
	if s.RightShift < 0 {
		return v << uint(-s.RightShift)
	}
	return v >> uint(s.RightShift)
}

// Placement says which value bits of a field land in which encoding bits.
type Placement struct {
	Inst  BitRange
	Value BitRange
}

func placements(rs []BitRange) []Placement {
	top := totalWidth(rs) - 1
	ret := make([]Placement, 0, len(rs))
	for _, r := range rs {
		ret = append(ret, Placement{
			Inst:  r,
			Value: BitRange{Hi: top, Lo: top - r.Width() + 1},
		})
		top -= r.Width()
	}
	return ret
}

func decodeSteps(rs []BitRange) []DecodeStep {
	ps := placements(rs)
	ret := make([]DecodeStep, 0, len(ps))
	for _, p := range ps {
		ret = append(ret, DecodeStep{
			Mask:       rangeMask(uint(p.Inst.Hi), uint(p.Inst.Lo)),
			RightShift: p.Inst.Lo - p.Value.Lo,
		})
	}
	return ret
}

// encodeValue places the low bits of v into the field's encoding ranges.
func encodeValue(rs []BitRange, v uint64) (value, mask bits64) {
	for _, p := range placements(rs) {
		chunk := (v >> uint(p.Value.Lo)) & ((uint64(1) << uint(p.Inst.Width())) - 1)
		value |= bits64(chunk << uint(p.Inst.Lo))
		mask |= rangeMask(uint(p.Inst.Hi), uint(p.Inst.Lo))
	}
	return value, mask
}
