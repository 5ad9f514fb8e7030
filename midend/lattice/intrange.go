package lattice

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// intProto is the raw, possibly redundant description of an integer set:
// a signed range, an unsigned range and known bits. canonicalize tightens
// the three views against each other before a type is interned, so equal
// sets always produce identical field values.
type intProto[T constraints.Signed, U constraints.Unsigned] struct {
	lo, hi      T
	ulo, uhi    U
	zeros, ones U
}

func bitLen[U constraints.Unsigned](v U) int { return bits.Len64(uint64(v)) }

func signBit[U constraints.Unsigned]() U {
	return U(1) << (bitLen(^U(0)) - 1)
}

// adjustLo returns the smallest value >= v that has no bit from zeros set
// and every bit from ones set. ok is false when no such value exists.
func adjustLo[U constraints.Unsigned](v, zeros, ones U) (U, bool) {
	for {
		zv := v & zeros
		ov := ones &^ v
		if zv == 0 && ov == 0 {
			return v, true
		}
		if zv == 0 || (ov != 0 && bitLen(ov) > bitLen(zv)) {
			// highest violation is a must-one bit that is clear: set it and
			// drop everything below to the minimum the bits allow
			i := bitLen(ov) - 1
			mask := U(1)<<i - 1
			return (v &^ mask) | U(1)<<i | (ones & mask), true
		}
		// highest violation is a must-zero bit that is set: carry past it
		i := bitLen(zv) - 1
		mask := U(1)<<(i+1) - 1
		v = (v &^ mask) + mask + 1
		if v == 0 {
			return 0, false
		}
	}
}

// adjustHi is the mirror of adjustLo: the largest value <= v satisfying
// the bit constraints.
func adjustHi[U constraints.Unsigned](v, zeros, ones U) (U, bool) {
	for {
		zv := v & zeros
		ov := ones &^ v
		if zv == 0 && ov == 0 {
			return v, true
		}
		if ov == 0 || (zv != 0 && bitLen(zv) > bitLen(ov)) {
			// highest violation is a must-zero bit that is set: clear it and
			// saturate everything below
			i := bitLen(zv) - 1
			mask := U(1)<<i - 1
			return (v &^ (mask | U(1)<<i)) | (mask &^ zeros), true
		}
		// highest violation is a must-one bit that is clear: no value with
		// this prefix works, borrow from above it
		i := bitLen(ov) - 1
		mask := U(1)<<(i+1) - 1
		if v&^mask == 0 {
			return 0, false
		}
		v = (v &^ mask) - 1
	}
}

type uival[U constraints.Unsigned] struct{ lo, hi U }

// canonicalize runs rounds of mutual tightening until the prototype stops
// changing. ok is false when the constraints admit no value.
func canonicalize[T constraints.Signed, U constraints.Unsigned](p intProto[T, U]) (intProto[T, U], bool) {
	if p.zeros&p.ones != 0 {
		return p, false
	}
	for {
		q, ok := canonicalizeRound(p)
		if !ok {
			return p, false
		}
		if q == p {
			return q, true
		}
		p = q
	}
}

func canonicalizeRound[T constraints.Signed, U constraints.Unsigned](p intProto[T, U]) (intProto[T, U], bool) {
	if p.lo > p.hi || p.ulo > p.uhi {
		return p, false
	}
	sign := signBit[U]()

	// the signed range maps to one or two contiguous unsigned intervals
	var raw [2]uival[U]
	n := 0
	switch {
	case p.lo >= 0 || p.hi < 0:
		raw[0] = uival[U]{U(p.lo), U(p.hi)}
		n = 1
	default:
		raw[0] = uival[U]{0, U(p.hi)}
		raw[1] = uival[U]{U(p.lo), ^U(0)}
		n = 2
	}

	// clip against the unsigned range, then pull each bound onto the
	// nearest value the known bits allow
	var out [2]uival[U]
	m := 0
	for _, iv := range raw[:n] {
		a := max(iv.lo, p.ulo)
		b := min(iv.hi, p.uhi)
		if a > b {
			continue
		}
		a2, ok := adjustLo(a, p.zeros, p.ones)
		if !ok || a2 > b {
			continue
		}
		b2, ok := adjustHi(b, p.zeros, p.ones)
		if !ok || b2 < a2 {
			continue
		}
		out[m] = uival[U]{a2, b2}
		m++
	}
	if m == 0 {
		return p, false
	}

	q := p
	q.ulo = out[0].lo
	q.uhi = out[m-1].hi

	// each surviving interval lies entirely on one side of the sign bit,
	// and negative values sort above positive ones unsigned
	first, last := out[0], out[m-1]
	if last.lo&sign != 0 {
		q.lo = T(last.lo)
	} else {
		q.lo = T(first.lo)
	}
	if first.hi&sign == 0 {
		q.hi = T(first.hi)
	} else {
		q.hi = T(last.hi)
	}

	// bits shared by every value of [ulo, uhi] are known bits
	w := bitLen(q.ulo ^ q.uhi)
	prefix := ^U(0) << w
	q.zeros |= ^q.ulo & prefix
	q.ones |= q.ulo & prefix
	return q, true
}
