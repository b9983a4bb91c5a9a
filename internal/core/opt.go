package core

import (
	"math"
	"strconv"
)

// Opt is a float64 that may be undefined. Undefined is distinct from zero:
// a missing previous month yields None, a flat month yields Some(0).
type Opt struct {
	v  float64
	ok bool
}

// None is the undefined value.
var None Opt

// Some wraps v. NaN and infinities are folded into None.
func Some(v float64) Opt {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return None
	}
	return Opt{v: v, ok: true}
}

func (o Opt) Get() (float64, bool) { return o.v, o.ok }

func (o Opt) Valid() bool { return o.ok }

// Or returns the value or def when undefined.
func (o Opt) Or(def float64) float64 {
	if !o.ok {
		return def
	}
	return o.v
}

// Ratio divides num by den, undefined when den is zero.
func Ratio(num, den float64) Opt {
	if den == 0 {
		return None
	}
	return Some(num / den)
}

// Change is (cur - prev) / prev, undefined when prev is undefined or zero.
func Change(cur float64, prev Opt) Opt {
	p, ok := prev.Get()
	if !ok {
		return None
	}
	return Ratio(cur-p, p)
}

func (o Opt) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, o.v, 'f', -1, 64), nil
}

func (o *Opt) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = None
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

func (o Opt) String() string {
	if !o.ok {
		return "n/a"
	}
	return strconv.FormatFloat(o.v, 'f', -1, 64)
}
