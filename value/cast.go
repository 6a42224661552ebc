package value

import (
	"errors"
	"fmt"
	"math"
)

// ErrCastFailed is wrapped by every cast failure.
var ErrCastFailed = errors.New("cast failed")

// Cast converts src into target and writes the result to dst. With
// checkOnly set it only reports whether the conversion is possible and dst
// is left untouched.
func Cast(src *Value, target *Type, dst *Value, checkOnly bool) error {
	if target == nil || target == AnyType || src.Type() == target {
		if !checkOnly {
			Copy(src, dst)
		}
		return nil
	}
	if target.Cast == nil {
		return castError(src, target)
	}
	return target.Cast(src, dst, checkOnly)
}

func castError(src *Value, target *Type) error {
	return fmt.Errorf("%w: cannot cast %s to %s", ErrCastFailed, src.Type().Name, target.Name)
}

func castToInt(src, dst *Value, checkOnly bool) error {
	switch src.Kind() {
	case KindInt:
		if !checkOnly {
			Copy(src, dst)
		}
		return nil
	case KindFloat:
		f, _ := src.AsFloat()
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("%w: %s is not integral", ErrCastFailed, FormatFloat(f))
		}
		if f < -1<<63 || f >= 1<<63 {
			return fmt.Errorf("%w: %s is out of int range", ErrCastFailed, FormatFloat(f))
		}
		if !checkOnly {
			dst.SetInt(int64(f))
		}
		return nil
	}
	return castError(src, IntType)
}

func castToFloat(src, dst *Value, checkOnly bool) error {
	f, ok := src.AsFloat()
	if !ok {
		return castError(src, FloatType)
	}
	if !checkOnly {
		dst.SetFloat(f)
	}
	return nil
}

func castToString(src, dst *Value, checkOnly bool) error {
	switch src.Kind() {
	case KindString, KindInt, KindFloat, KindBool:
		if !checkOnly {
			dst.SetString(src.String())
		}
		return nil
	}
	return castError(src, StringType)
}
