package bind

import (
	"math"

	"github.com/pkg/errors"

	"github.com/chabad360/oscbind/host"
)

// KindOf reports the type of owner.attr, or of its element at index when
// hasIndex is set. Objects implementing host.Introspector are asked first;
// otherwise the runtime type of the current value decides.
func KindOf(owner host.Object, attr string, index int, hasIndex bool) host.Kind {
	if in, ok := owner.(host.Introspector); ok {
		if k, ok := in.AttrKind(attr); ok {
			return k
		}
	}

	var (
		v   any
		err error
	)
	if hasIndex {
		v, err = owner.GetIndex(attr, index)
	} else {
		v, err = owner.Get(attr)
	}
	if err != nil {
		return host.KindUnknown
	}

	switch v.(type) {
	case bool:
		return host.KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return host.KindInt
	case float32, float64:
		return host.KindFloat
	default:
		return host.KindOther
	}
}

// Coerce converts v to the type of the target attribute. Booleans are true
// for v > 0. Integers and enumeration indices round half to even, so 2.5
// becomes 2 and 3.5 becomes 4. Everything else receives v unchanged.
func Coerce(owner host.Object, attr string, index int, hasIndex bool, v float64) (any, error) {
	switch KindOf(owner, attr, index, hasIndex) {
	case host.KindBool:
		return v > 0, nil
	case host.KindInt, host.KindEnum:
		return toInt(v)
	default:
		return v, nil
	}
}

func toInt(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Wrapf(host.ErrInvalidValue, "cannot convert %v to an integer", v)
	}
	r := math.RoundToEven(v)
	if r > math.MaxInt32 || r < math.MinInt32 {
		return 0, errors.Wrapf(host.ErrInvalidValue, "%v overflows an integer attribute", v)
	}
	return int(r), nil
}
