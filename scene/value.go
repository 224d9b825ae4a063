package scene

import (
	"math"

	"github.com/pkg/errors"

	"github.com/chabad360/oscbind/host"
)

// normalize checks that value fits kind and returns the stored representation.
func normalize(kind host.Kind, value any) (any, error) {
	switch kind {
	case host.KindBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case []bool:
			return append([]bool(nil), v...), nil
		}
	case host.KindInt, host.KindEnum:
		switch v := value.(type) {
		case int:
			return v, nil
		case []int:
			return append([]int(nil), v...), nil
		}
	case host.KindFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case []float64:
			return append([]float64(nil), v...), nil
		}
	case host.KindOther:
		if s, ok := value.(string); ok {
			return s, nil
		}
	}
	return nil, errors.Wrapf(host.ErrInvalidValue, "%T is not a %s value", value, kind)
}

// convert checks v against the element type of a and returns it in that type.
// Ints are accepted for float attributes; nothing else is converted.
func convert(a *attribute, v any) (any, error) {
	switch a.kind {
	case host.KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case host.KindInt:
		if i, ok := v.(int); ok {
			return i, nil
		}
	case host.KindEnum:
		if i, ok := v.(int); ok {
			if i < 0 || i >= len(a.enum) {
				return nil, errors.Wrapf(host.ErrInvalidValue, "enum index %d out of range [0,%d)", i, len(a.enum))
			}
			return i, nil
		}
	case host.KindFloat:
		switch f := v.(type) {
		case float64:
			return f, nil
		case int:
			return float64(f), nil
		}
	case host.KindOther:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return nil, errors.Wrapf(host.ErrInvalidValue, "cannot assign %T to a %s attribute", v, a.kind)
}

// toFloat returns the numeric value a keyframe records.
func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case int:
		return float64(t), nil
	case float64:
		return t, nil
	}
	return 0, errors.Wrapf(host.ErrInvalidValue, "%T cannot be keyed", v)
}

// fromFloat turns an evaluated curve value back into the attribute's type.
func fromFloat(kind host.Kind, f float64) any {
	switch kind {
	case host.KindBool:
		return f >= 0.5
	case host.KindInt, host.KindEnum:
		return int(math.Round(f))
	default:
		return f
	}
}

func isVector(v any) bool {
	switch v.(type) {
	case []float64, []int, []bool:
		return true
	}
	return false
}

func copyValue(v any) any {
	switch t := v.(type) {
	case []float64:
		return append([]float64(nil), t...)
	case []int:
		return append([]int(nil), t...)
	case []bool:
		return append([]bool(nil), t...)
	}
	return v
}
