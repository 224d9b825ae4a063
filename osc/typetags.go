package osc

import "errors"

type TypeTag rune

const (
	TypeInt32   TypeTag = 'i'
	TypeFloat32 TypeTag = 'f'
	TypeFloat64 TypeTag = 'd'
	TypeInvalid TypeTag = 0
)

// ErrUnsupportedType is returned for arguments and type tags outside of f, i and d.
var ErrUnsupportedType = errors.New("unsupported type")

// ToTypeTag returns the OSC TypeTag for the given argument.
// Returns TypeInvalid if the argument type is unsupported.
func ToTypeTag(arg interface{}) TypeTag {
	switch arg.(type) {
	case int32:
		return TypeInt32
	case float32:
		return TypeFloat32
	case float64:
		return TypeFloat64
	default:
		return TypeInvalid
	}
}

// argSize returns the number of payload bytes used by an argument of the given tag.
func argSize(t TypeTag) int {
	switch t {
	case TypeInt32, TypeFloat32:
		return bit32Size
	case TypeFloat64:
		return bit64Size
	default:
		return 0
	}
}

// GetTypeTag returns the OSC TypeTag string for the given slice.
func GetTypeTag(i []interface{}) (string, error) {
	tt := make([]byte, len(i)+1)
	if _, err := writeTypeTags(i, tt); err != nil {
		return "", err
	}
	return string(tt), nil
}
