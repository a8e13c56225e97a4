package field

import (
	"math"
	"reflect"
	"strings"
)

// Kind is the type tag of a field. A field's kind is fixed when the field is
// created.
type Kind uint8

const (
	// KindInvalid is the kind of the explicit invalid value.
	KindInvalid Kind = iota
	// KindBoolean holds a bool.
	KindBoolean
	// KindInteger holds an int32.
	KindInteger
	// KindLongInteger holds an int64.
	KindLongInteger
	// KindFloat holds a float32.
	KindFloat
	// KindDouble holds a float64.
	KindDouble
	// KindString holds a string.
	KindString
	// KindArray holds a []interface{}.
	KindArray
	// KindAssocArray holds a map[string]interface{}.
	KindAssocArray
	// KindNode holds a NodeRef or Invalid.
	KindNode
	// KindDynamic accepts any value. Fields created implicitly by silent
	// writes are dynamic.
	KindDynamic
)

var kindNames = []string{
	"invalid",
	"boolean",
	"integer",
	"longinteger",
	"float",
	"double",
	"string",
	"array",
	"assocarray",
	"node",
	"dynamic",
}

// String returns the type tag as used in snapshots and getFieldTypes.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind parses a type tag. Tag matching is case-insensitive and accepts
// a few common aliases.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(s)
	switch s {
	case "bool":
		return KindBoolean, true
	case "int":
		return KindInteger, true
	case "str":
		return KindString, true
	case "roarray":
		return KindArray, true
	case "roassociativearray", "assocarray", "object":
		return KindAssocArray, true
	}
	for i, n := range kindNames {
		if n == s {
			return Kind(i), true
		}
	}
	return KindInvalid, false
}

func (k Kind) numeric() bool {
	return k == KindInteger || k == KindLongInteger || k == KindFloat || k == KindDouble
}

func (k Kind) scalar() bool {
	return k.numeric() || k == KindBoolean || k == KindString
}

// NodeRef is implemented by node values stored in node-typed fields. The
// field package only needs identity and the dirty flag.
type NodeRef interface {
	Address() string
	Changed() bool
}

// InvalidValue is the type of Invalid.
type InvalidValue struct{}

// Invalid is the explicit invalid value. It is distinct from an absent
// field.
var Invalid = InvalidValue{}

// IsInvalid returns true for nil and Invalid.
func IsInvalid(v interface{}) bool {
	if v == nil {
		return true
	}
	_, ok := v.(InvalidValue)
	return ok
}

// KindOf returns the kind of a Go value. Untyped Go ints become integers when
// they fit in 32 bits and long integers otherwise.
func KindOf(v interface{}) Kind {
	switch t := v.(type) {
	case nil, InvalidValue:
		return KindInvalid
	case bool:
		return KindBoolean
	case int8, int16, int32, uint8, uint16:
		return KindInteger
	case int:
		if t >= math.MinInt32 && t <= math.MaxInt32 {
			return KindInteger
		}
		return KindLongInteger
	case uint32:
		if t <= math.MaxInt32 {
			return KindInteger
		}
		return KindLongInteger
	case int64, uint, uint64:
		return KindLongInteger
	case float32:
		return KindFloat
	case float64:
		return KindDouble
	case string:
		return KindString
	case []interface{}:
		return KindArray
	case map[string]interface{}:
		return KindAssocArray
	case NodeRef:
		return KindNode
	}
	return KindDynamic
}

func toInt64(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint:
		return int64(t), true
	case uint64:
		return int64(t), true
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// Normalize converts Go scalar types to the canonical representation of their
// kind (int32, int64, float32, float64). Arrays and maps are normalized
// recursively.
func Normalize(v interface{}) interface{} {
	switch KindOf(v) {
	case KindInvalid:
		return Invalid
	case KindInteger:
		i, _ := toInt64(v)
		return int32(i)
	case KindLongInteger:
		i, _ := toInt64(v)
		return i
	case KindArray:
		a := v.([]interface{})
		for i := range a {
			a[i] = Normalize(a[i])
		}
		return a
	case KindAssocArray:
		m := v.(map[string]interface{})
		for k := range m {
			m[k] = Normalize(m[k])
		}
		return m
	}
	return v
}

// Coerce converts v to the representation of kind k. Allowed conversions are
// numeric widening (and float/double interchange), boolean<->string, and
// scalar to single-element array. Invalid is accepted by node, array,
// assocarray and dynamic fields.
func Coerce(k Kind, v interface{}) (interface{}, bool) {
	src := KindOf(v)

	switch k {
	case KindDynamic:
		return Normalize(v), true
	case KindInvalid:
		return Invalid, src == KindInvalid
	case KindBoolean:
		switch src {
		case KindBoolean:
			return v, true
		case KindString:
			switch strings.ToLower(strings.TrimSpace(v.(string))) {
			case "true":
				return true, true
			case "false":
				return false, true
			}
		}
	case KindString:
		switch src {
		case KindString:
			return v, true
		case KindBoolean:
			if v.(bool) {
				return "true", true
			}
			return "false", true
		}
	case KindInteger:
		if src == KindInteger {
			i, _ := toInt64(v)
			return int32(i), true
		}
	case KindLongInteger:
		if src == KindInteger || src == KindLongInteger {
			i, _ := toInt64(v)
			return i, true
		}
	case KindFloat:
		if src == KindInteger || src == KindFloat || src == KindDouble {
			f, _ := toFloat64(v)
			return float32(f), true
		}
	case KindDouble:
		if src.numeric() {
			f, _ := toFloat64(v)
			return f, true
		}
	case KindArray:
		switch {
		case src == KindArray:
			return Normalize(v), true
		case src == KindInvalid:
			return Invalid, true
		case src.scalar() || src == KindNode:
			return []interface{}{Normalize(v)}, true
		}
	case KindAssocArray:
		switch src {
		case KindAssocArray:
			return Normalize(v), true
		case KindInvalid:
			return Invalid, true
		}
	case KindNode:
		switch src {
		case KindNode:
			return v, true
		case KindInvalid:
			return Invalid, true
		}
	}

	return nil, false
}

// Equal compares two values the way a field decides whether a write changed
// it: numbers by value, strings and booleans by value, nodes by identity and
// dirty flag, everything else structurally.
func Equal(a, b interface{}) bool {
	ka, kb := KindOf(a), KindOf(b)

	if ka.numeric() && kb.numeric() {
		if ia, ok := toInt64(a); ok {
			if ib, ok := toInt64(b); ok {
				return ia == ib
			}
		}
		fa, _ := toFloat64(a)
		fb, _ := toFloat64(b)
		return fa == fb
	}

	if ka != kb {
		return false
	}

	switch ka {
	case KindInvalid:
		return true
	case KindBoolean:
		return a.(bool) == b.(bool)
	case KindString:
		return a.(string) == b.(string)
	case KindNode:
		return a.(NodeRef) == b.(NodeRef) && !b.(NodeRef).Changed()
	}

	return reflect.DeepEqual(a, b)
}

// Copy returns a deep copy of arrays and assocarrays. Nodes and scalars are
// returned as is.
func Copy(v interface{}) interface{} {
	switch t := v.(type) {
	case []interface{}:
		res := make([]interface{}, len(t))
		for i, e := range t {
			res[i] = Copy(e)
		}
		return res
	case map[string]interface{}:
		res := make(map[string]interface{}, len(t))
		for k, e := range t {
			res[k] = Copy(e)
		}
		return res
	}
	return v
}

// Zero returns the default value of a kind.
func Zero(k Kind) interface{} {
	switch k {
	case KindBoolean:
		return false
	case KindInteger:
		return int32(0)
	case KindLongInteger:
		return int64(0)
	case KindFloat:
		return float32(0)
	case KindDouble:
		return float64(0)
	case KindString:
		return ""
	case KindArray:
		return []interface{}{}
	case KindAssocArray:
		return map[string]interface{}{}
	}
	return Invalid
}

// Convert is Coerce plus the lossless numeric narrowing needed for values
// that went through a wire codec, which decodes integers as 64 bits and
// floats as doubles.
func Convert(k Kind, v interface{}) (interface{}, bool) {
	if res, ok := Coerce(k, v); ok {
		return res, true
	}

	f, isNum := toFloat64(v)
	if !isNum {
		return nil, false
	}

	switch k {
	case KindInteger:
		if f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 {
			return int32(f), true
		}
	case KindLongInteger:
		if i, ok := toInt64(v); ok {
			return i, true
		}
		if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
			return int64(f), true
		}
	case KindFloat:
		return float32(f), true
	}

	return nil, false
}
