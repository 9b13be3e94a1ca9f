package v1

import (
	"bytes"
	"encoding/json"
	"sort"
)

// ParamType indicates the shape of a ParamValue
type ParamType string

const (
	ParamTypeString ParamType = "string"
	ParamTypeArray  ParamType = "array"
	ParamTypeObject ParamType = "object"
)

// Param declares a value to use for a named task parameter
type Param struct {
	Name  string     `json:"name"`
	Value ParamValue `json:"value"`
}

// ParamValue holds a string, an array of strings or an object of strings.
// On the wire it is the bare JSON value, the same as Tekton.
type ParamValue struct {
	Type      ParamType
	StringVal string
	ArrayVal  []string
	ObjectVal map[string]string
}

// NewStringValue returns a string ParamValue
func NewStringValue(s string) ParamValue {
	return ParamValue{Type: ParamTypeString, StringVal: s}
}

// NewArrayValue returns an array ParamValue
func NewArrayValue(items ...string) ParamValue {
	return ParamValue{Type: ParamTypeArray, ArrayVal: items}
}

// NewObjectValue returns an object ParamValue
func NewObjectValue(obj map[string]string) ParamValue {
	return ParamValue{Type: ParamTypeObject, ObjectVal: obj}
}

// UnmarshalJSON decodes a bare JSON string, array or object.
// Scalars other than strings keep their literal text.
func (p *ParamValue) UnmarshalJSON(data []byte) error {
	*p = ParamValue{Type: ParamTypeString}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '"':
		return json.Unmarshal(trimmed, &p.StringVal)
	case '[':
		p.Type = ParamTypeArray
		return json.Unmarshal(trimmed, &p.ArrayVal)
	case '{':
		p.Type = ParamTypeObject
		return json.Unmarshal(trimmed, &p.ObjectVal)
	default:
		p.StringVal = string(trimmed)
		return nil
	}
}

// MarshalJSON encodes the value in its bare form
func (p ParamValue) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case ParamTypeArray:
		if p.ArrayVal == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(p.ArrayVal)
	case ParamTypeObject:
		if p.ObjectVal == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(p.ObjectVal)
	default:
		return json.Marshal(p.StringVal)
	}
}

// Strings returns every string carried by the value.
// Object values are returned in key order.
func (p ParamValue) Strings() []string {
	switch p.Type {
	case ParamTypeArray:
		return p.ArrayVal
	case ParamTypeObject:
		keys := make([]string, 0, len(p.ObjectVal))
		for k := range p.ObjectVal {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		values := make([]string, 0, len(keys))
		for _, k := range keys {
			values = append(values, p.ObjectVal[k])
		}
		return values
	default:
		if p.StringVal == "" {
			return nil
		}
		return []string{p.StringVal}
	}
}
