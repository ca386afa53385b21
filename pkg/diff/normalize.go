package diff

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

const maxDepth = 64

var errTooDeep = errors.New("value nested too deeply")

// Opaque stands in for a value that could not be normalized where it was
// produced. It never compares equal to anything.
type Opaque struct {
	Type   string
	Reason string
}

var opaqueType = reflect.TypeOf(Opaque{})

// Normalize converts v into a plain tree of nil, bool, int64, uint64,
// float64, string, []any and map[string]any. Structs become mappings of their field names,
// pointers and interfaces are followed. Functions, channels and complex
// numbers can not be normalized.
//
// Only reflect accessors are used so values with unexported fields (e.g.
// types declared by interpreted code) are readable.
func Normalize(v any) (any, error) {
	return normalize(reflect.ValueOf(v), 0)
}

func normalize(v reflect.Value, depth int) (any, error) {
	if depth > maxDepth {
		return nil, errTooDeep
	}
	if !v.IsValid() {
		return nil, nil
	}
	if v.Type() == opaqueType {
		return nil, fmt.Errorf("%s: %s", v.Field(0).String(), v.Field(1).String())
	}
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return normalize(v.Elem(), depth+1)
	case reflect.Slice:
		if v.IsNil() {
			return []any{}, nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, v.Len())
		for i := range out {
			e, err := normalize(v.Index(i), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case reflect.Map:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			k, err := normalize(iter.Key(), depth+1)
			if err != nil {
				return nil, err
			}
			e, err := normalize(iter.Value(), depth+1)
			if err != nil {
				return nil, err
			}
			out[keyString(k)] = e
		}
		return out, nil
	case reflect.Struct:
		t := v.Type()
		out := make(map[string]any, v.NumField())
		for i := 0; i < v.NumField(); i++ {
			e, err := normalize(v.Field(i), depth+1)
			if err != nil {
				return nil, err
			}
			out[t.Field(i).Name] = e
		}
		return out, nil
	}
	return nil, fmt.Errorf("can not compare values of kind %s", v.Kind())
}

func keyString(k any) string {
	switch k := k.(type) {
	case string:
		return k
	case int64:
		return strconv.FormatInt(k, 10)
	case uint64:
		return strconv.FormatUint(k, 10)
	case float64:
		return strconv.FormatFloat(k, 'g', -1, 64)
	}
	return fmt.Sprint(k)
}

// Format renders a value for feedback text. Normalizable values are
// rendered as JSON, others with %v.
func Format(v any) string {
	if o, ok := v.(Opaque); ok {
		return "<" + o.Type + ">"
	}
	n, err := Normalize(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	if f, ok := n.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Sprintf("%v", n)
	}
	return string(b)
}
