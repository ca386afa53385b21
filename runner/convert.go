package runner

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/criyle/go-grader/types"
)

// convertArgs converts decoded literals to the parameter types of ft
func convertArgs(ft reflect.Type, args types.ArgumentSet) ([]reflect.Value, error) {
	n := ft.NumIn()
	if ft.IsVariadic() {
		if len(args) < n-1 {
			return nil, fmt.Errorf("called with %d arguments, function takes at least %d", len(args), n-1)
		}
	} else if len(args) != n {
		return nil, fmt.Errorf("called with %d arguments, function takes %d", len(args), n)
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		t := paramType(ft, i)
		v, err := convert(a, t)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in[i] = v
	}
	return in, nil
}

func paramType(ft reflect.Type, i int) reflect.Type {
	if ft.IsVariadic() && i >= ft.NumIn()-1 {
		return ft.In(ft.NumIn() - 1).Elem()
	}
	return ft.In(i)
}

// convert converts a decoded literal (nil, bool, int64, uint64, float64,
// string, []any, map[string]any) to a value of type t
func convert(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("can not use null as %v", t)
	}

	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Interface:
		av := reflect.ValueOf(a)
		if !av.Type().Implements(t) {
			return reflect.Value{}, fmt.Errorf("can not use %v as %v", av.Type(), t)
		}
		// every call gets its own lists and mappings
		v.Set(reflect.ValueOf(copyValue(a)))

	case reflect.Bool:
		b, ok := a.(bool)
		if !ok {
			return reflect.Value{}, mismatch(a, t)
		}
		v.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := toInt(a)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%v: %w", t, err)
		}
		if v.OverflowInt(i) {
			return reflect.Value{}, fmt.Errorf("%d overflows %v", i, t)
		}
		v.SetInt(i)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := toUint(a)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%v: %w", t, err)
		}
		if v.OverflowUint(u) {
			return reflect.Value{}, fmt.Errorf("%d overflows %v", u, t)
		}
		v.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, ok := toFloat(a)
		if !ok {
			return reflect.Value{}, mismatch(a, t)
		}
		v.SetFloat(f)

	case reflect.String:
		s, ok := a.(string)
		if !ok {
			return reflect.Value{}, mismatch(a, t)
		}
		v.SetString(s)

	case reflect.Slice:
		if s, ok := a.(string); ok && (t.Elem().Kind() == reflect.Uint8 || t.Elem().Kind() == reflect.Int32) {
			// []byte / []rune from text
			return reflect.ValueOf(s).Convert(t), nil
		}
		l, ok := a.([]any)
		if !ok {
			return reflect.Value{}, mismatch(a, t)
		}
		v = reflect.MakeSlice(t, len(l), len(l))
		for i, e := range l {
			ev, err := convert(e, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			v.Index(i).Set(ev)
		}

	case reflect.Array:
		l, ok := a.([]any)
		if !ok || len(l) != t.Len() {
			return reflect.Value{}, mismatch(a, t)
		}
		for i, e := range l {
			ev, err := convert(e, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			v.Index(i).Set(ev)
		}

	case reflect.Map:
		m, err := toMap(a)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%v: %w", t, err)
		}
		v = reflect.MakeMapWithSize(t, len(m))
		for k, e := range m {
			kv, err := convertKey(k, t.Key())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			ev, err := convert(e, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			v.SetMapIndex(kv, ev)
		}

	case reflect.Struct:
		m, err := toMap(a)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%v: %w", t, err)
		}
		for k, e := range m {
			f := fieldByName(v, k)
			if !f.IsValid() || !f.CanSet() {
				return reflect.Value{}, fmt.Errorf("%v has no settable field %q", t, k)
			}
			ev, err := convert(e, f.Type())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("field %s: %w", k, err)
			}
			f.Set(ev)
		}

	case reflect.Pointer:
		ev, err := convert(a, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(ev)
		return p, nil

	default:
		return reflect.Value{}, fmt.Errorf("unsupported parameter type %v", t)
	}
	return v, nil
}

// copyValue deep copies the lists and mappings of a decoded literal. Lists
// always come back non-nil, which gob does not preserve.
func copyValue(a any) any {
	switch a := a.(type) {
	case []any:
		rt := make([]any, len(a))
		for i, e := range a {
			rt[i] = copyValue(e)
		}
		return rt
	case map[string]any:
		rt := make(map[string]any, len(a))
		for k, e := range a {
			rt[k] = copyValue(e)
		}
		return rt
	}
	return a
}

func mismatch(a any, t reflect.Type) error {
	return fmt.Errorf("can not use %v (%T) as %v", a, a, t)
}

func toFloat(a any) (float64, bool) {
	switch n := a.(type) {
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toInt(a any) (int64, error) {
	switch n := a.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	}
	return 0, fmt.Errorf("%v (%T) is not a number", a, a)
}

func toUint(a any) (uint64, error) {
	switch n := a.(type) {
	case uint64:
		return n, nil
	case int64, int:
		i, _ := toInt(n)
		if i < 0 {
			return 0, fmt.Errorf("%d is negative", i)
		}
		return uint64(i), nil
	case float64:
		if n != math.Trunc(n) || n < 0 || n >= math.MaxUint64 {
			return 0, fmt.Errorf("%v is not an unsigned integer", n)
		}
		return uint64(n), nil
	}
	return 0, fmt.Errorf("%v (%T) is not a number", a, a)
}

func toMap(a any) (map[string]any, error) {
	switch m := a.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		rt := make(map[string]any, len(m))
		for k, v := range m {
			rt[fmt.Sprint(k)] = v
		}
		return rt, nil
	}
	return nil, fmt.Errorf("%v (%T) is not a mapping", a, a)
}

// convertKey converts a mapping key, which is always text after decoding
func convertKey(k string, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(k).Convert(t), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(k)
		if err != nil {
			return reflect.Value{}, err
		}
		return convert(b, t)
	}
	if i, err := strconv.ParseInt(k, 10, 64); err == nil {
		return convert(i, t)
	}
	f, err := strconv.ParseFloat(k, 64)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("can not use %q as %v", k, t)
	}
	return convert(f, t)
}

func fieldByName(v reflect.Value, name string) reflect.Value {
	if f := v.FieldByName(name); f.IsValid() {
		return f
	}
	return v.FieldByNameFunc(func(n string) bool {
		return strings.EqualFold(n, name)
	})
}
