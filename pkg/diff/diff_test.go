package diff

import (
	"errors"
	"math"
	"testing"

	"github.com/criyle/go-grader/types"
)

type point struct {
	X, Y int
}

type hidden struct {
	name string
	n    int
}

func TestCompare_Equal(t *testing.T) {
	tests := []struct {
		name     string
		exp, act any
	}{
		{"ints", 3, 3},
		{"int vs float", 3, 3.0},
		{"int vs uint", int64(7), uint8(7)},
		{"float tolerance", 0.1 + 0.2, 0.3},
		{"strings", "abc", "abc"},
		{"bools", true, true},
		{"nil", nil, nil},
		{"slices", []int{1, 2, 3}, []float64{1, 2, 3}},
		{"array vs slice", [2]string{"a", "b"}, []any{"a", "b"}},
		{"nested", [][]int{{1}, {2, 3}}, []any{[]any{1}, []any{2.0, 3}}},
		{"maps", map[string]int{"a": 1}, map[string]any{"a": 1.0}},
		{"int keys", map[int]string{1: "x"}, map[string]string{"1": "x"}},
		{"struct vs map", point{1, 2}, map[string]any{"X": 1, "Y": 2}},
		{"pointer", &point{1, 2}, point{1, 2}},
		{"unexported fields", hidden{"a", 1}, hidden{"a", 1}},
		{"nan", math.NaN(), math.NaN()},
		{"nil vs empty slice", []int(nil), []int{}},
		{"large ints", int64(9007199254740993), uint64(9007199254740993)},
		{"max uint", uint64(math.MaxUint64), uint(math.MaxUint64)},
		{"negative", int8(-5), int64(-5)},
		{"int vs float within tolerance", 1000000000, 1000000000.0000001},
		{"infinity", math.Inf(-1), math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Default.Compare(tt.exp, tt.act); err != nil {
				t.Errorf("expected equal, got %v", err)
			}
		})
	}
}

func TestCompare_Mismatch(t *testing.T) {
	tests := []struct {
		name     string
		exp, act any
	}{
		{"ints", 3, -1},
		{"strings", "abc", "abd"},
		{"length", []int{1, 2}, []int{1, 2, 3}},
		{"nested type", []any{1, "a"}, []any{1, 2}},
		{"map key", map[string]int{"a": 1}, map[string]int{"b": 1}},
		{"nil vs value", nil, 4},
		{"beyond tolerance", 1.0, 1.0001},
		{"large ints off by one", int64(1000000000), int64(1000000001)},
		{"beyond float precision", int64(9007199254740993), int64(9007199254740992)},
		{"int64 vs uint64", int64(123456789012), uint64(123456789013)},
		{"negative vs unsigned", int64(-1), uint64(math.MaxUint64)},
		{"nested large ints", []int{1, 1000000000}, []int{1, 1000000001}},
		{"infinities", math.Inf(1), math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Default.Compare(tt.exp, tt.act)
			var me *MismatchError
			if !errors.As(err, &me) {
				t.Fatalf("expected MismatchError, got %v", err)
			}
			if me.Diff == "" {
				t.Error("expected a diff")
			}
		})
	}
}

func TestCompare_Uncomparable(t *testing.T) {
	tests := []struct {
		name     string
		exp, act any
	}{
		{"number vs string", 3, "3"},
		{"list vs number", []int{1}, 1},
		{"func", func() {}, func() {}},
		{"channel", 1, make(chan int)},
		{"complex", complex(1, 2), complex(1, 2)},
		{"opaque", Opaque{Type: "func()"}, Opaque{Type: "func()"}},
		{"nested opaque", []any{Opaque{Type: "chan int"}}, []any{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Default.Compare(tt.exp, tt.act)
			if !errors.Is(err, types.ErrUncomparable) {
				t.Errorf("expected ErrUncomparable, got %v", err)
			}
		})
	}
}

func TestCompare_Exact(t *testing.T) {
	if err := (Values{}).Compare(0.1+0.2, 0.3); err == nil {
		t.Error("zero tolerance should not equate 0.1+0.2 and 0.3")
	}
}

func TestNormalize_KeepsIntegers(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{int32(-3), int64(-3)},
		{uint16(3), uint64(3)},
		{float32(0.5), 0.5},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("Normalize(%#v) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_TooDeep(t *testing.T) {
	var v any = 1
	for i := 0; i < maxDepth+2; i++ {
		v = []any{v}
	}
	if _, err := Normalize(v); err == nil {
		t.Error("expected error for deep value")
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{3, "3"},
		{2.5, "2.5"},
		{"a", `"a"`},
		{[]int{1, 2}, "[1,2]"},
		{map[string]int{"b": 2, "a": 1}, `{"a":1,"b":2}`},
		{nil, "null"},
		{math.Inf(1), "+Inf"},
		{int64(9007199254740993), "9007199254740993"},
		{Opaque{Type: "func(int) int"}, "<func(int) int>"},
		{point{1, 2}, `{"X":1,"Y":2}`},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%#v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
