package conv

import (
	"strings"
	"testing"
)

func TestConfigGet(t *testing.T) {
	cfg := map[string]any{"policy": "strict", "n": 3, "alpha": 0.5, "big": int64(7), "f": 2.9}

	if got := ConfigGet(cfg, "policy", ""); got != "strict" {
		t.Errorf("ConfigGet = %q", got)
	}
	if got := ConfigGet(cfg, "n", "x"); got != "x" {
		t.Errorf("类型不符应返回默认值，得到 %q", got)
	}
	if got := ConfigGet[string](nil, "policy", "d"); got != "d" {
		t.Errorf("nil map 应返回默认值，得到 %q", got)
	}

	tests := map[string]int64{"n": 3, "big": 7, "f": 2, "missing": -1, "policy": -1}
	for key, want := range tests {
		if got := ConfigGetInt64(cfg, key, -1); got != want {
			t.Errorf("ConfigGetInt64(%q) = %d, want %d", key, got, want)
		}
	}

	if v, ok := ToFloat64(cfg["n"]); !ok || v != 3 {
		t.Errorf("ToFloat64(int) = %v %v", v, ok)
	}
	if _, ok := ToFloat64("1"); ok {
		t.Error("字符串不应转换为数字")
	}
}

func TestSliceAnyToString(t *testing.T) {
	tests := []struct {
		in    any
		want  string
		isNil bool
	}{
		{in: []any{"p1", 42, 1.5, true}, want: "p1,42,1.5"},
		{in: []string{"a", "b"}, want: "a,b"},
		{in: "p1", isNil: true},
		{in: nil, isNil: true},
	}
	for _, tt := range tests {
		got := SliceAnyToString(tt.in)
		if tt.isNil {
			if got != nil {
				t.Errorf("%v: 应返回 nil，得到 %v", tt.in, got)
			}
			continue
		}
		if strings.Join(got, ",") != tt.want {
			t.Errorf("%v: 得到 %v, want %s", tt.in, got, tt.want)
		}
	}
}
