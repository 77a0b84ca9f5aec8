package main

import (
	"testing"
)

func TestParseDirections(t *testing.T) {
	dir, err := parseDirections([]string{"comp.x=1", "lin.x=0.5, -2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(dir["comp.x"]) != 1 || dir["comp.x"][0] != 1 {
		t.Errorf("unexpected comp.x %v", dir["comp.x"])
	}
	if v := dir["lin.x"]; len(v) != 2 || v[0] != 0.5 || v[1] != -2 {
		t.Errorf("unexpected lin.x %v", v)
	}

	for _, bad := range []string{"comp.x", "=1", "comp.x=a"} {
		if _, err := parseDirections([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestFormatFloats(t *testing.T) {
	if got := formatFloats([]float64{0.3, -1}); got != "[0.3, -1]" {
		t.Errorf("got %s", got)
	}
}
