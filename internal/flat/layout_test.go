package flat

import (
	"errors"
	"slices"
	"testing"

	"github.com/san-kum/fdjac/internal/scope"
)

func fixture(t *testing.T) *scope.Tree {
	t.Helper()
	sc := scope.NewTree()
	for name, v := range map[string]scope.Value{
		"a":      scope.Float(1),
		"b":      scope.Vector(2, 3, 4),
		"m":      scope.Array([]int{2, 2}, []float64{5, 6, 7, 8}),
		"g1":     scope.Vector(0, 0),
		"g2":     scope.Vector(9, 9),
		"status": scope.OpaqueValue("ok"),
	} {
		if err := sc.Declare(name, v, scope.Metadata{}); err != nil {
			t.Fatal(err)
		}
	}
	return sc
}

func TestLayoutRanges(t *testing.T) {
	sc := fixture(t)
	l, err := New(sc, [][]string{{"a"}, {"m"}, {"status"}, {"b[1]"}, {"g1", "g2"}})
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 1+4+0+1+2 {
		t.Fatalf("Len() = %d", l.Len())
	}

	want := map[string][2]int{"a": {0, 1}, "m": {1, 5}, "status": {5, 5}, "b[1]": {5, 6}, "g1": {6, 8}, "g2": {6, 8}}
	for name, r := range want {
		s, e, ok := l.Range(name)
		if !ok || s != r[0] || e != r[1] {
			t.Errorf("Range(%s) = [%d,%d) %v, want %v", name, s, e, ok, r)
		}
	}
	if !slices.Equal(l.Keys(), []string{"a", "m", "status", "b[1]", "g1"}) {
		t.Errorf("Keys() = %v", l.Keys())
	}
	if l.Size("m") != 4 || l.Size("nope") != 0 {
		t.Error("Size mismatch")
	}
}

func TestLayoutErrors(t *testing.T) {
	sc := fixture(t)
	if err := sc.Declare("g3", scope.Vector(1, 2, 3), scope.Metadata{}); err != nil {
		t.Fatal(err)
	}
	if _, err := New(sc, [][]string{{"g1", "g3"}}); !errors.Is(err, ErrGroupWidth) {
		t.Errorf("group width: err = %v", err)
	}
	if _, err := NewSingles(sc, []string{"a", "a"}); err == nil {
		t.Error("duplicate reference accepted")
	}
	if _, err := NewSingles(sc, []string{"missing"}); !errors.Is(err, scope.ErrNotFound) {
		t.Errorf("missing: err = %v", err)
	}
	if _, err := NewSingles(sc, []string{"b[7]"}); !errors.Is(err, scope.ErrIndex) {
		t.Errorf("bad index: err = %v", err)
	}
}

func TestGatherScatter(t *testing.T) {
	sc := fixture(t)
	l, err := New(sc, [][]string{{"a"}, {"b"}, {"g1", "g2"}})
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]complex128, l.Len())
	if err := l.Gather(sc, buf); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 1 || buf[3] != 4 || buf[4] != 0 {
		t.Errorf("gathered %v", buf)
	}

	for i := range buf {
		buf[i] = complex(float64(10+i), 0)
	}
	if err := l.Scatter(sc, buf); err != nil {
		t.Fatal(err)
	}
	g2, _ := sc.Get("g2")
	if !slices.Equal(g2.Reals(), []float64{14, 15}) {
		t.Errorf("group member not scattered: %v", g2.Reals())
	}

	if err := sc.Set("b", scope.Vector(1)); err != nil {
		t.Fatal(err)
	}
	if err := l.Gather(sc, buf); !errors.Is(err, scope.ErrShape) {
		t.Errorf("width change: err = %v", err)
	}
}

func TestElement(t *testing.T) {
	sc := fixture(t)
	l, err := NewSingles(sc, []string{"m", "b[2]"})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.AddElement(sc, "m", 3, 0.5); err != nil {
		t.Fatal(err)
	}
	if v, _ := l.Element(sc, "m", 3); v != 8.5 {
		t.Errorf("m[3] = %v", v)
	}
	if err := l.AddElement(sc, "b[2]", 0, complex(0, 1e-20)); err != nil {
		t.Fatal(err)
	}
	b, _ := sc.Get("b")
	if imag(b.Data[2]) != 1e-20 {
		t.Errorf("b = %v", b.Data)
	}

	var ie *scope.IndexError
	if _, err := l.Element(sc, "m", 4); !errors.As(err, &ie) {
		t.Errorf("out of range: err = %v", err)
	}
	if _, err := l.Element(sc, "a", 0); !errors.Is(err, scope.ErrNotFound) {
		t.Errorf("not laid out: err = %v", err)
	}
}

func TestSnapshotRestore(t *testing.T) {
	sc := fixture(t)
	l, err := NewSingles(sc, []string{"b", "m"})
	if err != nil {
		t.Fatal(err)
	}
	snap, err := l.Snapshot(sc)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.AddElement(sc, "b", 0, complex(1e-7, 3)); err != nil {
		t.Fatal(err)
	}
	if err := sc.Set("m", scope.Array([]int{2, 2}, []float64{0, 0, 0, 0})); err != nil {
		t.Fatal(err)
	}
	if err := l.Restore(sc, snap); err != nil {
		t.Fatal(err)
	}
	b, _ := sc.Get("b")
	m, _ := sc.Get("m")
	if b.Data[0] != 2 || !slices.Equal(m.Reals(), []float64{5, 6, 7, 8}) {
		t.Errorf("restored b=%v m=%v", b.Data, m.Reals())
	}
}
