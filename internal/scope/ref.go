package scope

import (
	"fmt"
	"strconv"
	"strings"
)

// Ref is a parsed variable reference: a (possibly dotted) base name plus an
// optional multi-dimensional element index.
type Ref struct {
	Name  string
	Index []int
}

func (r Ref) Indexed() bool { return len(r.Index) > 0 }

func (r Ref) String() string {
	if !r.Indexed() {
		return r.Name
	}
	parts := make([]string, len(r.Index))
	for i, ix := range r.Index {
		parts[i] = strconv.Itoa(ix)
	}
	return r.Name + "[" + strings.Join(parts, ",") + "]"
}

// ParseRef accepts name, name[i], name[i][j] and name[i,j].
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '[')
	if open < 0 {
		if s == "" {
			return Ref{}, fmt.Errorf("%w: empty reference", ErrNotFound)
		}
		return Ref{Name: s}, nil
	}
	ref := Ref{Name: s[:open]}
	if ref.Name == "" {
		return Ref{}, fmt.Errorf("%w: reference %q has no name", ErrIndex, s)
	}
	rest := s[open:]
	for rest != "" {
		if rest[0] != '[' {
			return Ref{}, fmt.Errorf("%w: malformed reference %q", ErrIndex, s)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return Ref{}, fmt.Errorf("%w: unterminated index in %q", ErrIndex, s)
		}
		for _, field := range strings.Split(rest[1:end], ",") {
			ix, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				return Ref{}, fmt.Errorf("%w: %q in %q", ErrIndex, field, s)
			}
			ref.Index = append(ref.Index, ix)
		}
		rest = rest[end+1:]
	}
	return ref, nil
}

// Ravel converts a multi-index into a row-major flat offset.
func Ravel(index, shape []int) (int, bool) {
	if len(index) != len(shape) {
		return 0, false
	}
	k := 0
	for d, ix := range index {
		if ix < 0 || ix >= shape[d] {
			return 0, false
		}
		k = k*shape[d] + ix
	}
	return k, true
}

// Unravel converts a row-major flat offset into a multi-index.
func Unravel(k int, shape []int) []int {
	index := make([]int, len(shape))
	for d := len(shape) - 1; d >= 0; d-- {
		if shape[d] == 0 {
			continue
		}
		index[d] = k % shape[d]
		k /= shape[d]
	}
	return index
}
