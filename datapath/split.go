package datapath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrEmpty is returned for a blank path or a path with nothing before its last dot.
	ErrEmpty = errors.New("empty path")
	// ErrNoAttribute is returned when no attribute name can be isolated.
	ErrNoAttribute = errors.New("no attribute")
	// ErrSyntax is returned when an owner expression does not match the grammar.
	ErrSyntax = errors.New("syntax error")
)

// Path is a property path split into its parts.
type Path struct {
	Owner    string
	Attr     string
	Index    int
	HasIndex bool
}

func (p Path) String() string {
	if p.HasIndex {
		return fmt.Sprintf("%s.%s[%d]", p.Owner, p.Attr, p.Index)
	}
	return p.Owner + "." + p.Attr
}

// SplitIndex removes a trailing [n] from expr when n is a non-negative integer
// literal. Any other bracket content is left in place.
func SplitIndex(expr string) (string, int, bool) {
	if !strings.HasSuffix(expr, "]") {
		return expr, 0, false
	}
	lb := strings.LastIndexByte(expr, '[')
	if lb == -1 {
		return expr, 0, false
	}

	digits := expr[lb+1 : len(expr)-1]
	if !isDigits(digits) {
		return expr, 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return expr, 0, false
	}
	return expr[:lb], n, true
}

// lastAttrDot returns the index of the last '.' outside brackets and quoted
// strings, or -1.
func lastAttrDot(expr string) int {
	depth := 0
	var quote byte
	last := -1

	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		if quote != 0 {
			switch ch {
			case quote:
				quote = 0
			case '\\':
				i++
			}
			continue
		}

		switch ch {
		case '"', '\'':
			quote = ch
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '.':
			if depth == 0 {
				last = i
			}
		}
	}

	return last
}

// Split separates expr into owner expression, attribute name and optional index.
func Split(expr string) (Path, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Path{}, ErrEmpty
	}

	base, idx, ok := SplitIndex(expr)
	dot := lastAttrDot(base)
	if dot == -1 {
		return Path{}, errors.Wrapf(ErrNoAttribute, "no attribute separator in %q", base)
	}

	p := Path{Owner: base[:dot], Attr: base[dot+1:], Index: idx, HasIndex: ok}
	if p.Owner == "" {
		return Path{}, errors.Wrapf(ErrEmpty, "no owner before %q", p.Attr)
	}
	if !isIdent(p.Attr) {
		return Path{}, errors.Wrapf(ErrNoAttribute, "%q is not an attribute name", p.Attr)
	}

	return p, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}
