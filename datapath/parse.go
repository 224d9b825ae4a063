package datapath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// StepKind says how a Step moves through the object graph.
type StepKind int

const (
	// StepName is an identifier: the root, or a member after a dot.
	StepName StepKind = iota
	// StepKey is a quoted string inside brackets.
	StepKey
	// StepIndex is an integer inside brackets.
	StepIndex
)

// Step is one element of a parsed owner expression.
type Step struct {
	Kind  StepKind
	Name  string // identifier or key
	Index int
}

func (s Step) String() string {
	switch s.Kind {
	case StepKey:
		return "[" + strconv.Quote(s.Name) + "]"
	case StepIndex:
		return fmt.Sprintf("[%d]", s.Index)
	default:
		return s.Name
	}
}

// ParseOwner parses an owner expression into steps. The first step is always a StepName.
func ParseOwner(expr string) ([]Step, error) {
	p := &parser{s: expr}

	root, err := p.ident()
	if err != nil {
		return nil, err
	}
	steps := []Step{{Kind: StepName, Name: root}}

	for !p.done() {
		switch p.peek() {
		case '.':
			p.pos++
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			steps = append(steps, Step{Kind: StepName, Name: name})

		case '[':
			p.pos++
			st, err := p.subscript()
			if err != nil {
				return nil, err
			}
			if err := p.expect(']'); err != nil {
				return nil, err
			}
			steps = append(steps, st)

		default:
			return nil, p.errorf("unexpected %q", p.peek())
		}
	}

	return steps, nil
}

type parser struct {
	s   string
	pos int
}

func (p *parser) done() bool { return p.pos >= len(p.s) }

func (p *parser) peek() byte { return p.s[p.pos] }

func (p *parser) errorf(format string, args ...any) error {
	return errors.Wrapf(ErrSyntax, "%s at offset %d in %q", fmt.Sprintf(format, args...), p.pos, p.s)
}

func (p *parser) expect(c byte) error {
	if p.done() || p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *parser) ident() (string, error) {
	start := p.pos
	if p.done() || !isIdentStart(p.peek()) {
		return "", p.errorf("expected identifier")
	}
	for !p.done() && isIdentChar(p.peek()) {
		p.pos++
	}
	return p.s[start:p.pos], nil
}

func (p *parser) subscript() (Step, error) {
	if p.done() {
		return Step{}, p.errorf("unterminated subscript")
	}

	switch c := p.peek(); {
	case c == '"' || c == '\'':
		key, err := p.quoted(c)
		if err != nil {
			return Step{}, err
		}
		return Step{Kind: StepKey, Name: key}, nil

	case c >= '0' && c <= '9':
		start := p.pos
		for !p.done() && p.peek() >= '0' && p.peek() <= '9' {
			p.pos++
		}
		n, err := strconv.Atoi(p.s[start:p.pos])
		if err != nil {
			return Step{}, p.errorf("bad index: %v", err)
		}
		return Step{Kind: StepIndex, Index: n}, nil

	default:
		return Step{}, p.errorf("unexpected %q in subscript", c)
	}
}

func (p *parser) quoted(q byte) (string, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for !p.done() {
		c := p.peek()
		p.pos++
		switch c {
		case q:
			return sb.String(), nil
		case '\\':
			if p.done() {
				return "", p.errorf("unterminated escape")
			}
			sb.WriteByte(p.peek())
			p.pos++
		default:
			sb.WriteByte(c)
		}
	}
	return "", p.errorf("unterminated string")
}
