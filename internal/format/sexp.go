package format

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"keykapp/internal/doc"
)

// WriteSexp writes s as a parenthesized list. Atoms are always quoted, so the empty atom and
// atoms containing spaces or parens survive ReadSexp.
func WriteSexp(w io.Writer, s doc.Sexp, pretty bool) error {
	bw := bufio.NewWriter(w)
	writeSexp(bw, s, 0, pretty)
	bw.WriteByte('\n')
	return bw.Flush()
}

// FormatSexp is WriteSexp into a string, compact.
func FormatSexp(s doc.Sexp) string {
	var buf bytes.Buffer
	writeSexp(&buf, s, 0, false)
	return buf.String()
}

type byteWriter interface {
	io.Writer
	io.ByteWriter
	io.StringWriter
}

func writeSexp(w byteWriter, s doc.Sexp, level int, pretty bool) {
	if s.IsAtom() {
		_, _ = w.WriteString(strconv.Quote(s.Text))
		return
	}
	_ = w.WriteByte('(')
	nested := pretty && hasList(s)
	for i, c := range s.Children {
		switch {
		case nested:
			_ = w.WriteByte('\n')
			_, _ = w.WriteString(strings.Repeat("  ", level+1))
		case i > 0:
			_ = w.WriteByte(' ')
		}
		writeSexp(w, c, level+1, pretty)
	}
	_ = w.WriteByte(')')
}

func hasList(s doc.Sexp) bool {
	for _, c := range s.Children {
		if !c.IsAtom() {
			return true
		}
	}
	return false
}

// SyntaxError reports where ReadSexp gave up.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("sexp: offset %d: %s", e.Offset, e.Msg)
}

// ReadSexp parses one top-level list. Quoted atoms use Go string syntax; bare tokens are read
// as atoms verbatim. Semicolon starts a comment that runs to the end of the line.
func ReadSexp(r io.Reader) (doc.Sexp, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return doc.Sexp{}, err
	}
	p := &sexpParser{src: []rune(string(b))}
	p.skip()
	if p.eof() {
		return doc.Sexp{}, &SyntaxError{Offset: p.pos, Msg: "empty input"}
	}
	if p.src[p.pos] != '(' {
		return doc.Sexp{}, &SyntaxError{Offset: p.pos, Msg: "expected '(' at top level"}
	}
	s, err := p.value(0)
	if err != nil {
		return doc.Sexp{}, err
	}
	p.skip()
	if !p.eof() {
		return doc.Sexp{}, &SyntaxError{Offset: p.pos, Msg: "trailing input"}
	}
	return s, nil
}

// ParseSexp is ReadSexp over a string.
func ParseSexp(src string) (doc.Sexp, error) {
	return ReadSexp(strings.NewReader(src))
}

const maxSexpDepth = 512

type sexpParser struct {
	src []rune
	pos int
}

func (p *sexpParser) eof() bool { return p.pos >= len(p.src) }

func (p *sexpParser) skip() {
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case unicode.IsSpace(c):
			p.pos++
		case c == ';':
			for !p.eof() && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *sexpParser) value(depth int) (doc.Sexp, error) {
	if depth > maxSexpDepth {
		return doc.Sexp{}, &SyntaxError{Offset: p.pos, Msg: "nesting too deep"}
	}
	switch c := p.src[p.pos]; c {
	case '(':
		p.pos++
		children := []doc.Sexp{}
		for {
			p.skip()
			if p.eof() {
				return doc.Sexp{}, &SyntaxError{Offset: p.pos, Msg: "unclosed list"}
			}
			if p.src[p.pos] == ')' {
				p.pos++
				return doc.List(children...), nil
			}
			child, err := p.value(depth + 1)
			if err != nil {
				return doc.Sexp{}, err
			}
			children = append(children, child)
		}
	case ')':
		return doc.Sexp{}, &SyntaxError{Offset: p.pos, Msg: "unexpected ')'"}
	case '"':
		return p.quoted()
	default:
		return p.bare(), nil
	}
}

func (p *sexpParser) quoted() (doc.Sexp, error) {
	start := p.pos
	p.pos++
	for !p.eof() {
		switch p.src[p.pos] {
		case '\\':
			p.pos += 2
			continue
		case '"':
			p.pos++
			text, err := strconv.Unquote(string(p.src[start:p.pos]))
			if err != nil {
				return doc.Sexp{}, &SyntaxError{Offset: start, Msg: err.Error()}
			}
			return doc.Atom(text), nil
		}
		p.pos++
	}
	return doc.Sexp{}, &SyntaxError{Offset: start, Msg: "unterminated string"}
}

func (p *sexpParser) bare() doc.Sexp {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if unicode.IsSpace(c) || c == '(' || c == ')' || c == '"' || c == ';' {
			break
		}
		p.pos++
	}
	return doc.Atom(string(p.src[start:p.pos]))
}

// IsSyntaxError reports whether err came from the sexp parser.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}
