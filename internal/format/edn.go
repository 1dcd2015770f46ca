package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"keykapp/internal/doc"
)

// WriteEDN writes v as EDN. A document tree becomes nested vectors of strings; anything else
// goes through its JSON form, with object keys turned into keywords.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	var x any
	switch t := v.(type) {
	case doc.Sexp:
		x = sexpValue(t)
	case *doc.Sexp:
		x = sexpValue(*t)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(b, &x); err != nil {
			return err
		}
		x = rewriteSexps(x)
	}

	var buf bytes.Buffer
	enc := ednEncoder{pretty: pretty, indent: 2}
	enc.writeAny(&buf, x, 0)
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// sexpValue maps atoms to strings and lists to []any.
func sexpValue(s doc.Sexp) any {
	if s.IsAtom() {
		return s.Text
	}
	out := make([]any, len(s.Children))
	for i, c := range s.Children {
		out[i] = sexpValue(c)
	}
	return out
}

// rewriteSexps finds JSON-encoded document trees nested in a larger value (an export) and
// replaces them with the vector form.
func rewriteSexps(x any) any {
	switch t := x.(type) {
	case map[string]any:
		if kind, ok := t["kind"].(string); ok && len(t) <= 3 {
			switch kind {
			case "atom":
				s, _ := t["text"].(string)
				return s
			case "list":
				kids, _ := t["children"].([]any)
				out := make([]any, len(kids))
				for i, k := range kids {
					out[i] = rewriteSexps(k)
				}
				return out
			}
		}
		for k, v := range t {
			t[k] = rewriteSexps(v)
		}
		return t
	case []any:
		for i, v := range t {
			t[i] = rewriteSexps(v)
		}
		return t
	}
	return x
}

type ednEncoder struct {
	pretty bool
	indent int
}

func (e ednEncoder) writeAny(buf *bytes.Buffer, v any, level int) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("nil")
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case string:
		buf.WriteString(strconv.Quote(t))
	case float64:
		// JSON numbers decode as float64; integral ones print as ints.
		if float64(int64(t)) == t {
			buf.WriteString(strconv.FormatInt(int64(t), 10))
			return
		}
		buf.WriteString(strconv.FormatFloat(t, 'f', -1, 64))
	case []any:
		e.writeVec(buf, t, level)
	case map[string]any:
		e.writeMap(buf, t, level)
	default:
		buf.WriteString(strconv.Quote(fmt.Sprintf("%v", v)))
	}
}

func (e ednEncoder) sep(buf *bytes.Buffer, level int, last bool) {
	switch {
	case e.pretty && last:
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat(" ", level*e.indent))
	case e.pretty:
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat(" ", (level+1)*e.indent))
	case !last:
		buf.WriteByte(' ')
	}
}

func (e ednEncoder) writeVec(buf *bytes.Buffer, xs []any, level int) {
	buf.WriteByte('[')
	// Vectors of scalars stay on one line even when pretty.
	flat := !e.pretty || scalarsOnly(xs)
	inner := e
	if flat {
		inner.pretty = false
	}
	for i, it := range xs {
		if i == 0 && !flat {
			inner.sep(buf, level, false)
		}
		e.writeAny(buf, it, level+1)
		if i != len(xs)-1 {
			inner.sep(buf, level, false)
		} else if !flat {
			inner.sep(buf, level, true)
		}
	}
	buf.WriteByte(']')
}

func scalarsOnly(xs []any) bool {
	for _, x := range xs {
		switch x.(type) {
		case []any, map[string]any:
			return false
		}
	}
	return true
}

func (e ednEncoder) writeMap(buf *bytes.Buffer, m map[string]any, level int) {
	buf.WriteByte('{')
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i == 0 && e.pretty {
			e.sep(buf, level, false)
		}
		buf.WriteByte(':')
		buf.WriteString(ednKeyword(k))
		buf.WriteByte(' ')
		e.writeAny(buf, m[k], level+1)
		if i != len(keys)-1 {
			e.sep(buf, level, false)
		} else if e.pretty {
			e.sep(buf, level, true)
		}
	}
	buf.WriteByte('}')
}

// ednKeyword turns a JSON field name into a keyword: camelCase becomes kebab-case.
func ednKeyword(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == ' ' || r == '_':
			b.WriteByte('-')
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
