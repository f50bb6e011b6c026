package jsontree

import (
	"bytes"
	"fmt"
	"strconv"

	j "github.com/goccy/go-json"
)

// Marshal writes v as JSON. Pretty output indents nested objects by two
// spaces per object level, separates keys with " : " and keeps arrays on the
// line of their parent, which keeps output stable and easy to diff.
func Marshal(v any, pretty bool) ([]byte, error) {
	w := &writer{pretty: pretty}
	if err := w.value(v, 0); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// MustMarshal is Marshal for trees built from supported value types only.
func MustMarshal(v any, pretty bool) string {
	b, err := Marshal(v, pretty)
	if err != nil {
		panic(err)
	}
	return string(b)
}

type writer struct {
	buf    bytes.Buffer
	pretty bool
}

func (w *writer) value(v any, level int) error {
	switch t := v.(type) {
	case nil:
		w.buf.WriteString("null")
	case bool:
		w.buf.WriteString(strconv.FormatBool(t))
	case string:
		return w.str(t)
	case Number:
		w.buf.WriteString(string(t))
	case int:
		w.buf.WriteString(strconv.Itoa(t))
	case int64:
		w.buf.WriteString(strconv.FormatInt(t, 10))
	case float64:
		w.buf.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case *Object:
		return w.object(t, level)
	case []any:
		return w.array(t, level)
	case []string:
		arr := make([]any, len(t))
		for i, s := range t {
			arr[i] = s
		}
		return w.array(arr, level)
	default:
		return fmt.Errorf("jsontree: unsupported value type %T", v)
	}
	return nil
}

func (w *writer) str(s string) error {
	b, err := j.MarshalWithOption(s, j.DisableHTMLEscape())
	if err != nil {
		return err
	}
	w.buf.Write(b)
	return nil
}

func (w *writer) object(o *Object, level int) error {
	if o.Len() == 0 {
		if w.pretty {
			w.buf.WriteString("{ }")
		} else {
			w.buf.WriteString("{}")
		}
		return nil
	}
	w.buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		w.newline(level + 1)
		if err := w.str(k); err != nil {
			return err
		}
		if w.pretty {
			w.buf.WriteString(" : ")
		} else {
			w.buf.WriteByte(':')
		}
		if err := w.value(o.values[k], level+1); err != nil {
			return err
		}
	}
	w.newline(level)
	w.buf.WriteByte('}')
	return nil
}

func (w *writer) array(arr []any, level int) error {
	if len(arr) == 0 {
		if w.pretty {
			w.buf.WriteString("[ ]")
		} else {
			w.buf.WriteString("[]")
		}
		return nil
	}
	w.buf.WriteByte('[')
	if w.pretty {
		w.buf.WriteByte(' ')
	}
	for i, v := range arr {
		if i > 0 {
			w.buf.WriteByte(',')
			if w.pretty {
				w.buf.WriteByte(' ')
			}
		}
		if err := w.value(v, level); err != nil {
			return err
		}
	}
	if w.pretty {
		w.buf.WriteByte(' ')
	}
	w.buf.WriteByte(']')
	return nil
}

func (w *writer) newline(level int) {
	if !w.pretty {
		return
	}
	w.buf.WriteByte('\n')
	for i := 0; i < level; i++ {
		w.buf.WriteString("  ")
	}
}
