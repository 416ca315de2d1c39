package env

import (
	"fmt"
	"strconv"
	"strings"
)

// phpEntry is one key/value pair of a PHP array. Key is int64 or string;
// Value is string, int64, float64, bool, nil or phpArray.
type phpEntry struct {
	Key   any
	Value any
}

// phpArray keeps PHP's insertion order.
type phpArray []phpEntry

// unserialize decodes the subset of PHP's serialize() format WordPress uses
// for plugin options: arrays, strings, integers, floats, booleans and null.
func unserialize(s string) (any, error) {
	d := &phpDecoder{s: s}
	v, err := d.value()
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.s) {
		return nil, fmt.Errorf("unserialize: trailing data at offset %d", d.pos)
	}
	return v, nil
}

type phpDecoder struct {
	s   string
	pos int
}

func (d *phpDecoder) value() (any, error) {
	if d.pos+1 >= len(d.s) {
		return nil, d.errorf("unexpected end")
	}
	kind := d.s[d.pos]
	if kind == 'N' {
		d.pos++
		return nil, d.expect(';')
	}
	d.pos++
	if err := d.expect(':'); err != nil {
		return nil, err
	}
	switch kind {
	case 'i':
		raw, err := d.until(';')
		if err != nil {
			return nil, err
		}
		return strconv.ParseInt(raw, 10, 64)
	case 'd':
		raw, err := d.until(';')
		if err != nil {
			return nil, err
		}
		return strconv.ParseFloat(raw, 64)
	case 'b':
		raw, err := d.until(';')
		if err != nil {
			return nil, err
		}
		return raw == "1", nil
	case 's':
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		if err := d.expect('"'); err != nil {
			return nil, err
		}
		if n > len(d.s)-d.pos {
			return nil, d.errorf("string length %d out of range", n)
		}
		str := d.s[d.pos : d.pos+n]
		d.pos += n
		if err := d.expect('"'); err != nil {
			return nil, err
		}
		return str, d.expect(';')
	case 'a':
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		if err := d.expect('{'); err != nil {
			return nil, err
		}
		// The smallest entry, "i:0;N;", is 6 bytes; a count beyond what the
		// input can hold is corrupt.
		if n > (len(d.s)-d.pos)/6 {
			return nil, d.errorf("array length %d out of range", n)
		}
		arr := make(phpArray, 0, n)
		for i := 0; i < n; i++ {
			k, err := d.value()
			if err != nil {
				return nil, err
			}
			switch k.(type) {
			case int64, string:
			default:
				return nil, d.errorf("invalid array key %T", k)
			}
			v, err := d.value()
			if err != nil {
				return nil, err
			}
			arr = append(arr, phpEntry{Key: k, Value: v})
		}
		return arr, d.expect('}')
	}
	return nil, d.errorf("unsupported type %q", kind)
}

func (d *phpDecoder) length() (int, error) {
	raw, err := d.until(':')
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, d.errorf("invalid length %q", raw)
	}
	return n, nil
}

func (d *phpDecoder) until(c byte) (string, error) {
	i := strings.IndexByte(d.s[d.pos:], c)
	if i < 0 {
		return "", d.errorf("missing %q", c)
	}
	raw := d.s[d.pos : d.pos+i]
	d.pos += i + 1
	return raw, nil
}

func (d *phpDecoder) expect(c byte) error {
	if d.pos >= len(d.s) || d.s[d.pos] != c {
		return d.errorf("expected %q", c)
	}
	d.pos++
	return nil
}

func (d *phpDecoder) errorf(format string, args ...any) error {
	return fmt.Errorf("unserialize at offset %d: %s", d.pos, fmt.Sprintf(format, args...))
}

// serialize encodes a phpArray whose keys and values are strings or integers.
func serialize(arr phpArray) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "a:%d:{", len(arr))
	for _, e := range arr {
		for _, v := range []any{e.Key, e.Value} {
			switch t := v.(type) {
			case string:
				fmt.Fprintf(&b, "s:%d:\"%s\";", len(t), t)
			case int64:
				fmt.Fprintf(&b, "i:%d;", t)
			case bool:
				if t {
					b.WriteString("b:1;")
				} else {
					b.WriteString("b:0;")
				}
			case nil:
				b.WriteString("N;")
			default:
				return "", fmt.Errorf("serialize: unsupported value %T", v)
			}
		}
	}
	b.WriteString("}")
	return b.String(), nil
}
