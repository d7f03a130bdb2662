package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Field is one key/value pair of a Command
type Field struct {
	Key   string
	Value any
}

// Command is an outbound (or decoded) protocol message. Fields keep their insertion
// order so the serialized form is stable.
type Command struct {
	fields []Field
}

// NewCommand builds a command from key/value pairs: NewCommand("bv", 3, "url", "minesweeper/progress")
func NewCommand(kv ...any) Command {
	if len(kv)%2 != 0 {
		panic("envelope: NewCommand needs key/value pairs")
	}
	c := Command{fields: make([]Field, 0, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("envelope: key %v is not a string", kv[i]))
		}
		c.Set(key, kv[i+1])
	}
	return c
}

// Set replaces an existing key in place or appends a new one
func (c *Command) Set(key string, value any) {
	for i := range c.fields {
		if c.fields[i].Key == key {
			c.fields[i].Value = value
			return
		}
	}
	c.fields = append(c.fields, Field{Key: key, Value: value})
}

// Delete removes a key, keeping the order of the rest
func (c *Command) Delete(key string) {
	for i := range c.fields {
		if c.fields[i].Key == key {
			c.fields = append(c.fields[:i], c.fields[i+1:]...)
			return
		}
	}
}

func (c Command) Get(key string) (any, bool) {
	for _, f := range c.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// URL returns the discriminator naming the remote operation
func (c Command) URL() string {
	v, _ := c.Get("url")
	s, _ := v.(string)
	return s
}

func (c Command) Fields() []Field {
	out := make([]Field, len(c.fields))
	copy(out, c.fields)
	return out
}

// MarshalJSON writes the fields in order with no incidental whitespace
func (c Command) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range c.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCompact(&buf, f.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeCompact(&buf, f.Value); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeCompact(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates every value with a newline
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// UnmarshalJSON reads a JSON object keeping key order. Integral numbers become int,
// other numbers float64; nested values decode as generic maps and slices.
func (c *Command) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("envelope: command is not a JSON object")
	}

	c.fields = c.fields[:0]
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("envelope: unexpected key token %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		c.Set(key, normalizeNumber(v))
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func normalizeNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := strconv.Atoi(n.String()); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
