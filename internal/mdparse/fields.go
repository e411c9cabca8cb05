package mdparse

import (
	"bytes"
	"encoding/json"
)

type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Fields is an insertion-ordered name to value mapping. Setting an existing
// name replaces its value and keeps its original position.
type Fields struct {
	names  []string
	values map[string]string
}

func NewFields() *Fields {
	return &Fields{values: make(map[string]string)}
}

func (f *Fields) Set(name, value string) {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
	f.values[name] = value
}

func (f *Fields) Get(name string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f.values[name]
	return v, ok
}

func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.names)
}

func (f *Fields) Names() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.names...)
}

func (f *Fields) Entries() []Field {
	if f == nil {
		return nil
	}
	out := make([]Field, 0, len(f.names))
	for _, n := range f.names {
		out = append(out, Field{Name: n, Value: f.values[n]})
	}
	return out
}

// Map returns an unordered copy.
func (f *Fields) Map() map[string]string {
	out := make(map[string]string, f.Len())
	if f == nil {
		return out
	}
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the fields as a JSON object in insertion order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if f != nil {
		for i, n := range f.names {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(f.values[n])
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
