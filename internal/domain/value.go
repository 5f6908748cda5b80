package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValueKind tags the representation held by a Value.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindText
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	default:
		return "none"
	}
}

// Value is an answer or answer key. Which kind is legal depends on the
// question type: multiple-choice and short-answer take text, true-false
// takes a bool once normalized.
type Value struct {
	kind ValueKind
	text string
	flag bool
}

// Text builds a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsZero() bool { return v.kind == KindNone }

// Text returns the text and whether the value is text.
func (v Value) Text() (string, bool) { return v.text, v.kind == KindText }

// Bool returns the flag and whether the value is a bool.
func (v Value) Bool() (bool, bool) { return v.flag, v.kind == KindBool }

// AsBool reads a bool, accepting the strings "true" and "false".
func (v Value) AsBool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.flag, true
	case KindText:
		switch v.text {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// Equal is strict: a text "true" never equals the bool true.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindBool:
		return v.flag == o.flag
	}
	return true
}

// Ptr returns a pointer to a copy of v.
func (v Value) Ptr() *Value { return &v }

func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindBool:
		return fmt.Sprint(v.flag)
	}
	return "<none>"
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindBool:
		return json.Marshal(v.flag)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Value{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case bytes.Equal(data, []byte("true")):
		*v = Bool(true)
	case bytes.Equal(data, []byte("false")):
		*v = Bool(false)
	default:
		return fmt.Errorf("answer value must be a string or boolean, got %s", data)
	}
	return nil
}
