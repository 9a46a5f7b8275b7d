package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type SpecKind uint8

const (
	SpecString SpecKind = iota + 1
	SpecNumber
	SpecBool
	SpecList
)

// SpecValue is one value of an open key/value bag (product specifications,
// analytics metadata). Only strings, numbers, booleans and string lists are
// accepted; objects and nested lists are rejected at unmarshal time.
type SpecValue struct {
	kind SpecKind
	str  string
	num  float64
	b    bool
	list []string
}

func StringSpec(s string) SpecValue  { return SpecValue{kind: SpecString, str: s} }
func NumberSpec(n float64) SpecValue { return SpecValue{kind: SpecNumber, num: n} }
func BoolSpec(b bool) SpecValue      { return SpecValue{kind: SpecBool, b: b} }
func ListSpec(l ...string) SpecValue {
	return SpecValue{kind: SpecList, list: append([]string(nil), l...)}
}
func (v SpecValue) Kind() SpecKind  { return v.kind }
func (v SpecValue) String() string  { return v.Display() }
func (v SpecValue) Number() float64 { return v.num }
func (v SpecValue) Bool() bool      { return v.b }
func (v SpecValue) List() []string  { return v.list }

// Display renders the value for documents and emails.
func (v SpecValue) Display() string {
	switch v.kind {
	case SpecString:
		return v.str
	case SpecNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case SpecBool:
		if v.b {
			return "Yes"
		}
		return "No"
	case SpecList:
		var buf bytes.Buffer
		for i, s := range v.list {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(s)
		}
		return buf.String()
	}
	return ""
}

func (v SpecValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case SpecString:
		return json.Marshal(v.str)
	case SpecNumber:
		return json.Marshal(v.num)
	case SpecBool:
		return json.Marshal(v.b)
	case SpecList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return []byte("null"), nil
}

func (v *SpecValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty specification value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringSpec(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolSpec(b)
	case '[':
		var l []string
		if err := json.Unmarshal(data, &l); err != nil {
			return fmt.Errorf("list values must contain only strings")
		}
		*v = ListSpec(l...)
	case 'n':
		return fmt.Errorf("null is not a valid specification value")
	case '{':
		return fmt.Errorf("nested objects are not valid specification values")
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = NumberSpec(n)
	}
	return nil
}

// Specs is a validated key/value bag stored as a JSON column.
type Specs map[string]SpecValue
