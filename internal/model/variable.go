package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// VariableType describes how a variable's string value is meant to be read.
// The value itself is never checked against the type.
type VariableType string

const (
	TypeString   VariableType = "String"
	TypeInteger  VariableType = "Integer"
	TypeBoolean  VariableType = "Boolean"
	TypeDouble   VariableType = "Double"
	TypeDateTime VariableType = "DateTime"
)

// variableTypes is ordered by ordinal; older clients send the index.
var variableTypes = []VariableType{TypeString, TypeInteger, TypeBoolean, TypeDouble, TypeDateTime}

// VariableTypes returns the recognised types in ordinal order.
func VariableTypes() []VariableType {
	out := make([]VariableType, len(variableTypes))
	copy(out, variableTypes)
	return out
}

// String returns the string representation of the variable type.
func (t VariableType) String() string {
	return string(t)
}

// IsValid reports whether t is one of the recognised types.
func (t VariableType) IsValid() bool {
	for _, vt := range variableTypes {
		if t == vt {
			return true
		}
	}
	return false
}

// ParseVariableType resolves a type name (case-insensitive) or an ordinal
// ("0".."4") to its canonical VariableType.
func ParseVariableType(s string) (VariableType, error) {
	s = strings.TrimSpace(s)
	for _, vt := range variableTypes {
		if strings.EqualFold(s, string(vt)) {
			return vt, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(variableTypes) {
		return variableTypes[n], nil
	}
	return "", fmt.Errorf("unknown variable type %q", s)
}

// UnmarshalJSON accepts either a type name or its ordinal. Unknown names are
// kept verbatim so that validation can report them.
func (t *VariableType) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if n < 0 || n >= len(variableTypes) {
			*t = VariableType(strconv.Itoa(n))
			return nil
		}
		*t = variableTypes[n]
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("variable type must be a string or integer: %w", err)
	}
	if vt, err := ParseVariableType(s); err == nil {
		*t = vt
		return nil
	}
	*t = VariableType(s)
	return nil
}

// Variable is a named, typed value.
type Variable struct {
	ID         string       `json:"id"`
	Identifier string       `json:"identifier"`
	Type       VariableType `json:"type"`
	Value      string       `json:"value"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Clone returns a copy of v.
func (v *Variable) Clone() *Variable {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
