package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestVariableType_IsValid(t *testing.T) {
	for _, tc := range []struct {
		typ  VariableType
		want bool
	}{
		{TypeString, true},
		{TypeInteger, true},
		{TypeBoolean, true},
		{TypeDouble, true},
		{TypeDateTime, true},
		{VariableType(""), false},
		{VariableType("string"), false},
		{VariableType("Float"), false},
	} {
		if got := tc.typ.IsValid(); got != tc.want {
			t.Errorf("VariableType(%q).IsValid() = %v, want %v", tc.typ, got, tc.want)
		}
	}
}

func TestParseVariableType(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    VariableType
		wantErr bool
	}{
		{"String", TypeString, false},
		{"integer", TypeInteger, false},
		{" BOOLEAN ", TypeBoolean, false},
		{"0", TypeString, false},
		{"4", TypeDateTime, false},
		{"5", "", true},
		{"-1", "", true},
		{"Float", "", true},
		{"", "", true},
	} {
		got, err := ParseVariableType(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseVariableType(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseVariableType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestVariableType_UnmarshalJSON(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want VariableType
	}{
		{`"String"`, TypeString},
		{`"boolean"`, TypeBoolean},
		{`1`, TypeInteger},
		{`3`, TypeDouble},
		{`9`, VariableType("9")},
		{`"Bogus"`, VariableType("Bogus")},
	} {
		var got VariableType
		if err := json.Unmarshal([]byte(tc.in), &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}

	var bad VariableType
	if err := json.Unmarshal([]byte(`{"x":1}`), &bad); err == nil {
		t.Error("expected error for object type")
	}
}

func TestVariable_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(&Variable{ID: "v1", Identifier: "Speed", Type: TypeInteger, Value: "42"})
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"id":"v1"`, `"identifier":"Speed"`, `"type":"Integer"`, `"value":"42"`, `"created_at"`, `"updated_at"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("marshaled variable %s missing %s", data, field)
		}
	}
}

func TestVariable_Clone(t *testing.T) {
	v := &Variable{ID: "v1", Value: "a"}
	c := v.Clone()
	c.Value = "b"
	if v.Value != "a" {
		t.Errorf("Clone shares state with original: value = %q", v.Value)
	}
	var nilVar *Variable
	if nilVar.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestValidateVariable(t *testing.T) {
	for _, tc := range []struct {
		name       string
		v          Variable
		wantFields []string
	}{
		{"Valid", Variable{Identifier: "TestVar", Type: TypeString, Value: "x"}, nil},
		{"MissingValue", Variable{Identifier: "TestVar", Type: TypeString}, []string{"value"}},
		{"BlankValue", Variable{Identifier: "TestVar", Type: TypeString, Value: "  "}, []string{"value"}},
		{"MissingIdentifier", Variable{Type: TypeString, Value: "x"}, []string{"identifier"}},
		{"BlankIdentifier", Variable{Identifier: "   ", Type: TypeString, Value: "x"}, []string{"identifier"}},
		{"LongIdentifier", Variable{Identifier: strings.Repeat("a", 256), Type: TypeString, Value: "x"}, []string{"identifier"}},
		{"MissingType", Variable{Identifier: "x", Value: "x"}, []string{"type"}},
		{"UnknownType", Variable{Identifier: "x", Type: "Float", Value: "x"}, []string{"type"}},
		{"All", Variable{}, []string{"identifier", "type", "value"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateVariable(&tc.v)
			if len(tc.wantFields) == 0 {
				if err != nil {
					t.Fatalf("ValidateVariable() = %v, want nil", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("ValidateVariable() = %v, want *ValidationError", err)
			}
			if len(ve.Errors) != len(tc.wantFields) {
				t.Fatalf("got %d field errors (%v), want %d", len(ve.Errors), ve, len(tc.wantFields))
			}
			for i, f := range tc.wantFields {
				if ve.Errors[i].Field != f {
					t.Errorf("error[%d].Field = %q, want %q", i, ve.Errors[i].Field, f)
				}
			}
		})
	}
}
