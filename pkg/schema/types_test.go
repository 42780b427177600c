package schema

import (
	"fmt"
	"testing"
)

func TestStringType(t *testing.T) {
	typ := String()

	if typ.Name() != "string" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "string")
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{"hello", false},
		{"", false},
		{42, true},
		{3.14, true},
		{true, true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestIntType(t *testing.T) {
	typ := Int()

	if typ.Name() != "int" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "int")
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{42, false},
		{int8(42), false},
		{int16(42), false},
		{int32(42), false},
		{int64(42), false},
		{float64(42), false},  // whole number
		{float64(42.5), true}, // not whole
		{"42", true},
		{true, true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestFloatType(t *testing.T) {
	typ := Float()

	if typ.Name() != "float" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "float")
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{3.14, false},
		{float32(3.14), false},
		{42, false},
		{int64(42), false},
		{"3.14", true},
		{true, true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestBoolType(t *testing.T) {
	typ := Bool()

	if typ.Name() != "bool" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "bool")
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{true, false},
		{false, false},
		{"true", true},
		{1, true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestCustomType(t *testing.T) {
	nonEmpty := Custom("non_empty_string", func(v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		if s == "" {
			return fmt.Errorf("must not be empty")
		}
		return nil
	})

	if nonEmpty.Name() != "non_empty_string" {
		t.Errorf("Name() = %q, want %q", nonEmpty.Name(), "non_empty_string")
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{"query text", false},
		{"", true},
		{42, true},
	}

	for _, tt := range tests {
		err := nonEmpty.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}
