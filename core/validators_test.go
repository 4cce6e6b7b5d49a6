package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUUID(t *testing.T) {
	validate := NewValidator(NewTranslator())

	tests := []struct {
		id   string
		want bool
	}{
		{id: "8c6f1b9e-3f0a-4c41-9d6e-2a7b5c1d0e4f", want: true},
		{id: "8C6F1B9E-3F0A-4C41-9D6E-2A7B5C1D0E4F", want: true},
		{id: "", want: false},
		{id: "42", want: false},
		{id: "8c6f1b9e3f0a4c419d6e2a7b5c1d0e4f", want: false},
		{id: "8c6f1b9e-3f0a-4c41-9d6e-2a7b5c1d0e4", want: false},
		{id: "zc6f1b9e-3f0a-4c41-9d6e-2a7b5c1d0e4f", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := IsUUID(validate, tt.id); got != tt.want {
				t.Errorf("IsUUID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestCustomValidators(t *testing.T) {
	translator := NewTranslator()
	validate := NewValidator(translator)

	type form struct {
		Name   string `json:"name" validate:"required,notblank"`
		Start  string `json:"start_date" validate:"required,datestr"`
		Amount string `json:"amount" validate:"decimalamt"`
	}

	tests := []struct {
		name       string
		form       form
		wantFields []FieldError
	}{
		{
			name: "valid",
			form: form{Name: "2025", Start: "2025-01-06", Amount: "1500.50"},
		},
		{
			name: "blank name, bad date and amount",
			form: form{Name: "   ", Start: "06/01/2025", Amount: "lots"},
			wantFields: []FieldError{
				{Field: "name", Error: notBlankText},
				{Field: "start_date", Error: dateStrText},
				{Field: "amount", Error: decimalAmtText},
			},
		},
		{
			name: "missing values",
			form: form{},
			wantFields: []FieldError{
				{Field: "name", Error: requiredText},
				{Field: "start_date", Error: requiredText},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.form)
			if tt.wantFields == nil {
				if err != nil {
					t.Fatalf("Struct() error = %v", err)
				}
				return
			}
			vErr, ok := ValidationErrorFrom(err, translator).(*ValidationError)
			if !ok {
				t.Fatalf("ValidationErrorFrom() = %T, want *ValidationError", err)
			}
			assert.Equal(t, tt.wantFields, vErr.Fields)
		})
	}
}

func TestDateAfter(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{a: "2025-12-01", b: "2025-01-01", want: true},
		{a: "2025-01-01", b: "2025-01-01", want: false},
		{a: "2025-01-01", b: "2025-12-01", want: false},
		{a: "garbage", b: "2025-12-01", want: false},
	}
	for _, tt := range tests {
		if got := DateAfter(tt.a, tt.b); got != tt.want {
			t.Errorf("DateAfter(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
