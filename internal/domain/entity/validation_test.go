package entity

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateContact(t *testing.T) {
	tests := []struct {
		name      string
		contact   *Contact
		wantErr   bool
		wantField string
	}{
		{
			name:    "valid contact",
			contact: &Contact{ID: 1, Name: "Alice Johnson", Phone: "+14155550123"},
			wantErr: false,
		},
		{
			name:    "valid contact with separators",
			contact: &Contact{ID: 2, Name: "Bob", Phone: "+1 415-555-0124"},
			wantErr: false,
		},
		{
			name:    "valid contact without plus",
			contact: &Contact{ID: 3, Name: "Carol", Phone: "4155550125"},
			wantErr: false,
		},
		{
			name:      "nil contact",
			contact:   nil,
			wantErr:   true,
			wantField: "contact",
		},
		{
			name:      "empty name",
			contact:   &Contact{ID: 4, Name: "", Phone: "+14155550126"},
			wantErr:   true,
			wantField: "name",
		},
		{
			name:      "whitespace name",
			contact:   &Contact{ID: 5, Name: "   ", Phone: "+14155550127"},
			wantErr:   true,
			wantField: "name",
		},
		{
			name:      "name exceeding maximum length",
			contact:   &Contact{ID: 6, Name: strings.Repeat("a", 201), Phone: "+14155550128"},
			wantErr:   true,
			wantField: "name",
		},
		{
			name:      "empty phone",
			contact:   &Contact{ID: 7, Name: "Dave", Phone: ""},
			wantErr:   true,
			wantField: "phone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContact(tt.contact)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateContact(): expected error=%v, got %v", tt.wantErr, err)
			}
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %T", err)
				}
				if ve.Field != tt.wantField {
					t.Errorf("expected field=%q, got %q", tt.wantField, ve.Field)
				}
			}
		})
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		wantErr bool
	}{
		{
			name:    "E.164 format",
			phone:   "+814155550123",
			wantErr: false,
		},
		{
			name:    "minimum length",
			phone:   "1234567",
			wantErr: false,
		},
		{
			name:    "maximum length",
			phone:   "+123456789012345",
			wantErr: false,
		},
		{
			name:    "too short",
			phone:   "123456",
			wantErr: true,
		},
		{
			name:    "too long",
			phone:   "1234567890123456",
			wantErr: true,
		},
		{
			name:    "plus in the middle",
			phone:   "1234+567",
			wantErr: true,
		},
		{
			name:    "letters",
			phone:   "call-me-maybe",
			wantErr: true,
		},
		{
			name:    "empty",
			phone:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePhone(tt.phone)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePhone(%q): expected error=%v, got %v", tt.phone, tt.wantErr, err)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "phone", Message: "phone is required"}

	want := "validation error on field 'phone': phone is required"
	if got := err.Error(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestValidationError_UnwrapsToSentinel(t *testing.T) {
	err := ValidateContact(&Contact{ID: 8, Name: "Erin", Phone: "bad"})

	if !errors.Is(err, ErrValidationFailed) {
		t.Errorf("expected errors.Is(err, ErrValidationFailed), got %v", err)
	}
}

func TestCallResult_Succeeded(t *testing.T) {
	tests := []struct {
		status CallStatus
		want   bool
	}{
		{CallCompleted, true},
		{CallDegraded, true},
		{CallFailed, false},
		{CallRejected, false},
	}

	for _, tt := range tests {
		r := &CallResult{Status: tt.status}
		if got := r.Succeeded(); got != tt.want {
			t.Errorf("Succeeded() with status=%s: expected %v, got %v", tt.status, tt.want, got)
		}
	}
}
