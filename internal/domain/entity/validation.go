package entity

import (
	"fmt"
	"strings"
	"unicode"
)

// maxNameLength bounds contact names to keep generated scripts and log
// lines reasonable.
const maxNameLength = 200

// ValidateContact checks that a contact carries everything the call
// pipeline needs. Returns a ValidationError naming the offending field.
func ValidateContact(c *Contact) error {
	if c == nil {
		return &ValidationError{Field: "contact", Message: "contact is required"}
	}

	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if len(c.Name) > maxNameLength {
		return &ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("name must not exceed %d characters", maxNameLength),
		}
	}

	return ValidatePhone(c.Phone)
}

// ValidatePhone checks that a phone number is dialable: an optional
// leading plus followed by 7 to 15 digits. Spaces and dashes are
// accepted as separators and ignored.
func ValidatePhone(phone string) error {
	if phone == "" {
		return &ValidationError{Field: "phone", Message: "phone is required"}
	}

	digits := 0
	for i, r := range phone {
		switch {
		case r == '+' && i == 0:
		case r == ' ' || r == '-':
		case unicode.IsDigit(r):
			digits++
		default:
			return &ValidationError{
				Field:   "phone",
				Message: fmt.Sprintf("phone contains invalid character %q", r),
			}
		}
	}

	if digits < 7 || digits > 15 {
		return &ValidationError{Field: "phone", Message: "phone must have 7 to 15 digits"}
	}
	return nil
}
