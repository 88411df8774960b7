package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	maxGroupNameLength        = 100
	maxGroupDescriptionLength = 500
)

var (
	validate       = validator.New()
	groupNameChars = regexp.MustCompile(`^[\p{L}\p{N} .,'!?&()_:#-]+$`)
)

// NormalizeEmail lower-cases and trims an address before it is compared or stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return newValidationError("email", "email is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return newValidationError("email", "email is not a valid address")
	}
	return nil
}

func validateGroupFields(name, description string) error {
	fields := map[string]string{}
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		fields["name"] = "name is required"
	case utf8.RuneCountInString(name) > maxGroupNameLength:
		fields["name"] = "name must be at most 100 characters"
	case !groupNameChars.MatchString(name):
		fields["name"] = "name contains unsupported characters"
	}
	if utf8.RuneCountInString(description) > maxGroupDescriptionLength {
		fields["description"] = "description must be at most 500 characters"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
