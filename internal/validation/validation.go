// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}
	if len(username) > 30 {
		return fmt.Errorf("username must not exceed 30 characters")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}
	if username[0] == '_' || username[0] == '-' || username[len(username)-1] == '_' || username[len(username)-1] == '-' {
		return fmt.Errorf("username cannot start or end with underscore or hyphen")
	}
	return nil
}

// BookInput is the user-editable part of a listing.
type BookInput struct {
	Title       string
	Author      string
	Description string
	Condition   string
}

const (
	maxTitleLen       = 255
	maxAuthorLen      = 255
	maxDescriptionLen = 5000
)

// ValidateBook checks a new listing. Title, author and condition are required.
func ValidateBook(in BookInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(in.Author) == "" {
		return fmt.Errorf("author is required")
	}
	if err := ValidateBookFields(in); err != nil {
		return err
	}
	if in.Condition == "" {
		return fmt.Errorf("condition is required")
	}
	return nil
}

// ValidateBookFields checks only the fields that are set, for partial updates.
func ValidateBookFields(in BookInput) error {
	if err := MaxLength("title", in.Title, maxTitleLen); err != nil {
		return err
	}
	if err := MaxLength("author", in.Author, maxAuthorLen); err != nil {
		return err
	}
	if err := MaxLength("description", in.Description, maxDescriptionLen); err != nil {
		return err
	}
	switch in.Condition {
	case "", "new", "used":
		return nil
	default:
		return fmt.Errorf("condition must be 'new' or 'used'")
	}
}

// MaxLength rejects values longer than limit characters.
func MaxLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return fmt.Errorf("%s must not exceed %d characters", field, limit)
	}
	return nil
}

// RequiredText trims value and rejects it when empty or longer than limit.
func RequiredText(field, value string, limit int) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	if err := MaxLength(field, v, limit); err != nil {
		return "", err
	}
	return v, nil
}
