// Package validation checks the names and keys accepted by the local model service.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var (
	// ErrKeyTooShort indicates an API key is shorter than the policy allows.
	ErrKeyTooShort = errors.New("api key is too short")
	// ErrKeyWhitespace indicates an API key contains whitespace.
	ErrKeyWhitespace = errors.New("api key must not contain whitespace")
	// ErrKeyCommon indicates an API key is a well-known default.
	ErrKeyCommon = errors.New("api key is a well-known default, please choose another")
	// ErrInputTooLong indicates input exceeds maximum length.
	ErrInputTooLong = errors.New("input exceeds maximum length")
	// ErrInputInvalid indicates input contains invalid characters.
	ErrInputInvalid = errors.New("input contains invalid characters")
)

// KeyPolicy defines API key requirements.
type KeyPolicy struct {
	MinLength   int
	CheckCommon bool
}

// DefaultKeyPolicy returns the policy applied to seeded users.
func DefaultKeyPolicy() KeyPolicy {
	return KeyPolicy{
		MinLength:   6,
		CheckCommon: true,
	}
}

var commonKeys = map[string]bool{
	"changeme": true,
	"password": true,
	"apikey":   true,
	"api_key":  true,
	"123456":   true,
	"12345678": true,
	"qwerty":   true,
	"token":    true,
	"default":  true,
}

// ValidateAPIKey validates a key against the policy.
func ValidateAPIKey(key string, policy KeyPolicy) error {
	if len(key) < policy.MinLength {
		return ErrKeyTooShort
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return ErrKeyWhitespace
	}
	if policy.CheckCommon && commonKeys[strings.ToLower(key)] {
		return ErrKeyCommon
	}
	return nil
}

var (
	usernamePattern      = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._@+\-]*$`)
	namePattern          = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\s\-_.]*$`)
	qualifiedNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)+$`)
)

// ValidateUsername accepts plain account names and e-mail style logins.
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return errors.New("username must be at least 3 characters")
	}
	if len(username) > 254 {
		return ErrInputTooLong
	}
	if !usernamePattern.MatchString(username) {
		return ErrInputInvalid
	}
	return nil
}

// ValidateName validates a working copy or project name.
func ValidateName(name string, maxLength int) error {
	if len(name) > maxLength {
		return ErrInputTooLong
	}
	if !namePattern.MatchString(name) {
		return ErrInputInvalid
	}
	return nil
}

// ValidateQualifiedName accepts Module.Document names, with optional nested folders.
func ValidateQualifiedName(qualifiedName string) error {
	if len(qualifiedName) > 255 {
		return ErrInputTooLong
	}
	if !qualifiedNamePattern.MatchString(qualifiedName) {
		return ErrInputInvalid
	}
	return nil
}
