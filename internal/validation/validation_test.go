package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAPIKey(t *testing.T) {
	policy := DefaultKeyPolicy()
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"valid", "secret", nil},
		{"long", "8f2c1e0a-4b7d-4c55-9e31-0b6a2d9f7c11", nil},
		{"too short", "abc", ErrKeyTooShort},
		{"whitespace", "has space", ErrKeyWhitespace},
		{"common", "changeme", ErrKeyCommon},
		{"common any case", "PassWord", ErrKeyCommon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key, policy)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAPIKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAPIKey_CommonAllowed(t *testing.T) {
	if err := ValidateAPIKey("changeme", KeyPolicy{MinLength: 1}); err != nil {
		t.Errorf("expected common key to pass without CheckCommon, got %v", err)
	}
}

func TestValidateUsername(t *testing.T) {
	valid := []string{"dev", "dev@example.test", "build.bot+ci", "user_01"}
	for _, u := range valid {
		if err := ValidateUsername(u); err != nil {
			t.Errorf("ValidateUsername(%q) unexpected error: %v", u, err)
		}
	}

	invalid := []string{"", "ab", "-dev", "dev user", "dev;drop", strings.Repeat("a", 255)}
	for _, u := range invalid {
		if err := ValidateUsername(u); err == nil {
			t.Errorf("ValidateUsername(%q) expected error", u)
		}
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"simple", "SurveyLocal", nil},
		{"spaces and dots", "Survey copy 2.1", nil},
		{"leading space", " Survey", ErrInputInvalid},
		{"markup", "<b>Survey</b>", ErrInputInvalid},
		{"too long", strings.Repeat("a", 101), ErrInputTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateName(tt.input, 100); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateName(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateQualifiedName(t *testing.T) {
	valid := []string{"Questions.Home", "A.B", "Admin.Folder.Page_1"}
	for _, qn := range valid {
		if err := ValidateQualifiedName(qn); err != nil {
			t.Errorf("ValidateQualifiedName(%q) unexpected error: %v", qn, err)
		}
	}

	invalid := []string{"", "Home", "Questions.", ".Home", "Questions..Home", "Questions.Home page", "1Module.Home"}
	for _, qn := range invalid {
		if err := ValidateQualifiedName(qn); err == nil {
			t.Errorf("ValidateQualifiedName(%q) expected error", qn)
		}
	}
}
