package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("classtoken", validateClassToken)
}

// validateClassToken accepts a single CSS class token: non-empty, no whitespace.
func validateClassToken(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, unicode.IsSpace) < 0
}

// envNames maps struct namespaces to the variable an operator sets.
var envNames = map[string]string{
	"ModelConfig.URL":                "MODEL_SDK_URL",
	"ModelConfig.User":               "MODEL_SDK_USER",
	"ModelConfig.Token":              "MODEL_SDK_TOKEN",
	"ProjectConfig.ID":               "PROJECT_ID",
	"ProjectConfig.Title":            "PROJECT_TITLE",
	"RenameConfig.Target":            "TARGET_TOKEN",
	"RenameConfig.Replacement":       "REPLACEMENT_TOKEN",
	"LoaderConfig.Concurrency":       "LOAD_CONCURRENCY",
	"LoaderConfig.RequestsPerSecond": "REQUESTS_PER_SECOND",
}

// Problem is a single validation finding.
type Problem struct {
	Err   error
	Env   string
	Field string
	Tag   string
}

func (p Problem) Error() string {
	return fmt.Sprintf("%v: %s (%s)", p.Err, p.Env, p.Tag)
}

func (p Problem) Unwrap() error {
	return p.Err
}

// Validate checks the configuration. Findings are returned, not enforced: missing credentials wrap
// ErrCredentials and everything else wraps ErrConfiguration. The DevServer section is not checked.
func (c *Config) Validate() []Problem {
	var problems []Problem
	for _, section := range []any{c.Model, c.Project, c.Rename, c.Loader} {
		err := validate.Struct(section)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			problems = append(problems, Problem{Err: fmt.Errorf("%w: %v", ErrConfiguration, err)})
			continue
		}
		for _, fe := range verrs {
			problems = append(problems, newProblem(fe))
		}
	}
	if c.Rename.Target != "" && c.Rename.Target == c.Rename.Replacement {
		problems = append(problems, Problem{
			Err:   ErrConfiguration,
			Env:   "REPLACEMENT_TOKEN",
			Field: "RenameConfig.Replacement",
			Tag:   "nefield=Target",
		})
	}
	return problems
}

func newProblem(fe validator.FieldError) Problem {
	ns := fe.StructNamespace()
	env := envNames[ns]
	if env == "" {
		env = ns
	}
	err := ErrConfiguration
	if ns == "ModelConfig.User" || ns == "ModelConfig.Token" {
		err = ErrCredentials
	}
	return Problem{Err: err, Env: env, Field: ns, Tag: fe.Tag()}
}

// Fatal returns the first problem that must stop a run. Credential and project findings only warn;
// invalid tokens or loader bounds stop it.
func Fatal(problems []Problem) error {
	for _, p := range problems {
		switch p.Env {
		case "TARGET_TOKEN", "REPLACEMENT_TOKEN", "LOAD_CONCURRENCY", "REQUESTS_PER_SECOND":
			return p
		}
	}
	return nil
}
