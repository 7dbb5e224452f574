package devserver

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/pandeptwidyaop/classmod/internal/models"
	"github.com/pandeptwidyaop/classmod/internal/validation"
)

// Template is the YAML document a project or local working copy is created from.
//
//	units:
//	  - type: Pages$Page
//	    qualifiedName: Questions.Home
//	    root:
//	      type: Pages$Page
//	      children:
//	        - type: Pages$DivContainer
//	          name: container1
//	          class: foo question_KOLOM
type Template struct {
	Units []*models.Unit `yaml:"units"`
}

// ParseTemplate decodes and checks a template. Missing unit and element ids are generated, and a
// root without a type gets the unit's kind.
func ParseTemplate(data []byte) ([]*models.Unit, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	seen := make(map[string]bool, len(tmpl.Units))
	for i, u := range tmpl.Units {
		if u == nil {
			return nil, fmt.Errorf("%w: unit %d is empty", ErrInvalidTemplate, i)
		}
		if !u.Kind.Valid() {
			return nil, fmt.Errorf("%w: unit %d has unknown type %q", ErrInvalidTemplate, i, u.Kind)
		}
		if u.QualifiedName == "" {
			return nil, fmt.Errorf("%w: unit %d has no qualifiedName", ErrInvalidTemplate, i)
		}
		if err := validation.ValidateQualifiedName(u.QualifiedName); err != nil {
			return nil, fmt.Errorf("%w: qualifiedName %q: %w", ErrInvalidTemplate, u.QualifiedName, err)
		}
		if u.Root == nil {
			u.Root = &models.Node{}
		}
		if u.Root.Type == "" {
			u.Root.Type = string(u.Kind)
		}
		if u.ID == "" {
			u.ID = uuid.New().String()
		}
		if seen[u.ID] {
			return nil, fmt.Errorf("%w: duplicate unit id %q", ErrInvalidTemplate, u.ID)
		}
		seen[u.ID] = true

		elements := make(map[string]bool)
		var dup string
		models.Walk(u.Root, func(n *models.Node) bool {
			if n.ID == "" {
				n.ID = uuid.New().String()
			}
			if elements[n.ID] {
				dup = n.ID
			}
			elements[n.ID] = true
			return true
		})
		if dup != "" {
			return nil, fmt.Errorf("%w: %s has duplicate element id %q", ErrInvalidTemplate, u.QualifiedName, dup)
		}
	}
	return tmpl.Units, nil
}

// LoadTemplate reads and parses a template file.
func LoadTemplate(path string) ([]*models.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTemplate(data)
}
