package devserver_test

import (
	"errors"
	"testing"

	"github.com/pandeptwidyaop/classmod/internal/devserver"
	"github.com/pandeptwidyaop/classmod/internal/models"
)

func TestParseTemplate(t *testing.T) {
	data := []byte(`
units:
  - type: Pages$Snippet
    qualifiedName: Questions.Header
    root:
      children:
        - type: Pages$DivContainer
          name: header
          class: question_KOLOM
          children:
            - type: Pages$Text
`)
	units, err := devserver.ParseTemplate(data)
	if err != nil {
		t.Fatalf("ParseTemplate failed: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}

	u := units[0]
	if u.Kind != models.KindSnippet {
		t.Errorf("expected snippet, got %s", u.Kind)
	}
	if u.ID == "" {
		t.Error("expected generated unit id")
	}
	if u.Root.Type != string(models.KindSnippet) {
		t.Errorf("expected root type to default to the kind, got %q", u.Root.Type)
	}

	count := 0
	models.Walk(u.Root, func(n *models.Node) bool {
		if n.ID == "" {
			t.Errorf("node %s has no id", n.Type)
		}
		count++
		return true
	})
	if count != 3 {
		t.Errorf("expected 3 nodes, got %d", count)
	}

	header := u.Root.Children[0]
	if !header.HasClass() || header.ClassValue() != "question_KOLOM" {
		t.Errorf("unexpected class %q", header.ClassValue())
	}
	if header.Children[0].HasName() || header.Children[0].HasClass() {
		t.Error("expected text node without name or class")
	}
}

func TestParseTemplate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed yaml", "units: ["},
		{"unknown type", "units:\n  - type: Pages$Widget\n    qualifiedName: A.B\n"},
		{"missing qualified name", "units:\n  - type: Pages$Page\n"},
		{"qualified name without module", "units:\n  - type: Pages$Page\n    qualifiedName: Home\n"},
		{"duplicate unit id", "units:\n  - id: u\n    type: Pages$Page\n    qualifiedName: A.B\n  - id: u\n    type: Pages$Page\n    qualifiedName: A.C\n"},
		{"duplicate element id", "units:\n  - type: Pages$Page\n    qualifiedName: A.B\n    root:\n      id: r\n      children:\n        - id: r\n          type: Pages$DivContainer\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := devserver.ParseTemplate([]byte(tt.data))
			if !errors.Is(err, devserver.ErrInvalidTemplate) {
				t.Errorf("expected ErrInvalidTemplate, got %v", err)
			}
		})
	}
}
