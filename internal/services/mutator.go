package services

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pandeptwidyaop/classmod/internal/logging"
	"github.com/pandeptwidyaop/classmod/internal/models"
)

// PropertyWriter stages property writes on a working copy.
type PropertyWriter interface {
	SetProperty(unit *models.Unit, node *models.Node, name, value string) error
}

// Replacement reports one renamed class list.
type Replacement struct {
	Unit   *models.Unit
	Node   *models.Node
	Before string
	After  string
}

// ReplaceToken replaces the first occurrence of target in a class list. The list is trimmed and
// split on single spaces; other tokens keep their order and spelling.
func ReplaceToken(class, target, replacement string) (string, bool) {
	tokens := models.ClassTokens(class)
	for i, token := range tokens {
		if token == target {
			tokens[i] = replacement
			return strings.Join(tokens, " "), true
		}
	}
	return class, false
}

// Mutator renames a class token across collected elements.
type Mutator struct {
	target      string
	replacement string
	observers   []func(Replacement)
	logger      *zap.Logger
}

// NewMutator creates a Mutator for one target/replacement pair.
func NewMutator(target, replacement string, logger *zap.Logger) *Mutator {
	return &Mutator{
		target:      target,
		replacement: replacement,
		logger:      logging.OrNop(logger).Named("mutator"),
	}
}

// OnReplace registers fn to be called after every staged replacement.
func (m *Mutator) OnReplace(fn func(Replacement)) {
	m.observers = append(m.observers, fn)
}

// Mutate renames the target token on every node that has it and reports whether anything changed.
// Nodes without the token are never written.
func (m *Mutator) Mutate(w PropertyWriter, nodes []CollectedNode) (bool, error) {
	changed := false
	for _, c := range nodes {
		before := c.Node.ClassValue()
		if strings.TrimSpace(before) == "" {
			continue
		}
		after, ok := ReplaceToken(before, m.target, m.replacement)
		if !ok {
			continue
		}
		if err := w.SetProperty(c.Unit, c.Node, models.PropertyClass, after); err != nil {
			return changed, fmt.Errorf("%w: %s/%s: %w", ErrMutate, c.Unit.QualifiedName, c.Node.NameValue(), err)
		}
		changed = true

		m.logger.Debug("class renamed",
			zap.String("unit", c.Unit.QualifiedName),
			zap.String("element", c.Node.NameValue()),
			zap.Strings("before", models.ClassTokens(before)),
			zap.String("after", after))

		r := Replacement{Unit: c.Unit, Node: c.Node, Before: before, After: after}
		for _, fn := range m.observers {
			fn(r)
		}
	}
	return changed, nil
}
