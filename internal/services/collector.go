package services

import (
	"strings"

	"github.com/pandeptwidyaop/classmod/internal/models"
)

// Collection describes how one unit kind is walked.
type Collection struct {
	Kind models.UnitKind
	// RootType is the container type excluded from the descendant walk.
	RootType string
	// IncludeRoot adds the unit's root node before its descendants.
	IncludeRoot bool
}

// Collections for the three visited kinds. Snippet roots are never collected; pages and layouts
// include theirs.
var (
	PageCollection    = Collection{Kind: models.KindPage, RootType: string(models.KindPage), IncludeRoot: true}
	LayoutCollection  = Collection{Kind: models.KindLayout, RootType: string(models.KindLayout), IncludeRoot: true}
	SnippetCollection = Collection{Kind: models.KindSnippet, RootType: string(models.KindSnippet), IncludeRoot: false}
)

// CollectionFor returns the walk settings of kind.
func CollectionFor(kind models.UnitKind) Collection {
	switch kind {
	case models.KindLayout:
		return LayoutCollection
	case models.KindSnippet:
		return SnippetCollection
	default:
		return PageCollection
	}
}

// CollectedNode is an element selected for the rename, with the unit that owns it.
type CollectedNode struct {
	Unit *models.Unit
	Node *models.Node
}

// MatchesModule reports whether a qualified name passes the module filter. The filter is a
// literal prefix, so "Quest" also matches "Questions.Home"; an empty filter matches everything.
func MatchesModule(qualifiedName, moduleFilter string) bool {
	return moduleFilter == "" || strings.HasPrefix(qualifiedName, moduleFilter)
}

// Collect selects the elements of units that carry both a name and a class. Units outside the
// module filter are skipped. The order is depth-first in stored child order, unit by unit.
func Collect(units []*models.Unit, c Collection, moduleFilter string) []CollectedNode {
	var out []CollectedNode
	for _, unit := range units {
		if unit == nil || unit.Root == nil {
			continue
		}
		if !MatchesModule(unit.QualifiedName, moduleFilter) {
			continue
		}
		if c.IncludeRoot {
			out = append(out, CollectedNode{Unit: unit, Node: unit.Root})
		}
		models.Walk(unit.Root, func(n *models.Node) bool {
			if n.HasName() && n.HasClass() && n.Type != c.RootType {
				out = append(out, CollectedNode{Unit: unit, Node: n})
			}
			return true
		})
	}
	return out
}
