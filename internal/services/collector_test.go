package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pandeptwidyaop/classmod/internal/models"
	"github.com/pandeptwidyaop/classmod/internal/services"
)

func ids(nodes []services.CollectedNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Node.ID)
	}
	return out
}

func TestMatchesModule(t *testing.T) {
	assert.True(t, services.MatchesModule("Questions.Home", ""))
	assert.True(t, services.MatchesModule("Questions.Home", "Questions"))
	// literal prefix, not a module boundary
	assert.True(t, services.MatchesModule("Questions.Home", "Quest"))
	assert.True(t, services.MatchesModule("QuestionsAdmin.Home", "Questions"))
	assert.False(t, services.MatchesModule("Admin.Home", "Questions"))
}

func TestCollect_DepthFirstOrder(t *testing.T) {
	u := unit("u1", models.KindPage, "Questions.Home",
		el("a", "outer", "x",
			el("a1", "inner", "y"),
			el("a2", "", "no-name"),
			el("a3", "no-class", ""),
		),
		el("b", "second", "z"),
	)

	got := services.Collect([]*models.Unit{u}, services.PageCollection, "Questions")
	assert.Equal(t, []string{"u1-root", "a", "a1", "b"}, ids(got))
}

func TestCollect_ModuleFilter(t *testing.T) {
	in := unit("u1", models.KindPage, "Questions.Home", el("a", "n", "c"))
	out := unit("u2", models.KindPage, "Admin.Home", el("b", "n", "c"))

	got := services.Collect([]*models.Unit{in, out}, services.PageCollection, "Questions")
	assert.Equal(t, []string{"u1-root", "a"}, ids(got))

	got = services.Collect([]*models.Unit{in, out}, services.PageCollection, "")
	assert.Equal(t, []string{"u1-root", "a", "u2-root", "b"}, ids(got))
}

func TestCollect_SnippetRootExcluded(t *testing.T) {
	s := unit("s1", models.KindSnippet, "Questions.Header", el("a", "n", "c"))
	s.Root.Name = models.StringPtr("Header")
	s.Root.Class = models.StringPtr("question_KOLOM")

	got := services.Collect([]*models.Unit{s}, services.SnippetCollection, "")
	assert.Equal(t, []string{"a"}, ids(got))

	l := unit("l1", models.KindLayout, "Questions.Main", el("b", "n", "c"))
	got = services.Collect([]*models.Unit{l}, services.LayoutCollection, "")
	assert.Equal(t, []string{"l1-root", "b"}, ids(got))
}

func TestCollect_NestedContainerOfRootTypeExcluded(t *testing.T) {
	nested := el("n", "nested", "c")
	nested.Type = string(models.KindPage)
	u := unit("u1", models.KindPage, "Questions.Home", nested, el("a", "n", "c"))

	got := services.Collect([]*models.Unit{u}, services.PageCollection, "")
	assert.Equal(t, []string{"u1-root", "a"}, ids(got))
}

func TestCollectionFor(t *testing.T) {
	assert.Equal(t, services.PageCollection, services.CollectionFor(models.KindPage))
	assert.Equal(t, services.SnippetCollection, services.CollectionFor(models.KindSnippet))
	assert.Equal(t, services.LayoutCollection, services.CollectionFor(models.KindLayout))
}
