package services_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandeptwidyaop/classmod/internal/models"
	"github.com/pandeptwidyaop/classmod/internal/services"
)

func TestReplaceToken(t *testing.T) {
	tests := []struct {
		name    string
		class   string
		want    string
		changed bool
	}{
		{"middle token", "foo question_KOLOM bar", "foo question_column bar", true},
		{"only token", "question_KOLOM", "question_column", true},
		{"first occurrence only", "question_KOLOM x question_KOLOM", "question_column x question_KOLOM", true},
		{"surrounding whitespace is trimmed", "  a question_KOLOM  ", "a question_column", true},
		{"absent", "foo bar", "foo bar", false},
		{"substring is not a token", "question_KOLOMS", "question_KOLOMS", false},
		{"case sensitive", "question_kolom", "question_kolom", false},
		{"absent keeps original spacing", " foo  bar ", " foo  bar ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := services.ReplaceToken(tt.class, "question_KOLOM", "question_column")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestReplaceToken_SplitsOnSingleSpaces(t *testing.T) {
	class := "btn  question_KOLOM\tmx-2"
	got, changed := services.ReplaceToken(class, "question_KOLOM\tmx-2", "x")
	require.True(t, changed)
	assert.Equal(t, "btn  x", got)
}

func TestMutator_Mutate(t *testing.T) {
	u := unit("u1", models.KindPage, "Questions.Home",
		el("a", "container1", "foo question_KOLOM bar"),
		el("b", "container2", "foo bar"),
		el("c", "container3", "   "),
	)
	model := newFakeModel("wc-1", u)
	nodes := services.Collect([]*models.Unit{u}, services.PageCollection, "")

	m := services.NewMutator("question_KOLOM", "question_column", nil)
	var seen []services.Replacement
	m.OnReplace(func(r services.Replacement) { seen = append(seen, r) })

	changed, err := m.Mutate(model, nodes)
	require.NoError(t, err)
	assert.True(t, changed)

	deltas := model.PendingDeltas()
	require.Len(t, deltas, 1)
	assert.Equal(t, models.Delta{UnitID: "u1", ElementID: "a", Property: models.PropertyClass, Value: "foo question_column bar"}, deltas[0])

	require.Len(t, seen, 1)
	assert.Equal(t, "foo question_KOLOM bar", seen[0].Before)
	assert.Equal(t, "foo question_column bar", seen[0].After)
	assert.Equal(t, "foo bar", models.Find(u.Root, "b").ClassValue())
}

func TestMutator_NothingMatches(t *testing.T) {
	u := unit("u1", models.KindPage, "Questions.Home", el("a", "container1", "foo bar"))
	model := newFakeModel("wc-1", u)

	m := services.NewMutator("question_KOLOM", "question_column", nil)
	changed, err := m.Mutate(model, services.Collect([]*models.Unit{u}, services.PageCollection, ""))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, model.PendingDeltas())
}

func TestMutator_WriteRejected(t *testing.T) {
	u := unit("u1", models.KindPage, "Questions.Home", el("a", "container1", "question_KOLOM"))
	model := newFakeModel("wc-1", u)
	model.setErr = errors.New("read only")

	m := services.NewMutator("question_KOLOM", "question_column", nil)
	changed, err := m.Mutate(model, services.Collect([]*models.Unit{u}, services.PageCollection, ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrMutate)
	assert.False(t, changed)
}
