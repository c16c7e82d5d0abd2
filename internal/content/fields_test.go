package content

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeCoercesValues(t *testing.T) {
	fields := []Field{
		{Name: "title", Type: FieldText, Required: true},
		{Name: "year", Type: FieldInt},
		{Name: "tags", Type: FieldStringList},
		{Name: "site", Type: FieldURL},
		{Name: "live", Type: FieldBool},
	}
	got, err := normalize("test", fields, map[string]any{
		"title": "  Harbour ",
		"year":  float64(2020),
		"tags":  []any{" a ", "", "b"},
		"site":  "https://example.com/x",
		"live":  true,
	}, false)
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"title": "Harbour",
		"year":  2020,
		"tags":  []string{"a", "b"},
		"site":  "https://example.com/x",
		"live":  true,
	}, got)
}

func TestNormalizePartialSkipsMissing(t *testing.T) {
	fields := []Field{{Name: "title", Type: FieldText, Required: true}, {Name: "body", Type: FieldLongText}}
	got, err := normalize("test", fields, map[string]any{"body": "x"}, true)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"body": "x"}, got)

	_, err = normalize("test", fields, map[string]any{"title": ""}, true)
	require.ErrorIs(t, err, ErrInvalid, "a required field cannot be blanked")
}

func TestNormalizeCollectsProblems(t *testing.T) {
	fields := []Field{
		{Name: "title", Type: FieldText, Required: true, Max: 3},
		{Name: "year", Type: FieldInt},
		{Name: "site", Type: FieldURL},
	}
	_, err := normalize("test", fields, map[string]any{
		"title": "too long",
		"year":  1.5,
		"site":  "ftp://example.com",
	}, false)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Problems, 3)
}

func TestKindsDeclareTitleAndScopeAsText(t *testing.T) {
	for name, kind := range Kinds {
		types := map[string]FieldType{}
		for _, f := range kind.Fields {
			types[f.Name] = f.Type
		}
		require.Equal(t, FieldText, types["title"], name)
		if kind.ScopeField != "" {
			require.Equal(t, FieldText, types[kind.ScopeField], name)
		}
	}
	// Text the content block and FieldText the field type live side by side.
	require.Equal(t, "about", Text{Key: "about"}.Key)
}
