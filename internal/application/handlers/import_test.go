package handlers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const familyJSON = `[
  {"id": "ann", "name": "Ann", "gender": "female",
   "children": [{"id": "cal", "type": "blood"}],
   "spouses": [{"id": "bob", "type": "married"}]},
  {"id": "bob", "name": "Bob", "gender": "male",
   "spouses": [{"id": "ann", "type": "married"}]},
  {"id": "cal", "name": "Cal", "gender": "male",
   "parents": [{"id": "ann", "type": "blood"}]}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportHandler_Handle_JSONFile(t *testing.T) {
	env := newHandlerEnv(t)
	path := writeFile(t, "reed.json", familyJSON)

	result, err := env.imports.Handle(context.Background(), path, ImportOptions{})
	require.NoError(t, err)
	require.Len(t, result.Trees, 1)
	assert.Equal(t, "reed", result.Trees[0].Name)
	assert.Equal(t, 3, result.Trees[0].MemberCount)
	assert.Empty(t, result.Errors)
	assert.Len(t, env.repo.Trees, 1)
}

func TestImportHandler_Handle_CSVFile(t *testing.T) {
	env := newHandlerEnv(t)
	content := "id,name,gender,parents,children\n" +
		"ann,Ann,female,,cal:adopted\n" +
		"cal,Cal,male,ann:adopted,\n"
	path := writeFile(t, "family.csv", content)

	result, err := env.imports.Handle(context.Background(), path, ImportOptions{Name: "Adoptions"})
	require.NoError(t, err)
	require.Len(t, result.Trees, 1)
	assert.Equal(t, "Adoptions", result.Trees[0].Name)
	assert.Equal(t, 2, result.Trees[0].MemberCount)
}

func TestImportHandler_Handle_DryRun(t *testing.T) {
	env := newHandlerEnv(t)
	path := writeFile(t, "reed.json", familyJSON)

	result, err := env.imports.Handle(context.Background(), path, ImportOptions{DryRun: true})
	require.NoError(t, err)
	require.Len(t, result.Trees, 1)
	assert.Empty(t, result.Trees[0].ID)
	assert.Empty(t, env.repo.Trees)
}

func TestImportHandler_Handle_InconsistentTree(t *testing.T) {
	env := newHandlerEnv(t)
	path := writeFile(t, "broken.json", `[{"id": "a", "name": "A", "parents": [{"id": "b", "type": "blood"}]}, {"id": "b", "name": "B"}]`)

	result, err := env.imports.Handle(context.Background(), path, ImportOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Trees)
	assert.Equal(t, 1, result.Skipped)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "a", result.Errors[0].MemberID)
	assert.Empty(t, env.repo.Trees)
}

func TestImportHandler_Handle_Errors(t *testing.T) {
	env := newHandlerEnv(t)

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := env.imports.Handle(context.Background(), writeFile(t, "tree.txt", "x"), ImportOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported format")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := env.imports.Handle(context.Background(), "/nonexistent/tree.json", ImportOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "opening file")
	})

	t.Run("malformed content", func(t *testing.T) {
		_, err := env.imports.Handle(context.Background(), writeFile(t, "bad.json", "{"), ImportOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing file")
	})

	t.Run("explicit format overrides extension", func(t *testing.T) {
		path := writeFile(t, "tree.txt", "- id: a\n  name: Ann\n")
		result, err := env.imports.Handle(context.Background(), path, ImportOptions{Format: "yaml"})
		require.NoError(t, err)
		assert.Len(t, result.Trees, 1)
	})
}

func TestImportHandler_HandleReader(t *testing.T) {
	env := newHandlerEnv(t)

	result, err := env.imports.HandleReader(context.Background(), strings.NewReader(`{"name": "Reed", "members": []}`), ImportOptions{Format: "json"})
	require.NoError(t, err)
	require.Len(t, result.Trees, 1)
	assert.Equal(t, "Reed", result.Trees[0].Name)

	_, err = env.imports.HandleReader(context.Background(), strings.NewReader(""), ImportOptions{Format: "xml"})
	require.Error(t, err)
}
