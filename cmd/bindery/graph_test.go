package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
owner: page
root:
  user: {name: ada}
  items: [a]
watch:
  - name: name
    path: user.name
  - name: items
    path: items
    array: true
steps:
  - op: append
    path: items
    values: [b]
  - op: unwatch
    watch: items
`), 0o644))

	out, err := execute(t, "graph", path)
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD\n")
	assert.Contains(t, out, `root(("page"))`)
	assert.Contains(t, out, `n_items_1[/"1: b"/]`)
	assert.Contains(t, out, "class n_user_name watched;")
	assert.NotContains(t, out, "class n_items watched;")
	assert.Contains(t, out, "class n_items current;")
}

func TestGraphCommand_DisposedRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - op: dispose\n    owner: replay\n"), 0o644))

	_, err := execute(t, "graph", path)
	assert.Error(t, err)
}
