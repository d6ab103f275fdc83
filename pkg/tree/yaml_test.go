package tree_test

import (
	"testing"

	"github.com/aretw0/bindery/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestYAML_RoundTripKeepsOrder(t *testing.T) {
	doc := []byte(`
zeta: 1
alpha:
  list: [1, 2.5, x, null, true]
  nested: {b: 2, a: 1}
mid: s
`)
	obj := tree.NewObject()
	require.NoError(t, yaml.Unmarshal(doc, obj))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, obj.Keys())
	assert.Equal(t, 1, obj.Get("zeta"))
	assert.Equal(t, []any{1, 2.5, "x", nil, true}, tree.Walk(obj, []string{"alpha", "list"}).(*tree.Array).Values())
	assert.Equal(t, []string{"b", "a"}, tree.Walk(obj, []string{"alpha", "nested"}).(*tree.Object).Keys())

	out, err := yaml.Marshal(obj)
	require.NoError(t, err)

	again := tree.NewObject()
	require.NoError(t, yaml.Unmarshal(out, again))
	assert.Equal(t, obj.Keys(), again.Keys())
	assert.Equal(t, tree.ToNative(obj), tree.ToNative(again))
}

func TestYAML_InsideStruct(t *testing.T) {
	var doc struct {
		Root  *tree.Object `yaml:"root"`
		Items *tree.Array  `yaml:"items"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("root: {a: 1}\nitems: [x, y]\n"), &doc))
	require.NotNil(t, doc.Root)
	assert.Equal(t, 1, doc.Root.Get("a"))
	assert.Equal(t, []any{"x", "y"}, doc.Items.Values())
}

func TestYAML_RejectsWrongShape(t *testing.T) {
	obj := tree.NewObject()
	assert.Error(t, yaml.Unmarshal([]byte("[1, 2]"), obj))

	arr := tree.NewArray()
	assert.Error(t, yaml.Unmarshal([]byte("a: 1"), arr))
}

func TestYAML_SkipsReservedSlots(t *testing.T) {
	obj := tree.NewObject()
	obj.Set("kept", 1)
	obj.Reserve("pending")

	out, err := yaml.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, "kept: 1\n", string(out))
}
