package script

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/bindery"
	"github.com/aretw0/bindery/pkg/schema"
	"github.com/aretw0/bindery/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const session = `
owner: page
root:
  user:
    name: ada
  items: [b, a]
watch:
  - name: name
    path: user.name
  - name: first
    path: items.0
  - name: items
    path: items
    array: true
steps:
  - op: set
    path: user.name
    value: grace
  - op: append
    path: items
    values: [c]
  - op: sort
    path: items
  - op: unwatch
    watch: name
  - op: set
    path: user
    value: {name: linus}
  - op: dispose
    owner: watch
`

func TestParse_Defaults(t *testing.T) {
	s, err := Parse([]byte("watch:\n  - path: a.b\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultOwner, s.Owner)
	assert.NotNil(t, s.Root)
	assert.Equal(t, "a.b", s.Watches[0].Name)
	assert.Equal(t, "watch", s.Watches[0].Owner)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown op":      "steps:\n  - op: explode\n    path: a\n",
		"invalid path":    "steps:\n  - op: set\n    path: a..b\n",
		"unknown watch":   "steps:\n  - op: unwatch\n    watch: ghost\n",
		"missing owner":   "steps:\n  - op: dispose\n",
		"duplicate watch": "watch:\n  - path: a\n  - path: a\n",
		"bad watch path":  "watch:\n  - path: ''\n",
		"unknown field":   "owner: x\nextra: 1\n",
		"root not a map":  "root: [1, 2]\n",
		"bad schema type": "schema:\n  a: nope\n",
		"bad schema id":   "schema:\n  a..b: int\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestRun_Session(t *testing.T) {
	s, err := Parse([]byte(session))
	require.NoError(t, err)

	eng := bindery.New()
	events, err := Collect(eng, s)
	require.NoError(t, err)
	require.Len(t, events, 6)

	assert.Equal(t, Event{Step: 0, Kind: EventValue, Watch: "name", Path: "user.name", NewValue: "grace", OldValue: "ada"}, events[0])

	assert.Equal(t, EventArray, events[1].Kind)
	assert.Equal(t, tree.OpAppend, events[1].Op)
	assert.Equal(t, 2, events[1].Index)
	assert.Equal(t, 1, events[1].Added)

	assert.Equal(t, EventArray, events[2].Kind)
	assert.Equal(t, tree.OpSort, events[2].Op)
	assert.Equal(t, Event{Step: 2, Kind: EventValue, Watch: "first", Path: "items.0", NewValue: "a", OldValue: "b"}, events[3])

	assert.Equal(t, Event{Step: 3, Kind: EventUnwatch, Watch: "name"}, events[4])
	assert.Equal(t, Event{Step: 5, Kind: EventDispose, Path: "watch", Count: 2}, events[5])

	root := eng.GetContext("page", "").(*tree.Object)
	assert.Equal(t, []string{"user", "items"}, root.Keys())
	assert.Equal(t, []any{"a", "b", "c"}, tree.ToNative(root.Get("items")))
	assert.Equal(t, "linus", eng.GetContext("page", "user.name"))

	assert.Equal(t, "ada", s.Root.Get("user").(*tree.Object).Get("name"), "replay works on a copy of the script root")
}

func TestRun_ArrayStepOnScalar(t *testing.T) {
	s, err := Parse([]byte("root: {n: 1}\nsteps:\n  - op: append\n    path: n\n    values: [2]\n"))
	require.NoError(t, err)

	err = Run(bindery.New(), s, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0 (append)")
}

func TestRun_SpliceAndShift(t *testing.T) {
	s, err := Parse([]byte(`
root:
  list: [1, 2, 3, 4]
watch:
  - path: list
    array: true
  - path: list.1
steps:
  - op: splice
    path: list
    start: 1
    delete: 2
    values: [9]
  - op: shift
    path: list
  - op: prepend
    path: list
    values: [0]
  - op: pop
    path: list
  - op: reverse
    path: list
`))
	require.NoError(t, err)

	eng := bindery.New()
	events, err := Collect(eng, s)
	require.NoError(t, err)

	var ops []tree.Op
	for _, e := range events {
		if e.Kind == EventArray {
			ops = append(ops, e.Op)
		}
	}
	assert.Equal(t, []tree.Op{tree.OpSplice, tree.OpRemoveFirst, tree.OpPrepend, tree.OpRemoveLast, tree.OpReverse}, ops)
	assert.Equal(t, []any{9, 0}, tree.ToNative(eng.GetContext(DefaultOwner, "list")))
	assert.Equal(t, []any{2, 3}, events[0].Removed)
}

func TestRun_Schema(t *testing.T) {
	doc := `
root: {user: {name: ada}, items: [1]}
schema:
  user.name: string
  items: "[int]"
steps:
  - op: append
    path: items
    values: [%s]
`
	ok, err := Parse([]byte(fmt.Sprintf(doc, "2")))
	require.NoError(t, err)
	require.NoError(t, Run(bindery.New(), ok, nil))

	bad, err := Parse([]byte(fmt.Sprintf(doc, "two")))
	require.NoError(t, err)
	err = Run(bindery.New(), bad, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "final state")
	assert.Len(t, schema.Violations(err), 1)
}

func TestRun_SchemaSkippedAfterDispose(t *testing.T) {
	s, err := Parse([]byte("schema:\n  missing: int\nsteps:\n  - op: dispose\n    owner: replay\n"))
	require.NoError(t, err)
	assert.NoError(t, Run(bindery.New(), s, nil))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte(session), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "page", s.Owner)
	assert.Len(t, s.Steps, 6)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
