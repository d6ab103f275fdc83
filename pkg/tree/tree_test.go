package tree_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/bindery/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTrap struct {
	reads  int
	writes []any
}

func (r *recordingTrap) Get(s *tree.Slot) any {
	r.reads++
	return s.Raw()
}

func (r *recordingTrap) Set(s *tree.Slot, v any) {
	r.writes = append(r.writes, v)
	s.Store(v)
}

type recordingInterceptor struct {
	ops []tree.Mutation
}

func (r *recordingInterceptor) Intercept(a *tree.Array, op tree.Op, apply func() tree.Mutation) tree.Mutation {
	m := apply()
	r.ops = append(r.ops, m)
	return m
}

func TestKindOf(t *testing.T) {
	var nilObj *tree.Object
	assert.Equal(t, tree.KindUndefined, tree.KindOf(nil))
	assert.Equal(t, tree.KindUndefined, tree.KindOf(nilObj))
	assert.Equal(t, tree.KindPrimitive, tree.KindOf(5))
	assert.Equal(t, tree.KindPrimitive, tree.KindOf("x"))
	assert.Equal(t, tree.KindObject, tree.KindOf(tree.NewObject()))
	assert.Equal(t, tree.KindArray, tree.KindOf(tree.NewArray()))
	assert.Equal(t, "array", tree.KindArray.String())
}

func TestSame(t *testing.T) {
	obj := tree.NewObject()
	assert.True(t, tree.Same(5, 5))
	assert.False(t, tree.Same(5, 9))
	assert.False(t, tree.Same(5, int64(5)))
	assert.True(t, tree.Same(nil, nil))
	assert.True(t, tree.Same(obj, obj))
	assert.False(t, tree.Same(obj, tree.NewObject()))
	assert.False(t, tree.Same([]int{1}, []int{1}), "uncomparable values are never the same")
}

func TestObject_TrapRouting(t *testing.T) {
	obj := tree.NewObject()
	obj.Set("a", 1)

	trap := &recordingTrap{}
	obj.Slot("a").SetTrap(trap)

	assert.Equal(t, 1, obj.Get("a"))
	obj.Set("a", 2)
	assert.Equal(t, 1, trap.reads)
	assert.Equal(t, []any{2}, trap.writes)
	assert.Equal(t, 2, obj.Slot("a").Raw())

	// Deleting a trapped key writes nil through the trap and keeps the slot.
	obj.Delete("a")
	assert.True(t, obj.Has("a"))
	assert.Nil(t, obj.Get("a"))

	obj.Set("b", 3)
	obj.Delete("b")
	assert.False(t, obj.Has("b"))
	assert.Equal(t, []string{"a"}, obj.Keys())
}

func TestObject_EnsureSlotKeepsOrder(t *testing.T) {
	obj := tree.NewObject()
	obj.Set("z", 1)
	obj.EnsureSlot("a")
	obj.Set("m", 2)
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())
	assert.Nil(t, obj.Get("a"))
}

func TestObject_ReserveStaysOutOfProperties(t *testing.T) {
	obj := tree.NewObject()
	obj.Set("a", 1)
	slot := obj.Reserve("b")
	trap := &recordingTrap{}
	slot.SetTrap(trap)
	assert.Same(t, slot, obj.Reserve("b"))
	assert.Same(t, slot, obj.Slot("b"))

	assert.False(t, obj.Has("b"))
	assert.Equal(t, 1, obj.Len())
	assert.Equal(t, []string{"a"}, obj.Keys())
	assert.Equal(t, map[string]any{"a": 1}, tree.ToNative(obj))
	out, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(out))
	assert.Equal(t, []string{"a"}, tree.Clone(obj).(*tree.Object).Keys())

	var seen []string
	obj.RangeSlots(func(key string, _ *tree.Slot) bool {
		seen = append(seen, key)
		return true
	})
	assert.Equal(t, []string{"a", "b"}, seen)

	obj.Set("b", 2)
	assert.True(t, obj.Has("b"))
	assert.Equal(t, []string{"a", "b"}, obj.Keys())
	assert.Equal(t, []any{2}, trap.writes, "the write goes through the trap")
	assert.Same(t, slot, obj.Slot("b"))
}

func TestObject_DeleteReserved(t *testing.T) {
	obj := tree.NewObject()
	obj.Reserve("a")
	obj.Delete("a")
	assert.Nil(t, obj.Slot("a"))
	assert.Empty(t, obj.Keys())

	obj.Reserve("b").SetTrap(&recordingTrap{})
	obj.Delete("b")
	assert.NotNil(t, obj.Slot("b"), "a trapped slot is kept")
	assert.False(t, obj.Has("b"))
}

func TestArray_Operations(t *testing.T) {
	arr := tree.NewArray(1, 2, 3)

	assert.Equal(t, 4, arr.Append(4))
	assert.Equal(t, 4, arr.RemoveLast())
	assert.Equal(t, 1, arr.RemoveFirst())
	assert.Equal(t, 4, arr.Prepend(0, 1))
	assert.Equal(t, []any{0, 1, 2, 3}, arr.Values())

	removed := arr.Splice(1, 2, "a", "b", "c")
	assert.Equal(t, []any{1, 2}, removed)
	assert.Equal(t, []any{0, "a", "b", "c", 3}, arr.Values())

	arr.Reverse()
	assert.Equal(t, []any{3, "c", "b", "a", 0}, arr.Values())

	arr.Sort(nil)
	assert.Equal(t, []any{0, 3, "a", "b", "c"}, arr.Values())
}

func TestArray_SpliceClamping(t *testing.T) {
	arr := tree.NewArray(1, 2, 3)
	assert.Equal(t, []any{3}, arr.Splice(-1, 5))
	assert.Equal(t, []any{}, arr.Splice(10, 1, 9))
	assert.Equal(t, []any{1, 2, 9}, arr.Values())
	assert.Equal(t, []any{}, arr.Splice(0, -3))
}

func TestArray_EmptyRemovals(t *testing.T) {
	arr := tree.NewArray()
	assert.Nil(t, arr.RemoveLast())
	assert.Nil(t, arr.RemoveFirst())
	assert.Equal(t, 0, arr.Len())
}

func TestArray_SortWithLess(t *testing.T) {
	arr := tree.NewArray(3, 1, 2)
	arr.Sort(func(x, y any) bool { return x.(int) < y.(int) })
	assert.Equal(t, []any{1, 2, 3}, arr.Values())
}

func TestArray_SlotsSurviveShrinking(t *testing.T) {
	arr := tree.NewArray(1, 2, 3)
	trap := &recordingTrap{}
	slot := arr.Slot(2)
	slot.SetTrap(trap)

	arr.RemoveLast()
	assert.Nil(t, arr.Slot(2))
	arr.Append(7)
	require.NotNil(t, arr.Slot(2))
	assert.Same(t, slot, arr.Slot(2))
	assert.Equal(t, 7, arr.At(2))
	assert.Equal(t, 1, trap.reads)

	count := 0
	arr.RangeSlots(func(i int, s *tree.Slot) bool {
		count++
		return true
	})
	assert.Equal(t, 3, count)
}

func TestArray_SetPastEndIsSplice(t *testing.T) {
	arr := tree.NewArray(1)
	rec := &recordingInterceptor{}
	arr.SetInterceptor(rec)

	arr.Set(3, "x")
	assert.Equal(t, []any{1, nil, nil, "x"}, arr.Values())
	require.Len(t, rec.ops, 1)
	assert.Equal(t, tree.OpSplice, rec.ops[0].Op)
	assert.Equal(t, 1, rec.ops[0].Index)
	assert.Equal(t, 3, rec.ops[0].Added)

	arr.Set(-1, "ignored")
	assert.Equal(t, 4, arr.Len())
}

func TestArray_InterceptorSeesSnapshots(t *testing.T) {
	arr := tree.NewArray("b", "a")
	rec := &recordingInterceptor{}
	arr.SetInterceptor(rec)

	arr.Sort(nil)
	arr.Append()
	require.Len(t, rec.ops, 2)
	assert.Equal(t, []any{"b", "a"}, rec.ops[0].Snapshot)
	assert.False(t, rec.ops[0].Empty())
	assert.True(t, rec.ops[1].Empty())
}

func TestWalkAndChild(t *testing.T) {
	root := tree.FromNative(map[string]any{
		"a": map[string]any{"list": []any{1, map[string]any{"c": "deep"}}},
	})

	assert.Equal(t, "deep", tree.Walk(root, []string{"a", "list", "1", "c"}))
	assert.Equal(t, 2, tree.Walk(root, []string{"a", "list", "length"}))
	assert.Nil(t, tree.Walk(root, []string{"a", "missing", "c"}))
	assert.Nil(t, tree.Walk(root, []string{"a", "list", "0", "c"}))
	assert.Nil(t, tree.Child(nil, "x"))
}

func TestIndex(t *testing.T) {
	i, ok := tree.Index("12")
	assert.True(t, ok)
	assert.Equal(t, 12, i)

	for _, seg := range []string{"", "-1", "1a", "length"} {
		_, ok := tree.Index(seg)
		assert.False(t, ok, seg)
	}
}

func TestClone_IsDeepAndDropsTraps(t *testing.T) {
	root := tree.FromNative(map[string]any{"a": map[string]any{"b": 1}}).(*tree.Object)
	root.Slot("a").SetTrap(&recordingTrap{})

	cp := tree.Clone(root).(*tree.Object)
	assert.Nil(t, cp.Slot("a").Trap())
	cp.Get("a").(*tree.Object).Set("b", 2)
	assert.Equal(t, 1, tree.Walk(root, []string{"a", "b"}))
}

func TestJSON_RoundTripKeepsOrder(t *testing.T) {
	payload := []byte(`{"z":1,"a":{"list":[1,2.5,"x",null,true]},"m":"s"}`)

	obj := tree.NewObject()
	require.NoError(t, json.Unmarshal(payload, obj))
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())
	assert.Equal(t, 1, obj.Get("z"))
	assert.Equal(t, 2.5, tree.Walk(obj, []string{"a", "list", "1"}))

	out, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(out))
	assert.Equal(t, byte('z'), out[2])
}

func TestJSON_RejectsWrongShape(t *testing.T) {
	obj := tree.NewObject()
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), obj))

	arr := tree.NewArray()
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), arr))
	require.NoError(t, json.Unmarshal([]byte(`[1,2]`), arr))
	assert.Equal(t, []any{1, 2}, arr.Values())
}

func TestNative_RoundTrip(t *testing.T) {
	native := map[string]any{
		"b": []string{"x", "y"},
		"a": map[string]int{"n": 1},
	}
	v := tree.FromNative(native)
	obj, ok := v.(*tree.Object)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, obj.Keys())

	back := tree.ToNative(v)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"n": 1},
		"b": []any{"x", "y"},
	}, back)
}
