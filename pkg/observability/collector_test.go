package observability

import (
	"testing"

	"github.com/aretw0/bindery"
	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/tree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_CountsEngineEvents(t *testing.T) {
	c := NewCollector()
	eng := bindery.New(bindery.WithLifecycleHooks(c.Hooks()))

	eng.SetContext("page", "a.b", 1)
	eng.SetContext("page", "items", []any{1})
	eng.ObserveFunc("page", "a.b", "ui", func(_, _ any) {})
	eng.ObserveFunc("page", "a.b", "log", func(_, _ any) {})
	eng.ObserveArrayMutation("page", "items", "ui", func([]domain.ArrayChange) {})

	eng.SetContext("page", "a.b", 2)
	eng.GetContext("page", "items").(*tree.Array).Append(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.notifications.WithLabelValues("page")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.listeners.WithLabelValues("page")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.arrayOps.WithLabelValues(string(tree.OpAppend))))
	assert.GreaterOrEqual(t, testutil.ToFloat64(c.traps.WithLabelValues("install", "primitive")), 1.0)

	assert.Equal(t, 2, eng.Dispose("ui"))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.disposals))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.removed))
}

func TestCollector_DepthExceeded(t *testing.T) {
	c := NewCollector()
	eng := bindery.New(bindery.WithLifecycleHooks(c.Hooks()), bindery.WithMaxDepth(2))
	eng.SetContext("page", "n", 0)
	eng.ObserveFunc("page", "n", "ui", func(v, _ any) {
		eng.SetContext("page", "n", v.(int)+1)
	})

	eng.SetContext("page", "n", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dropped.WithLabelValues("page")))
}

func TestCollector_Register(t *testing.T) {
	c := NewCollector()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	c.Hooks().OnDispose(&domain.DisposeEvent{OwnerID: "page", Removed: 3})

	count, err := testutil.GatherAndCount(reg, "bindery_disposals_total", "bindery_disposed_registrations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 3.0, testutil.ToFloat64(c.removed))
}
