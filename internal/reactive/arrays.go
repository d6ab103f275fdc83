package reactive

import (
	"math"

	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/tree"
)

// arrayTracker intercepts the mutating operations of one array for every
// identifier holding it.
type arrayTracker struct {
	m   *Manager
	arr *tree.Array
	ids []string
}

func (tr *arrayTracker) Intercept(_ *tree.Array, op tree.Op, apply func() tree.Mutation) tree.Mutation {
	return tr.m.mutate(tr, op, apply)
}

func (tr *arrayTracker) addID(id string) {
	for _, x := range tr.ids {
		if x == id {
			return
		}
	}
	tr.ids = append(tr.ids, id)
}

// rewritesIndexes reports whether op can move existing items to other
// indexes (or overwrite them), which index listeners must hear about.
func rewritesIndexes(op tree.Op) bool {
	switch op {
	case tree.OpPrepend, tree.OpSplice, tree.OpRemoveFirst, tree.OpSort, tree.OpReverse:
		return true
	}
	return false
}

func (m *Manager) observeArray(id string, arr *tree.Array) {
	if tr, ok := m.trackers[arr]; ok {
		tr.addID(id)
		return
	}
	if arr.Interceptor() != nil {
		m.logger.Debug("array intercepted by another context, skipping", "identifier", id)
		return
	}
	tr := &arrayTracker{m: m, arr: arr, ids: []string{id}}
	arr.SetInterceptor(tr)
	m.trackers[arr] = tr
}

func (m *Manager) restoreArray(arr *tree.Array) {
	tr, ok := m.trackers[arr]
	if !ok {
		return
	}
	if arr.Interceptor() == tr {
		arr.SetInterceptor(nil)
	}
	delete(m.trackers, arr)
}

func (m *Manager) pruneArray(arr *tree.Array) {
	tr, ok := m.trackers[arr]
	if !ok {
		return
	}
	kept := tr.ids[:0]
	for _, id := range tr.ids {
		if m.needsTracking(id) {
			kept = append(kept, id)
		}
	}
	tr.ids = kept
	if len(tr.ids) == 0 {
		m.restoreArray(arr)
	}
}

// mutate runs one intercepted array operation and notifies, per identifier
// holding the array: the array listeners, the length listeners when the
// length changed, and the index listeners when items may have moved.
// Appending never notifies index listeners.
func (m *Manager) mutate(tr *arrayTracker, op tree.Op, apply func() tree.Mutation) tree.Mutation {
	arr := tr.arr
	before := arr.Len()
	var prior []any
	if rewritesIndexes(op) {
		prior = arr.Values()
	}

	mut := apply()
	if mut.Empty() {
		return mut
	}

	ids := append([]string(nil), tr.ids...)
	for _, item := range mut.Removed {
		m.detach(item, ids)
	}
	for _, item := range prior {
		m.detach(item, ids)
	}
	for _, id := range ids {
		m.invalidate(id)
	}

	after := arr.Len()
	if !m.enter() {
		for _, id := range ids {
			m.exceeded(id)
			m.resyncArray(id, arr, prior)
		}
		return mut
	}
	defer m.leave()

	change := domain.ArrayChange{
		Array:    arr,
		Op:       op,
		Index:    mut.Index,
		Removed:  mut.Removed,
		Added:    mut.Added,
		Snapshot: mut.Snapshot,
	}
	var old *tree.Array
	if prior != nil {
		old = tree.NewArray(prior...)
	}
	for _, id := range ids {
		m.broadcast(id, change)
		if before != after {
			m.fire(domain.Join(id, tree.LengthKey), after, before)
		}
		if old != nil {
			m.propagateArray(id, arr, old)
		}
	}
	return mut
}

// propagateArray notifies the index listeners under id after items moved.
// Length listeners were already notified.
func (m *Manager) propagateArray(id string, arr, old *tree.Array) {
	for _, d := range m.descendants(id) {
		if suffix := domain.Suffix(d, id); len(suffix) > 0 && suffix[0] == tree.LengthKey {
			continue
		}
		m.propagateTo(id, d, arr, old, true)
	}
}

// resyncArray brings the identifiers under id back in line with arr after a
// mutation whose notifications were dropped. Length and index caches are
// refreshed and deferred indexes now in range get bound.
func (m *Manager) resyncArray(id string, arr *tree.Array, prior []any) {
	var old any = arr
	if prior != nil {
		old = tree.NewArray(prior...)
	}
	m.rebindDescendants(id, arr, old)
}

// deferIndex waits for the array at arrayID to grow past index before binding
// id. Until then writes to the index cannot be intercepted; growth itself
// does not notify id.
func (m *Manager) deferIndex(id, arrayID string, index int) {
	if _, ok := m.watchers[id]; ok {
		return
	}
	watcher := &domain.Listener{
		Priority: math.MaxInt,
		Callback: func(newValue, _ any) {
			n, ok := newValue.(int)
			if !ok || n <= index {
				return
			}
			if token, ok := m.watchers[id]; ok {
				delete(m.watchers, id)
				token()
			}
			if m.needed(id) {
				m.bind(id)
			}
		},
	}
	m.watchers[id] = m.watch(domain.Join(arrayID, tree.LengthKey), watcher)
}

// watch registers an internal value listener on lengthID. It is not owned by
// anyone: only unbind, the watcher itself or Dispose remove it.
func (m *Manager) watch(lengthID string, l *domain.Listener) domain.RemovalToken {
	r := m.newRegistration(lengthID, "")
	r.internal = true
	r.listener = l
	m.listeners[lengthID] = insertByPriority(m.listeners[lengthID], r)
	m.depend(lengthID)
	m.bind(lengthID)
	m.cache[lengthID] = m.resolve(lengthID)
	return r.token
}
