package reactive

import (
	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/tree"
)

// notifyDescendants recomputes every observed identifier strictly below id
// after the value at id went from oldValue to newValue.
func (m *Manager) notifyDescendants(id string, newValue, oldValue any) {
	for _, d := range m.descendants(id) {
		m.propagateTo(id, d, newValue, oldValue, true)
	}
}

// rebindDescendants is notifyDescendants without listeners: caches, traps
// and array trackers follow the new graph, nobody hears about it. Writes
// past the depth bound still go through here.
func (m *Manager) rebindDescendants(id string, newValue, oldValue any) {
	for _, d := range m.descendants(id) {
		m.propagateTo(id, d, newValue, oldValue, false)
	}
}

// propagateTo re-binds id (below base) in the new graph after base went from
// oldValue to newValue, notifying its listeners when notify is set and the
// value changed.
func (m *Manager) propagateTo(base, id string, newValue, oldValue any, notify bool) {
	suffix := domain.Suffix(id, base)
	if len(suffix) == 0 {
		return
	}
	last := len(suffix) - 1
	newParent := tree.Walk(newValue, suffix[:last])
	oldParent := tree.Walk(oldValue, suffix[:last])

	if suffix[last] == tree.LengthKey {
		if arr, ok := newParent.(*tree.Array); ok {
			if prev, was := oldParent.(*tree.Array); !was || prev != arr {
				m.observeArray(domain.Join(base, suffix[:last]...), arr)
			}
		}
	}

	newChild := tree.Child(newParent, suffix[last])
	oldChild := tree.Child(oldParent, suffix[last])
	if notify && !tree.Same(newChild, oldChild) {
		m.fire(id, newChild, oldChild)
	}
	m.remember(id, newChild)
	if m.needed(id) {
		m.bind(id)
	}
}
