package reactive

import (
	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/tree"
)

type trapKind uint8

const (
	primitiveTrap trapKind = iota
	objectTrap
)

func (k trapKind) String() string {
	if k == objectTrap {
		return "object"
	}
	return "primitive"
}

func kindFor(v any) trapKind {
	if tree.IsContainer(v) {
		return objectTrap
	}
	return primitiveTrap
}

// trap intercepts one property slot on behalf of every identifier resolving
// through it. An object reachable from two places serves both identifiers.
type trap struct {
	m    *Manager
	kind trapKind
	slot *tree.Slot
	ids  []string
}

func (t *trap) Get(s *tree.Slot) any {
	t.m.lastRead = t
	return s.Raw()
}

func (t *trap) Set(s *tree.Slot, value any) {
	t.m.write(t, value)
}

func (t *trap) addID(id string) {
	for _, x := range t.ids {
		if x == id {
			return
		}
	}
	t.ids = append(t.ids, id)
}

func (t *trap) primary() string {
	if len(t.ids) == 0 {
		return ""
	}
	return t.ids[0]
}

func (m *Manager) ownTrap(s *tree.Slot) *trap {
	if s == nil {
		return nil
	}
	if t, ok := s.Trap().(*trap); ok && t.m == m {
		return t
	}
	return nil
}

func (m *Manager) install(slot *tree.Slot, id string) {
	t := &trap{m: m, kind: kindFor(slot.Raw()), slot: slot, ids: []string{id}}
	slot.SetTrap(t)
	m.traps[t] = struct{}{}
	m.logger.Debug("trap installed", "identifier", id, "kind", t.kind)
	m.emitTrap(m.hooks.OnTrapInstall, domain.EventTrapInstall, t)
}

func (m *Manager) uninstall(t *trap) {
	if t.slot.Trap() == t {
		t.slot.SetTrap(nil)
	}
	if _, ok := m.traps[t]; !ok {
		return
	}
	delete(m.traps, t)
	m.logger.Debug("trap removed", "identifier", t.primary(), "kind", t.kind)
	m.emitTrap(m.hooks.OnTrapRemove, domain.EventTrapRemove, t)
	t.ids = nil
}

// reinstall swaps t for a trap of another kind on the same slot, keeping the
// identifiers it serves.
func (m *Manager) reinstall(t *trap, kind trapKind) *trap {
	next := &trap{m: m, kind: kind, slot: t.slot, ids: t.ids}
	delete(m.traps, t)
	m.emitTrap(m.hooks.OnTrapRemove, domain.EventTrapRemove, t)
	t.slot.SetTrap(next)
	m.traps[next] = struct{}{}
	m.logger.Debug("trap kind changed", "identifier", next.primary(), "from", t.kind, "to", kind)
	m.emitTrap(m.hooks.OnTrapInstall, domain.EventTrapInstall, next)
	return next
}

func (m *Manager) emitTrap(hook func(*domain.TrapEvent), typ domain.EventType, t *trap) {
	if hook == nil {
		return
	}
	hook(&domain.TrapEvent{
		EventBase:  m.event(typ),
		Identifier: t.primary(),
		Kind:       t.kind.String(),
	})
}

// write is the intercepted assignment path.
func (m *Manager) write(t *trap, value any) {
	old := t.slot.Raw()
	if tree.Same(old, value) {
		return
	}
	t.slot.Store(value)

	ids := append([]string(nil), t.ids...)
	if t.kind == objectTrap {
		m.detach(old, ids)
	}
	if k := kindFor(value); k != t.kind {
		t = m.reinstall(t, k)
	}
	for _, id := range ids {
		m.remember(id, value)
		if arr, ok := value.(*tree.Array); ok && m.needsTracking(id) {
			m.observeArray(id, arr)
		}
	}

	if !m.enter() {
		for _, id := range ids {
			m.exceeded(id)
			m.rebindDescendants(id, value, old)
		}
		m.prune(t)
		return
	}
	defer m.leave()
	for _, id := range ids {
		m.fire(id, value, old)
		m.notifyDescendants(id, value, old)
	}
	m.prune(t)
}

// bind installs interception along id, from the root down to the deepest
// existing segment.
func (m *Manager) bind(id string) {
	segs, ok := domain.Split(id)
	if !ok || m.root == nil {
		return
	}
	var cur any = m.root
	parent := ""
	for _, seg := range segs {
		path := domain.Join(parent, seg)
		var (
			slot *tree.Slot
			read func() any
		)
		switch c := cur.(type) {
		case *tree.Object:
			slot = c.Reserve(seg)
			read = func() any { return c.Get(seg) }
		case *tree.Array:
			m.observeArray(parent, c)
			if seg == tree.LengthKey {
				return
			}
			i, ok := tree.Index(seg)
			if !ok {
				return
			}
			if i >= c.Len() {
				m.deferIndex(path, parent, i)
				return
			}
			if token, ok := m.watchers[path]; ok {
				delete(m.watchers, path)
				token()
			}
			slot = c.Slot(i)
			read = func() any { return c.At(i) }
		default:
			return
		}
		cur = m.claim(slot, path, read)
		parent = path
	}
	if arr, ok := cur.(*tree.Array); ok && m.needsTracking(id) {
		m.observeArray(id, arr)
	}
}

// claim makes sure slot is intercepted for id and returns its value. Reading
// through the slot reveals a trap this manager already installed there, which
// happens when the same object is reachable under another identifier.
func (m *Manager) claim(slot *tree.Slot, id string, read func() any) any {
	m.lastRead = nil
	value := read()
	hit := m.lastRead
	m.lastRead = nil

	switch {
	case hit != nil:
		hit.addID(id)
	case slot.Trap() == nil:
		m.install(slot, id)
	default:
		m.logger.Debug("slot intercepted by another context, skipping", "identifier", id)
	}
	return value
}

// unbind prunes interception along id, deepest first.
func (m *Manager) unbind(id string) {
	if token, ok := m.watchers[id]; ok && !m.needed(id) {
		delete(m.watchers, id)
		token()
	}
	segs, ok := domain.Split(id)
	if !ok || m.root == nil {
		return
	}

	var (
		traps  []*trap
		arrays []*tree.Array
		cur    any = m.root
	)
walk:
	for _, seg := range segs {
		var slot *tree.Slot
		switch c := cur.(type) {
		case *tree.Object:
			slot = c.Slot(seg)
		case *tree.Array:
			arrays = append(arrays, c)
			if i, ok := tree.Index(seg); ok {
				slot = c.Slot(i)
			}
		}
		if slot == nil {
			cur = nil
			break walk
		}
		if t := m.ownTrap(slot); t != nil {
			traps = append(traps, t)
		}
		cur = slot.Raw()
	}
	if arr, ok := cur.(*tree.Array); ok {
		arrays = append(arrays, arr)
	}
	for i := len(traps) - 1; i >= 0; i-- {
		m.prune(traps[i])
	}
	for _, arr := range arrays {
		m.pruneArray(arr)
	}
}

// prune drops the identifiers t no longer needs and uninstalls it when none
// remain.
func (m *Manager) prune(t *trap) {
	if t.slot.Trap() != t {
		return
	}
	kept := t.ids[:0]
	for _, id := range t.ids {
		if m.needed(id) {
			kept = append(kept, id)
		}
	}
	t.ids = kept
	if len(t.ids) == 0 {
		m.uninstall(t)
	}
}

// detach strips the interception serving identifiers under any of prefixes
// from the graph rooted at v. Interception serving other identifiers (an
// object still reachable elsewhere) stays.
func (m *Manager) detach(v any, prefixes []string) {
	if !tree.IsContainer(v) || len(m.traps)+len(m.trackers) == 0 {
		return
	}
	m.strip(v, prefixes, make(map[any]struct{}))
}

func (m *Manager) strip(v any, prefixes []string, seen map[any]struct{}) {
	switch c := v.(type) {
	case *tree.Object:
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		c.RangeSlots(func(_ string, s *tree.Slot) bool {
			m.stripSlot(s, prefixes, seen)
			return true
		})
	case *tree.Array:
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		if tr, ok := m.trackers[c]; ok {
			tr.ids = dropUnder(tr.ids, prefixes)
			if len(tr.ids) == 0 {
				m.restoreArray(c)
			}
		}
		c.RangeSlots(func(_ int, s *tree.Slot) bool {
			m.stripSlot(s, prefixes, seen)
			return true
		})
	}
}

func (m *Manager) stripSlot(s *tree.Slot, prefixes []string, seen map[any]struct{}) {
	if t := m.ownTrap(s); t != nil {
		t.ids = dropUnder(t.ids, prefixes)
		if len(t.ids) == 0 {
			m.uninstall(t)
		}
	}
	m.strip(s.Raw(), prefixes, seen)
}

func dropUnder(ids, prefixes []string) []string {
	kept := ids[:0]
	for _, id := range ids {
		under := false
		for _, p := range prefixes {
			if domain.Descends(id, p) {
				under = true
				break
			}
		}
		if !under {
			kept = append(kept, id)
		}
	}
	return kept
}
