package reactive

import (
	"sort"
	"strings"
	"time"

	"github.com/aretw0/bindery/pkg/domain"
)

// registration is one live observation. Exactly one of listener and onChange
// is set. Internal registrations belong to the manager itself: no owner can
// release them and they are left out of Stats.
type registration struct {
	id       string
	ownerID  string
	seq      uint64
	listener *domain.Listener
	onChange domain.ArrayCallback
	internal bool
	removed  bool
	token    domain.RemovalToken
}

func (m *Manager) newRegistration(id, ownerID string) *registration {
	m.seq++
	r := &registration{id: id, ownerID: ownerID, seq: m.seq}
	r.token = domain.Once(func() { m.remove(r) })
	return r
}

func (m *Manager) register(id, ownerID string) *registration {
	r := m.newRegistration(id, ownerID)
	set, ok := m.owned[ownerID]
	if !ok {
		set = make(map[*registration]struct{})
		m.owned[ownerID] = set
	}
	set[r] = struct{}{}
	return r
}

func (m *Manager) remove(r *registration) {
	if r.removed {
		return
	}
	r.removed = true
	if set, ok := m.owned[r.ownerID]; ok && !r.internal {
		delete(set, r)
		if len(set) == 0 {
			delete(m.owned, r.ownerID)
		}
	}
	if m.state == StateDisposed {
		return
	}

	index := m.arrays
	if r.listener != nil {
		index = m.listeners
	}
	if regs := without(index[r.id], r); len(regs) > 0 {
		index[r.id] = regs
	} else {
		delete(index, r.id)
	}

	if !m.live(r.id) {
		m.undepend(r.id)
		delete(m.cache, r.id)
	}
	m.unbind(r.id)
}

// insertByPriority keeps regs ordered by descending priority, stable among
// equal priorities.
func insertByPriority(regs []*registration, r *registration) []*registration {
	i := sort.Search(len(regs), func(i int) bool {
		return regs[i].listener.Priority < r.listener.Priority
	})
	regs = append(regs, nil)
	copy(regs[i+1:], regs[i:])
	regs[i] = r
	return regs
}

func without(regs []*registration, r *registration) []*registration {
	out := make([]*registration, 0, len(regs))
	for _, x := range regs {
		if x != r {
			out = append(out, x)
		}
	}
	return out
}

func sortedRegistrations(set map[*registration]struct{}) []*registration {
	out := make([]*registration, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// live reports whether id has registrations of either kind.
func (m *Manager) live(id string) bool {
	return len(m.listeners[id])+len(m.arrays[id]) > 0
}

// depend records id under each of its prefixes.
func (m *Manager) depend(id string) {
	for _, p := range domain.Prefixes(id) {
		set, ok := m.deps[p]
		if !ok {
			set = make(map[string]struct{})
			m.deps[p] = set
		}
		set[id] = struct{}{}
	}
}

func (m *Manager) undepend(id string) {
	for _, p := range domain.Prefixes(id) {
		if set, ok := m.deps[p]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(m.deps, p)
			}
		}
	}
}

func (m *Manager) hasDescendants(id string) bool {
	for d := range m.deps[id] {
		if d != id {
			return true
		}
	}
	return false
}

// needed reports whether interception along id must stay in place.
func (m *Manager) needed(id string) bool {
	return m.live(id) || m.hasDescendants(id)
}

// needsTracking reports whether an array held at id must be intercepted.
func (m *Manager) needsTracking(id string) bool {
	return len(m.arrays[id]) > 0 || m.hasDescendants(id)
}

// descendants lists the observed identifiers strictly below id, parents
// before children. The empty id stands for the root.
func (m *Manager) descendants(id string) []string {
	seen := make(map[string]struct{})
	if set, ok := m.deps[id]; ok {
		for d := range set {
			seen[d] = struct{}{}
		}
	} else {
		for d := range m.listeners {
			if domain.Descends(d, id) {
				seen[d] = struct{}{}
			}
		}
		for d := range m.arrays {
			if domain.Descends(d, id) {
				seen[d] = struct{}{}
			}
		}
	}
	delete(seen, id)

	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sortIdentifiers(out)
	return out
}

func sortIdentifiers(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		di, dj := strings.Count(ids[i], domain.Separator), strings.Count(ids[j], domain.Separator)
		if di != dj {
			return di < dj
		}
		return ids[i] < ids[j]
	})
}

func (m *Manager) remember(id string, value any) {
	if m.live(id) {
		m.cache[id] = value
	}
}

// invalidate drops cached values strictly below prefix.
func (m *Manager) invalidate(prefix string) {
	for id := range m.cache {
		if id != prefix && domain.Descends(id, prefix) {
			delete(m.cache, id)
		}
	}
}

// fire invokes the value listeners of id in priority order. Listeners
// removed while the loop runs are skipped.
func (m *Manager) fire(id string, newValue, oldValue any) {
	regs := m.listeners[id]
	if len(regs) == 0 {
		return
	}
	m.cache[id] = newValue
	snapshot := append([]*registration(nil), regs...)
	if m.hooks.OnNotify != nil {
		m.hooks.OnNotify(&domain.NotifyEvent{
			EventBase:  m.event(domain.EventNotify),
			Identifier: id,
			Listeners:  len(snapshot),
			Depth:      m.depth,
		})
	}
	for _, r := range snapshot {
		if r.removed || r.listener.Callback == nil {
			continue
		}
		r.listener.Callback(newValue, oldValue)
	}
}

// broadcast hands one change record to the array listeners of id.
func (m *Manager) broadcast(id string, change domain.ArrayChange) {
	regs := append([]*registration(nil), m.arrays[id]...)
	if m.hooks.OnArrayChange != nil {
		m.hooks.OnArrayChange(&domain.ArrayEvent{
			EventBase:  m.event(domain.EventArrayChange),
			Identifier: id,
			Op:         string(change.Op),
			Listeners:  len(regs),
		})
	}
	for _, r := range regs {
		if r.removed {
			continue
		}
		r.onChange([]domain.ArrayChange{change})
	}
}

func (m *Manager) enter() bool {
	if m.depth >= m.maxDepth {
		return false
	}
	m.depth++
	return true
}

func (m *Manager) leave() {
	m.depth--
}

// exceeded reports a notification dropped by the recursion bound.
func (m *Manager) exceeded(id string) {
	m.logger.Warn("notification depth exceeded, dropping notification",
		"identifier", id, "max_depth", m.maxDepth)
	if m.hooks.OnDepthExceeded != nil {
		m.hooks.OnDepthExceeded(&domain.NotifyEvent{
			EventBase:  m.event(domain.EventDepthExceeded),
			Identifier: id,
			Listeners:  len(m.listeners[id]),
			Depth:      m.depth,
		})
	}
}

func (m *Manager) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, RootID: m.rootID}
}
