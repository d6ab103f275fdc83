package tree

// Object is an ordered collection of named slots.
// It is not safe for concurrent use.
type Object struct {
	keys  []string
	slots map[string]*Slot
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{slots: make(map[string]*Slot)}
}

// Len returns the number of properties.
func (o *Object) Len() int {
	return len(o.keys)
}

// Keys returns the property names in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Has reports whether key is a property of o. Reserved slots are not.
func (o *Object) Has(key string) bool {
	s, ok := o.slots[key]
	return ok && !s.pending
}

// Get returns the value of key, going through the slot trap if any.
// Missing keys yield nil.
func (o *Object) Get(key string) any {
	s, ok := o.slots[key]
	if !ok {
		return nil
	}
	return s.load()
}

// Set writes key, going through the slot trap if any. Missing keys are added.
func (o *Object) Set(key string, value any) {
	o.EnsureSlot(key).assign(value)
}

// Delete removes key. A trapped property keeps its slot and is written to nil
// instead, so observers see the removal.
func (o *Object) Delete(key string) {
	s, ok := o.slots[key]
	if !ok {
		return
	}
	if s.trap != nil {
		s.trap.Set(s, nil)
		return
	}
	delete(o.slots, key)
	if s.pending {
		return
	}
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Slot returns the slot for key, reserved or not, or nil when there is none.
func (o *Object) Slot(key string) *Slot {
	return o.slots[key]
}

// EnsureSlot returns the slot for key, creating an undefined property when
// missing. A reserved slot becomes a property.
func (o *Object) EnsureSlot(key string) *Slot {
	s := o.Reserve(key)
	if s.pending {
		s.pending = false
		o.keys = append(o.keys, key)
	}
	return s
}

// Reserve returns the slot for key without making it a property: a new slot
// stays out of Keys, Len and encodings until the first Set or EnsureSlot.
// Traps can be installed on it ahead of the write.
func (o *Object) Reserve(key string) *Slot {
	if o.slots == nil {
		o.slots = make(map[string]*Slot)
	}
	s, ok := o.slots[key]
	if !ok {
		s = &Slot{pending: true}
		o.slots[key] = s
	}
	return s
}

// Range calls fn for every property in insertion order until fn returns false.
func (o *Object) Range(fn func(key string, s *Slot) bool) {
	for _, k := range o.Keys() {
		s, ok := o.slots[k]
		if !ok {
			continue
		}
		if !fn(k, s) {
			return
		}
	}
}

// RangeSlots calls fn for every slot, reserved ones included, until fn
// returns false. Properties come first in insertion order; reserved slots
// follow in no particular order.
func (o *Object) RangeSlots(fn func(key string, s *Slot) bool) {
	for _, k := range o.Keys() {
		if s, ok := o.slots[k]; ok && !fn(k, s) {
			return
		}
	}
	for k, s := range o.slots {
		if s.pending && !fn(k, s) {
			return
		}
	}
}
