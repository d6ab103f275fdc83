package tree

// Trap intercepts reads and writes of a single slot.
//
// Set is responsible for storing the value (usually through Slot.Store);
// the container does not store it on the trap's behalf.
type Trap interface {
	Get(s *Slot) any
	Set(s *Slot, value any)
}

// Slot is one property cell of an Object or one index cell of an Array.
type Slot struct {
	value   any
	trap    Trap
	pending bool
}

// Raw returns the stored value without going through the trap.
func (s *Slot) Raw() any {
	return s.value
}

// Store replaces the stored value without going through the trap.
func (s *Slot) Store(value any) {
	s.value = value
}

// Trap returns the installed trap, or nil.
func (s *Slot) Trap() Trap {
	return s.trap
}

// SetTrap installs t, replacing any previous trap. A nil t removes it.
func (s *Slot) SetTrap(t Trap) {
	s.trap = t
}

func (s *Slot) load() any {
	if s.trap != nil {
		return s.trap.Get(s)
	}
	return s.value
}

func (s *Slot) assign(value any) {
	if s.trap != nil {
		s.trap.Set(s, value)
		return
	}
	s.value = value
}
