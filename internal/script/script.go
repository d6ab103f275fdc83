package script

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/schema"
	"github.com/aretw0/bindery/pkg/tree"
	"gopkg.in/yaml.v3"
)

// DefaultOwner owns the root of a script that does not name one.
const DefaultOwner = "replay"

// Op names a replay step.
type Op string

const (
	OpSet     Op = "set"
	OpAppend  Op = "append"
	OpPrepend Op = "prepend"
	OpPop     Op = "pop"
	OpShift   Op = "shift"
	OpSplice  Op = "splice"
	OpSort    Op = "sort"
	OpReverse Op = "reverse"
	OpUnwatch Op = "unwatch"
	OpDispose Op = "dispose"
)

// Script is a replayable session: a root, the watches registered on it and
// the mutations applied afterwards. Schema, when present, is checked against
// the root once every step ran.
type Script struct {
	Owner   string        `yaml:"owner"`
	Root    *tree.Object  `yaml:"root"`
	Watches []Watch       `yaml:"watch"`
	Steps   []Step        `yaml:"steps"`
	Schema  schema.Schema `yaml:"schema"`
}

// Watch registers a value listener, or an array listener when Array is set.
type Watch struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Owner    string `yaml:"owner"`
	Priority *int   `yaml:"priority"`
	Array    bool   `yaml:"array"`
}

// Step is one mutation. Fields irrelevant to Op are ignored. Splice follows
// the array semantics: a negative Start counts from the end.
type Step struct {
	Op     Op     `yaml:"op"`
	Path   string `yaml:"path"`
	Value  any    `yaml:"value"`
	Values []any  `yaml:"values"`
	Start  int    `yaml:"start"`
	Delete int    `yaml:"delete"`
	Watch  string `yaml:"watch"`
	Owner  string `yaml:"owner"`
}

// Parse decodes and validates a YAML script.
func Parse(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Script
	if err := dec.Decode(&s); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	s.defaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Parse(data)
}

func (s *Script) defaults() {
	if s.Owner == "" {
		s.Owner = DefaultOwner
	}
	if s.Root == nil {
		s.Root = tree.NewObject()
	}
	for i := range s.Watches {
		w := &s.Watches[i]
		if w.Name == "" {
			w.Name = w.Path
		}
		if w.Owner == "" {
			w.Owner = "watch"
		}
	}
}

// Validate reports the first malformed watch, step or schema identifier.
func (s *Script) Validate() error {
	for id := range s.Schema {
		if !domain.Valid(id) {
			return fmt.Errorf("schema: invalid identifier %q", id)
		}
	}
	names := make(map[string]bool, len(s.Watches))
	for i, w := range s.Watches {
		if !domain.Valid(w.Path) {
			return fmt.Errorf("watch %d: invalid path %q", i, w.Path)
		}
		if names[w.Name] {
			return fmt.Errorf("watch %d: duplicate name %q", i, w.Name)
		}
		names[w.Name] = true
	}
	for i, st := range s.Steps {
		if err := st.validate(names); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, st.Op, err)
		}
	}
	return nil
}

func (st Step) validate(watches map[string]bool) error {
	switch st.Op {
	case OpSet, OpAppend, OpPrepend, OpPop, OpShift, OpSplice, OpSort, OpReverse:
		if !domain.Valid(st.Path) {
			return fmt.Errorf("invalid path %q", st.Path)
		}
	case OpUnwatch:
		if !watches[st.Watch] {
			return fmt.Errorf("unknown watch %q", st.Watch)
		}
	case OpDispose:
		if st.Owner == "" {
			return fmt.Errorf("missing owner")
		}
	default:
		return fmt.Errorf("unknown op")
	}
	return nil
}
