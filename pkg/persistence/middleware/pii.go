package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/ports"
	"github.com/aretw0/bindery/pkg/tree"
)

// Mask replaces the values of matching keys.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks, at any depth, the values
// of keys matching one of the patterns before the snapshot is stored.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, ownerID string, root *tree.Object) error {
	if root == nil {
		return domain.ErrInvalidSnapshot
	}
	// The live root may carry traps; mask a detached copy.
	cloned := tree.Clone(root).(*tree.Object)
	m.mask(cloned, make(map[any]bool))
	return m.next.Save(ctx, ownerID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, ownerID string) (*tree.Object, error) {
	return m.next.Load(ctx, ownerID)
}

func (m *piiMiddleware) Delete(ctx context.Context, ownerID string) error {
	return m.next.Delete(ctx, ownerID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) mask(v any, seen map[any]bool) {
	if !tree.IsContainer(v) || seen[v] {
		return
	}
	seen[v] = true
	switch c := v.(type) {
	case *tree.Object:
		for _, key := range c.Keys() {
			if m.matches(key) {
				c.Set(key, Mask)
				continue
			}
			m.mask(c.Get(key), seen)
		}
	case *tree.Array:
		for _, item := range c.Values() {
			m.mask(item, seen)
		}
	}
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
