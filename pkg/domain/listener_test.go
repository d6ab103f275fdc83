package domain_test

import (
	"testing"

	"github.com/aretw0/bindery/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestNewListener_DefaultsToLowestPriority(t *testing.T) {
	l := domain.NewListener("view", nil)
	assert.Equal(t, domain.LowestPriority, l.Priority)
	assert.Equal(t, "view", l.OwnerID)

	l = domain.NewListener("view", nil, domain.WithPriority(5))
	assert.Equal(t, 5, l.Priority)
}

func TestOnce_IsIdempotent(t *testing.T) {
	calls := 0
	token := domain.Once(func() { calls++ })
	token()
	token()
	assert.Equal(t, 1, calls)
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var order []string
	a := domain.LifecycleHooks{OnNotify: func(*domain.NotifyEvent) { order = append(order, "a") }}
	b := domain.LifecycleHooks{
		OnNotify:  func(*domain.NotifyEvent) { order = append(order, "b") },
		OnDispose: func(*domain.DisposeEvent) { order = append(order, "dispose") },
	}

	merged := a.Merge(b)
	merged.OnNotify(&domain.NotifyEvent{})
	merged.OnDispose(&domain.DisposeEvent{})
	assert.Nil(t, merged.OnTrapInstall)
	assert.Equal(t, []string{"a", "b", "dispose"}, order)
}
