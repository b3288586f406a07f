package observer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify_RegistrationOrder(t *testing.T) {
	r := NewRegistry[int]()
	var calls []string
	r.Add(func(int) error { calls = append(calls, "first"); return nil })
	r.Add(func(int) error { calls = append(calls, "second"); return nil })

	assert.Empty(t, r.Notify(1))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestRemove_ByHandleIdentity(t *testing.T) {
	r := NewRegistry[int]()
	var calls []string
	h1 := r.Add(func(int) error { calls = append(calls, "first"); return nil })
	r.Add(func(int) error { calls = append(calls, "second"); return nil })

	assert.True(t, r.Remove(h1))
	assert.False(t, r.Remove(h1))
	assert.False(t, r.Remove(nil))

	r.Notify(1)
	assert.Equal(t, []string{"second"}, calls)
	assert.Equal(t, 1, r.Len())
}

func TestNotify_IsolatesErrorsAndPanics(t *testing.T) {
	r := NewRegistry[string]()
	var reached bool
	r.Add(func(string) error { return errors.New("boom") })
	r.Add(func(string) error { panic("kaboom") })
	r.Add(func(string) error { reached = true; return nil })

	failures := r.Notify("x")
	require.Len(t, failures, 2)
	assert.Equal(t, 0, failures[0].Index)
	assert.EqualError(t, failures[0].Err, "boom")
	assert.Equal(t, 1, failures[1].Index)
	assert.ErrorContains(t, failures[1].Err, "kaboom")
	assert.True(t, reached)
}

func TestNotify_CallbackMayRemoveItself(t *testing.T) {
	r := NewRegistry[int]()
	var h *Handle[int]
	count := 0
	h = r.Add(func(int) error {
		count++
		r.Remove(h)
		return nil
	})
	r.Notify(1)
	r.Notify(2)
	assert.Equal(t, 1, count)
}

func TestClear(t *testing.T) {
	r := NewRegistry[int]()
	r.Add(func(int) error { return nil })
	r.Add(func(int) error { return nil })
	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Notify(0))
}
