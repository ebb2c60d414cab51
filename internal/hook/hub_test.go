package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tischda/macrokeys/internal/keys"
)

func TestHubBroadcast(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe(4)
	b, cancelB := h.Subscribe(4)
	defer cancelB()

	h.Publish(Event{Kind: KeyDown, Key: keys.CodeF12})

	for _, ch := range []<-chan Event{a, b} {
		ev := <-ch
		assert.Equal(t, KeyDown, ev.Kind)
		assert.Equal(t, keys.CodeF12, ev.Key)
		assert.False(t, ev.When.IsZero())
	}

	cancelA()
	cancelA()
	_, ok := <-a
	assert.False(t, ok, "cancel closes the channel")
	assert.Equal(t, 1, h.Subscribers())
}

func TestHubDoesNotBlock(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1)
	defer cancel()

	h.Publish(Event{Kind: MouseMove, X: 1})
	h.Publish(Event{Kind: MouseMove, X: 2})

	ev := <-ch
	assert.Equal(t, 1, ev.X)
	select {
	case ev := <-ch:
		require.Failf(t, "unexpected event", "%+v", ev)
	default:
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "MouseDown", MouseDown.String())
	assert.Equal(t, "Unknown", Kind(0).String())
}
