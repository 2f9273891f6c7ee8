package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juan10024/tictactoe-test/internal/core/rules"
)

type fakeState struct {
	value    int
	terminal bool
}

func (f fakeState) IsTerminal() bool { return f.terminal }

func TestContainer_ReplaceIncrementsVersionMonotonically(t *testing.T) {
	c := New(fakeState{value: 0})

	s, v := c.Snapshot()
	assert.Equal(t, uint64(0), v)
	assert.Equal(t, fakeState{value: 0}, s)

	c.Replace(fakeState{value: 1}, nil)
	_, v = c.Snapshot()
	assert.Equal(t, uint64(1), v)

	c.Replace(fakeState{value: 2}, nil)
	_, v = c.Snapshot()
	assert.Equal(t, uint64(2), v)
}

func TestContainer_SubscribeOnlySeesChangesFromSubscriptionPointForward(t *testing.T) {
	c := New(fakeState{value: 0})
	c.Replace(fakeState{value: 1}, nil) // before anyone subscribes

	ch, unsubscribe := c.Subscribe()
	defer unsubscribe()

	c.Replace(fakeState{value: 2}, "ctx")

	select {
	case change := <-ch:
		assert.Equal(t, uint64(2), change.Version)
		assert.Equal(t, fakeState{value: 2}, change.State)
		assert.Equal(t, "ctx", change.Context)
	case <-time.After(time.Second):
		t.Fatal("expected a Change to be published")
	}

	select {
	case extra := <-ch:
		t.Fatalf("unexpected second change observed: %+v", extra)
	default:
	}
}

func TestContainer_UnsubscribeStopsDelivery(t *testing.T) {
	c := New(fakeState{value: 0})
	ch, unsubscribe := c.Subscribe()
	unsubscribe()

	c.Replace(fakeState{value: 1}, nil)

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
}

func TestContainer_EmitRoundEndDoesNotAffectVersion(t *testing.T) {
	c := New(fakeState{value: 0})
	roundCh, unsubscribe := c.SubscribeRoundEnd()
	defer unsubscribe()

	_, before := c.Snapshot()
	c.Emit(map[string]any{"winner": "a"})
	_, after := c.Snapshot()

	assert.Equal(t, before, after)

	select {
	case ev := <-roundCh:
		assert.Equal(t, map[string]any{"winner": "a"}, ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("expected a RoundEnd to be published")
	}
}

func TestContainer_ReplaceDoesNotBlockOnFullSubscriberBuffer(t *testing.T) {
	c := New(fakeState{value: 0})
	_, unsubscribe := c.Subscribe() // never drained
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			c.Replace(fakeState{value: i}, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Replace blocked on a full subscriber buffer")
	}
}

func TestContainer_RulesGameStateInterfaceSatisfied(t *testing.T) {
	var _ rules.GameState = fakeState{}
	require.True(t, fakeState{terminal: true}.IsTerminal())
}
