package midi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"pipelined.dev/graph/midi"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestQueue(t *testing.T) {
	q := midi.NewQueue(3)
	assert.Equal(t, 4, q.Cap())

	_, ok := q.Pop()
	assert.False(t, ok, "empty")

	for i := 0; i < 4; i++ {
		assert.True(t, q.Push(midi.Event{Kind: midi.NoteOn, Key: uint8(i)}))
	}
	assert.False(t, q.Push(midi.Event{}), "full")
	assert.Equal(t, 4, q.Len())

	for i := 0; i < 4; i++ {
		e, ok := q.Pop()
		assert.True(t, ok)
		assert.Equal(t, uint8(i), e.Key)
	}
	assert.Equal(t, 0, q.Len())

	// wrap around
	for i := 0; i < 10; i++ {
		assert.True(t, q.Push(midi.Event{Offset: i}))
		e, ok := q.Pop()
		assert.True(t, ok)
		assert.Equal(t, i, e.Offset)
	}
}

func TestQueueConcurrent(t *testing.T) {
	const events = 10000
	q := midi.NewQueue(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < events; {
			if q.Push(midi.Event{Offset: i}) {
				i++
			}
		}
	}()

	next := 0
	for next < events {
		e, ok := q.Pop()
		if !ok {
			continue
		}
		if e.Offset != next {
			t.Fatalf("unexpected event: %d expected: %d", e.Offset, next)
		}
		next++
	}
	<-done
	assert.Equal(t, 0, q.Len())
}

func TestQueueAllocs(t *testing.T) {
	q := midi.NewQueue(16)
	allocs := testing.AllocsPerRun(100, func() {
		q.Push(midi.Event{Kind: midi.NoteOn, Key: 60, Value: 1})
		q.Pop()
	})
	assert.Zero(t, allocs)
}
