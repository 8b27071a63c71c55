package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClockNow(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	assert.Equal(t, start, c.Now())
	c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), c.Now())
}

func TestMockClockAfterFiresOnAdvance(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	ch := c.After(time.Minute)

	select {
	case <-ch:
		t.Fatal("timer fired before the clock was advanced")
	default:
	}

	c.Advance(30 * time.Second)
	select {
	case <-ch:
		t.Fatal("timer fired before its deadline")
	default:
	}

	c.Advance(30 * time.Second)
	select {
	case at := <-ch:
		assert.Equal(t, time.Unix(60, 0).UTC(), at.UTC())
	case <-time.After(time.Second):
		t.Fatal("timer did not fire at its deadline")
	}
}

func TestMockClockSleepReturnsImmediately(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))

	done := make(chan struct{})
	go func() {
		c.Sleep(24 * time.Hour)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("mock sleep blocked")
	}
}
