package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	c := New(start, time.Minute)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start, c.Start())
	assert.Equal(t, time.Minute, c.Step())
	assert.Equal(t, uint64(0), c.Ticks())
}

func TestTick(t *testing.T) {
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	c := New(start, 30*time.Second)

	got := c.Tick()
	assert.Equal(t, start.Add(30*time.Second), got)
	assert.Equal(t, got, c.Now())

	c.Tick()
	c.Tick()
	assert.Equal(t, uint64(3), c.Ticks())
	assert.Equal(t, start.Add(90*time.Second), c.Now())
}

func TestConcurrentReads(t *testing.T) {
	c := New(time.Unix(0, 0), time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Now()
			_ = c.Ticks()
		}()
	}
	for i := 0; i < 5; i++ {
		c.Tick()
	}
	wg.Wait()

	assert.Equal(t, uint64(5), c.Ticks())
}
