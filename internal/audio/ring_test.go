package audio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferWriteRead(t *testing.T) {
	rb := NewRingBuffer(10)

	rb.Write([]float32{1, 2, 3})
	assert.Equal(t, 3, rb.Available())

	out := make([]float32, 3)
	require.True(t, rb.Read(out))
	assert.Equal(t, []float32{1, 2, 3}, out)
	assert.Equal(t, 0, rb.Available())
}

func TestRingBufferReadIsAllOrNothing(t *testing.T) {
	rb := NewRingBuffer(10)
	rb.Write([]float32{1, 2})

	out := make([]float32, 3)
	require.False(t, rb.Read(out), "partial read must not consume anything")
	assert.Equal(t, 2, rb.Available())

	rb.Write([]float32{3})
	require.True(t, rb.Read(out))
	assert.Equal(t, []float32{1, 2, 3}, out)
}

func TestRingBufferOverwritesOldest(t *testing.T) {
	rb := NewRingBuffer(4)

	rb.Write([]float32{1, 2, 3, 4})
	rb.Write([]float32{5, 6})
	assert.Equal(t, 4, rb.Available())

	out := make([]float32, 4)
	require.True(t, rb.Read(out))
	assert.Equal(t, []float32{3, 4, 5, 6}, out, "oldest samples are dropped on overflow")
}

func TestRingBufferWrap(t *testing.T) {
	rb := NewRingBuffer(4)
	out := make([]float32, 2)

	for i := 0; i < 10; i++ {
		lo := float32(i * 2)
		rb.Write([]float32{lo, lo + 1})
		require.True(t, rb.Read(out))
		assert.Equal(t, []float32{lo, lo + 1}, out)
	}
}

func TestRingBufferReset(t *testing.T) {
	rb := NewRingBuffer(8)
	rb.Write([]float32{1, 2, 3})
	rb.Reset()

	assert.Equal(t, 0, rb.Available())
	assert.False(t, rb.Read(make([]float32, 1)))
}

func TestRingBufferConcurrentWriterReader(t *testing.T) {
	rb := NewRingBuffer(1 << 12)
	const frames = 500
	frame := make([]float32, 64)

	writerDone := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer close(writerDone)
		for i := 0; i < frames; i++ {
			rb.Write(frame)
		}
	}()

	go func() {
		defer wg.Done()
		out := make([]float32, 64)
		for {
			if !rb.Read(out) {
				select {
				case <-writerDone:
					// Drain what remains, then stop.
					for rb.Read(out) {
					}
					return
				default:
				}
			}
		}
	}()

	wg.Wait()
	assert.Less(t, rb.Available(), 64)
}
