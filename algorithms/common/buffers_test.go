package common

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(from, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(from + i)
	}
	return out
}

func TestRingBuffer_ReadLatestBeforeWrite(t *testing.T) {
	rb := NewRingBuffer(8)

	got := rb.ReadLatest(5)
	assert.Equal(t, make([]float32, 5), got)
	assert.Equal(t, 0, rb.Available())
	assert.Nil(t, rb.Read(1))
	assert.Zero(t, rb.RMS(4))
}

func TestRingBuffer_WrapKeepsNewest(t *testing.T) {
	const capacity = 100
	rb := NewRingBuffer(capacity)

	// 1.5x capacity in uneven blocks
	rb.Write(ramp(0, 40))
	rb.Write(ramp(40, 70))
	rb.Write(ramp(110, 40))

	require.Equal(t, capacity, rb.Available())
	assert.Equal(t, ramp(50, capacity), rb.ReadLatest(capacity))
	assert.Equal(t, ramp(140, 10), rb.ReadLatest(10))
}

func TestRingBuffer_ReadLatestZeroPadsFront(t *testing.T) {
	rb := NewRingBuffer(16)
	rb.Write([]float32{1, 2, 3})

	assert.Equal(t, []float32{0, 0, 1, 2, 3}, rb.ReadLatest(5))
	// more than capacity still returns n samples
	got := rb.ReadLatest(20)
	require.Len(t, got, 20)
	assert.Equal(t, []float32{1, 2, 3}, got[17:])
}

func TestRingBuffer_OversizedWrite(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Write(ramp(0, 10))

	assert.Equal(t, []float32{6, 7, 8, 9}, rb.ReadLatest(4))

	rb.Write([]float32{10})
	assert.Equal(t, []float32{7, 8, 9, 10}, rb.ReadLatest(4))
}

func TestRingBuffer_Read(t *testing.T) {
	rb := NewRingBuffer(10)
	rb.Write(ramp(1, 4))

	assert.Nil(t, rb.Read(5))
	assert.Equal(t, []float32{3, 4}, rb.Read(2))
}

func TestRingBuffer_RMSAndClear(t *testing.T) {
	rb := NewRingBuffer(32)
	block := make([]float32, 16)
	for i := range block {
		block[i] = 0.5
		if i%2 == 1 {
			block[i] = -0.5
		}
	}
	rb.Write(block)

	assert.InDelta(t, 0.5, rb.RMS(16), 1e-9)
	// a block larger than what was written uses what is there
	assert.InDelta(t, 0.5, rb.RMS(64), 1e-9)

	rb.Clear()
	assert.Zero(t, rb.Available())
	assert.Equal(t, make([]float32, 4), rb.ReadLatest(4))
}

func TestRingBuffer_ConcurrentProducerConsumer(t *testing.T) {
	rb := NewRingBuffer(1024)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			rb.Write(ramp(i*256, 256))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			for _, v := range rb.ReadLatest(512) {
				if math.IsNaN(float64(v)) {
					t.Error("read NaN from ring buffer")
					return
				}
			}
		}
	}()
	wg.Wait()

	assert.Equal(t, ramp(200*256-1024, 1024), rb.ReadLatest(1024))
}
