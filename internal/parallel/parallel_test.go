package parallel_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/autograd/internal/parallel"
)

// cover records how often each index of [0, n) was visited.
func cover(n int, cfg parallel.Config) (visits []int, calls int) {
	var mu sync.Mutex
	visits = make([]int, n)
	parallel.Range(n, func(start, end int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		for i := start; i < end; i++ {
			visits[i]++
		}
	}, cfg)
	return visits, calls
}

func TestRange_CoversOnce(t *testing.T) {
	cfg := parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 10}
	visits, calls := cover(1003, cfg)
	assert.Equal(t, 4, calls)
	for i, v := range visits {
		if !assert.Equal(t, 1, v, "index %d", i) {
			break
		}
	}
}

func TestRange_Sequential(t *testing.T) {
	_, calls := cover(100, parallel.Config{Enabled: false, NumWorkers: 8})
	assert.Equal(t, 1, calls)

	// Too small to be worth splitting.
	_, calls = cover(15, parallel.Config{Enabled: true, NumWorkers: 8, MinChunkSize: 10})
	assert.Equal(t, 1, calls)

	_, calls = cover(0, parallel.DefaultConfig())
	assert.Equal(t, 0, calls)
}

func TestRange_MinChunkSize(t *testing.T) {
	// 8 workers would give chunks of 13; the minimum raises them to 40.
	_, calls := cover(100, parallel.Config{Enabled: true, NumWorkers: 8, MinChunkSize: 40})
	assert.Equal(t, 3, calls)
}

func BenchmarkRange(b *testing.B) {
	data := make([]float64, 1<<20)
	for name, cfg := range map[string]parallel.Config{
		"parallel":   parallel.DefaultConfig(),
		"sequential": {},
	} {
		b.Run(name, func(b *testing.B) {
			for b.Loop() {
				parallel.Range(len(data), func(start, end int) {
					for i := start; i < end; i++ {
						data[i] = data[i]*0.5 + 1
					}
				}, cfg)
			}
		})
	}
}
