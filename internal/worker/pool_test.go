package worker_test

import (
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/socratic-tutor/backend/internal/worker"
)

func TestPool_RunsEveryJob(t *testing.T) {
	p := worker.NewPool[int](3, 10)
	for i := 0; i < 10; i++ {
		n := i
		p.Submit(strconv.Itoa(n), func() int { return n * n })
	}
	p.Close()
	p.Close()

	got := map[string]int{}
	for r := range p.Results() {
		got[r.JobID] = r.Output
	}
	assert.Len(t, got, 10)
	assert.Equal(t, 81, got["9"])
}

func TestMap_BoundedConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	ids := []string{"a", "b", "c", "d", "e", "f"}

	out := worker.Map(2, ids, func(id string) string {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer running.Add(-1)
		return id + "!"
	})

	assert.Len(t, out, len(ids))
	assert.Equal(t, "c!", out["c"])
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestMap_Empty(t *testing.T) {
	out := worker.Map(4, nil, func(id string) int { return 1 })
	assert.Empty(t, out)
}
