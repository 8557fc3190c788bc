package testutil

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("gen")
	assert.Equal(t, "gen-1", ids.Generate())
	assert.Equal(t, "gen-2", ids.Generate())

	ids.Reset()
	assert.Equal(t, "gen-1", ids.Generate())
}

func TestSequentialIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "run-1", NewSequentialIDs("").Generate())
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	ids := NewSequentialIDs("gen")
	const workers = 50
	const perWorker = 20

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				id := ids.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	for i := 1; i <= workers*perWorker; i++ {
		assert.True(t, seen[fmt.Sprintf("gen-%d", i)], "missing gen-%d", i)
	}
}
