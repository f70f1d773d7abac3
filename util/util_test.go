package util

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandStr(t *testing.T) {
	s := RandStr(32)
	assert.Len(t, s, 32)
	for _, r := range s {
		assert.Contains(t, charset, string(r))
	}

	assert.Empty(t, RandStr(0))
}

func TestRandStr_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				assert.Len(t, RandStr(10), 10)
			}
		}()
	}
	wg.Wait()
}
