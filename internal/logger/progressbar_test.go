package logger

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBarRender(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		width    int
		expected string
	}{
		{"empty", 0, 10, 10, "[          ] 0/10 (0%)"},
		{"half", 5, 10, 10, "[=====     ] 5/10 (50%)"},
		{"full", 10, 10, 10, "[==========] 10/10 (100%)"},
		{"overflow clamps", 15, 10, 4, "[====] 15/10 (100%)"},
		{"zero total", 0, 0, 5, "[     ] 0/0 (0%)"},
		{"default width", 1, 2, 0, "[=====     ] 1/2 (50%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, tt.width, false)
			pb.Update(tt.current)
			assert.Equal(t, tt.expected, pb.Render())
		})
	}
}

func TestProgressBarPrefixAndIncrement(t *testing.T) {
	pb := NewProgressBar(4, 4, false)
	pb.SetPrefix("captures ")
	pb.Increment()
	pb.Increment()

	assert.Equal(t, 2, pb.Current())
	assert.Equal(t, 4, pb.Total())
	assert.Equal(t, 50, pb.Percentage())
	assert.True(t, strings.HasPrefix(pb.Render(), "captures [==  ]"))
}

func TestProgressBarConcurrentIncrement(t *testing.T) {
	pb := NewProgressBar(100, 10, false)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pb.Increment()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, pb.Current())
	assert.Equal(t, 100, pb.Percentage())
}
