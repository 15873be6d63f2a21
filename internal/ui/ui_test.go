package ui

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStyles(t *testing.T) {
	assert.Equal(t, ColorBold+"x"+ColorReset, Bold("x"))
	assert.Equal(t, ColorRed+"x"+ColorReset, Error("x"))
	assert.Contains(t, Field("User", "ahmed"), "User:")
	assert.Contains(t, Field("User", "ahmed"), "ahmed")
}

func TestProgress_Disabled(t *testing.T) {
	p := NewProgress(&bytes.Buffer{}, "years", false)
	assert.Nil(t, p)
	p.Step("2023-2024")
	assert.Zero(t, p.Done())
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func TestProgress_ConcurrentSteps(t *testing.T) {
	var buf lockedBuffer
	p := NewProgress(&buf, "years", true)

	var wg sync.WaitGroup
	for _, y := range []string{"2021-2022", "2022-2023", "2023-2024"} {
		wg.Add(1)
		go func(y string) {
			defer wg.Done()
			p.Step(y)
		}(y)
	}
	wg.Wait()

	assert.Equal(t, 3, p.Done())
}
