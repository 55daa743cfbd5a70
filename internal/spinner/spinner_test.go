package spinner

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStart_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	stop := Start(&buf, "Refreshing benchmarks")
	stop()
	stop()
	assert.Equal(t, "Refreshing benchmarks\n", buf.String())
}

func TestAnimate(t *testing.T) {
	var buf syncBuffer
	stop := animate(&buf, "Loading", time.Millisecond)
	assert.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "Loading")
	}, time.Second, time.Millisecond)
	stop()
	stop()

	out := buf.String()
	assert.True(t, strings.HasSuffix(out, "\r"+strings.Repeat(" ", len("Loading")+2)+"\r"))
}

func TestInteractive(t *testing.T) {
	assert.False(t, Interactive(&bytes.Buffer{}))
}
