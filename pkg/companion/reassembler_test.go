package companion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReassemblerSplitsLines(t *testing.T) {
	r := NewReassembler(0)

	assert.Nil(t, r.Feed([]byte("pi")))
	assert.Equal(t, 2, r.Pending())

	assert.Equal(t, []string{"ping", "STATUS"}, r.Feed([]byte("ng\nSTATUS\r\nKEY:")))
	assert.Equal(t, 4, r.Pending())

	assert.Equal(t, []string{"KEY:abc"}, r.Feed([]byte("abc\n")))
	assert.Equal(t, 0, r.Pending())
}

func TestReassemblerSkipsEmptyLines(t *testing.T) {
	r := NewReassembler(0)
	assert.Equal(t, []string{"ping"}, r.Feed([]byte("\n\r\nping\n\n")))
}

func TestReassemblerOverflow(t *testing.T) {
	r := NewReassembler(8)

	r.Feed([]byte("12345"))
	assert.Nil(t, r.Feed([]byte("6789")))
	assert.Equal(t, 1, r.Overflows())
	assert.Equal(t, 0, r.Pending())

	// The dropped chunk does not leak into the next line.
	assert.Equal(t, []string{"ping"}, r.Feed([]byte("ping\n")))
}

func TestReassemblerDefaultLimit(t *testing.T) {
	r := NewReassembler(-1)

	r.Feed([]byte(strings.Repeat("x", MaxLineSize)))
	assert.Equal(t, 0, r.Overflows())
	r.Feed([]byte("x"))
	assert.Equal(t, 1, r.Overflows())
}

func TestReassemblerReset(t *testing.T) {
	r := NewReassembler(0)
	r.Feed([]byte("partial"))
	r.Reset()
	assert.Equal(t, 0, r.Pending())
	assert.Equal(t, []string{"ping"}, r.Feed([]byte("ping\n")))
}
