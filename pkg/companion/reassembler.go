package companion

import "bytes"

// Reassembler rebuilds delimited lines from arbitrary chunks. A chunk that
// would grow the pending data beyond the limit resets the buffer and is
// discarded.
type Reassembler struct {
	buf       []byte
	limit     int
	overflows int
}

// NewReassembler creates a reassembler buffering at most limit bytes. A
// limit of zero or less selects MaxLineSize.
func NewReassembler(limit int) *Reassembler {
	if limit <= 0 {
		limit = MaxLineSize
	}
	return &Reassembler{limit: limit}
}

// Feed adds a chunk and returns the lines it completed, without delimiters
// and trailing carriage returns. Empty lines are skipped.
func (r *Reassembler) Feed(chunk []byte) []string {
	if len(r.buf)+len(chunk) > r.limit {
		r.buf = r.buf[:0]
		r.overflows++
		return nil
	}
	r.buf = append(r.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(r.buf, Delimiter)
		if i < 0 {
			break
		}
		line := bytes.TrimRight(r.buf[:i], "\r")
		if len(line) > 0 {
			lines = append(lines, string(line))
		}
		r.buf = r.buf[i+1:]
	}
	if len(r.buf) == 0 {
		r.buf = nil
	}
	return lines
}

// Pending returns the number of buffered bytes.
func (r *Reassembler) Pending() int {
	return len(r.buf)
}

// Overflows returns how many times the buffer was reset.
func (r *Reassembler) Overflows() int {
	return r.overflows
}

// Reset discards buffered data.
func (r *Reassembler) Reset() {
	r.buf = nil
}
