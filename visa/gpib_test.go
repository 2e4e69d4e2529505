package visa

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// chunkReader serves its chunks one Read at a time, then the configured
// error, mimicking a controller that hands out bounded reads.
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	chunk := r.chunks[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		r.chunks[0] = chunk[n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func TestReadUntilTerminatorAssemblesChunkedReply(t *testing.T) {
	// A trace readout far beyond one chunk, split mid-number.
	long := strings.Repeat("0.123456,-0.654321,", 200)
	reader := &chunkReader{chunks: [][]byte{
		[]byte(long[:512]),
		[]byte(long[512:1024]),
		[]byte(long[1024:] + "\n"),
	}}

	line, err := readUntilTerminator(reader)
	require.NoError(t, err)
	require.Equal(t, long+"\n", line)
}

func TestReadUntilTerminatorStopsAtNewline(t *testing.T) {
	reader := &chunkReader{chunks: [][]byte{[]byte("42\nleftover")}}

	line, err := readUntilTerminator(reader)
	require.NoError(t, err)
	require.Equal(t, "42\n", line)
}

func TestReadUntilTerminatorAcceptsEOIEnd(t *testing.T) {
	reader := &chunkReader{chunks: [][]byte{[]byte("9.99")}}

	line, err := readUntilTerminator(reader)
	require.NoError(t, err)
	require.Equal(t, "9.99", line)
}

func TestReadUntilTerminatorFailsMidReply(t *testing.T) {
	timeout := errors.New("read timeout")
	reader := &chunkReader{chunks: [][]byte{[]byte("0.123456,-0.6543")}, err: timeout}

	line, err := readUntilTerminator(reader)
	require.ErrorIs(t, err, timeout)
	require.Empty(t, line)
}
