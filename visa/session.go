package visa

import (
	"bufio"
	"io"
	"strings"
)

// lineSession frames newline-terminated text exchanges over a raw byte
// stream. It backs both the serial and the TCP resource managers.
type lineSession struct {
	rw          io.ReadWriteCloser
	reader      *bufio.Reader
	termination string
}

func newLineSession(rw io.ReadWriteCloser, termination string) *lineSession {
	return &lineSession{rw: rw, reader: bufio.NewReader(rw), termination: termination}
}

func (s *lineSession) WriteLine(message string) error {
	_, err := io.WriteString(s.rw, message+s.termination)
	return err
}

// ReadLine fails whenever the terminator did not arrive. A deadline expiring
// mid-reply must not hand the caller a truncated line as success.
func (s *lineSession) ReadLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *lineSession) Close() error {
	return s.rw.Close()
}
