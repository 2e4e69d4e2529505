package visa

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gotmc/prologix"
	"github.com/gotmc/prologix/driver/vcp"
)

// gpibManager reaches GPIB instruments through a Prologix GPIB-USB
// controller. Locations look like "gpib:///dev/ttyUSB1:9" where the trailing
// number is the instrument's GPIB address. Read timeouts are owned by the
// controller itself, so the per-call override is not applied here.
type gpibManager struct{}

func (gpibManager) open(rest, termination string, _ time.Duration) (Session, error) {
	device, addr, err := parseGPIBTarget(rest)
	if err != nil {
		return nil, err
	}
	port, err := vcp.NewVCP(device)
	if err != nil {
		return nil, fmt.Errorf("open prologix port %s: %w", device, err)
	}
	ctrl, err := prologix.NewController(port, addr, false)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("attach prologix controller on %s: %w", device, err)
	}
	return &gpibSession{port: port, ctrl: ctrl}, nil
}

func parseGPIBTarget(rest string) (string, int, error) {
	idx := strings.LastIndex(rest, ":")
	if idx <= 0 || idx == len(rest)-1 {
		return "", 0, fmt.Errorf("gpib location %q must look like <serial-device>:<address>", rest)
	}
	addr, err := strconv.Atoi(rest[idx+1:])
	if err != nil || addr < 0 || addr > 30 {
		return "", 0, fmt.Errorf("invalid gpib address %q", rest[idx+1:])
	}
	return rest[:idx], addr, nil
}

type gpibSession struct {
	port io.ReadWriteCloser
	ctrl *prologix.Controller
}

// WriteLine delegates termination handling to the controller, which appends
// its own GPIB line ending.
func (s *gpibSession) WriteLine(message string) error {
	return s.ctrl.Command(message)
}

func (s *gpibSession) ReadLine() (string, error) {
	line, err := readUntilTerminator(s.ctrl)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// gpibReadChunk is the size of one controller read. Trace transfers span
// many chunks.
const gpibReadChunk = 512

// readUntilTerminator assembles a reply from chunked reads until the newline
// terminator arrives. EOF with buffered data is the EOI end of a reply that
// carries no newline; any other error mid-reply fails the whole read so a
// truncated reply never passes as success.
func readUntilTerminator(r io.Reader) (string, error) {
	var reply []byte
	buf := make([]byte, gpibReadChunk)
	for {
		n, err := r.Read(buf)
		reply = append(reply, buf[:n]...)
		if idx := bytes.IndexByte(reply, '\n'); idx >= 0 {
			return string(reply[:idx+1]), nil
		}
		if err != nil {
			if err == io.EOF && len(reply) > 0 {
				return string(reply), nil
			}
			return "", err
		}
	}
}

func (s *gpibSession) Close() error {
	return s.port.Close()
}
