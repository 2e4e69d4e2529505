package visa

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
)

const defaultBaudRate = 9600

// serialManager reaches instruments on local serial ports. Locations look
// like "serial:///dev/ttyUSB0?baud=115200"; the baud parameter is optional.
type serialManager struct{}

func (serialManager) open(rest, termination string, timeout time.Duration) (Session, error) {
	device, mode, err := parseSerialTarget(rest)
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", device, err)
	}
	if timeout > 0 {
		if err := port.SetReadTimeout(timeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", device, err)
		}
	}
	return newLineSession(port, termination), nil
}

func parseSerialTarget(rest string) (string, *serial.Mode, error) {
	mode := &serial.Mode{BaudRate: defaultBaudRate}
	device := rest
	if idx := strings.Index(rest, "?"); idx >= 0 {
		device = rest[:idx]
		params, err := url.ParseQuery(rest[idx+1:])
		if err != nil {
			return "", nil, fmt.Errorf("parse serial parameters %q: %w", rest[idx+1:], err)
		}
		if raw := params.Get("baud"); raw != "" {
			baud, err := strconv.Atoi(raw)
			if err != nil || baud <= 0 {
				return "", nil, fmt.Errorf("invalid baud rate %q", raw)
			}
			mode.BaudRate = baud
		}
	}
	if device == "" {
		return "", nil, fmt.Errorf("serial location %q is missing the device path", rest)
	}
	return device, mode, nil
}
